package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"keyward/internal/domain"
	"keyward/internal/identity"
	"keyward/internal/services/session"
)

func identityCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the identity key",
	}
	cmd.AddCommand(identityInitCmd(opts), identityRotateCmd(opts), identityFingerprintCmd(opts))
	return cmd
}

func identityInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate identity keys and store them sealed in the config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.getWire()
			if err != nil {
				return err
			}
			var id domain.Identity
			spin, done := startSpinner(cmd.ErrOrStderr(), "Creating identity...", opts.log)
			err = w.Vault.Update(cmd.Context(), func(s *session.Store) error {
				id, err = s.ProvisionIdentity()
				return err
			})
			if err != nil {
				done()
				return err
			}
			spin.FinalMSG = "✓ Identity created"
			done()
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", identity.Fingerprint(id))
			return nil
		},
	}
}

func identityRotateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Replace the identity key; every established session is dropped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.getWire()
			if err != nil {
				return err
			}
			var (
				id      domain.Identity
				dropped int
			)
			spin, done := startSpinner(cmd.ErrOrStderr(), "Rotating identity...", opts.log)
			err = w.Vault.Update(cmd.Context(), func(s *session.Store) error {
				id, dropped, err = s.RotateIdentity()
				return err
			})
			if err != nil {
				done()
				return err
			}
			spin.FinalMSG = "✓ Identity rotated"
			done()
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", identity.Fingerprint(id))
			fmt.Fprintf(cmd.OutOrStdout(), "Sessions dropped: %d\n", dropped)
			return nil
		},
	}
}

func identityFingerprintCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print identity fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.getWire()
			if err != nil {
				return err
			}
			return w.Vault.View(cmd.Context(), func(s *session.Store) error {
				id, err := s.Identity()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", identity.Fingerprint(id))
				return nil
			})
		},
	}
}
