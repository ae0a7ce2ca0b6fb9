package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/services/session"
)

// sessionView is the public part of a session. Ratchet state is never shown.
type sessionView struct {
	ID              domain.SessionID       `json:"id" yaml:"id"`
	Peer            domain.Username        `json:"peer" yaml:"peer"`
	PeerFingerprint string                 `json:"peer_fingerprint" yaml:"peer_fingerprint"`
	SignedPreKeyID  domain.SignedPreKeyID  `json:"signed_pre_key_id" yaml:"signed_pre_key_id"`
	OneTimePreKeyID domain.OneTimePreKeyID `json:"one_time_pre_key_id,omitempty" yaml:"one_time_pre_key_id,omitempty"`
	Created         time.Time              `json:"created" yaml:"created"`
}

func viewOf(s domain.Session) sessionView {
	return sessionView{
		ID:              s.ID,
		Peer:            s.Peer,
		PeerFingerprint: crypto.Fingerprint(s.PeerIdentityKey.Slice()),
		SignedPreKeyID:  s.SignedPreKeyID,
		OneTimePreKeyID: s.OneTimePreKeyID,
		Created:         time.Unix(s.CreatedUTC, 0).UTC(),
	}
}

func sessionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage secure sessions",
	}
	cmd.AddCommand(sessionStartCmd(opts), sessionListCmd(opts), sessionShowCmd(opts), sessionForgetCmd(opts))
	return cmd
}

// sessionStartCmd performs the X3DH handshake against a peer's prekey bundle and persists a new
// session. The handshake message to deliver to the peer is written to stdout.
func sessionStartCmd(opts *rootOptions) *cobra.Command {
	var (
		bundleFile string
		message    string
	)
	cmd := &cobra.Command{
		Use:   "start <peer>",
		Short: "Establish a secure session with a peer",
		Long: `Fetches the peer's pre-key bundle from the relay (or reads it from --bundle),
runs the handshake and stores the session sealed in the config. The
handshake message, including the encrypted --message, is printed as JSON
for delivery to the peer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := domain.Username(args[0])
			w, err := opts.getWire()
			if err != nil {
				return err
			}

			var bundle domain.PreKeyBundle
			if bundleFile != "" {
				if bundle, err = readBundle(bundleFile); err != nil {
					return err
				}
				if bundle.Username == "" {
					bundle.Username = peer
				}
			} else {
				spin, done := startSpinner(cmd.ErrOrStderr(), "Fetching pre-key bundle...", opts.log)
				bundle, err = w.Relay.FetchPreKeyBundle(cmd.Context(), peer)
				if err != nil {
					done()
					return fmt.Errorf("fetching bundle for %q: %w", peer, err)
				}
				spin.FinalMSG = "✓ Pre-key bundle fetched"
				done()
			}

			var (
				msg  domain.HandshakeMessage
				sess domain.Session
			)
			err = w.Vault.Update(cmd.Context(), func(s *session.Store) error {
				msg, sess, err = s.Establish(cmd.Context(), bundle, []byte(message))
				return err
			})
			if err != nil {
				return err
			}

			opts.log.Infof("Session %s established with %s", sess.ID, peer)
			fmt.Fprintf(cmd.ErrOrStderr(), "Session: %s\n", sess.ID)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(msg)
		},
	}
	cmd.Flags().StringVar(&bundleFile, "bundle", "", "read the peer's pre-key bundle from a JSON file")
	cmd.Flags().StringVar(&message, "message", "", "first message to encrypt for the peer")
	return cmd
}

func readBundle(path string) (domain.PreKeyBundle, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.PreKeyBundle{}, fmt.Errorf("%w: reading %s: %v", domain.ErrIO, path, err)
	}
	var bundle domain.PreKeyBundle
	if err := json.Unmarshal(b, &bundle); err != nil {
		return domain.PreKeyBundle{}, fmt.Errorf("%w: %s: %v", domain.ErrMalformedBundle, path, err)
	}
	return bundle, nil
}

func sessionListCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List established sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.getWire()
			if err != nil {
				return err
			}
			return w.Vault.View(cmd.Context(), func(s *session.Store) error {
				sessions := s.Sessions()
				views := make([]sessionView, 0, len(sessions))
				for _, sess := range sessions {
					views = append(views, viewOf(sess))
				}
				if asJSON {
					return render(cmd.OutOrStdout(), views, true)
				}
				if len(views) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sessions.")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tPEER\tCREATED")
				for _, v := range views {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", v.ID, v.Peer, v.Created.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func sessionShowCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.getWire()
			if err != nil {
				return err
			}
			return w.Vault.View(cmd.Context(), func(s *session.Store) error {
				sess, err := s.Lookup(domain.SessionID(args[0]))
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), viewOf(sess), asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func sessionForgetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <id>",
		Short: "Delete one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.getWire()
			if err != nil {
				return err
			}
			err = w.Vault.Update(cmd.Context(), func(s *session.Store) error {
				return s.Forget(domain.SessionID(args[0]))
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Session %s forgotten\n", args[0])
			return nil
		},
	}
}
