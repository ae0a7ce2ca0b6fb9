package commands

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"keyward/internal/domain"
	"keyward/internal/util/memzero"
)

func keyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the master key",
	}
	cmd.AddCommand(keyInitCmd(opts), keyStatusCmd(opts), keySetPassphraseCmd(opts))
	return cmd
}

func keyInitCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a random master key and store it in the OS keyring",
		Long: `Generates 32 random bytes and stores them, hex-encoded, in the OS keyring
entry "master-key" of service "keyward". Any stored pass-phrase is removed.

Refuses to run when a master key is already available (including through
KEYWARD_PASSPHRASE) unless --force is given. Replacing the key makes data
sealed with the old key unreadable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.getWire()
			if err != nil {
				return err
			}
			spin, done := startSpinner(cmd.ErrOrStderr(), "Generating master key...", opts.log)
			err = w.Keys.Initialize(cmd.Context(), force)
			if err != nil {
				done()
				return err
			}
			spin.FinalMSG = "✓ Master key stored in OS keyring"
			done()

			desc, err := w.Keys.Status(cmd.Context())
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), desc)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing master key")
	return cmd
}

func keyStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which master key source is active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.getWire()
			if err != nil {
				return err
			}
			desc, err := w.Keys.Status(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return render(cmd.OutOrStdout(), desc, true)
			}
			printStatus(cmd.OutOrStdout(), desc)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func printStatus(out io.Writer, desc domain.SourceDescriptor) {
	fmt.Fprintf(out, "Source:    %s\n", desc.Origin)
	if desc.KeyCheck != "" {
		fmt.Fprintf(out, "Key check: %s\n", desc.KeyCheck)
	}
}

func keySetPassphraseCmd(opts *rootOptions) *cobra.Command {
	var (
		force bool
		file  string
	)
	cmd := &cobra.Command{
		Use:   "set-passphrase",
		Short: "Store a master pass-phrase in the OS keyring",
		Long: `Stores a pass-phrase in the OS keyring entry "master-passphrase". The master
key is derived from it with Argon2id on every use. The raw-key entry is
removed.

The pass-phrase is read from --passphrase-file, from standard input when
it is not a terminal, or prompted for interactively. It must be at least
12 characters and contain upper and lower case letters, a digit and a
symbol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.getWire()
			if err != nil {
				return err
			}
			pass, err := readPassphrase(cmd.InOrStdin(), cmd.ErrOrStderr(), file)
			if err != nil {
				return err
			}
			// StorePassphrase zeroes pass.
			if err := w.Keys.StorePassphrase(cmd.Context(), pass, force); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Pass-phrase stored in OS keyring")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing master key")
	cmd.Flags().StringVar(&file, "passphrase-file", "", "read the pass-phrase from this file")
	return cmd
}

// readPassphrase reads from path, from in if it is not a terminal, or
// prompts twice on the terminal. Trailing newlines are stripped.
func readPassphrase(in io.Reader, prompt io.Writer, path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return nonEmpty(trimNewlines(data))
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Pass-phrase: ")
		first, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return nil, fmt.Errorf("reading pass-phrase: %w", err)
		}
		fmt.Fprint(prompt, "Repeat pass-phrase: ")
		second, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		defer memzero.Zero(second)
		if err != nil {
			memzero.Zero(first)
			return nil, fmt.Errorf("reading pass-phrase: %w", err)
		}
		if !bytes.Equal(first, second) {
			memzero.Zero(first)
			return nil, errors.New("pass-phrases do not match")
		}
		return nonEmpty(first)
	}

	line, err := bufio.NewReader(in).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading pass-phrase: %w", err)
	}
	return nonEmpty(trimNewlines(line))
}

func trimNewlines(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func nonEmpty(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("empty pass-phrase")
	}
	return b, nil
}
