package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"keyward/internal/config"
)

// configView is what "config show" prints; the sealed section is
// summarised, never decrypted.
type configView struct {
	Path    string                 `json:"path" yaml:"path"`
	Network config.Network         `json:"network" yaml:"network"`
	Tools   map[string]config.Tool `json:"tools,omitempty" yaml:"tools,omitempty"`
	KDF     config.KDF             `json:"kdf" yaml:"kdf"`
	Crypto  string                 `json:"crypto" yaml:"crypto"`
}

func configCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration file",
	}
	cmd.AddCommand(configShowCmd(opts), configPathCmd(opts))
	return cmd
}

func configShowCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the non-sensitive configuration",
		Long: `Displays the configuration as YAML, or JSON with --json. The sealed crypto
section is not decrypted; only its presence and size are shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.appConfig().Path()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			v := configView{
				Path:    path,
				Network: cfg.Network,
				Tools:   cfg.Tools,
				KDF:     cfg.KDF,
				Crypto:  "empty",
			}
			if !cfg.Crypto.IsZero() {
				v.Crypto = fmt.Sprintf("sealed (%d bytes)", len(cfg.Crypto))
			}
			return render(cmd.OutOrStdout(), v, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func configPathCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.appConfig().Path()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
