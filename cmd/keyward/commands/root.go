package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"keyward/internal/app"
	"keyward/internal/domain"
	"keyward/internal/logging"
)

// rootOptions are the persistent flags and the lazily built wire.
type rootOptions struct {
	home           string
	configPath     string
	keyringBackend string
	verbose        bool
	debug          bool

	log  logging.Logger
	wire *app.Wire
}

// Execute runs the CLI.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		logging.Logger{}.Errorf("%v", err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintln(root.ErrOrStderr(), hint)
		}
	}
	return err
}

// NewRootCmd returns the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "keyward",
		Short:         "Protect a master key, an identity key and secure sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.log = logging.Logger{
				Verbose: opts.verbose,
				Debug:   opts.debug,
				Out:     cmd.ErrOrStderr(),
				Err:     cmd.ErrOrStderr(),
			}
			home, err := app.ResolveHome(opts.home)
			if err != nil {
				return err
			}
			opts.home = home
			opts.log.Debugf("home=%s config=%s", opts.home, opts.configPath)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.home, "home", "", "config dir (default $KEYWARD_HOME or ~/.keyward)")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default <home>/config.json)")
	root.PersistentFlags().StringVar(&opts.keyringBackend, "keyring-backend", "", "OS keyring backend, e.g. file (stored under <home>/keyring; password from $KEYWARD_KEYRING_PASSWORD)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "show info messages")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "show debug messages")

	root.AddCommand(keyCmd(opts), identityCmd(opts), sessionCmd(opts), configCmd(opts))
	return root
}

func (o *rootOptions) appConfig() app.Config {
	return app.Config{
		Home:           o.home,
		ConfigPath:     o.configPath,
		KeyringBackend: o.keyringBackend,
		Log:            o.log,
	}
}

// getWire builds the dependency graph on first use.
func (o *rootOptions) getWire() (*app.Wire, error) {
	if o.wire != nil {
		return o.wire, nil
	}
	w, err := app.NewWire(o.appConfig())
	if err != nil {
		return nil, err
	}
	o.wire = w
	return w, nil
}

// hintFor suggests a next step for common errors.
func hintFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoMasterKey):
		return "→ run 'keyward key init' or set KEYWARD_PASSPHRASE"
	case errors.Is(err, domain.ErrKeyAlreadyExists):
		return "→ pass --force to replace the existing key; data sealed with it becomes unreadable"
	case errors.Is(err, domain.ErrNoIdentity):
		return "→ run 'keyward identity init'"
	case errors.Is(err, domain.ErrDecryptionFailed):
		return "→ the active master key does not match the one the config was sealed with"
	case errors.Is(err, domain.ErrProviderFailure):
		return "→ check that an OS keyring is available, or use --keyring-backend file"
	}
	return ""
}
