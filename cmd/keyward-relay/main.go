// Command keyward-relay serves pre-key bundles from memory for local
// development. Bundles are lost on exit.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"keyward/internal/domain"
	"keyward/internal/identity"
	"keyward/internal/logging"
	"keyward/internal/relay"
)

func main() {
	if err := newCmd().Execute(); err != nil {
		logging.Logger{}.Errorf("%v", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var (
		addr  string
		seed  []string
		opks  int
		debug bool
	)
	cmd := &cobra.Command{
		Use:           "keyward-relay",
		Short:         "In-memory pre-key relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.Logger{Verbose: true, Debug: debug, Out: cmd.ErrOrStderr(), Err: cmd.ErrOrStderr()}
			rs := relay.NewServer(log)
			if err := seedUsers(rs, seed, opks, log); err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           rs.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdown)
			}()

			log.Infof("relay listening on %s", addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringSliceVar(&seed, "seed", nil, "register a generated bundle for each user at startup")
	cmd.Flags().IntVar(&opks, "one-time-prekeys", 1, "one-time pre-keys per seeded bundle")
	cmd.Flags().BoolVar(&debug, "debug", false, "show debug messages")
	return cmd
}

// seedUsers registers a fresh identity and bundle for each name. The
// private halves are discarded, so seeded peers can be handshaken with
// but never answer.
func seedUsers(rs *relay.Server, names []string, opks int, log logging.Logger) error {
	for _, name := range names {
		id, err := identity.Generate()
		if err != nil {
			return err
		}
		bundle, _, err := identity.NewBundle(id, domain.Username(name), opks, time.Now())
		if err != nil {
			return err
		}
		rs.Register(bundle)
		log.Infof("Seeded %q (fingerprint %s)", name, identity.Fingerprint(id))
	}
	return nil
}
