package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igait-client/internal/api"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve cached job and queue snapshots over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, closeStore, err := a.newSubscriber()
			if err != nil {
				return err
			}
			defer closeStore()

			if addr == "" {
				addr = a.cfg.ServeAddr
			}
			server := api.NewServer(addr, sub, a.logger)

			errs := make(chan error, 1)
			go func() { errs <- server.Start() }()

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(interrupt)

			select {
			case err := <-errs:
				return err
			case <-interrupt:
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to the configured serve_addr)")
	return cmd
}
