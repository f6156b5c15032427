package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/geoql-project/geoql/internal/server"
)

// LoggerGetter retrieves the request-scoped logger from a command's
// context, mirroring ConfigGetter's import-cycle workaround.
type LoggerGetter func(ctx context.Context) *slog.Logger

// NewServeCommand starts the web query console and keeps it running until
// interrupted.
func NewServeCommand(getConfig ConfigGetter, getLogger LoggerGetter) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web query console",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())
			if addr != "" {
				cfg.ServerAddr = addr
			}

			backend, err := openBackend(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			logger := getLogger(cmd.Context())
			srv := server.New(cfg, backend, logger)
			if err := srv.Serve(cmd.Context()); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "override the persistent server address for this run")
	return cmd
}
