package main

import (
	"context"
	"log/slog"
	"os"

	"shortlink/internal/config"
	"shortlink/internal/database"
	"shortlink/internal/service"

	"github.com/spf13/cobra"
)

type openFunc func(ctx context.Context, cfg config.Config) (database.Backend, error)

// cli holds what the subcommands share once the root pre-run has loaded
// the configuration and opened the store.
type cli struct {
	open  openFunc
	cfg   config.Config
	store database.Backend
}

func (c *cli) shortener() *service.Shortener {
	return service.NewShortener(c.store,
		service.WithGenerator(service.NewGenerator(c.cfg.CodeLength)),
		service.WithMaxAttempts(c.cfg.MaxAttempts),
		service.WithExpiryEnforcement(c.cfg.EnforceExpiry),
	)
}

func newRootCmd(open openFunc) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:   "shortlinkctl",
		Short: "Manage short links directly against the configured store.",
		Long: `shortlinkctl creates, inspects and resolves short links without going
through the HTTP server. It reads the same environment (and .env file) as
the server, so STORE_DRIVER and DB_URL select the backend.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
			if cfg.StoreDriver == config.DriverMemory {
				slog.Warn("STORE_DRIVER=memory: links only live as long as this command")
			}

			store, err := c.open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.store = store
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if c.store == nil {
				return nil
			}
			return c.store.Close()
		},
	}

	root.AddCommand(
		newCreateCmd(c),
		newStatsCmd(c),
		newResolveCmd(c),
		newMigrateCmd(c),
	)
	return root
}
