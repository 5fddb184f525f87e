package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/geocoder89/labsmonitor/internal/config"
	"github.com/geocoder89/labsmonitor/internal/db"
	"github.com/geocoder89/labsmonitor/internal/observability"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "labsmonitor",
		Short:         "Labs Monitor API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	for _, dir := range []struct{ use, short string }{
		{db.MigrateUp, "Apply pending migrations"},
		{db.MigrateDown, "Roll back the last migration"},
		{db.MigrateStatus, "Show migration status"},
	} {
		direction := dir.use
		cmd.AddCommand(&cobra.Command{
			Use:   direction,
			Short: dir.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(cmd.Context(), direction)
			},
		})
	}

	return cmd
}

func runMigrate(ctx context.Context, direction string) error {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	cctx, cancel := config.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	pool, err := db.NewPool(cctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(cctx, pool, direction); err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}

	log.Info("migrations finished", "direction", direction)
	return nil
}
