package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mmaxwell0637/safetrack-fe/internal/config"
	"github.com/mmaxwell0637/safetrack-fe/internal/observability"
	"github.com/mmaxwell0637/safetrack-fe/internal/persistence"
)

var steps int

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back or inspect the embedded schema migrations. Requires POSTGRES_DSN.`,
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *persistence.Migrator, log *zap.Logger) error {
				log.Info("running down migrations", zap.Int("steps", steps))
				return m.Down(ctx, steps)
			})
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd.Context(), func(ctx context.Context, m *persistence.Migrator, log *zap.Logger) error {
					log.Info("running up migrations")
					return m.Up(ctx)
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd.Context(), func(ctx context.Context, m *persistence.Migrator, log *zap.Logger) error {
					version, err := m.Status(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Current Version: %d\n", version)
					return nil
				})
			},
		},
	)

	return cmd
}

func withMigrator(ctx context.Context, fn func(context.Context, *persistence.Migrator, *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Postgres.InMemory() {
		return errors.New("POSTGRES_DSN is required for migrations")
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	migrator, err := persistence.NewMigrator(pg.PoolHandle(), logger)
	if err != nil {
		return err
	}
	if err := fn(ctx, migrator, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
