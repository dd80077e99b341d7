package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/placxborcx/Onboarding-MainPage/internal/config"
	"github.com/placxborcx/Onboarding-MainPage/internal/jobs"
	"github.com/placxborcx/Onboarding-MainPage/internal/storage/postgres"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
		Long: `Apply or roll back the parkfinder schema (geocoding caches and signups)
and River's job tables. Requires DATABASE_URL.`,
	}

	var skipRiver bool
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := migrationConfig(root)
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg.Logging)

			if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
				return err
			}
			logger.Info().Msg("schema migrations applied")

			if skipRiver {
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			pool, err := postgres.Connect(ctx, cfg.Database.URL, 2)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := jobs.MigrateSchema(ctx, pool); err != nil {
				return err
			}
			logger.Info().Msg("river migrations applied")
			return nil
		},
	}
	up.Flags().BoolVar(&skipRiver, "skip-river", false, "do not migrate River's job tables")

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := migrationConfig(root)
			if err != nil {
				return err
			}
			if err := postgres.MigrateDown(cfg.Database.URL, steps); err != nil {
				return err
			}
			logger := config.NewLogger(cfg.Logging)
			logger.Info().Int("steps", steps).Msg("schema migrations rolled back")
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := migrationConfig(root)
			if err != nil {
				return err
			}
			v, dirty, err := postgres.MigrationVersion(cfg.Database.URL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func migrationConfig(root *rootOptions) (config.Config, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	if cfg.Database.URL == "" {
		return config.Config{}, fmt.Errorf("DATABASE_URL is required for migrations")
	}
	return cfg, nil
}
