package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trivia-service/internal/config"
	"trivia-service/internal/infra/postgres/migrations"
	"trivia-service/internal/logger"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
			return runMigrationsWithConfig(cmd.Context(), cfg, log)
		},
	}
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	applied, err := migrations.Apply(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	if len(applied) == 0 {
		log.Info().Msg("database schema up to date")
		return nil
	}
	log.Info().Strs("migrations", applied).Msg("migrations applied")
	return nil
}
