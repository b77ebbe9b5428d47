package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/baharkarakas/averulo-backend/internal/config"
	"github.com/baharkarakas/averulo-backend/internal/db"
	"github.com/baharkarakas/averulo-backend/internal/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Env)
			slog.SetDefault(log)

			pool, err := db.NewPool(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.RunMigrations(cmd.Context(), pool); err != nil {
				return err
			}
			log.Info("migrations up to date")
			return nil
		},
	}
}
