package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notifyhub/cogbot/internal/config"
	"github.com/notifyhub/cogbot/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply PostgreSQL migrations for the reminder store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info("database migrations applied")
		return nil
	},
}
