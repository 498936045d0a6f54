package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/applyflow/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(_ *cobra.Command, _ []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		config, err := getConfig()
		if err != nil {
			return fmt.Errorf("getting a config: %w", err)
		}

		db, err := openDatabase(config, log)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		if err := database.Migrate(db); err != nil {
			return err
		}

		log.Info("database schema is up to date", zap.Int("tables", len(database.Models())))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
