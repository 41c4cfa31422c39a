package cmd

import (
	"fmt"

	"github.com/alenjb/deli/internal/logger"
	"github.com/alenjb/deli/internal/repositories/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the PostgreSQL tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage != "postgres" {
			return fmt.Errorf("migrate needs storage postgres, got %q", cfg.Storage)
		}

		ctx := cmd.Context()
		db, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		logger.New("migrate").Info("schema applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
