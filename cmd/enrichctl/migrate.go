package main

import (
	"github.com/couchcryptid/dpe-enrichment-service/internal/adapter/postgres"
	"github.com/spf13/cobra"
)

var migrateDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := migrateDir
		if dir == "" {
			dir = cfg.MigrationsDir
		}
		return postgres.RunMigrations(dir, cfg.DatabaseURL, logger)
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDir, "dir", "", "migrations directory (default MIGRATIONS_DIR)")
	rootCmd.AddCommand(migrateCmd)
}
