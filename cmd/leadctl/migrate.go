package main

import (
	"fmt"

	"leadledger_backend/internal/bootstrap"
	"leadledger_backend/platform/db"
	"leadledger_backend/platform/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE:  runMigrate,
	}
	cmd.Flags().Bool("status", false, "print the current schema version without applying changes")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	statusOnly, _ := cmd.Flags().GetBool("status")
	cfg := settings{v: viper.GetViper()}
	if cfg.GetDatabaseURL() == "" {
		return fmt.Errorf("database url is required (--database-url or DATABASE_URL)")
	}
	log := logger.New(viper.GetString("app_env"))

	pool, err := bootstrap.ConnectDatabase(cmd.Context(), cfg, log, !statusOnly)
	if err != nil {
		return err
	}
	defer pool.Close()

	version, err := db.MigrationStatus(cmd.Context(), pool)
	if err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return nil
}
