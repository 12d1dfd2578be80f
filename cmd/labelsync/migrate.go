package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lewtec/labelsync/internal/repository"
	"github.com/lewtec/labelsync/labelsync"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate [database]",
	Short: "Create or upgrade the run history database",
	Long: `Apply pending schema migrations to the run history database.

The database defaults to database.path from the configuration.

Example: labelsync migrate labelsync.db`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			cfg.Database.Path = args[0]
		}
		logger := labelsync.SetupLogger(cfg.Logging, cmd.ErrOrStderr())

		db, err := labelsync.GetDatabase(cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		defer db.Close()

		version, dirty, err := repository.SchemaVersion(db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d", cfg.Database.Path, version)
		if dirty {
			fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
