package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lewtec/labelsync/labelsync"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a configuration file holding every setting at its default value.

Secrets are better kept out of the file; every key can be overridden from the
environment, e.g. LABELSYNC_ROBOFLOW_API_KEY or LABELSYNC_STORAGE_SECRET_KEY.

Example:
  labelsync init -c labelsync.yaml --bucket datasets`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		if configFile == "" {
			configFile = "labelsync.yaml"
		}

		cfg := labelsync.DefaultConfig()
		cfg.Storage.Backend, _ = cmd.Flags().GetString("backend")
		cfg.Storage.Bucket, _ = cmd.Flags().GetString("bucket")
		cfg.Storage.Root, _ = cmd.Flags().GetString("root")
		cfg.Database.Path, _ = cmd.Flags().GetString("database")

		if err := labelsync.WriteSampleConfig(configFile, cfg); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration file created: %s\n", configFile)
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintln(out, "  1. Set LABELSYNC_ROBOFLOW_API_KEY or roboflow.api_key")
		fmt.Fprintf(out, "  2. labelsync datasets -c %s\n", configFile)
		fmt.Fprintf(out, "  3. labelsync sync -c %s --version <version> --dataset <dataset> --project <project>\n", configFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	defaults := labelsync.DefaultConfig()
	initCmd.Flags().String("backend", defaults.Storage.Backend, "Storage backend: s3, minio or fs")
	initCmd.Flags().String("bucket", "", "Bucket holding the datasets")
	initCmd.Flags().String("root", "", "Dataset directory for the fs backend")
	initCmd.Flags().StringP("database", "d", "labelsync.db", "Run history database file")
}
