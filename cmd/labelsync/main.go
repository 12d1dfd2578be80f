package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lewtec/labelsync/labelsync"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "labelsync",
	Short: "Push COCO annotated datasets to Roboflow",
	Long: strings.TrimSpace(`
Reads COCO annotations and images from object storage, converts the boxes to
YOLO lines and uploads every image with its annotation to a Roboflow project.

Without a subcommand the HTTP server is started.
    `),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (defaults to ./labelsync.yaml when present)")
	rootCmd.Flags().StringP("addr", "a", "", "Address to bind the webserver")
}

// loadConfig reads the file named by --config plus LABELSYNC_* overrides
func loadConfig(cmd *cobra.Command) (*labelsync.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := labelsync.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// loadApp builds the application with logs going to the command's stderr
func loadApp(cmd *cobra.Command) (*labelsync.App, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := labelsync.SetupLogger(cfg.Logging, cmd.ErrOrStderr())
	app, err := labelsync.NewApp(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return app, logger, nil
}
