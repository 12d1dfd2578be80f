package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lewtec/labelsync/internal/domain"
)

// errSyncFailed makes the process exit non-zero after the report is printed
var errSyncFailed = errors.New("sync finished with failures")

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload one dataset to a Roboflow project",
	Long: `Upload one dataset to a Roboflow project and print the report as JSON.

Interrupting the command stops dispatching new images; the report of the
images already processed is still printed.

Example:
  labelsync sync --version v1 --dataset train --project acme/widgets`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var req domain.SyncRequest
		req.Version, _ = cmd.Flags().GetString("version")
		req.Dataset, _ = cmd.Flags().GetString("dataset")
		req.ProjectID, _ = cmd.Flags().GetString("project")
		if err := req.Validate(); err != nil {
			return err
		}

		app, logger, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if cmd.Flags().Changed("workers") {
			app.Config.Sync.Workers, _ = cmd.Flags().GetInt("workers")
			if err := app.Config.Validate(); err != nil {
				return err
			}
		}
		quiet, _ := cmd.Flags().GetBool("quiet")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stderr := cmd.ErrOrStderr()
		report, err := app.Sync(ctx, req, func(done, total int) {
			if !quiet {
				fmt.Fprintf(stderr, "\r%d/%d images", done, total)
				if done == total {
					fmt.Fprintln(stderr)
				}
			}
		})
		if err != nil {
			return err
		}
		if report.Cancelled {
			logger.Warn("sync interrupted", "uploaded", report.Uploaded, "failed", report.Failed)
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return err
		}
		if !report.Success || report.Cancelled {
			return errSyncFailed
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("version", "", "Dataset version (top-level storage prefix)")
	syncCmd.Flags().String("dataset", "", "Dataset name under the version")
	syncCmd.Flags().StringP("project", "p", "", "Roboflow project id, workspace/project or project")
	syncCmd.Flags().IntP("workers", "w", 0, "Concurrent uploads (overrides sync.workers)")
	syncCmd.Flags().BoolP("quiet", "q", false, "Do not print progress")
}
