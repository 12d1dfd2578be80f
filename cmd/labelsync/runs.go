package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lewtec/labelsync/internal/domain"
	"github.com/lewtec/labelsync/internal/repository"
	"github.com/lewtec/labelsync/labelsync"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "Show the sync run history",
	Long: `List recorded sync runs, newest first, or print one run with its
per-image outcomes as JSON.

The history lives in database.path; the default in-memory database keeps
nothing between invocations.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := labelsync.SetupLogger(cfg.Logging, cmd.ErrOrStderr())
		db, err := labelsync.GetDatabase(cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		runs := repository.NewRunRepository(db)

		if len(args) == 1 {
			run, err := runs.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("%w: %s", domain.ErrRunNotFound, args[0])
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(run)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		if limit < 1 {
			return fmt.Errorf("--limit must be at least 1, got %d", limit)
		}
		list, err := runs.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tVERSION\tDATASET\tPROJECT\tUPLOADED\tFAILED\tSTATUS")
		for _, run := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				run.ID, run.StartedAt.Local().Format("2006-01-02 15:04:05"),
				run.Version, run.Dataset, run.ProjectID, run.Uploaded, run.Failed, runStatus(run))
		}
		return w.Flush()
	},
}

func runStatus(run *domain.Run) string {
	switch {
	case run.Error != "":
		return "error"
	case run.Cancelled:
		return "cancelled"
	case !run.Success:
		return "failures"
	}
	return "ok"
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntP("limit", "n", repository.DefaultListLimit, "Maximum number of runs to list")
}
