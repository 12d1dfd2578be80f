package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// projectsCmd represents the projects command
var projectsCmd = &cobra.Command{
	Use:   "projects [query]",
	Short: "List Roboflow projects, optionally fuzzy filtered",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		projects, err := app.FilterProjects(cmd.Context(), query)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tIMAGES")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Type, p.Images)
		}
		return w.Flush()
	},
}

// datasetsCmd represents the datasets command
var datasetsCmd = &cobra.Command{
	Use:   "datasets [version]",
	Short: "List dataset versions, or the datasets of one version",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		var names []string
		if len(args) == 0 {
			names, err = app.Store.ListVersions(cmd.Context())
		} else {
			names, err = app.Store.ListDatasets(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		if withStats, _ := cmd.Flags().GetBool("stats"); withStats && len(args) == 1 {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATASET\tIMAGES\tANNOTATED\tANNOTATIONS\tCATEGORIES")
			for _, name := range names {
				stats, err := app.Store.Stats(cmd.Context(), args[0], name)
				if err != nil {
					return fmt.Errorf("while reading stats of %s: %w", name, err)
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", name, stats.ImageCount, stats.AnnotatedImages, stats.AnnotationCount, stats.CategoryCount)
			}
			return w.Flush()
		}
		if len(names) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(datasetsCmd)

	datasetsCmd.Flags().BoolP("stats", "s", false, "Show image and annotation counts per dataset")
}
