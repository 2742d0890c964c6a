package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/shark-voyager/voyager-cli/internal/catalog"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect pipeline run history",
	Long:  "Commands for listing and viewing recorded collection and standardization runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initCatalog(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, catalog.RunFilter{
			Status: catalog.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its per-variable outcomes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initCatalog(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		variables, err := st.ListVariables(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		formatRunDetail(os.Stdout, run, variables)
		return nil
	},
}

func formatRunsList(w io.Writer, runs []catalog.Run) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMMAND\tPERIOD\tSTATUS\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s..%s\t%s\t%s\n",
			r.ID, r.Command, r.StartDate, r.EndDate, r.Status,
			r.CreatedAt.Format(time.RFC3339),
		)
	}
	tw.Flush() //nolint:errcheck,gosec
}

func formatRunDetail(w io.Writer, run *catalog.Run, variables []catalog.Variable) {
	fmt.Fprintf(w, "Run:     %s\n", run.ID)
	fmt.Fprintf(w, "Command: %s\n", run.Command)
	fmt.Fprintf(w, "Region:  lon [%.2f, %.2f] lat [%.2f, %.2f]\n",
		run.Region.MinLon, run.Region.MaxLon, run.Region.MinLat, run.Region.MaxLat)
	fmt.Fprintf(w, "Period:  %s .. %s\n", run.StartDate, run.EndDate)
	fmt.Fprintf(w, "Status:  %s\n", run.Status)
	fmt.Fprintf(w, "Created: %s\n", run.CreatedAt.Format(time.RFC3339))

	if len(variables) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIABLE\tSTATUS\tREASON\tOUTPUTS")
	for _, v := range variables {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", v.Name, v.Status, v.Reason, len(v.Outputs))
	}
	tw.Flush() //nolint:errcheck,gosec
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by status (running, complete, failed)")
	runsListCmd.Flags().Int("limit", 20, "maximum runs to list")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
