package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shark-voyager/voyager-cli/internal/catalog"
	"github.com/shark-voyager/voyager-cli/internal/collector"
	"github.com/shark-voyager/voyager-cli/internal/standardize"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

var standardizeCmd = &cobra.Command{
	Use:   "standardize",
	Short: "Resample raw data onto the study grid at weekly cadence",
	Long:  "Loads previously collected raw data, resamples every variable onto the configured grid, aggregates to weekly layers, derives slope, gradients, distance and density rasters, and writes the processed products plus a run report.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		g, err := studyGrid()
		if err != nil {
			return err
		}
		tr, err := studyRange()
		if err != nil {
			return err
		}

		datasets, err := collector.LoadDatasets(cfg.Paths.DataRaw)
		if err != nil {
			return err
		}

		st, err := initCatalog(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.CreateRun(ctx, "standardize", g.Region, cfg.Temporal.StartDate, cfg.Temporal.EndDate)
		if err != nil {
			return err
		}
		zap.L().Info("standardize: starting run",
			zap.String("run_id", run.ID),
			zap.Int("datasets", len(datasets)),
		)

		s := standardize.New(g, tr, temporal.Hemisphere(cfg.Temporal.Hemisphere))
		report, err := s.Run(ctx, datasets, cfg.Paths.DataProcessed)
		if err != nil {
			_ = st.CompleteRun(ctx, run.ID, catalog.RunFailed)
			return err
		}
		for _, outcome := range report.Outcomes {
			err := st.RecordVariable(ctx, catalog.Variable{
				RunID:   run.ID,
				Name:    outcome.Name,
				Status:  outcome.Status,
				Reason:  outcome.Reason,
				Outputs: outcome.Outputs,
			})
			if err != nil {
				zap.L().Warn("standardize: record variable", zap.Error(err))
			}
		}

		reportPath := filepath.Join(cfg.Paths.DataProcessed, "report.yaml")
		if err := report.WriteYAML(reportPath); err != nil {
			_ = st.CompleteRun(ctx, run.ID, catalog.RunFailed)
			return err
		}
		if err := st.CompleteRun(ctx, run.ID, catalog.RunComplete); err != nil {
			return err
		}

		fmt.Printf("Processed %d variables into %s\n", len(report.Succeeded()), cfg.Paths.DataProcessed)
		if skipped := report.Skipped(); len(skipped) > 0 {
			fmt.Printf("Skipped: %s\n", strings.Join(skipped, ", "))
		}
		fmt.Printf("Report: %s\n", reportPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(standardizeCmd)
}
