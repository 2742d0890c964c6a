package main

import (
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shark-voyager/voyager-cli/internal/geoio"
	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/model"
	"github.com/shark-voyager/voyager-cli/internal/synthetic"
)

var absenceCmd = &cobra.Command{
	Use:   "absence",
	Short: "Generate pseudo-absence points from presence records",
	Long:  "Samples random background points inside the study region, keeping each one at least the buffer distance away from every presence of the same life stage. Output pairs with the presences for habitat model training.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		if input == "" {
			input = filepath.Join(cfg.Paths.DataProcessed, "ocearch_points.csv")
		}
		if output == "" {
			output = filepath.Join(cfg.Paths.DataProcessed, "absence_points.csv")
		}

		presences, err := geoio.ReadPointsCSV(input)
		if err != nil {
			return err
		}
		if len(presences) == 0 {
			return eris.Errorf("absence: no presence points in %s", input)
		}

		region := grid.RegionFromConfig(cfg.Spatial)
		opts := synthetic.AbsenceOptions{
			BufferKM:        cfg.Absence.BufferKM,
			Ratio:           cfg.Absence.Ratio,
			Seed:            cfg.Absence.Seed,
			AttemptsPerGoal: cfg.Absence.AttemptsPerGoal,
		}

		absences, err := synthetic.GenerateAbsences(region, presences, opts)
		if err != nil {
			return err
		}

		if err := geoio.WritePointsCSV(output, absences); err != nil {
			return err
		}

		gpkgPath := filepath.Join(filepath.Dir(output), "observations.gpkg")
		if err := geoio.WritePointsGPKG(ctx, gpkgPath, "absence", absences); err != nil {
			return err
		}

		zap.L().Info("absence: generated points",
			zap.Int("presences", len(presences)),
			zap.Int("absences", len(absences)),
			zap.Strings("life_stages", model.LifeStages(absences)),
		)
		fmt.Printf("Generated %d absence points from %d presences: %s\n", len(absences), len(presences), output)
		return nil
	},
}

func init() {
	absenceCmd.Flags().String("input", "", "presence points CSV (default: processed ocearch points)")
	absenceCmd.Flags().String("output", "", "output CSV path (default: processed absence_points.csv)")
	rootCmd.AddCommand(absenceCmd)
}
