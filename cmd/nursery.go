package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shark-voyager/voyager-cli/internal/geoio"
	"github.com/shark-voyager/voyager-cli/internal/synthetic"
)

var nurseryCmd = &cobra.Command{
	Use:   "nursery",
	Short: "Compute the nursery habitat suitability index",
	Long:  "Scores every grid cell on shallow depth, gentle slope, warm summer water, and elevated chlorophyll. Each satisfied criterion contributes a quarter of the final 0-1 index.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir := cfg.Paths.DataProcessed

		g, err := studyGrid()
		if err != nil {
			return err
		}

		depth, err := geoio.ReadGeoTIFF(filepath.Join(dir, "depth.tif"), "depth", "m")
		if err != nil {
			return err
		}
		slope, err := geoio.ReadGeoTIFF(filepath.Join(dir, "slope.tif"), "slope", "degrees")
		if err != nil {
			return err
		}
		sst, err := geoio.ReadNetCDF(filepath.Join(dir, "sst_weekly.nc"), "sst", "degree_C")
		if err != nil {
			return err
		}
		chl, err := geoio.ReadNetCDF(filepath.Join(dir, "chlorophyll_weekly.nc"), "chlorophyll", "mg m-3")
		if err != nil {
			return err
		}

		opts := synthetic.NurseryOptions{
			MaxDepthM:    cfg.Nursery.MaxDepthM,
			MaxSlopeDeg:  cfg.Nursery.MaxSlopeDeg,
			MinSummerSST: cfg.Nursery.MinSummerSST,
			SummerMonths: cfg.Nursery.SummerMonths,
		}

		index, err := synthetic.NurseryIndex(g, synthetic.NurseryInputs{
			Depth:       depth,
			Slope:       slope,
			SST:         sst,
			Chlorophyll: chl,
		}, opts)
		if err != nil {
			return err
		}

		outPath := filepath.Join(dir, "nursery_index.tif")
		if err := geoio.WriteGeoTIFF(outPath, index); err != nil {
			return err
		}

		if min, max, ok := index.MinMax(); ok {
			zap.L().Info("nursery: index written",
				zap.Float64("min", min),
				zap.Float64("max", max),
				zap.Int("valid_cells", index.ValidCount()),
			)
		}
		fmt.Printf("Nursery suitability index: %s\n", outPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nurseryCmd)
}
