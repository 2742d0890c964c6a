package standardize

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/shark-voyager/voyager-cli/internal/collector"
	"github.com/shark-voyager/voyager-cli/internal/geoio"
	"github.com/shark-voyager/voyager-cli/internal/model"
	"github.com/shark-voyager/voyager-cli/internal/raster"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

// Default kernel bandwidth for point-density surfaces, roughly the foraging
// range of a pinniped colony.
const defaultDensityBandwidthKM = 50.0

// Run processes every raw dataset into the processed data directory. One bad
// variable does not abort the run: it is recorded as skipped and the rest
// continue. The returned report lists the outcome per variable.
func (s *Standardizer) Run(ctx context.Context, datasets []*collector.Dataset, outDir string) (*Report, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "standardize: create output dir")
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Region:    s.grid.Region,
		StartDate: s.timeRange.Start.Format("2006-01-02"),
		EndDate:   s.timeRange.End.Format("2006-01-02"),
		StartedAt: time.Now().UTC(),
	}

	for _, ds := range datasets {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "standardize: run cancelled")
		}

		outcome := s.processDataset(ctx, ds, outDir)
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Status == StatusSkipped {
			zap.L().Warn("standardize: variable skipped",
				zap.String("dataset", ds.Name),
				zap.String("reason", outcome.Reason),
			)
		} else {
			zap.L().Info("standardize: variable processed",
				zap.String("dataset", ds.Name),
				zap.Strings("outputs", outcome.Outputs),
			)
		}
	}

	report.FinishedAt = time.Now().UTC()
	return report, nil
}

// pointGeoms converts point records to geometries for distance rasters.
func pointGeoms(points []model.Point) []geom.T {
	out := make([]geom.T, 0, len(points))
	for _, p := range points {
		out = append(out, geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}).SetSRID(4326))
	}
	return out
}

func (s *Standardizer) processDataset(ctx context.Context, ds *collector.Dataset, outDir string) Outcome {
	outcome := Outcome{Name: ds.Name, Status: StatusOK}

	fail := func(err error) Outcome {
		outcome.Status = StatusSkipped
		outcome.Reason = err.Error()
		outcome.Outputs = nil
		return outcome
	}

	switch {
	case len(ds.Points) > 0 || ds.Name == "ocearch" || ds.Name == "gbif" || ds.Name == "obis" || ds.Name == "prey" || ds.Name == "orca":
		annotated := s.AnnotatePoints(ds.Points)

		csvPath := filepath.Join(outDir, ds.Name+"_points.csv")
		if err := geoio.WritePointsCSV(csvPath, annotated); err != nil {
			return fail(err)
		}
		outcome.Outputs = append(outcome.Outputs, csvPath)

		gpkgPath := filepath.Join(outDir, "observations.gpkg")
		if err := geoio.WritePointsGPKG(ctx, gpkgPath, ds.Name, annotated); err != nil {
			return fail(err)
		}
		outcome.Outputs = append(outcome.Outputs, gpkgPath)

		if ds.Name == "prey" {
			density := s.Density(annotated, defaultDensityBandwidthKM, "prey_density")
			tifPath := filepath.Join(outDir, "prey_density.tif")
			if err := geoio.WriteGeoTIFF(tifPath, density); err != nil {
				return fail(err)
			}
			outcome.Outputs = append(outcome.Outputs, tifPath)

			// Pinniped colony locations double as rookery sites.
			dist, err := s.Distance(pointGeoms(annotated), "dist_rookeries")
			if err != nil {
				return fail(err)
			}
			distPath := filepath.Join(outDir, "dist_rookeries.tif")
			if err := geoio.WriteGeoTIFF(distPath, dist); err != nil {
				return fail(err)
			}
			outcome.Outputs = append(outcome.Outputs, distPath)
		}

		if ds.Name == "orca" {
			density := s.Density(annotated, defaultDensityBandwidthKM, "orca_density")
			tifPath := filepath.Join(outDir, "orca_density.tif")
			if err := geoio.WriteGeoTIFF(tifPath, density); err != nil {
				return fail(err)
			}
			outcome.Outputs = append(outcome.Outputs, tifPath)
		}

	case ds.Name == "bathymetry":
		if len(ds.Layers) == 0 {
			return fail(eris.New("no bathymetry layer collected"))
		}
		depth, slope, err := s.Bathymetry(ds.Layers[0].Raster)
		if err != nil {
			return fail(err)
		}
		for _, r := range []*raster.Raster{depth, slope} {
			path := filepath.Join(outDir, r.Name+".tif")
			if err := geoio.WriteGeoTIFF(path, r); err != nil {
				return fail(err)
			}
			outcome.Outputs = append(outcome.Outputs, path)
		}

	case ds.Name == "shipping_lanes":
		if len(ds.Features) == 0 {
			return fail(eris.New("no shipping lane features collected"))
		}
		dist, err := s.Distance(ds.Features, "dist_shipping_lanes")
		if err != nil {
			return fail(err)
		}
		path := filepath.Join(outDir, "dist_shipping_lanes.tif")
		if err := geoio.WriteGeoTIFF(path, dist); err != nil {
			return fail(err)
		}
		outcome.Outputs = append(outcome.Outputs, path)

	case ds.Name == "oxygen" || ds.Name == "fishing_effort":
		// Single-layer variables: resample to the study grid and write a
		// plain raster.
		if len(ds.Layers) == 0 {
			return fail(eris.Errorf("no %s layer collected", ds.Name))
		}
		src := ds.Layers[0].Raster
		resampled, err := raster.Resample(src, src.Grid, s.grid, s.method)
		if err != nil {
			return fail(err)
		}
		resampled.Name = ds.Variable
		resampled.Units = ds.Units
		path := filepath.Join(outDir, ds.Variable+".tif")
		if err := geoio.WriteGeoTIFF(path, resampled); err != nil {
			return fail(err)
		}
		outcome.Outputs = append(outcome.Outputs, path)

	default:
		// Time-varying environmental variables: weekly stack as NetCDF.
		if len(ds.Layers) == 0 {
			return fail(eris.Errorf("no %s layers collected", ds.Name))
		}
		stack, err := s.WeeklyStack(ds.Layers, temporal.Mean, ds.Variable, ds.Units)
		if err != nil {
			return fail(err)
		}
		outcome.Weeks = stack.Len()

		path := filepath.Join(outDir, ds.Variable+"_weekly.nc")
		if err := geoio.WriteNetCDF(path, stack); err != nil {
			return fail(err)
		}
		outcome.Outputs = append(outcome.Outputs, path)

		if ds.Variable == "sst" {
			gradient := s.GradientStack(stack, "sst_gradient")
			gradPath := filepath.Join(outDir, "sst_gradient_weekly.nc")
			if err := geoio.WriteNetCDF(gradPath, gradient); err != nil {
				return fail(err)
			}
			outcome.Outputs = append(outcome.Outputs, gradPath)
		}
	}

	return outcome
}
