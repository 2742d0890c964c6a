// Package standardize turns raw provider data into analysis-ready layers:
// everything resampled to the study grid, aggregated to weekly cadence, and
// annotated with calendar features.
package standardize

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/shark-voyager/voyager-cli/internal/collector"
	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/model"
	"github.com/shark-voyager/voyager-cli/internal/raster"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

// Standardizer resamples and aggregates raw datasets onto the study grid.
type Standardizer struct {
	grid       grid.Grid
	timeRange  temporal.Range
	hemisphere temporal.Hemisphere
	method     raster.Method
}

// New creates a Standardizer for the study grid and period.
func New(g grid.Grid, tr temporal.Range, h temporal.Hemisphere) *Standardizer {
	if h == "" {
		h = temporal.Northern
	}
	return &Standardizer{
		grid:       g,
		timeRange:  tr,
		hemisphere: h,
		method:     raster.Bilinear,
	}
}

// Grid returns the study grid.
func (s *Standardizer) Grid() grid.Grid { return s.grid }

// WeeklyStack resamples each raw layer to the study grid and aggregates the
// layers per cell into one raster per ISO week. Weeks inside the study
// period with no source layer become all-nodata gap layers, so every stack
// spans the same weekly axis.
func (s *Standardizer) WeeklyStack(layers []collector.Layer, reducer temporal.Reducer, name, units string) (*raster.Stack, error) {
	byWeek := make(map[int64][]*raster.Raster)
	for _, layer := range layers {
		resampled, err := raster.Resample(layer.Raster, layer.Raster.Grid, s.grid, s.method)
		if err != nil {
			return nil, eris.Wrapf(err, "standardize: resample %s", name)
		}
		week := temporal.WeekStart(layer.Time).Unix()
		byWeek[week] = append(byWeek[week], resampled)
	}

	stack := raster.NewStack(s.grid, name, units)
	var gaps int
	for _, monday := range temporal.WeeklyDates(s.timeRange) {
		group := byWeek[monday.Unix()]
		if len(group) == 0 {
			stack.AppendGap(monday)
			gaps++
			continue
		}
		weekly, err := reduceCells(group, s.grid, reducer, name, units)
		if err != nil {
			return nil, err
		}
		if err := stack.Append(monday, weekly); err != nil {
			return nil, eris.Wrapf(err, "standardize: append week for %s", name)
		}
	}

	if gaps > 0 {
		zap.L().Debug("standardize: weekly stack has gap weeks",
			zap.String("variable", name),
			zap.Int("gaps", gaps),
			zap.Int("weeks", stack.Len()),
		)
	}
	return stack, nil
}

// reduceCells collapses a group of same-grid rasters cell by cell. Nodata
// values are excluded; a cell with no valid value in any layer stays nodata.
func reduceCells(group []*raster.Raster, g grid.Grid, reducer temporal.Reducer, name, units string) (*raster.Raster, error) {
	out := raster.New(g, name, units)
	values := make([]float64, 0, len(group))
	for row := range g.Rows {
		for col := range g.Cols {
			values = values[:0]
			for _, r := range group {
				v := r.At(row, col)
				if !r.IsNoData(v) {
					values = append(values, v)
				}
			}
			if len(values) == 0 {
				continue
			}
			v, err := temporal.Reduce(values, reducer)
			if err != nil {
				return nil, eris.Wrapf(err, "standardize: reduce %s", name)
			}
			out.Set(row, col, v)
		}
	}
	return out, nil
}

// GradientStack derives the spatial gradient magnitude of each layer in a
// weekly stack. Thermal fronts show up as high SST gradient.
func (s *Standardizer) GradientStack(src *raster.Stack, name string) *raster.Stack {
	out := raster.NewStack(s.grid, name, src.Units+"/km")
	cellKM := s.grid.Resolution * grid.KMPerDegree
	for i, layer := range src.Layers {
		g := raster.Gradient(layer, cellKM)
		g.Name = name
		_ = out.Append(src.Times[i], g)
	}
	return out
}

// Bathymetry converts a raw elevation raster into depth and slope on the
// study grid. Depth is positive down; land cells (elevation above sea level)
// become nodata so they drop out of downstream criteria.
func (s *Standardizer) Bathymetry(elev *raster.Raster) (depth, slope *raster.Raster, err error) {
	resampled, err := raster.Resample(elev, elev.Grid, s.grid, s.method)
	if err != nil {
		return nil, nil, eris.Wrap(err, "standardize: resample bathymetry")
	}

	depth = resampled.Clone("depth")
	depth.Units = "m"
	for row := range s.grid.Rows {
		for col := range s.grid.Cols {
			v := resampled.At(row, col)
			if resampled.IsNoData(v) {
				continue
			}
			if v > 0 {
				depth.Set(row, col, depth.NoData)
				continue
			}
			depth.Set(row, col, -v)
		}
	}

	slope = raster.Slope(depth, s.grid.CellSizeMeters())
	return depth, slope, nil
}

// Distance builds a distance-to-features raster in kilometers on the study
// grid.
func (s *Standardizer) Distance(features []geom.T, name string) (*raster.Raster, error) {
	r, err := raster.DistanceToFeatures(s.grid, features, raster.DistanceOptions{Metric: raster.Geodesic})
	if err != nil {
		return nil, eris.Wrapf(err, "standardize: distance raster %s", name)
	}
	r.Name = name
	r.Units = "km"
	return r, nil
}

// Density builds a Gaussian kernel density surface from point observations,
// normalized to [0,1]. Used for prey aggregation and orca predation pressure.
func (s *Standardizer) Density(points []model.Point, bandwidthKM float64, name string) *raster.Raster {
	out := raster.NewFilled(s.grid, name, "relative", 0)
	if len(points) == 0 || bandwidthKM <= 0 {
		return out
	}

	// Beyond three bandwidths the kernel contributes under 2%; skip it.
	cutoff := 3 * bandwidthKM
	denom := 2 * bandwidthKM * bandwidthKM
	for row := range s.grid.Rows {
		for col := range s.grid.Cols {
			lon, lat := s.grid.CellCenter(row, col)
			sum := 0.0
			for _, p := range points {
				d := grid.HaversineKM(lon, lat, p.Lon, p.Lat)
				if d > cutoff {
					continue
				}
				sum += math.Exp(-(d * d) / denom)
			}
			out.Set(row, col, sum)
		}
	}

	out.Normalize()
	return out
}

// AnnotatePoints fills the calendar columns (month, ISO week, season) on
// each point from its timestamp. Points without a timestamp are passed
// through unchanged.
func (s *Standardizer) AnnotatePoints(points []model.Point) []model.Point {
	out := make([]model.Point, len(points))
	for i, p := range points {
		if !p.Time.IsZero() {
			f := temporal.CalendarFeatures(p.Time, s.hemisphere)
			p.Month = f.Month
			p.WeekOfYear = f.WeekOfYear
			p.Season = string(f.Season)
		}
		out[i] = p
	}
	return out
}
