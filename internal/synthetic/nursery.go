package synthetic

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/raster"
)

// ErrMissingVariable means a layer the nursery index needs was not provided
// or holds no usable data.
var ErrMissingVariable = eris.New("synthetic: required variable missing")

// NurseryInputs are the standardized layers the index is computed from.
// Depth and slope are static; SST and chlorophyll are weekly stacks.
type NurseryInputs struct {
	Depth       *raster.Raster
	Slope       *raster.Raster
	SST         *raster.Stack
	Chlorophyll *raster.Stack
}

// NurseryOptions hold the habitat criteria thresholds.
type NurseryOptions struct {
	MaxDepthM    float64
	MaxSlopeDeg  float64
	MinSummerSST float64
	SummerMonths []int

	// ChlThreshold overrides the chlorophyll criterion threshold. When nil
	// the spatial mean of the chlorophyll raster is used.
	ChlThreshold *float64
}

// DefaultNurseryOptions are the published criteria for juvenile white shark
// nursery habitat: shallow (<100 m), flat (<5 deg), warm summers (>16 C),
// productive (chlorophyll above the regional mean).
func DefaultNurseryOptions() NurseryOptions {
	return NurseryOptions{
		MaxDepthM:    100,
		MaxSlopeDeg:  5,
		MinSummerSST: 16,
		SummerMonths: []int{6, 7, 8},
	}
}

// NurseryIndex scores every cell 0..1 as the equal-weighted fraction of the
// four habitat criteria it meets. A cell where any input is nodata scores
// nodata: a criterion that cannot be evaluated is not treated as failed.
func NurseryIndex(g grid.Grid, in NurseryInputs, opts NurseryOptions) (*raster.Raster, error) {
	if in.Depth == nil {
		return nil, eris.Wrap(ErrMissingVariable, "depth")
	}
	if in.Slope == nil {
		return nil, eris.Wrap(ErrMissingVariable, "slope")
	}
	if in.SST == nil || in.SST.Len() == 0 {
		return nil, eris.Wrap(ErrMissingVariable, "sst")
	}
	if in.Chlorophyll == nil || in.Chlorophyll.Len() == 0 {
		return nil, eris.Wrap(ErrMissingVariable, "chlorophyll")
	}
	for name, r := range map[string]*raster.Raster{"depth": in.Depth, "slope": in.Slope} {
		if err := r.CheckShape(g); err != nil {
			return nil, eris.Wrapf(err, "synthetic: nursery %s", name)
		}
	}

	summerIdx := in.SST.SelectMonths(opts.SummerMonths)
	if len(summerIdx) == 0 {
		return nil, eris.Wrap(ErrMissingVariable, "sst: no summer weeks in study period")
	}
	summerSST, err := in.SST.MeanOver(summerIdx, "summer_sst")
	if err != nil {
		return nil, eris.Wrap(err, "synthetic: nursery summer sst")
	}
	if err := summerSST.CheckShape(g); err != nil {
		return nil, eris.Wrap(err, "synthetic: nursery summer sst")
	}

	chlMean, err := in.Chlorophyll.MeanOver(in.Chlorophyll.All(), "chlorophyll_mean")
	if err != nil {
		return nil, eris.Wrap(err, "synthetic: nursery chlorophyll")
	}
	if err := chlMean.CheckShape(g); err != nil {
		return nil, eris.Wrap(err, "synthetic: nursery chlorophyll")
	}
	var chlThreshold float64
	if opts.ChlThreshold != nil {
		chlThreshold = *opts.ChlThreshold
	} else {
		mean, ok := chlMean.Mean()
		if !ok {
			return nil, eris.Wrap(ErrMissingVariable, "chlorophyll: all cells nodata")
		}
		chlThreshold = mean
	}

	index := raster.New(g, "nursery_index", "index")
	for row := range g.Rows {
		for col := range g.Cols {
			depth := in.Depth.At(row, col)
			slope := in.Slope.At(row, col)
			sst := summerSST.At(row, col)
			chl := chlMean.At(row, col)
			if in.Depth.IsNoData(depth) || in.Slope.IsNoData(slope) ||
				summerSST.IsNoData(sst) || chlMean.IsNoData(chl) {
				continue
			}

			score := 0.0
			if depth < opts.MaxDepthM {
				score += 0.25
			}
			if slope < opts.MaxSlopeDeg {
				score += 0.25
			}
			if sst > opts.MinSummerSST {
				score += 0.25
			}
			if chl > chlThreshold {
				score += 0.25
			}
			index.Set(row, col, score)
		}
	}

	zap.L().Info("synthetic: nursery index computed",
		zap.Int("summer_weeks", len(summerIdx)),
		zap.Float64("chlorophyll_threshold", chlThreshold),
		zap.Int("scored_cells", index.ValidCount()),
	)
	return index, nil
}
