package standardize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/shark-voyager/voyager-cli/internal/collector"
	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/model"
	"github.com/shark-voyager/voyager-cli/internal/raster"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

func studyGrid(t *testing.T) grid.Grid {
	t.Helper()
	g, err := grid.Build(grid.Region{MinLon: -121, MaxLon: -119, MinLat: 25, MaxLat: 27}, 0.1)
	require.NoError(t, err)
	return g
}

func studyRange(t *testing.T) temporal.Range {
	t.Helper()
	tr, err := temporal.ParseRange("2023-06-05", "2023-06-25")
	require.NoError(t, err)
	return tr
}

func constantLayer(t *testing.T, g grid.Grid, at time.Time, v float64) collector.Layer {
	t.Helper()
	return collector.Layer{Time: at, Raster: raster.NewFilled(g, "sst", "degree_C", v)}
}

func TestWeeklyStack(t *testing.T) {
	g := studyGrid(t)
	s := New(g, studyRange(t), temporal.Northern)

	// Two layers in the first week, none in the second, one in the third.
	layers := []collector.Layer{
		constantLayer(t, g, time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC), 16.0),
		constantLayer(t, g, time.Date(2023, 6, 8, 0, 0, 0, 0, time.UTC), 18.0),
		constantLayer(t, g, time.Date(2023, 6, 20, 0, 0, 0, 0, time.UTC), 20.0),
	}

	stack, err := s.WeeklyStack(layers, temporal.Mean, "sst", "degree_C")
	require.NoError(t, err)
	require.Equal(t, 3, stack.Len())

	// Week 1: mean of 16 and 18.
	assert.InDelta(t, 17.0, stack.Layers[0].At(5, 5), 1e-9)
	// Week 2: gap, all nodata.
	assert.Equal(t, 0, stack.Layers[1].ValidCount())
	// Week 3: single layer passes through.
	assert.InDelta(t, 20.0, stack.Layers[2].At(0, 0), 1e-9)

	// Mondays on the weekly axis.
	assert.Equal(t, time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC), stack.Times[0])
	assert.Equal(t, time.Date(2023, 6, 12, 0, 0, 0, 0, time.UTC), stack.Times[1])
}

func TestWeeklyStackResamplesNativeGrid(t *testing.T) {
	g := studyGrid(t)
	s := New(g, studyRange(t), temporal.Northern)

	// Source on a coarser native grid covering the same region.
	native, err := grid.Build(g.Region, 0.5)
	require.NoError(t, err)
	layers := []collector.Layer{
		{Time: time.Date(2023, 6, 6, 0, 0, 0, 0, time.UTC), Raster: raster.NewFilled(native, "sst", "degree_C", 15.0)},
	}

	stack, err := s.WeeklyStack(layers, temporal.Mean, "sst", "degree_C")
	require.NoError(t, err)
	require.Equal(t, g.Rows, stack.Layers[0].Grid.Rows)
	assert.InDelta(t, 15.0, stack.Layers[0].At(10, 10), 1e-9)
}

func TestGradientStackFlatFieldIsZero(t *testing.T) {
	g := studyGrid(t)
	s := New(g, studyRange(t), temporal.Northern)

	stack := raster.NewStack(g, "sst", "degree_C")
	require.NoError(t, stack.Append(time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC), raster.NewFilled(g, "sst", "degree_C", 18.0)))

	grad := s.GradientStack(stack, "sst_gradient")
	require.Equal(t, 1, grad.Len())
	assert.InDelta(t, 0.0, grad.Layers[0].At(5, 5), 1e-9)
	assert.Equal(t, "degree_C/km", grad.Units)
}

func TestBathymetry(t *testing.T) {
	g := studyGrid(t)
	s := New(g, studyRange(t), temporal.Northern)

	// Uniform ocean floor at -50 m with one land cell.
	elev := raster.NewFilled(g, "elevation", "m", -50.0)
	elev.Set(3, 3, 120.0)

	depth, slope, err := s.Bathymetry(elev)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, depth.At(0, 0), 1e-9)
	assert.True(t, depth.IsNoData(depth.At(3, 3)), "land becomes nodata")
	assert.InDelta(t, 0.0, slope.At(10, 10), 1e-9)
	assert.Equal(t, "depth", depth.Name)
	assert.Equal(t, "slope", slope.Name)
}

func TestDistance(t *testing.T) {
	g := studyGrid(t)
	s := New(g, studyRange(t), temporal.Northern)

	lane := geom.NewLineStringFlat(geom.XY, []float64{-121, 26, -119, 26})
	dist, err := s.Distance([]geom.T{lane}, "dist_shipping_lanes")
	require.NoError(t, err)

	// A cell on the lane has near-zero distance; distance grows away from it.
	onRow, onCol := g.CellIndex(-120.0, 26.0)
	farRow, farCol := g.CellIndex(-120.0, 25.1)
	assert.Less(t, dist.At(onRow, onCol), dist.At(farRow, farCol))
	assert.Equal(t, "km", dist.Units)
}

func TestDensity(t *testing.T) {
	g := studyGrid(t)
	s := New(g, studyRange(t), temporal.Northern)

	points := []model.Point{{Lon: -120.0, Lat: 26.0, Presence: 1}}
	density := s.Density(points, 50, "prey_density")

	nearRow, nearCol := g.CellIndex(-120.0, 26.0)
	farRow, farCol := g.CellIndex(-120.9, 25.05)
	near := density.At(nearRow, nearCol)
	far := density.At(farRow, farCol)

	assert.InDelta(t, 1.0, near, 1e-9, "peak normalizes to 1")
	assert.Less(t, far, near)
}

func TestDensityNoPoints(t *testing.T) {
	g := studyGrid(t)
	s := New(g, studyRange(t), temporal.Northern)
	density := s.Density(nil, 50, "prey_density")
	assert.InDelta(t, 0.0, density.At(0, 0), 1e-9)
}

func TestAnnotatePoints(t *testing.T) {
	s := New(studyGrid(t), studyRange(t), temporal.Northern)

	points := []model.Point{
		{Lon: -120, Lat: 26, Time: time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC)},
		{Lon: -120, Lat: 26}, // no timestamp
	}
	annotated := s.AnnotatePoints(points)

	assert.Equal(t, 7, annotated[0].Month)
	assert.Equal(t, 28, annotated[0].WeekOfYear)
	assert.Equal(t, "Summer", annotated[0].Season)
	assert.Zero(t, annotated[1].Month)
}

func TestAnnotatePointsSouthernHemisphere(t *testing.T) {
	s := New(studyGrid(t), studyRange(t), temporal.Southern)

	points := []model.Point{{Time: time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC)}}
	annotated := s.AnnotatePoints(points)
	assert.Equal(t, "Winter", annotated[0].Season)
}
