package raster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestStackAppendAndGaps(t *testing.T) {
	g := smallGrid(t)
	s := NewStack(g, "sst", "degree_C")

	require.NoError(t, s.Append(time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC), NewFilled(g, "sst", "degree_C", 18.0)))
	s.AppendGap(time.Date(2023, 6, 12, 0, 0, 0, 0, time.UTC))

	require.Equal(t, 2, s.Len())
	assert.InDelta(t, 18.0, s.Layers[0].At(0, 0), 1e-12)
	assert.True(t, s.Layers[1].IsNoData(s.Layers[1].At(0, 0)))
}

func TestStackAppendWrongGrid(t *testing.T) {
	g := smallGrid(t)
	other := mustGrid(t, g.Region, 0.5)

	s := NewStack(g, "sst", "degree_C")
	err := s.Append(time.Now(), New(other, "sst", "degree_C"))
	require.Error(t, err)
}

func TestStackMeanOver(t *testing.T) {
	g := smallGrid(t)
	s := NewStack(g, "sst", "degree_C")
	require.NoError(t, s.Append(time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC), NewFilled(g, "sst", "degree_C", 10.0)))
	require.NoError(t, s.Append(time.Date(2023, 7, 3, 0, 0, 0, 0, time.UTC), NewFilled(g, "sst", "degree_C", 20.0)))

	mean, err := s.MeanOver(s.All(), "sst_mean")
	require.NoError(t, err)
	assert.InDelta(t, 15.0, mean.At(2, 2), 1e-12)

	_, err = s.MeanOver(nil, "sst_mean")
	require.Error(t, err)

	_, err = s.MeanOver([]int{5}, "sst_mean")
	require.Error(t, err)
}

func TestStackMeanOverSkipsGapCells(t *testing.T) {
	g := smallGrid(t)
	s := NewStack(g, "sst", "degree_C")
	require.NoError(t, s.Append(time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC), NewFilled(g, "sst", "degree_C", 10.0)))
	s.AppendGap(time.Date(2023, 6, 12, 0, 0, 0, 0, time.UTC))

	mean, err := s.MeanOver(s.All(), "sst_mean")
	require.NoError(t, err)
	// The gap layer contributes nothing, not zeros.
	assert.InDelta(t, 10.0, mean.At(0, 0), 1e-12)
}

func TestStackSelectMonths(t *testing.T) {
	g := smallGrid(t)
	s := NewStack(g, "sst", "degree_C")
	for _, date := range []time.Time{
		time.Date(2023, 5, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 7, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 9, 4, 0, 0, 0, 0, time.UTC),
	} {
		require.NoError(t, s.Append(date, NewFilled(g, "sst", "degree_C", 15.0)))
	}

	assert.Equal(t, []int{1, 2}, s.SelectMonths([]int{6, 7, 8}))
	assert.Nil(t, s.SelectMonths([]int{12}))
}

// -- distance rasters --

func TestDistanceToPointFeature(t *testing.T) {
	g := smallGrid(t)
	pt := geom.NewPointFlat(geom.XY, []float64{-120, 26}).SetSRID(4326)

	dist, err := DistanceToFeatures(g, []geom.T{pt}, DistanceOptions{})
	require.NoError(t, err)

	// The cell containing the point is nearest; distance grows monotonically
	// moving away along a row.
	row, col := g.CellIndex(-120, 26)
	near := dist.At(row, col)
	assert.Less(t, near, 10.0)

	prev := near
	for c := col + 1; c < g.Cols; c++ {
		d := dist.At(row, c)
		assert.Greater(t, d, prev)
		prev = d
	}
}

func TestDistanceToLineFeature(t *testing.T) {
	g := smallGrid(t)
	line := geom.NewLineStringFlat(geom.XY, []float64{-121, 26, -119, 26}).SetSRID(4326)

	dist, err := DistanceToFeatures(g, []geom.T{line}, DistanceOptions{Metric: Planar})
	require.NoError(t, err)

	// Cells on the line's latitude sit within half a cell of it.
	row, col := g.CellIndex(-120, 26)
	assert.Less(t, dist.At(row, col), g.CellSizeKM())

	// A cell one degree north is ~111 km away.
	farRow, _ := g.CellIndex(-120, 26.95)
	assert.Greater(t, dist.At(farRow, col), 90.0)
}

func TestDistanceMaxCap(t *testing.T) {
	g := smallGrid(t)
	pt := geom.NewPointFlat(geom.XY, []float64{-121, 25}).SetSRID(4326)

	dist, err := DistanceToFeatures(g, []geom.T{pt}, DistanceOptions{MaxKM: 50})
	require.NoError(t, err)

	_, max, ok := dist.MinMax()
	require.True(t, ok)
	assert.LessOrEqual(t, max, 50.0)
}

func TestDistanceNoFeatures(t *testing.T) {
	g := smallGrid(t)
	_, err := DistanceToFeatures(g, nil, DistanceOptions{})
	require.Error(t, err)
}
