// Package raster provides the in-memory raster variable type and the spatial
// transforms (resampling, slope, gradient, distance-to-feature) used by the
// standardization pipeline.
package raster

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/shark-voyager/voyager-cli/internal/grid"
)

// DefaultNoData is the sentinel written to output files for cells without a
// valid measurement.
const DefaultNoData = -9999.0

// ErrGridMismatch reports a shape or alignment mismatch between a raster and
// a grid. It indicates a configuration defect and aborts the operation.
var ErrGridMismatch = eris.New("raster: grid mismatch")

// Raster is a 2-D array of float64 values aligned to a grid, tagged with a
// variable name, units, and a no-data sentinel. Data is row-major with row 0
// at the southern edge.
type Raster struct {
	Grid   grid.Grid
	Name   string
	Units  string
	NoData float64
	Data   []float64
}

// New allocates a raster on the given grid with every cell set to the
// no-data sentinel.
func New(g grid.Grid, name, units string) *Raster {
	r := &Raster{
		Grid:   g,
		Name:   name,
		Units:  units,
		NoData: DefaultNoData,
		Data:   make([]float64, g.NumCells()),
	}
	r.Fill(r.NoData)
	return r
}

// NewFilled allocates a raster with every cell set to v.
func NewFilled(g grid.Grid, name, units string, v float64) *Raster {
	r := New(g, name, units)
	r.Fill(v)
	return r
}

// CheckShape verifies that the raster's data length matches the given grid.
func (r *Raster) CheckShape(g grid.Grid) error {
	if len(r.Data) != g.NumCells() {
		return eris.Wrapf(ErrGridMismatch, "%s: have %d cells, grid wants %dx%d=%d",
			r.Name, len(r.Data), g.Rows, g.Cols, g.NumCells())
	}
	return nil
}

// At returns the value at (row, col).
func (r *Raster) At(row, col int) float64 {
	return r.Data[row*r.Grid.Cols+col]
}

// Set writes the value at (row, col).
func (r *Raster) Set(row, col int, v float64) {
	r.Data[row*r.Grid.Cols+col] = v
}

// IsNoData reports whether v is the no-data sentinel or NaN.
func (r *Raster) IsNoData(v float64) bool {
	return v == r.NoData || math.IsNaN(v)
}

// Fill sets every cell to v.
func (r *Raster) Fill(v float64) {
	for i := range r.Data {
		r.Data[i] = v
	}
}

// Clone returns a deep copy, optionally renamed.
func (r *Raster) Clone(name string) *Raster {
	out := &Raster{Grid: r.Grid, Name: name, Units: r.Units, NoData: r.NoData}
	out.Data = make([]float64, len(r.Data))
	copy(out.Data, r.Data)
	return out
}

// ValidCount returns the number of cells holding valid data.
func (r *Raster) ValidCount() int {
	n := 0
	for _, v := range r.Data {
		if !r.IsNoData(v) {
			n++
		}
	}
	return n
}

// Mean returns the mean over valid cells. ok is false when the raster is
// entirely no-data.
func (r *Raster) Mean() (mean float64, ok bool) {
	sum, n := 0.0, 0
	for _, v := range r.Data {
		if r.IsNoData(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// MinMax returns the minimum and maximum over valid cells. ok is false when
// the raster is entirely no-data.
func (r *Raster) MinMax() (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range r.Data {
		if r.IsNoData(v) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

// Normalize rescales valid cells to [0, 1] in place. A constant raster maps
// to all zeros.
func (r *Raster) Normalize() {
	min, max, ok := r.MinMax()
	if !ok {
		return
	}
	span := max - min
	for i, v := range r.Data {
		if r.IsNoData(v) {
			continue
		}
		if span == 0 {
			r.Data[i] = 0
		} else {
			r.Data[i] = (v - min) / span
		}
	}
}
