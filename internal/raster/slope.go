package raster

import "math"

// Slope computes terrain slope in degrees from a depth (or elevation) raster.
// Gradients use central differences in the interior and one-sided differences
// at the edges; cellSizeMeters is the grid spacing. Cells whose finite
// difference would touch a no-data neighbor are set to no-data. Output values
// are always >= 0.
func Slope(depth *Raster, cellSizeMeters float64) *Raster {
	out := New(depth.Grid, "Slope", "degrees")
	out.NoData = depth.NoData

	gradientEach(depth, cellSizeMeters, func(row, col int, dx, dy float64) {
		slope := math.Atan(math.Hypot(dx, dy)) * 180.0 / math.Pi
		out.Set(row, col, slope)
	})

	return out
}

// Gradient computes the gradient magnitude of a field (used for SST front
// detection). cellSizeKM is the grid spacing in kilometers; the output is in
// field units per kilometer.
func Gradient(field *Raster, cellSizeKM float64) *Raster {
	out := New(field.Grid, field.Name+"_gradient", field.Units+"/km")
	out.NoData = field.NoData

	gradientEach(field, cellSizeKM, func(row, col int, dx, dy float64) {
		out.Set(row, col, math.Hypot(dx, dy))
	})

	return out
}

// gradientEach calls fn with the x and y partial derivatives at every cell
// where they can be computed from valid neighbors.
func gradientEach(r *Raster, spacing float64, fn func(row, col int, dx, dy float64)) {
	g := r.Grid
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			dx, okX := diff1D(r, row, col, 0, 1, g.Cols, spacing)
			dy, okY := diff1D(r, row, col, 1, 0, g.Rows, spacing)
			if okX && okY {
				fn(row, col, dx, dy)
			}
		}
	}
}

// diff1D computes the finite difference along one axis. dr/dc select the
// axis; n is the extent along that axis.
func diff1D(r *Raster, row, col, dr, dc, n int, spacing float64) (float64, bool) {
	pos := row*dr + col*dc

	at := func(i int) (float64, bool) {
		rr := row + (i-pos)*dr
		cc := col + (i-pos)*dc
		v := r.At(rr, cc)
		if r.IsNoData(v) {
			return 0, false
		}
		return v, true
	}

	switch {
	case n == 1:
		return 0, true
	case pos == 0:
		v0, ok0 := at(0)
		v1, ok1 := at(1)
		if !ok0 || !ok1 {
			return 0, false
		}
		return (v1 - v0) / spacing, true
	case pos == n-1:
		v0, ok0 := at(n - 2)
		v1, ok1 := at(n - 1)
		if !ok0 || !ok1 {
			return 0, false
		}
		return (v1 - v0) / spacing, true
	default:
		v0, ok0 := at(pos - 1)
		v1, ok1 := at(pos + 1)
		if !ok0 || !ok1 {
			return 0, false
		}
		return (v1 - v0) / (2 * spacing), true
	}
}
