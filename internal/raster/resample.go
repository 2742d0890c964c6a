package raster

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/shark-voyager/voyager-cli/internal/grid"
)

// Method selects the resampling interpolation.
type Method string

const (
	// Nearest assigns the value of the closest source cell. Used for
	// categorical or label rasters.
	Nearest Method = "nearest"
	// Bilinear interpolates from the four surrounding source cells. Used for
	// continuous physical fields.
	Bilinear Method = "bilinear"
	// Cubic applies Catmull-Rom interpolation over a 4x4 source neighborhood.
	Cubic Method = "cubic"
)

// Resample aligns a source raster to the target grid. The source raster's
// shape must match srcGrid exactly; otherwise ErrGridMismatch is returned.
// Target cells whose interpolation footprint falls outside the source extent,
// or touches a no-data source cell (for bilinear/cubic), are set to no-data.
func Resample(src *Raster, srcGrid, dstGrid grid.Grid, method Method) (*Raster, error) {
	if err := src.CheckShape(srcGrid); err != nil {
		return nil, err
	}

	out := New(dstGrid, src.Name, src.Units)
	out.NoData = src.NoData

	for row := 0; row < dstGrid.Rows; row++ {
		for col := 0; col < dstGrid.Cols; col++ {
			lon, lat := dstGrid.CellCenter(row, col)

			// Fractional source cell coordinates of the target cell center.
			fx := (lon-srcGrid.Region.MinLon)/srcGrid.Resolution - 0.5
			fy := (lat-srcGrid.Region.MinLat)/srcGrid.Resolution - 0.5

			var v float64
			var ok bool
			switch method {
			case Nearest:
				v, ok = sampleNearest(src, srcGrid, fx, fy)
			case Bilinear:
				v, ok = sampleBilinear(src, srcGrid, fx, fy)
			case Cubic:
				v, ok = sampleCubic(src, srcGrid, fx, fy)
			default:
				return nil, eris.Errorf("raster: unknown resampling method %q", method)
			}

			if ok {
				out.Set(row, col, v)
			}
		}
	}

	return out, nil
}

func sampleNearest(src *Raster, g grid.Grid, fx, fy float64) (float64, bool) {
	col := int(math.Round(fx))
	row := int(math.Round(fy))
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return 0, false
	}
	v := src.Data[row*g.Cols+col]
	if src.IsNoData(v) {
		return 0, false
	}
	return v, true
}

func sampleBilinear(src *Raster, g grid.Grid, fx, fy float64) (float64, bool) {
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))

	// Clamp a half-cell overhang at the edges so the outermost target cells
	// still sample instead of dropping to no-data.
	if fx < 0 && fx >= -0.5 {
		x0 = 0
	}
	if fy < 0 && fy >= -0.5 {
		y0 = 0
	}
	x1, y1 := x0+1, y0+1
	if x1 == g.Cols && fx <= float64(g.Cols)-0.5 {
		x1 = g.Cols - 1
	}
	if y1 == g.Rows && fy <= float64(g.Rows)-0.5 {
		y1 = g.Rows - 1
	}

	if x0 < 0 || y0 < 0 || x1 >= g.Cols || y1 >= g.Rows {
		return 0, false
	}

	tx := fx - math.Floor(fx)
	ty := fy - math.Floor(fy)
	if x1 == x0 {
		tx = 0
	}
	if y1 == y0 {
		ty = 0
	}

	v00 := src.Data[y0*g.Cols+x0]
	v10 := src.Data[y0*g.Cols+x1]
	v01 := src.Data[y1*g.Cols+x0]
	v11 := src.Data[y1*g.Cols+x1]
	if src.IsNoData(v00) || src.IsNoData(v10) || src.IsNoData(v01) || src.IsNoData(v11) {
		return 0, false
	}

	top := v00*(1-tx) + v10*tx
	bot := v01*(1-tx) + v11*tx
	return top*(1-ty) + bot*ty, true
}

func sampleCubic(src *Raster, g grid.Grid, fx, fy float64) (float64, bool) {
	x1 := int(math.Floor(fx))
	y1 := int(math.Floor(fy))

	// The 4x4 Catmull-Rom footprint needs one cell of margin; fall back to
	// bilinear near the edges rather than losing the border band.
	if x1 < 1 || y1 < 1 || x1+2 >= g.Cols || y1+2 >= g.Rows {
		return sampleBilinear(src, g, fx, fy)
	}

	tx := fx - float64(x1)
	ty := fy - float64(y1)

	var rows [4]float64
	for j := 0; j < 4; j++ {
		y := y1 - 1 + j
		var p [4]float64
		for i := 0; i < 4; i++ {
			v := src.Data[y*g.Cols+(x1-1+i)]
			if src.IsNoData(v) {
				return 0, false
			}
			p[i] = v
		}
		rows[j] = catmullRom(p, tx)
	}

	return catmullRom(rows, ty), true
}

// catmullRom evaluates the Catmull-Rom spline through four samples at
// parameter t in [0, 1] between p[1] and p[2].
func catmullRom(p [4]float64, t float64) float64 {
	return p[1] + 0.5*t*(p[2]-p[0]+
		t*(2*p[0]-5*p[1]+4*p[2]-p[3]+
			t*(3*(p[1]-p[2])+p[3]-p[0])))
}
