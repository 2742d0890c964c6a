// Package grid defines the study region and the regular WGS84 lattice that
// every standardized variable is aligned to.
package grid

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/shark-voyager/voyager-cli/internal/config"
)

// ErrInvalidRegion reports a malformed bounding region or non-positive
// resolution. It indicates a configuration defect and is never recovered
// silently.
var ErrInvalidRegion = eris.New("grid: invalid region")

// KMPerDegree is the approximate length of one degree of latitude in
// kilometers at mid-latitudes.
const KMPerDegree = 111.0

// Region is a geographic bounding box in EPSG:4326 degrees.
type Region struct {
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
}

// RegionFromConfig builds a Region from the spatial config section.
func RegionFromConfig(sc config.SpatialConfig) Region {
	return Region{MinLon: sc.MinLon, MaxLon: sc.MaxLon, MinLat: sc.MinLat, MaxLat: sc.MaxLat}
}

// Validate checks that min < max on both axes.
func (r Region) Validate() error {
	if r.MinLon >= r.MaxLon || r.MinLat >= r.MaxLat {
		return eris.Wrapf(ErrInvalidRegion, "min must be < max: lon [%g, %g], lat [%g, %g]",
			r.MinLon, r.MaxLon, r.MinLat, r.MaxLat)
	}
	return nil
}

// Width returns the longitudinal extent in degrees.
func (r Region) Width() float64 { return r.MaxLon - r.MinLon }

// Height returns the latitudinal extent in degrees.
func (r Region) Height() float64 { return r.MaxLat - r.MinLat }

// Contains reports whether the point lies inside the region (inclusive).
func (r Region) Contains(lon, lat float64) bool {
	return lon >= r.MinLon && lon <= r.MaxLon && lat >= r.MinLat && lat <= r.MaxLat
}

// Grid is a regular lattice over a Region. It is immutable once built; all
// rasters produced in a run share one Grid value.
//
// Row 0 is the southernmost row, column 0 the westernmost column. Cell (row,
// col) covers [MinLon+col*Res, MinLon+(col+1)*Res) x [MinLat+row*Res,
// MinLat+(row+1)*Res).
type Grid struct {
	Region     Region  `json:"region"`
	Resolution float64 `json:"resolution"`
	Rows       int     `json:"rows"`
	Cols       int     `json:"cols"`
}

// Build constructs the target grid for a region at the given resolution in
// degrees per cell. Cell counts follow ceiling division so the grid always
// covers the full region. Returns ErrInvalidRegion for a malformed region or
// a resolution <= 0.
func Build(region Region, resolution float64) (Grid, error) {
	if err := region.Validate(); err != nil {
		return Grid{}, err
	}
	if resolution <= 0 {
		return Grid{}, eris.Wrapf(ErrInvalidRegion, "resolution must be positive, got %g", resolution)
	}

	return Grid{
		Region:     region,
		Resolution: resolution,
		Rows:       int(math.Ceil(region.Height() / resolution)),
		Cols:       int(math.Ceil(region.Width() / resolution)),
	}, nil
}

// CellCenter returns the lon/lat of the center of cell (row, col).
func (g Grid) CellCenter(row, col int) (lon, lat float64) {
	lon = g.Region.MinLon + (float64(col)+0.5)*g.Resolution
	lat = g.Region.MinLat + (float64(row)+0.5)*g.Resolution
	return lon, lat
}

// CellIndex returns the (row, col) of the cell containing the point, or
// (-1, -1) if the point is outside the grid.
func (g Grid) CellIndex(lon, lat float64) (row, col int) {
	col = int(math.Floor((lon - g.Region.MinLon) / g.Resolution))
	row = int(math.Floor((lat - g.Region.MinLat) / g.Resolution))
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return -1, -1
	}
	return row, col
}

// NumCells returns Rows * Cols.
func (g Grid) NumCells() int { return g.Rows * g.Cols }

// Equal reports whether two grids describe the same lattice.
func (g Grid) Equal(other Grid) bool {
	return g.Region == other.Region && g.Resolution == other.Resolution &&
		g.Rows == other.Rows && g.Cols == other.Cols
}

// CellSizeKM returns the approximate cell edge length in kilometers.
func (g Grid) CellSizeKM() float64 { return g.Resolution * KMPerDegree }

// CellSizeMeters returns the approximate cell edge length in meters.
func (g Grid) CellSizeMeters() float64 { return g.Resolution * KMPerDegree * 1000 }
