package raster

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/shark-voyager/voyager-cli/internal/grid"
)

// Metric selects how cell-to-feature distances are measured.
type Metric string

const (
	// Planar uses the flat 1 degree = 111 km approximation.
	Planar Metric = "planar"
	// Geodesic uses great-circle (haversine) distance.
	Geodesic Metric = "geodesic"
)

// DistanceOptions configures DistanceToFeatures.
type DistanceOptions struct {
	Metric Metric
	// MaxKM caps distances when > 0; larger values are clamped to MaxKM.
	MaxKM float64
}

// segment is a feature edge in lon/lat degrees. Point features degenerate to
// a == b.
type segment struct {
	ax, ay, bx, by float64
}

// DistanceToFeatures builds a raster where every cell holds the distance in
// kilometers from the cell center to the nearest input geometry. Points
// contribute their location, lines their segments, and polygons their
// boundary rings.
func DistanceToFeatures(g grid.Grid, features []geom.T, opts DistanceOptions) (*Raster, error) {
	if len(features) == 0 {
		return nil, eris.New("raster: distance: no features")
	}
	if opts.Metric == "" {
		opts.Metric = Geodesic
	}

	var segs []segment
	for _, f := range features {
		segs = append(segs, featureSegments(f)...)
	}
	if len(segs) == 0 {
		return nil, eris.New("raster: distance: features contain no coordinates")
	}

	out := New(g, "distance", "km")
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			lon, lat := g.CellCenter(row, col)

			best := math.Inf(1)
			for _, s := range segs {
				d := segmentDistanceKM(lon, lat, s, opts.Metric)
				if d < best {
					best = d
				}
			}
			if opts.MaxKM > 0 && best > opts.MaxKM {
				best = opts.MaxKM
			}
			out.Set(row, col, best)
		}
	}

	return out, nil
}

// featureSegments flattens a geometry into edge segments.
func featureSegments(f geom.T) []segment {
	var segs []segment

	switch t := f.(type) {
	case *geom.Point:
		c := t.Coords()
		segs = append(segs, segment{c.X(), c.Y(), c.X(), c.Y()})
	case *geom.MultiPoint:
		for i := 0; i < t.NumPoints(); i++ {
			segs = append(segs, featureSegments(t.Point(i))...)
		}
	case *geom.LineString:
		segs = append(segs, coordSegments(t.Coords())...)
	case *geom.MultiLineString:
		for i := 0; i < t.NumLineStrings(); i++ {
			segs = append(segs, coordSegments(t.LineString(i).Coords())...)
		}
	case *geom.Polygon:
		for i := 0; i < t.NumLinearRings(); i++ {
			segs = append(segs, coordSegments(t.LinearRing(i).Coords())...)
		}
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			segs = append(segs, featureSegments(t.Polygon(i))...)
		}
	case *geom.GeometryCollection:
		for i := 0; i < t.NumGeoms(); i++ {
			segs = append(segs, featureSegments(t.Geom(i))...)
		}
	}

	return segs
}

func coordSegments(coords []geom.Coord) []segment {
	if len(coords) == 1 {
		c := coords[0]
		return []segment{{c.X(), c.Y(), c.X(), c.Y()}}
	}
	segs := make([]segment, 0, len(coords)-1)
	for i := 0; i+1 < len(coords); i++ {
		segs = append(segs, segment{
			coords[i].X(), coords[i].Y(),
			coords[i+1].X(), coords[i+1].Y(),
		})
	}
	return segs
}

// segmentDistanceKM returns the distance from a point to the closest point on
// a segment. The closest point is found in the lon/lat plane; the final
// distance is then measured with the requested metric.
func segmentDistanceKM(lon, lat float64, s segment, metric Metric) float64 {
	cx, cy := closestPointOnSegment(lon, lat, s)
	if metric == Planar {
		return grid.PlanarKM(lon, lat, cx, cy)
	}
	return grid.HaversineKM(lon, lat, cx, cy)
}

func closestPointOnSegment(px, py float64, s segment) (float64, float64) {
	dx := s.bx - s.ax
	dy := s.by - s.ay
	if dx == 0 && dy == 0 {
		return s.ax, s.ay
	}
	t := ((px-s.ax)*dx + (py-s.ay)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	return s.ax + t*dx, s.ay + t*dy
}
