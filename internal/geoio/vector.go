package geoio

import (
	"encoding/json"
	"io"
	"os"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// ReadGeoJSONFeatures parses a GeoJSON FeatureCollection and returns the
// geometries with their properties.
func ReadGeoJSONFeatures(r io.Reader) ([]geom.T, []map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, eris.Wrap(err, "geojson: read")
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, nil, eris.Wrap(err, "geojson: parse feature collection")
	}

	var geoms []geom.T
	var props []map[string]any
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		geoms = append(geoms, f.Geometry)
		props = append(props, f.Properties)
	}
	return geoms, props, nil
}

// WriteGeoJSONFeatures writes geometries as a GeoJSON FeatureCollection.
func WriteGeoJSONFeatures(path string, geoms []geom.T) error {
	fc := geojson.FeatureCollection{}
	for _, g := range geoms {
		fc.Features = append(fc.Features, &geojson.Feature{Geometry: g})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "geojson: marshal feature collection")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "geojson: write %s", path)
	}
	return nil
}

// ReadShapefileGeoms reads every geometry from a shapefile as go-geom
// geometries. Unsupported or malformed shapes are skipped with a debug log.
func ReadShapefileGeoms(path string) ([]geom.T, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	var geoms []geom.T
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		g := shapeToGeom(shape)
		if g == nil {
			skipped++
			continue
		}
		geoms = append(geoms, g)
	}

	if skipped > 0 {
		zap.L().Debug("shapefile: skipped records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return geoms, nil
}

// shapeToGeom converts a go-shp shape to a go-geom geometry in EPSG:4326.
func shapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(4326)

	case *shp.PolyLine:
		return polyLineToMultiLineString(s)

	case *shp.Polygon:
		return polygonToMultiPolygon(s)

	default:
		return nil
	}
}

func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY).SetSRID(4326)
	for i := int32(0); i < pl.NumParts; i++ {
		start, end := partRange(pl.Parts, i, pl.NumParts, len(pl.Points))
		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, pl.Points[j].X, pl.Points[j].Y)
		}
		ls := geom.NewLineStringFlat(geom.XY, flat)
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("shapefile: skipping malformed linestring part", zap.Int32("part", i), zap.Error(err))
		}
	}

	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i := int32(0); i < p.NumParts; i++ {
		start, end := partRange(p.Parts, i, p.NumParts, len(p.Points))
		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func partRange(parts []int32, i, numParts int32, numPoints int) (int, int) {
	start := int(parts[i])
	end := numPoints
	if i+1 < numParts {
		end = int(parts[i+1])
	}
	return start, end
}

// OpenFile is a small helper so collectors can pass file paths to the
// GeoJSON reader.
func OpenFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoio: open %s", path)
	}
	return f, nil
}
