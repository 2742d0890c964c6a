package geoio

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/model"
	"github.com/shark-voyager/voyager-cli/internal/raster"
)

func testGrid(t *testing.T) grid.Grid {
	t.Helper()
	g, err := grid.Build(grid.Region{MinLon: -121, MaxLon: -119, MinLat: 25, MaxLat: 27}, 0.5)
	require.NoError(t, err)
	return g
}

func samplePoints() []model.Point {
	return []model.Point{
		{
			Lon: -120.35, Lat: 25.72,
			Time:    time.Date(2023, 6, 15, 8, 30, 0, 0, time.UTC),
			Species: "Carcharodon carcharias", LifeStage: "Juvenile",
			Presence: 1, Type: model.PresencePoint,
			Month: 6, WeekOfYear: 24, Season: "Summer", Source: "OCEARCH",
		},
		{
			Lon: -119.8, Lat: 26.4,
			Species: "Carcharodon carcharias", LifeStage: "Adult_Female",
			Presence: 0, Type: model.AbsencePoint, Source: "synthetic",
		},
	}
}

func TestPointsCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.csv")
	want := samplePoints()

	require.NoError(t, WritePointsCSV(path, want))

	got, err := ReadPointsCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.InDelta(t, want[0].Lon, got[0].Lon, 1e-12)
	assert.Equal(t, want[0].Time, got[0].Time)
	assert.Equal(t, "Juvenile", got[0].LifeStage)
	assert.Equal(t, model.PresencePoint, got[0].Type)
	assert.Equal(t, 24, got[0].WeekOfYear)

	// The absence point has no timestamp.
	assert.True(t, got[1].Time.IsZero())
	assert.Equal(t, 0, got[1].Presence)
}

func TestGeoTIFFRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depth.tif")
	g := testGrid(t)

	want := raster.New(g, "depth", "m")
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			want.Set(row, col, float64(row*g.Cols+col))
		}
	}
	want.Set(1, 1, want.NoData)

	require.NoError(t, WriteGeoTIFF(path, want))

	got, err := ReadGeoTIFF(path, "depth", "m")
	require.NoError(t, err)
	assert.True(t, g.Equal(got.Grid))
	assert.InDelta(t, want.At(2, 3), got.At(2, 3), 1e-4)
	assert.True(t, got.IsNoData(got.At(1, 1)))
}

func TestNetCDFRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sst.nc")
	g := testGrid(t)

	want := raster.NewStack(g, "sst", "degree_C")
	for i, day := range []int{5, 12} {
		layer := raster.NewFilled(g, "sst", "degree_C", 15.0+float64(i))
		require.NoError(t, want.Append(time.Date(2023, 6, day, 0, 0, 0, 0, time.UTC), layer))
	}
	want.Layers[0].Set(0, 0, want.NoData)

	require.NoError(t, WriteNetCDF(path, want))

	got, err := ReadNetCDF(path, "sst", "degree_C")
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.True(t, g.Equal(got.Grid))
	assert.Equal(t, want.Times[0], got.Times[0])
	assert.Equal(t, want.Times[1], got.Times[1])
	assert.InDelta(t, 16.0, got.Layers[1].At(2, 2), 1e-4)
	assert.True(t, got.Layers[0].IsNoData(got.Layers[0].At(0, 0)))
}

func TestGeoJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lanes.geojson")
	want := []geom.T{
		geom.NewLineStringFlat(geom.XY, []float64{-121, 25, -119, 27}),
		geom.NewPointFlat(geom.XY, []float64{-120, 26}),
	}

	require.NoError(t, WriteGeoJSONFeatures(path, want))

	f, err := OpenFile(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	got, _, err := ReadGeoJSONFeatures(f)
	require.NoError(t, err)
	require.Len(t, got, 2)

	line, ok := got[0].(*geom.LineString)
	require.True(t, ok)
	assert.Equal(t, []float64{-121, 25, -119, 27}, line.FlatCoords())
}

func TestWritePointsGPKG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.gpkg")
	ctx := context.Background()

	require.NoError(t, WritePointsGPKG(ctx, path, "ocearch", samplePoints()))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM ocearch`).Scan(&n))
	assert.Equal(t, 2, n)

	var geomType string
	require.NoError(t, db.QueryRow(
		`SELECT geometry_type_name FROM gpkg_geometry_columns WHERE table_name = 'ocearch'`,
	).Scan(&geomType))
	assert.Equal(t, "POINT", geomType)

	var blob []byte
	var stage string
	require.NoError(t, db.QueryRow(
		`SELECT geom, life_stage FROM ocearch ORDER BY fid LIMIT 1`,
	).Scan(&blob, &stage))
	assert.Equal(t, "Juvenile", stage)
	assert.Equal(t, byte('G'), blob[0])
	assert.Equal(t, byte('P'), blob[1])

	// Rewriting the same table replaces it rather than appending.
	require.NoError(t, WritePointsGPKG(ctx, path, "ocearch", samplePoints()[:1]))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM ocearch`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestReadShapefileGeomsMissingFile(t *testing.T) {
	_, err := ReadShapefileGeoms(filepath.Join(t.TempDir(), "missing.shp"))
	require.Error(t, err)
}
