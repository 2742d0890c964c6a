package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/shark-voyager/voyager-cli/internal/model"
	"github.com/shark-voyager/voyager-cli/internal/raster"
)

func TestSaveLoadDatasetsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	g := testGrid(t)

	points := &Dataset{
		Name:   "gbif",
		Source: "GBIF",
		Points: []model.Point{
			{Lon: -120.05, Lat: 30.05, Time: time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
				Species: "Carcharodon carcharias", LifeStage: "Juvenile", Presence: 1, Type: model.PresencePoint},
		},
	}

	layers := &Dataset{
		Name:     "sst",
		Variable: "sst",
		Units:    "degree_C",
		Source:   "NOAA CoastWatch",
		Layers: []Layer{
			{Time: time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC), Raster: raster.NewFilled(g, "sst", "degree_C", 18.0)},
			{Time: time.Date(2023, 6, 12, 0, 0, 0, 0, time.UTC), Raster: raster.NewFilled(g, "sst", "degree_C", 19.0)},
		},
	}

	bathy := &Dataset{
		Name:     "bathymetry",
		Variable: "elevation",
		Units:    "m",
		Source:   "GEBCO",
		Layers:   []Layer{{Raster: raster.NewFilled(g, "elevation", "m", -200.0)}},
	}

	lanes := &Dataset{
		Name:   "shipping_lanes",
		Source: "NOAA ENC",
		Features: []geom.T{
			geom.NewLineStringFlat(geom.XY, []float64{-121, 30, -120, 31}).SetSRID(4326),
		},
	}

	require.NoError(t, SaveDatasets(dir, []*Dataset{points, layers, bathy, lanes}))

	loaded, err := LoadDatasets(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 4)

	byName := make(map[string]*Dataset)
	for _, ds := range loaded {
		byName[ds.Name] = ds
	}

	require.Len(t, byName["gbif"].Points, 1)
	assert.Equal(t, "Juvenile", byName["gbif"].Points[0].LifeStage)

	require.Len(t, byName["sst"].Layers, 2)
	assert.Equal(t, time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC), byName["sst"].Layers[0].Time)
	assert.InDelta(t, 18.0, byName["sst"].Layers[0].Raster.At(0, 0), 1e-4)

	require.Len(t, byName["bathymetry"].Layers, 1)
	assert.True(t, byName["bathymetry"].Layers[0].Time.IsZero())
	assert.InDelta(t, -200.0, byName["bathymetry"].Layers[0].Raster.At(1, 1), 1e-4)

	require.Len(t, byName["shipping_lanes"].Features, 1)
}

func TestSaveDatasetsMergesManifest(t *testing.T) {
	dir := t.TempDir()
	g := testGrid(t)

	first := &Dataset{
		Name: "obis", Source: "OBIS",
		Points: []model.Point{{Lon: -120.05, Lat: 30.05, Presence: 1, Type: model.PresencePoint}},
	}
	require.NoError(t, SaveDatasets(dir, []*Dataset{first}))

	second := &Dataset{
		Name: "fishing_effort", Variable: "fishing_hours", Units: "hours", Source: "GFW",
		Layers: []Layer{{Raster: raster.NewFilled(g, "fishing_hours", "hours", 0.0)}},
	}
	require.NoError(t, SaveDatasets(dir, []*Dataset{second}))

	loaded, err := LoadDatasets(dir)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}
