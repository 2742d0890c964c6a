package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shark-voyager/voyager-cli/internal/config"
	"github.com/shark-voyager/voyager-cli/internal/fetcher"
)

func TestRegistry(t *testing.T) {
	cfg := &config.Config{}
	cfg.Species.Target = "Carcharodon carcharias"

	reg := NewRegistry(cfg,
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}),
		fetcher.NewFTPFetcher(fetcher.FTPOptions{}),
	)

	names := reg.Names()
	assert.Contains(t, names, "ocearch")
	assert.Contains(t, names, "gbif")
	assert.Contains(t, names, "obis")
	assert.Contains(t, names, "prey")
	assert.Contains(t, names, "sst")
	assert.Contains(t, names, "chlorophyll")
	assert.Contains(t, names, "sla")
	assert.Contains(t, names, "salinity")
	assert.Contains(t, names, "oxygen")
	assert.Contains(t, names, "bathymetry")
	assert.Contains(t, names, "fishing_effort")
	assert.Contains(t, names, "shipping_lanes")

	require.NotNil(t, reg.Get("sst"))
	assert.Nil(t, reg.Get("unknown"))
}

func TestGridFromCenters(t *testing.T) {
	g, ok := gridFromCenters([]float64{-120.05, -119.95, -119.85}, []float64{25.05, 25.15})
	require.True(t, ok)
	assert.Equal(t, 3, g.Cols)
	assert.Equal(t, 2, g.Rows)
	assert.InDelta(t, 0.1, g.Resolution, 1e-9)
	assert.InDelta(t, -120.1, g.Region.MinLon, 1e-9)
	assert.InDelta(t, -119.8, g.Region.MaxLon, 1e-9)
}

func TestGridFromCentersDegenerate(t *testing.T) {
	_, ok := gridFromCenters([]float64{-120.05}, []float64{25.05, 25.15})
	assert.False(t, ok)
}
