package collector

import (
	"context"

	"github.com/shark-voyager/voyager-cli/internal/fetcher"
	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

const coastwatchGriddap = "https://coastwatch.pfeg.noaa.gov/erddap/griddap"

// SSTCollector fetches 8-day MODIS Aqua sea surface temperature.
type SSTCollector struct {
	fetcher fetcher.Fetcher
	BaseURL string
}

// NewSSTCollector creates the SST collector.
func NewSSTCollector(f fetcher.Fetcher) *SSTCollector {
	return &SSTCollector{fetcher: f, BaseURL: coastwatchGriddap}
}

// Name implements Collector.
func (c *SSTCollector) Name() string { return "sst" }

// Fetch implements Collector.
func (c *SSTCollector) Fetch(ctx context.Context, g grid.Grid, tr temporal.Range) (*Dataset, error) {
	q := griddapQuery{BaseURL: c.BaseURL, Dataset: "erdMH1sstd8day", Variable: "sstMasked"}
	layers, units, err := fetchGriddap(ctx, c.fetcher, q, g.Region, tr, "sst")
	if err != nil {
		return nil, err
	}
	if units == "" {
		units = "degree_C"
	}
	return &Dataset{
		Name:     c.Name(),
		Variable: "sst",
		Units:    units,
		Source:   "NASA OceanColor MODIS Aqua",
		Layers:   layers,
	}, nil
}

// ChlorophyllCollector fetches 8-day MODIS Aqua chlorophyll-a concentration.
type ChlorophyllCollector struct {
	fetcher fetcher.Fetcher
	BaseURL string
}

// NewChlorophyllCollector creates the chlorophyll collector.
func NewChlorophyllCollector(f fetcher.Fetcher) *ChlorophyllCollector {
	return &ChlorophyllCollector{fetcher: f, BaseURL: coastwatchGriddap}
}

// Name implements Collector.
func (c *ChlorophyllCollector) Name() string { return "chlorophyll" }

// Fetch implements Collector.
func (c *ChlorophyllCollector) Fetch(ctx context.Context, g grid.Grid, tr temporal.Range) (*Dataset, error) {
	q := griddapQuery{BaseURL: c.BaseURL, Dataset: "erdMH1chla8day", Variable: "chlorophyll"}
	layers, units, err := fetchGriddap(ctx, c.fetcher, q, g.Region, tr, "chlorophyll")
	if err != nil {
		return nil, err
	}
	if units == "" {
		units = "mg m-3"
	}
	return &Dataset{
		Name:     c.Name(),
		Variable: "chlorophyll",
		Units:    units,
		Source:   "NASA OceanColor MODIS Aqua",
		Layers:   layers,
	}, nil
}
