package collector

import (
	"context"

	"github.com/shark-voyager/voyager-cli/internal/fetcher"
	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

// SalinityCollector fetches 8-day SMAP sea surface salinity.
type SalinityCollector struct {
	fetcher fetcher.Fetcher
	BaseURL string
}

// NewSalinityCollector creates the salinity collector.
func NewSalinityCollector(f fetcher.Fetcher) *SalinityCollector {
	return &SalinityCollector{fetcher: f, BaseURL: coastwatchGriddap}
}

// Name implements Collector.
func (c *SalinityCollector) Name() string { return "salinity" }

// Fetch implements Collector.
func (c *SalinityCollector) Fetch(ctx context.Context, g grid.Grid, tr temporal.Range) (*Dataset, error) {
	q := griddapQuery{
		BaseURL:  c.BaseURL,
		Dataset:  "jplSMAPSSSv5_8day",
		Variable: "smap_sss",
	}
	layers, units, err := fetchGriddap(ctx, c.fetcher, q, g.Region, tr, "salinity")
	if err != nil {
		return nil, err
	}
	if units == "" {
		units = "PSU"
	}
	return &Dataset{
		Name:     c.Name(),
		Variable: "salinity",
		Units:    units,
		Source:   "NASA SMAP JPL v5",
		Layers:   layers,
	}, nil
}
