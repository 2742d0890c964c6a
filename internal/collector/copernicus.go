package collector

import (
	"context"

	"github.com/shark-voyager/voyager-cli/internal/fetcher"
	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

// SLACollector fetches daily sea level anomaly from the Copernicus Marine
// altimetry product. The host requires Copernicus Marine credentials, which
// the HTTP fetcher attaches per host.
type SLACollector struct {
	fetcher fetcher.Fetcher
	BaseURL string
}

// NewSLACollector creates the sea level anomaly collector.
func NewSLACollector(f fetcher.Fetcher) *SLACollector {
	return &SLACollector{fetcher: f, BaseURL: "https://my.cmems-du.eu/erddap/griddap"}
}

// Name implements Collector.
func (c *SLACollector) Name() string { return "sla" }

// Fetch implements Collector.
func (c *SLACollector) Fetch(ctx context.Context, g grid.Grid, tr temporal.Range) (*Dataset, error) {
	q := griddapQuery{
		BaseURL:  c.BaseURL,
		Dataset:  "SEALEVEL_GLO_PHY_L4_MY_008_047",
		Variable: "sla",
	}
	layers, units, err := fetchGriddap(ctx, c.fetcher, q, g.Region, tr, "sla")
	if err != nil {
		return nil, err
	}
	if units == "" {
		units = "m"
	}
	return &Dataset{
		Name:     c.Name(),
		Variable: "sla",
		Units:    units,
		Source:   "Copernicus Marine Service",
		Layers:   layers,
	}, nil
}
