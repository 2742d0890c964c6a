package main

import (
	"context"
	"time"

	"github.com/shark-voyager/voyager-cli/internal/catalog"
	"github.com/shark-voyager/voyager-cli/internal/fetcher"
	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

// studyGrid builds the target analysis grid from the configured region.
func studyGrid() (grid.Grid, error) {
	return grid.Build(grid.RegionFromConfig(cfg.Spatial), cfg.Spatial.Resolution)
}

// studyRange parses the configured study period.
func studyRange() (temporal.Range, error) {
	return temporal.ParseRange(cfg.Temporal.StartDate, cfg.Temporal.EndDate)
}

// newHTTPFetcher wires provider credentials and per-host rate limits into an
// HTTP fetcher.
func newHTTPFetcher() *fetcher.HTTPFetcher {
	basicAuths := make(map[string]fetcher.BasicAuth)
	if cfg.Credentials.NASAEarthdata.Username != "" {
		basicAuths["oceandata.sci.gsfc.nasa.gov"] = fetcher.BasicAuth(cfg.Credentials.NASAEarthdata)
		basicAuths["urs.earthdata.nasa.gov"] = fetcher.BasicAuth(cfg.Credentials.NASAEarthdata)
	}
	if cfg.Credentials.CopernicusMarine.Username != "" {
		basicAuths["my.cmems-du.eu"] = fetcher.BasicAuth(cfg.Credentials.CopernicusMarine)
	}

	bearerTokens := make(map[string]string)
	if cfg.Credentials.GFWToken != "" {
		bearerTokens["gateway.api.globalfishingwatch.org"] = cfg.Credentials.GFWToken
	}

	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:      time.Duration(cfg.Collect.TimeoutSecs) * time.Second,
		RateLimiters: fetcher.DefaultRateLimiters(),
		BasicAuths:   basicAuths,
		BearerTokens: bearerTokens,
	})
}

func newFTPFetcher() *fetcher.FTPFetcher {
	return fetcher.NewFTPFetcher(fetcher.FTPOptions{
		Timeout: time.Duration(cfg.Collect.TimeoutSecs) * time.Second,
	})
}

// initCatalog opens the configured run catalog backend and applies
// migrations.
func initCatalog(ctx context.Context) (catalog.Store, error) {
	return catalog.Open(ctx, cfg.Catalog)
}
