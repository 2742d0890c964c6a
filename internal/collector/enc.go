package collector

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shark-voyager/voyager-cli/internal/fetcher"
	"github.com/shark-voyager/voyager-cli/internal/geoio"
	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

// ENCCollector fetches the NOAA shipping fairways shapefile. The lane
// geometries feed the distance-to-shipping-lane raster downstream.
type ENCCollector struct {
	fetcher fetcher.Fetcher
	tempDir string
	URL     string
}

// NewENCCollector creates the shipping lanes collector.
func NewENCCollector(f fetcher.Fetcher, tempDir string) *ENCCollector {
	return &ENCCollector{
		fetcher: f,
		tempDir: tempDir,
		URL:     "https://charts.noaa.gov/ENCs/ShippingLanes.zip",
	}
}

// Name implements Collector.
func (c *ENCCollector) Name() string { return "shipping_lanes" }

// Fetch implements Collector. Lane geometry is static; region and time range
// are ignored and filtering happens when the distance raster is built.
func (c *ENCCollector) Fetch(ctx context.Context, _ grid.Grid, _ temporal.Range) (*Dataset, error) {
	if err := os.MkdirAll(c.tempDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "collector: enc temp dir")
	}

	zipPath := filepath.Join(c.tempDir, "shipping_lanes.zip")
	if _, err := c.fetcher.DownloadToFile(ctx, c.URL, zipPath); err != nil {
		return nil, eris.Wrap(err, "collector: enc download")
	}

	extractDir := filepath.Join(c.tempDir, "shipping_lanes")
	extracted, err := fetcher.ExtractZIP(zipPath, extractDir)
	if err != nil {
		return nil, eris.Wrap(err, "collector: enc extract")
	}

	shpPath := ""
	for _, p := range extracted {
		if strings.HasSuffix(strings.ToLower(p), ".shp") {
			shpPath = p
			break
		}
	}
	if shpPath == "" {
		return nil, eris.New("collector: enc: archive has no .shp")
	}

	features, err := geoio.ReadShapefileGeoms(shpPath)
	if err != nil {
		return nil, eris.Wrap(err, "collector: enc read shapefile")
	}

	zap.L().Info("collector: shipping lanes fetched", zap.Int("features", len(features)))
	return &Dataset{
		Name:     c.Name(),
		Source:   "NOAA ENC Direct",
		Features: features,
	}, nil
}
