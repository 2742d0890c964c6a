package collector

import (
	"context"
	"fmt"
	"io"
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

// GEBCOCollector fetches the GEBCO global bathymetry grid as a GeoTIFF
// subset. The grid is static, so downloads are ETag-cached in the temp dir
// and skipped while the server reports the same release.
type GEBCOCollector struct {
	fetcher fetcher.Fetcher
	tempDir string
	BaseURL string
}

// NewGEBCOCollector creates the bathymetry collector.
func NewGEBCOCollector(f fetcher.Fetcher, tempDir string) *GEBCOCollector {
	return &GEBCOCollector{
		fetcher: f,
		tempDir: tempDir,
		BaseURL: "https://download.gebco.net/geotiff",
	}
}

// Name implements Collector.
func (c *GEBCOCollector) Name() string { return "bathymetry" }

// Fetch implements Collector. Bathymetry is timeless; the time range is ignored.
func (c *GEBCOCollector) Fetch(ctx context.Context, g grid.Grid, _ temporal.Range) (*Dataset, error) {
	region := g.Region
	rawURL := fmt.Sprintf("%s?bbox=%g,%g,%g,%g", c.BaseURL,
		region.MinLon, region.MinLat, region.MaxLon, region.MaxLat)

	if err := os.MkdirAll(c.tempDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "collector: gebco temp dir")
	}
	tiffPath := filepath.Join(c.tempDir, "gebco_bathymetry.tif")
	etagPath := tiffPath + ".etag"

	etag := ""
	if data, err := os.ReadFile(etagPath); err == nil {
		etag = strings.TrimSpace(string(data))
	}
	if _, err := os.Stat(tiffPath); err != nil {
		etag = "" // cached raster missing, force a fresh download
	}

	body, newETag, changed, err := c.fetcher.DownloadIfChanged(ctx, rawURL, etag)
	if err != nil {
		return nil, eris.Wrap(err, "collector: gebco download")
	}
	if changed {
		defer body.Close() //nolint:errcheck
		out, createErr := os.Create(tiffPath)
		if createErr != nil {
			return nil, eris.Wrap(createErr, "collector: gebco cache file")
		}
		if _, err := io.Copy(out, body); err != nil {
			_ = out.Close()
			return nil, eris.Wrap(err, "collector: gebco write cache")
		}
		if err := out.Close(); err != nil {
			return nil, eris.Wrap(err, "collector: gebco close cache")
		}
		if newETag != "" {
			if err := os.WriteFile(etagPath, []byte(newETag), 0o644); err != nil {
				zap.L().Warn("collector: gebco etag not cached", zap.Error(err))
			}
		}
	} else {
		zap.L().Info("collector: gebco cache still current", zap.String("etag", etag))
	}

	depth, err := geoio.ReadGeoTIFF(tiffPath, "depth", "m")
	if err != nil {
		return nil, eris.Wrap(err, "collector: gebco parse geotiff")
	}

	return &Dataset{
		Name:     c.Name(),
		Variable: "depth",
		Units:    "m",
		Source:   "GEBCO 2023 Grid",
		Layers:   []Layer{{Raster: depth}},
	}, nil
}
