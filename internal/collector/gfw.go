package collector

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shark-voyager/voyager-cli/internal/fetcher"
	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/raster"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

// GFWCollector fetches apparent fishing effort from the Global Fishing Watch
// 4wings report API. The API needs a bearer token and returns a zipped CSV of
// gridded effort hours.
type GFWCollector struct {
	fetcher fetcher.Fetcher
	token   string
	tempDir string
	BaseURL string
}

// NewGFWCollector creates the fishing effort collector.
func NewGFWCollector(f fetcher.Fetcher, token, tempDir string) *GFWCollector {
	return &GFWCollector{
		fetcher: f,
		token:   token,
		tempDir: tempDir,
		BaseURL: "https://gateway.api.globalfishingwatch.org/v3",
	}
}

// Name implements Collector.
func (c *GFWCollector) Name() string { return "fishing_effort" }

// Fetch implements Collector. Effort hours are accumulated onto the study
// grid directly since the report is requested at the study resolution.
func (c *GFWCollector) Fetch(ctx context.Context, g grid.Grid, tr temporal.Range) (*Dataset, error) {
	if c.token == "" {
		return nil, eris.New("collector: gfw: api token not configured")
	}

	region := g.Region
	q := url.Values{}
	q.Set("spatial-resolution", "HIGH")
	q.Set("temporal-resolution", "ENTIRE")
	q.Set("datasets[0]", "public-global-fishing-effort:latest")
	q.Set("date-range", tr.Start.Format("2006-01-02")+","+tr.End.Format("2006-01-02"))
	q.Set("format", "CSV")
	q.Set("region", fmt.Sprintf("%g,%g,%g,%g",
		region.MinLon, region.MinLat, region.MaxLon, region.MaxLat))

	if err := os.MkdirAll(c.tempDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "collector: gfw temp dir")
	}
	zipPath := filepath.Join(c.tempDir, "gfw_effort.zip")
	if _, err := c.fetcher.DownloadToFile(ctx, c.BaseURL+"/4wings/report?"+q.Encode(), zipPath); err != nil {
		return nil, eris.Wrap(err, "collector: gfw report")
	}

	extracted, err := fetcher.ExtractZIP(zipPath, c.tempDir)
	if err != nil {
		return nil, eris.Wrap(err, "collector: gfw extract report")
	}
	csvPath := ""
	for _, p := range extracted {
		if strings.HasSuffix(p, ".csv") {
			csvPath = p
			break
		}
	}
	if csvPath == "" {
		return nil, eris.New("collector: gfw: report archive has no csv")
	}

	effort, err := c.parseEffortCSV(ctx, csvPath, g)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		Name:     c.Name(),
		Variable: "fishing_effort",
		Units:    "hours",
		Source:   "Global Fishing Watch",
		Layers:   []Layer{{Time: tr.Start.UTC(), Raster: effort}},
	}, nil
}

// parseEffortCSV accumulates report rows (Lat, Lon, Apparent Fishing Hours)
// onto the study grid. Cells with no reported effort hold zero, not nodata:
// absence of fishing is signal here.
func (c *GFWCollector) parseEffortCSV(ctx context.Context, path string, g grid.Grid) (*raster.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "collector: gfw open report csv")
	}
	defer f.Close() //nolint:errcheck

	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{})

	effort := raster.NewFilled(g, "fishing_effort", "hours", 0)
	latIdx, lonIdx, hoursIdx := -1, -1, -1
	first := true
	var dropped int
	for row := range rowCh {
		if first {
			first = false
			for i, col := range row {
				switch strings.ToLower(strings.TrimSpace(col)) {
				case "lat":
					latIdx = i
				case "lon":
					lonIdx = i
				case "apparent fishing hours", "hours":
					hoursIdx = i
				}
			}
			if latIdx < 0 || lonIdx < 0 || hoursIdx < 0 {
				return nil, eris.Errorf("collector: gfw: unexpected report header %v", row)
			}
			continue
		}

		lat, latErr := strconv.ParseFloat(row[latIdx], 64)
		lon, lonErr := strconv.ParseFloat(row[lonIdx], 64)
		hours, hoursErr := strconv.ParseFloat(row[hoursIdx], 64)
		if latErr != nil || lonErr != nil || hoursErr != nil {
			dropped++
			continue
		}
		r, col := g.CellIndex(lon, lat)
		if r < 0 {
			dropped++
			continue
		}
		effort.Set(r, col, effort.At(r, col)+hours)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "collector: gfw stream report")
	}
	if dropped > 0 {
		zap.L().Debug("collector: gfw rows dropped", zap.Int("dropped", dropped))
	}

	return effort, nil
}
