package collector

import (
	"compress/gzip"
	"context"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shark-voyager/voyager-cli/internal/fetcher"
	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/raster"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

// World Ocean Atlas 2018 annual dissolved oxygen climatology at 1 degree,
// objectively analyzed mean, CSV distribution.
const (
	woaHTTPURL = "https://www.ncei.noaa.gov/data/oceans/woa/WOA18/DATA/oxygen/csv/all/1.00/woa18_all_o00mn01.csv.gz"
	woaFTPURL  = "ftp://ftp.ncei.noaa.gov/pub/woa/WOA18/DATA/oxygen/csv/all/1.00/woa18_all_o00mn01.csv.gz"
)

// WOACollector fetches the dissolved oxygen climatology. The HTTPS mirror is
// tried first; NCEI outages leave the FTP server up more often than not, so
// it serves as the fallback.
type WOACollector struct {
	fetcher fetcher.Fetcher
	ftp     *fetcher.FTPFetcher
	HTTPURL string
	FTPURL  string
}

// NewWOACollector creates the World Ocean Atlas oxygen collector.
func NewWOACollector(f fetcher.Fetcher, ftp *fetcher.FTPFetcher) *WOACollector {
	return &WOACollector{
		fetcher: f,
		ftp:     ftp,
		HTTPURL: woaHTTPURL,
		FTPURL:  woaFTPURL,
	}
}

// Name implements Collector.
func (c *WOACollector) Name() string { return "oxygen" }

// Fetch implements Collector. The climatology is a single annual-mean layer;
// the time range only picks the timestamp it is filed under.
func (c *WOACollector) Fetch(ctx context.Context, g grid.Grid, tr temporal.Range) (*Dataset, error) {
	body, err := c.fetcher.Download(ctx, c.HTTPURL)
	if err != nil {
		zap.L().Warn("collector: woa https failed, falling back to ftp", zap.Error(err))
		var ftpErr error
		body, ftpErr = c.ftp.Download(ctx, c.FTPURL)
		if ftpErr != nil {
			return nil, eris.Wrap(ftpErr, "collector: woa ftp fallback")
		}
	}
	defer body.Close() //nolint:errcheck

	gz, err := gzip.NewReader(body)
	if err != nil {
		return nil, eris.Wrap(err, "collector: woa gunzip")
	}
	defer gz.Close() //nolint:errcheck

	r, err := parseWOASurface(ctx, gz, g.Region)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		Name:     c.Name(),
		Variable: "oxygen",
		Units:    "umol/kg",
		Source:   "NOAA NCEI World Ocean Atlas 2018",
		Layers:   []Layer{{Time: tr.Start.UTC(), Raster: r}},
	}, nil
}

// parseWOASurface reads the WOA CSV distribution and keeps the surface
// (first depth column) value for cells inside the region. Rows are
// lat,lon,value-at-each-standard-depth with '#' comment lines up top.
func parseWOASurface(ctx context.Context, r io.Reader, region grid.Region) (*raster.Raster, error) {
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Comment:   '#',
		TrimSpace: true,
	})

	type cell struct {
		lon, lat, v float64
	}
	var cells []cell
	lonSet := make(map[float64]struct{})
	latSet := make(map[float64]struct{})

	for row := range rowCh {
		if len(row) < 3 {
			continue
		}
		lat, latErr := strconv.ParseFloat(row[0], 64)
		lon, lonErr := strconv.ParseFloat(row[1], 64)
		if latErr != nil || lonErr != nil {
			// Header rows in some distributions are unquoted text.
			continue
		}
		if !region.Contains(lon, lat) {
			continue
		}

		v := math.NaN()
		if s := strings.TrimSpace(row[2]); s != "" {
			parsed, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, eris.Errorf("collector: woa: bad value %q at %g,%g", s, lat, lon)
			}
			v = parsed
		}
		cells = append(cells, cell{lon: lon, lat: lat, v: v})
		lonSet[lon] = struct{}{}
		latSet[lat] = struct{}{}
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "collector: woa stream csv")
	}
	if len(cells) == 0 {
		return nil, eris.New("collector: woa: no cells inside region")
	}

	lons := make([]float64, 0, len(lonSet))
	for lon := range lonSet {
		lons = append(lons, lon)
	}
	lats := make([]float64, 0, len(latSet))
	for lat := range latSet {
		lats = append(lats, lat)
	}
	native, ok := gridFromCenters(lons, lats)
	if !ok {
		return nil, eris.New("collector: woa: cannot infer native grid")
	}

	out := raster.New(native, "oxygen", "umol/kg")
	for _, c := range cells {
		row, col := native.CellIndex(c.lon, c.lat)
		if row < 0 {
			continue
		}
		if math.IsNaN(c.v) {
			out.Set(row, col, out.NoData)
		} else {
			out.Set(row, col, c.v)
		}
	}
	return out, nil
}
