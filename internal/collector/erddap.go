package collector

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shark-voyager/voyager-cli/internal/fetcher"
	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/raster"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

// griddapQuery describes one griddap CSV subset request. The subset services
// used by the environmental collectors all speak the same dialect:
// time,latitude,longitude,value rows with a units line under the header.
type griddapQuery struct {
	BaseURL  string // e.g. https://coastwatch.pfeg.noaa.gov/erddap/griddap
	Dataset  string // dataset id
	Variable string // variable name inside the dataset
}

func (q griddapQuery) url(region grid.Region, tr temporal.Range) string {
	constraint := fmt.Sprintf("%s[(%s):(%s)][(%g):(%g)][(%g):(%g)]",
		q.Variable,
		tr.Start.UTC().Format(time.RFC3339),
		tr.End.UTC().Format(time.RFC3339),
		region.MinLat, region.MaxLat,
		region.MinLon, region.MaxLon,
	)
	return q.BaseURL + "/" + q.Dataset + ".csv?" + url.PathEscape(constraint)
}

// fetchGriddap downloads a griddap CSV subset and assembles the rows into
// per-time rasters on the provider's native grid.
func fetchGriddap(ctx context.Context, f fetcher.Fetcher, q griddapQuery, region grid.Region, tr temporal.Range, name string) ([]Layer, string, error) {
	body, err := f.Download(ctx, q.url(region, tr))
	if err != nil {
		return nil, "", eris.Wrapf(err, "collector: fetch %s", q.Dataset)
	}
	defer body.Close() //nolint:errcheck

	rowCh, errCh := fetcher.StreamCSV(ctx, body, fetcher.CSVOptions{
		HasHeader: true,
	})

	type cell struct {
		lon, lat, v float64
	}
	byTime := make(map[time.Time][]cell)
	lonSet := make(map[float64]struct{})
	latSet := make(map[float64]struct{})

	var units string
	first := true
	for row := range rowCh {
		// The row after the header carries units, not data.
		if first {
			first = false
			if len(row) >= 4 {
				units = row[3]
			}
			continue
		}
		if len(row) < 4 {
			continue
		}

		ts, terr := time.Parse(time.RFC3339, row[0])
		if terr != nil {
			return nil, "", eris.Wrapf(terr, "collector: %s: bad timestamp %q", q.Dataset, row[0])
		}
		lat, laterr := strconv.ParseFloat(row[1], 64)
		lon, lonerr := strconv.ParseFloat(row[2], 64)
		if laterr != nil || lonerr != nil {
			return nil, "", eris.Errorf("collector: %s: bad coordinates %q,%q", q.Dataset, row[1], row[2])
		}

		v := math.NaN()
		if row[3] != "" && row[3] != "NaN" {
			v, err = strconv.ParseFloat(row[3], 64)
			if err != nil {
				return nil, "", eris.Wrapf(err, "collector: %s: bad value %q", q.Dataset, row[3])
			}
		}

		byTime[ts.UTC()] = append(byTime[ts.UTC()], cell{lon: lon, lat: lat, v: v})
		lonSet[lon] = struct{}{}
		latSet[lat] = struct{}{}
	}
	if err := <-errCh; err != nil {
		return nil, "", eris.Wrapf(err, "collector: %s: stream csv", q.Dataset)
	}
	if len(byTime) == 0 {
		return nil, units, nil
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
		return nil, units, eris.Errorf("collector: %s: cannot infer native grid", q.Dataset)
	}

	times := make([]time.Time, 0, len(byTime))
	for ts := range byTime {
		times = append(times, ts)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	layers := make([]Layer, 0, len(times))
	for _, ts := range times {
		r := raster.New(native, name, units)
		for _, c := range byTime[ts] {
			row, col := native.CellIndex(c.lon, c.lat)
			if row < 0 {
				continue
			}
			if math.IsNaN(c.v) {
				r.Set(row, col, r.NoData)
			} else {
				r.Set(row, col, c.v)
			}
		}
		layers = append(layers, Layer{Time: ts, Raster: r})
	}

	zap.L().Debug("collector: griddap subset assembled",
		zap.String("dataset", q.Dataset),
		zap.Int("layers", len(layers)),
		zap.Int("rows", native.Rows),
		zap.Int("cols", native.Cols),
	)
	return layers, units, nil
}
