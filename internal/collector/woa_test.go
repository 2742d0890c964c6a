package collector

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shark-voyager/voyager-cli/internal/fetcher"
	"github.com/shark-voyager/voyager-cli/internal/grid"
)

const woaCSV = `#COMMA SEPARATED LATITUDE, LONGITUDE, AND VALUES AT DEPTHS (M):0,5,10
25.5,-120.5,245.2,244.8,243.1
25.5,-119.5,,240.0,239.5
26.5,-120.5,250.1,249.9,248.0
26.5,-119.5,251.3,250.7,249.2
`

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestParseWOASurface(t *testing.T) {
	region := grid.Region{MinLon: -121, MaxLon: -119, MinLat: 25, MaxLat: 27}

	r, err := parseWOASurface(context.Background(), bytes.NewReader([]byte(woaCSV)), region)
	require.NoError(t, err)

	assert.Equal(t, 2, r.Grid.Rows)
	assert.Equal(t, 2, r.Grid.Cols)
	assert.InDelta(t, 1.0, r.Grid.Resolution, 1e-9)

	assert.InDelta(t, 245.2, r.At(0, 0), 1e-9)
	assert.InDelta(t, 251.3, r.At(1, 1), 1e-9)
	assert.True(t, r.IsNoData(r.At(0, 1)))
}

func TestParseWOASurfaceOutsideRegion(t *testing.T) {
	region := grid.Region{MinLon: 0, MaxLon: 10, MinLat: 0, MaxLat: 10}
	_, err := parseWOASurface(context.Background(), bytes.NewReader([]byte(woaCSV)), region)
	assert.Error(t, err)
}

func TestWOACollectorFTPFallbackError(t *testing.T) {
	// HTTPS fails and the FTP fallback points at a closed port: the
	// collector surfaces the fallback error rather than the first one.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewWOACollector(
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 2 * time.Second, MaxRetries: 1}),
		fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: 500 * time.Millisecond}),
	)
	c.HTTPURL = srv.URL
	c.FTPURL = "ftp://127.0.0.1:1/woa18_all_o00mn01.csv.gz"

	_, err := c.Fetch(context.Background(), testGrid(t), testRange(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp")
}

func TestWOACollectorHTTPS(t *testing.T) {
	payload := gzipBytes(t, woaCSV)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	c := NewWOACollector(
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second}),
		fetcher.NewFTPFetcher(fetcher.FTPOptions{}),
	)
	c.HTTPURL = srv.URL

	g, err := grid.Build(grid.Region{MinLon: -121, MaxLon: -119, MinLat: 25, MaxLat: 27}, 0.1)
	require.NoError(t, err)

	ds, err := c.Fetch(context.Background(), g, testRange(t))
	require.NoError(t, err)
	require.Len(t, ds.Layers, 1)
	assert.Equal(t, "oxygen", ds.Variable)
	assert.Equal(t, 3, ds.Layers[0].Raster.ValidCount()) // one empty surface cell
}
