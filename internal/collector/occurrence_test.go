package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shark-voyager/voyager-cli/internal/fetcher"
	"github.com/shark-voyager/voyager-cli/internal/model"
)

func TestGBIFCollectorPagination(t *testing.T) {
	// Two pages of one record each.
	records := []gbifRecord{
		{DecimalLatitude: 25.5, DecimalLongitude: -120.5, EventDate: "2023-06-02T10:00:00", Species: "Carcharodon carcharias"},
		{DecimalLatitude: 25.7, DecimalLongitude: -120.1, EventDate: "2023-06-12", Species: "Carcharodon carcharias", LifeStage: "Juvenile"},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/occurrence/search", r.URL.Path)
		assert.Equal(t, "Carcharodon carcharias", r.URL.Query().Get("scientificName"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		page := gbifPage{Count: len(records), Offset: offset}
		if offset < len(records) {
			page.Results = records[offset : offset+1]
		}
		page.EndOfRecords = offset+len(page.Results) >= len(records)
		require.NoError(t, json.NewEncoder(w).Encode(page))
	}))
	defer srv.Close()

	c := NewGBIFCollector(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second}), "Carcharodon carcharias", 0)
	c.BaseURL = srv.URL

	ds, err := c.Fetch(context.Background(), testGrid(t), testRange(t))
	require.NoError(t, err)
	require.Len(t, ds.Points, 2)

	assert.Equal(t, model.PresencePoint, ds.Points[0].Type)
	assert.Equal(t, 1, ds.Points[0].Presence)
	assert.Equal(t, "GBIF", ds.Points[0].Source)
	assert.Equal(t, time.Date(2023, 6, 2, 10, 0, 0, 0, time.UTC), ds.Points[0].Time)
	assert.Equal(t, "Juvenile", ds.Points[1].LifeStage)
}

func TestGBIFCollectorRecordCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := gbifPage{Count: 10000, EndOfRecords: false}
		for range gbifPageSize {
			page.Results = append(page.Results, gbifRecord{DecimalLatitude: 25.5, DecimalLongitude: -120.5})
		}
		require.NoError(t, json.NewEncoder(w).Encode(page))
	}))
	defer srv.Close()

	c := NewGBIFCollector(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second}), "Carcharodon carcharias", gbifPageSize)
	c.BaseURL = srv.URL

	ds, err := c.Fetch(context.Background(), testGrid(t), testRange(t))
	require.NoError(t, err)
	assert.Len(t, ds.Points, gbifPageSize)
}

func TestOBISCollectorFetch(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/occurrence", r.URL.Path)
		page := obisPage{Total: 1}
		if calls == 1 {
			assert.Empty(t, r.URL.Query().Get("after"))
			page.Results = []obisRecord{{
				ID:               "rec-1",
				DecimalLatitude:  25.3,
				DecimalLongitude: -120.8,
				EventDate:        "2023-06-15",
				ScientificName:   "Carcharodon carcharias",
			}}
		} else {
			assert.Equal(t, "rec-1", r.URL.Query().Get("after"))
		}
		require.NoError(t, json.NewEncoder(w).Encode(page))
	}))
	defer srv.Close()

	c := NewOBISCollector(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second}), "Carcharodon carcharias", 0)
	c.BaseURL = srv.URL

	ds, err := c.Fetch(context.Background(), testGrid(t), testRange(t))
	require.NoError(t, err)
	require.Len(t, ds.Points, 1)
	assert.Equal(t, "OBIS", ds.Points[0].Source)
	assert.Equal(t, 2, calls)
}

func TestOrcaCollectorFetch(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "Orcinus orca", r.URL.Query().Get("scientificname"))
		page := obisPage{Total: 1}
		if calls == 1 {
			page.Results = []obisRecord{{
				ID:               "orca-1",
				DecimalLatitude:  26.1,
				DecimalLongitude: -120.4,
				EventDate:        "2023-06-20",
				ScientificName:   "Orcinus orca",
			}}
		}
		require.NoError(t, json.NewEncoder(w).Encode(page))
	}))
	defer srv.Close()

	c := NewOrcaCollector(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second}), 0)
	c.BaseURL = srv.URL

	ds, err := c.Fetch(context.Background(), testGrid(t), testRange(t))
	require.NoError(t, err)
	assert.Equal(t, "orca", ds.Name)
	require.Len(t, ds.Points, 1)
	assert.Equal(t, "Orcinus orca", ds.Points[0].Species)
}

func TestParseEventDate(t *testing.T) {
	cases := map[string]bool{
		"2023-06-15T10:30:00Z": true,
		"2023-06-15T10:30:00":  true,
		"2023-06-15":           true,
		"2023-06":              true,
		"2023":                 true,
		"15/06/2023":           false,
		"":                     false,
	}
	for input, ok := range cases {
		_, got := parseEventDate(input)
		assert.Equal(t, ok, got, "input %q", input)
	}
}
