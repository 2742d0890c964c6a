package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shark-voyager/voyager-cli/internal/fetcher"
)

const ocearchJSON = `[
	{
		"name": "Monterey",
		"species": "White Shark (Carcharodon carcharias)",
		"stageOfLife": "Adult",
		"gender": "Female",
		"pings": [
			{"latitude": 25.4, "longitude": -120.3, "datetime": "2023-06-10T08:00:00Z"},
			{"latitude": 40.0, "longitude": -70.0, "datetime": "2023-06-11T08:00:00Z"},
			{"latitude": 25.6, "longitude": -120.1, "datetime": "2021-01-01T00:00:00Z"}
		]
	},
	{
		"name": "Luna",
		"species": "Tiger Shark (Galeocerdo cuvier)",
		"stageOfLife": "Adult",
		"gender": "Male",
		"pings": [
			{"latitude": 25.5, "longitude": -120.5, "datetime": "2023-06-10T08:00:00Z"}
		]
	}
]`

func TestOcearchCollectorFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sharks", r.URL.Path)
		_, _ = w.Write([]byte(ocearchJSON))
	}))
	defer srv.Close()

	c := NewOcearchCollector(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second}), "Carcharodon carcharias")
	c.BaseURL = srv.URL

	ds, err := c.Fetch(context.Background(), testGrid(t), testRange(t))
	require.NoError(t, err)

	// One ping survives: the other white shark pings are outside the region
	// or the time range, and the tiger shark is filtered by species.
	require.Len(t, ds.Points, 1)
	assert.Equal(t, "Adult_Female", ds.Points[0].LifeStage)
	assert.Equal(t, "OCEARCH", ds.Points[0].Source)
	assert.InDelta(t, -120.3, ds.Points[0].Lon, 1e-9)
}

func TestLifeStageFor(t *testing.T) {
	assert.Equal(t, "Juvenile", lifeStageFor("Juvenile", "Male"))
	assert.Equal(t, "Juvenile", lifeStageFor("Immature", "Female"))
	assert.Equal(t, "Adult_Female", lifeStageFor("Adult", "Female"))
	assert.Equal(t, "Adult_Male", lifeStageFor("Adult", "Male"))
	assert.Equal(t, "Adult_Male", lifeStageFor("", ""))
}

func TestSpeciesKeyword(t *testing.T) {
	assert.Equal(t, "carcharias", speciesKeyword("Carcharodon carcharias"))
	assert.Equal(t, "", speciesKeyword(""))
}
