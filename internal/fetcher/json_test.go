package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type occurrenceRecord struct {
	Lat     float64 `json:"decimalLatitude"`
	Lon     float64 `json:"decimalLongitude"`
	Species string  `json:"species"`
}

func TestDecodeJSONArray(t *testing.T) {
	input := `[
		{"decimalLatitude": 36.7, "decimalLongitude": -122.0, "species": "Carcharodon carcharias"},
		{"decimalLatitude": 34.4, "decimalLongitude": -120.5, "species": "Carcharodon carcharias"}
	]`

	outCh, errCh := DecodeJSONArray[occurrenceRecord](context.Background(), strings.NewReader(input))

	var records []occurrenceRecord
	for rec := range outCh {
		records = append(records, rec)
	}
	require.NoError(t, <-errCh)

	require.Len(t, records, 2)
	assert.Equal(t, 36.7, records[0].Lat)
	assert.Equal(t, "Carcharodon carcharias", records[1].Species)
}

func TestDecodeJSONArrayRejectsObject(t *testing.T) {
	outCh, errCh := DecodeJSONArray[occurrenceRecord](context.Background(), strings.NewReader(`{"a": 1}`))
	for range outCh {
	}
	assert.Error(t, <-errCh)
}

func TestDecodeJSONObject(t *testing.T) {
	type page struct {
		Count   int                `json:"count"`
		Results []occurrenceRecord `json:"results"`
	}

	obj, err := DecodeJSONObject[page](strings.NewReader(`{"count": 1, "results": [{"species": "Orcinus orca"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, obj.Count)
	require.Len(t, obj.Results, 1)
	assert.Equal(t, "Orcinus orca", obj.Results[0].Species)
}
