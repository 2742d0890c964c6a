package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) [][]string {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	require.NoError(t, <-errCh)
	return rows
}

func TestStreamCSV(t *testing.T) {
	input := "lat,lon,species\n36.7,-122.0,Carcharodon carcharias\n34.4,-120.5,Carcharodon carcharias\n"

	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})

	rows := collectRows(t, rowCh, errCh)
	assert.Equal(t, []string{"lat", "lon", "species"}, <-headerCh)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"36.7", "-122.0", "Carcharodon carcharias"}, rows[0])
}

func TestStreamCSVTabDelimited(t *testing.T) {
	input := "36.7\t-122.0\n34.4\t-120.5\n"

	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		Delimiter: '\t',
	})

	rows := collectRows(t, rowCh, errCh)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"34.4", "-120.5"}, rows[1])
}

func TestStreamCSVTrimSpace(t *testing.T) {
	input := " a , b \n"

	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		TrimSpace: true,
	})

	rows := collectRows(t, rowCh, errCh)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"a", "b"}, rows[0])
}

func TestStreamCSVCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a,b\nc,d\n"), CSVOptions{})
	for range rowCh {
	}
	assert.Error(t, <-errCh)
}
