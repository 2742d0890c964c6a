package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestZIP(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestExtractZIP(t *testing.T) {
	zipPath := writeTestZIP(t, map[string]string{
		"lanes.shp": "shp data",
		"lanes.shx": "shx data",
		"lanes.dbf": "dbf data",
	})

	dest := t.TempDir()
	extracted, err := ExtractZIP(zipPath, dest)
	require.NoError(t, err)
	assert.Len(t, extracted, 3)

	data, err := os.ReadFile(filepath.Join(dest, "lanes.shp"))
	require.NoError(t, err)
	assert.Equal(t, "shp data", string(data))
}

func TestExtractZIPFile(t *testing.T) {
	zipPath := writeTestZIP(t, map[string]string{
		"a.txt": "aaa",
		"b.txt": "bbb",
	})

	dest := t.TempDir()
	path, err := ExtractZIPFile(zipPath, "b.txt", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "bbb", string(data))
}

func TestExtractZIPFileMissing(t *testing.T) {
	zipPath := writeTestZIP(t, map[string]string{"a.txt": "aaa"})

	_, err := ExtractZIPFile(zipPath, "missing.txt", t.TempDir())
	assert.Error(t, err)
}

func TestExtractZIPRejectsSlip(t *testing.T) {
	zipPath := writeTestZIP(t, map[string]string{
		"../escape.txt": "bad",
	})

	_, err := ExtractZIP(zipPath, t.TempDir())
	assert.Error(t, err)
}
