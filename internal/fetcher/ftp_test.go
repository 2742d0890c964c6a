package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFTPURL(t *testing.T) {
	host, path, err := parseFTPURL("ftp://ftp.ncei.noaa.gov/pub/woa/WOA18/DATA/oxygen/netcdf/all/1.00/woa18_all_o00_01.nc")
	require.NoError(t, err)
	assert.Equal(t, "ftp.ncei.noaa.gov:21", host)
	assert.Equal(t, "/pub/woa/WOA18/DATA/oxygen/netcdf/all/1.00/woa18_all_o00_01.nc", path)
}

func TestParseFTPURLExplicitPort(t *testing.T) {
	host, _, err := parseFTPURL("ftp://example.com:2121/file.nc")
	require.NoError(t, err)
	assert.Equal(t, "example.com:2121", host)
}

func TestParseFTPURLRejectsHTTP(t *testing.T) {
	_, _, err := parseFTPURL("https://example.com/file.nc")
	assert.Error(t, err)
}

func TestParseFTPURLEmptyPath(t *testing.T) {
	_, _, err := parseFTPURL("ftp://example.com")
	assert.Error(t, err)
}
