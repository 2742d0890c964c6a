// Package geoio reads and writes the on-disk formats exchanged with the
// collectors and the downstream modeling step: GeoTIFF rasters, NetCDF
// weekly stacks, GeoPackage/CSV point tables, and GeoJSON/shapefile vector
// inputs.
package geoio

import (
	"bytes"
	"compress/lzw"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/raster"
)

// TIFF tag and type constants for the subset of the format we produce:
// single-band float32, one strip, LZW-compressed, with GeoTIFF georeferencing
// keys for EPSG:4326.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGDALNoData      = 42113

	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12

	compressionNone = 1
	compressionLZW  = 5
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	// value holds the raw little-endian encoding; if longer than 4 bytes it
	// is written to the overflow area.
	value []byte
}

// WriteGeoTIFF writes a raster as a single-band float32 GeoTIFF with LZW
// compression and EPSG:4326 georeferencing.
func WriteGeoTIFF(path string, r *raster.Raster) error {
	g := r.Grid
	if err := r.CheckShape(g); err != nil {
		return err
	}

	// Pixel data: TIFF rows run north to south, our rasters south to north.
	pix := make([]byte, 0, g.NumCells()*4)
	var scratch [4]byte
	for row := g.Rows - 1; row >= 0; row-- {
		for col := 0; col < g.Cols; col++ {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(float32(r.At(row, col))))
			pix = append(pix, scratch[:]...)
		}
	}

	var strip bytes.Buffer
	lw := lzw.NewWriter(&strip, lzw.MSB, 8)
	if _, err := lw.Write(pix); err != nil {
		return eris.Wrap(err, "geotiff: compress strip")
	}
	if err := lw.Close(); err != nil {
		return eris.Wrap(err, "geotiff: close lzw writer")
	}

	stripOffset := uint32(8)
	ifdOffset := stripOffset + uint32(strip.Len())
	if ifdOffset%2 != 0 {
		ifdOffset++
	}

	entries := []ifdEntry{
		{tagImageWidth, typeLong, 1, le32(uint32(g.Cols))},
		{tagImageLength, typeLong, 1, le32(uint32(g.Rows))},
		{tagBitsPerSample, typeShort, 1, le16(32)},
		{tagCompression, typeShort, 1, le16(compressionLZW)},
		{tagPhotometric, typeShort, 1, le16(1)},
		{tagStripOffsets, typeLong, 1, le32(stripOffset)},
		{tagSamplesPerPixel, typeShort, 1, le16(1)},
		{tagRowsPerStrip, typeLong, 1, le32(uint32(g.Rows))},
		{tagStripByteCounts, typeLong, 1, le32(uint32(strip.Len()))},
		{tagSampleFormat, typeShort, 1, le16(3)},
		{tagModelPixelScale, typeDouble, 3, leDoubles(g.Resolution, g.Resolution, 0)},
		// Tiepoint anchors raster (0,0) — the northwest corner — at
		// (MinLon, MaxLat).
		{tagModelTiepoint, typeDouble, 6, leDoubles(0, 0, 0, g.Region.MinLon, g.Region.MaxLat, 0)},
		{tagGeoKeyDirectory, typeShort, 8, leShorts(
			1, 1, 0, 1, // version, revision, minor, key count
			2048, 0, 1, 4326, // GeographicTypeGeoKey = WGS84
		)},
		{tagGDALNoData, typeASCII, 0, nil},
	}
	nodata := strconv.FormatFloat(r.NoData, 'g', -1, 64) + "\x00"
	entries[len(entries)-1].count = uint32(len(nodata))
	entries[len(entries)-1].value = []byte(nodata)

	var buf bytes.Buffer
	buf.WriteString("II")
	buf.Write(le16(42))
	buf.Write(le32(ifdOffset))
	buf.Write(strip.Bytes())
	for buf.Len() < int(ifdOffset) {
		buf.WriteByte(0)
	}

	// Overflow values land after the IFD.
	overflowOffset := ifdOffset + 2 + uint32(len(entries))*12 + 4
	var overflow bytes.Buffer

	buf.Write(le16(uint16(len(entries))))
	for _, e := range entries {
		buf.Write(le16(e.tag))
		buf.Write(le16(e.typ))
		buf.Write(le32(e.count))
		if len(e.value) <= 4 {
			padded := make([]byte, 4)
			copy(padded, e.value)
			buf.Write(padded)
		} else {
			buf.Write(le32(overflowOffset + uint32(overflow.Len())))
			overflow.Write(e.value)
			if overflow.Len()%2 != 0 {
				overflow.WriteByte(0)
			}
		}
	}
	buf.Write(le32(0)) // no next IFD
	buf.Write(overflow.Bytes())

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "geotiff: write %s", path)
	}
	return nil
}

// ReadGeoTIFF reads a single-band float32 GeoTIFF produced by WriteGeoTIFF
// (or any uncompressed/LZW float32 GeoTIFF with strip layout).
func ReadGeoTIFF(path, name, units string) (*raster.Raster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geotiff: read %s", path)
	}
	if len(data) < 8 || data[0] != 'I' || data[1] != 'I' || binary.LittleEndian.Uint16(data[2:]) != 42 {
		return nil, eris.Errorf("geotiff: %s: not a little-endian TIFF", path)
	}

	ifdOffset := binary.LittleEndian.Uint32(data[4:])
	tags, err := parseIFD(data, ifdOffset)
	if err != nil {
		return nil, eris.Wrapf(err, "geotiff: %s", path)
	}

	width := int(tagLong(tags, tagImageWidth))
	height := int(tagLong(tags, tagImageLength))
	if width <= 0 || height <= 0 {
		return nil, eris.Errorf("geotiff: %s: missing dimensions", path)
	}
	if bits := tagLong(tags, tagBitsPerSample); bits != 32 {
		return nil, eris.Errorf("geotiff: %s: unsupported bits per sample %d", path, bits)
	}
	if sf := tagLong(tags, tagSampleFormat); sf != 3 {
		return nil, eris.Errorf("geotiff: %s: unsupported sample format %d (want IEEE float)", path, sf)
	}

	compression := tagLong(tags, tagCompression)
	offsets := tagLongs(tags, tagStripOffsets)
	counts := tagLongs(tags, tagStripByteCounts)
	if len(offsets) == 0 || len(offsets) != len(counts) {
		return nil, eris.Errorf("geotiff: %s: malformed strip layout", path)
	}

	var pix []byte
	for i := range offsets {
		off, n := offsets[i], counts[i]
		if int(off+n) > len(data) {
			return nil, eris.Errorf("geotiff: %s: strip beyond file end", path)
		}
		chunk := data[off : off+n]
		switch compression {
		case compressionNone:
			pix = append(pix, chunk...)
		case compressionLZW:
			lr := lzw.NewReader(bytes.NewReader(chunk), lzw.MSB, 8)
			decoded, derr := io.ReadAll(lr)
			_ = lr.Close()
			if derr != nil {
				return nil, eris.Wrapf(derr, "geotiff: %s: decompress strip", path)
			}
			pix = append(pix, decoded...)
		default:
			return nil, eris.Errorf("geotiff: %s: unsupported compression %d", path, compression)
		}
	}
	if len(pix) < width*height*4 {
		return nil, eris.Errorf("geotiff: %s: short pixel data", path)
	}

	scale := tagDoubles(tags, tagModelPixelScale)
	tiepoint := tagDoubles(tags, tagModelTiepoint)
	if len(scale) < 2 || len(tiepoint) < 6 {
		return nil, eris.Errorf("geotiff: %s: missing georeferencing tags", path)
	}
	res := scale[0]
	minLon := tiepoint[3]
	maxLat := tiepoint[4]

	region := grid.Region{
		MinLon: minLon,
		MaxLon: minLon + float64(width)*res,
		MinLat: maxLat - float64(height)*res,
		MaxLat: maxLat,
	}
	g := grid.Grid{Region: region, Resolution: res, Rows: height, Cols: width}

	out := raster.New(g, name, units)
	if nd, ok := tags[tagGDALNoData]; ok {
		s := strings.TrimRight(string(nd.value), "\x00")
		if v, perr := strconv.ParseFloat(strings.TrimSpace(s), 64); perr == nil {
			out.NoData = v
		}
	}

	for tiffRow := 0; tiffRow < height; tiffRow++ {
		row := height - 1 - tiffRow
		for col := 0; col < width; col++ {
			bits := binary.LittleEndian.Uint32(pix[(tiffRow*width+col)*4:])
			out.Set(row, col, float64(math.Float32frombits(bits)))
		}
	}

	return out, nil
}

func parseIFD(data []byte, offset uint32) (map[uint16]ifdEntry, error) {
	if int(offset)+2 > len(data) {
		return nil, eris.New("IFD offset beyond file end")
	}
	n := int(binary.LittleEndian.Uint16(data[offset:]))
	tags := make(map[uint16]ifdEntry, n)

	for i := 0; i < n; i++ {
		base := int(offset) + 2 + i*12
		if base+12 > len(data) {
			return nil, eris.New("truncated IFD")
		}
		e := ifdEntry{
			tag:   binary.LittleEndian.Uint16(data[base:]),
			typ:   binary.LittleEndian.Uint16(data[base+2:]),
			count: binary.LittleEndian.Uint32(data[base+4:]),
		}
		size := typeSize(e.typ) * int(e.count)
		if size <= 4 {
			e.value = data[base+8 : base+12]
		} else {
			valOff := binary.LittleEndian.Uint32(data[base+8:])
			if int(valOff)+size > len(data) {
				return nil, eris.Errorf("tag %d value beyond file end", e.tag)
			}
			e.value = data[valOff : int(valOff)+size]
		}
		tags[e.tag] = e
	}
	return tags, nil
}

func typeSize(typ uint16) int {
	switch typ {
	case typeShort:
		return 2
	case typeLong:
		return 4
	case typeDouble:
		return 8
	default:
		return 1
	}
}

func tagLong(tags map[uint16]ifdEntry, tag uint16) uint32 {
	vals := tagLongs(tags, tag)
	if len(vals) == 0 {
		return 0
	}
	return vals[0]
}

func tagLongs(tags map[uint16]ifdEntry, tag uint16) []uint32 {
	e, ok := tags[tag]
	if !ok {
		return nil
	}
	out := make([]uint32, 0, e.count)
	for i := 0; i < int(e.count); i++ {
		switch e.typ {
		case typeShort:
			out = append(out, uint32(binary.LittleEndian.Uint16(e.value[i*2:])))
		case typeLong:
			out = append(out, binary.LittleEndian.Uint32(e.value[i*4:]))
		}
	}
	return out
}

func tagDoubles(tags map[uint16]ifdEntry, tag uint16) []float64 {
	e, ok := tags[tag]
	if !ok || e.typ != typeDouble {
		return nil
	}
	out := make([]float64, 0, e.count)
	for i := 0; i < int(e.count); i++ {
		out = append(out, math.Float64frombits(binary.LittleEndian.Uint64(e.value[i*8:])))
	}
	return out
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func leShorts(vals ...uint16) []byte {
	b := make([]byte, 0, len(vals)*2)
	for _, v := range vals {
		b = append(b, le16(v)...)
	}
	return b
}

func leDoubles(vals ...float64) []byte {
	b := make([]byte, 0, len(vals)*8)
	var scratch [8]byte
	for _, v := range vals {
		binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(v))
		b = append(b, scratch[:]...)
	}
	return b
}
