package geoio

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/raster"
)

// NetCDF classic (CDF-1) constants. The format is big-endian throughout.
const (
	ncDimension = 0x0A
	ncVariable  = 0x0B
	ncAttribute = 0x0C

	ncChar   = 2
	ncFloat  = 5
	ncDouble = 6
)

// epochUnits is the time axis encoding used for weekly stacks.
const epochUnits = "days since 1970-01-01 00:00:00"

// WriteNetCDF writes a weekly raster stack as a NetCDF classic file with
// dimensions (time, lat, lon), coordinate variables, and a float data
// variable carrying units and _FillValue attributes.
func WriteNetCDF(path string, s *raster.Stack) error {
	if s.Len() == 0 {
		return eris.Errorf("netcdf: stack %s is empty", s.Name)
	}
	g := s.Grid

	lats := make([]float64, g.Rows)
	lons := make([]float64, g.Cols)
	for i := range lats {
		_, lats[i] = g.CellCenter(i, 0)
	}
	for i := range lons {
		lons[i], _ = g.CellCenter(0, i)
	}
	times := make([]float64, s.Len())
	for i, t := range s.Times {
		times[i] = float64(t.UTC().Unix()) / 86400.0
	}

	var w ncWriter

	w.raw.WriteString("CDF\x01")
	w.u32(0) // numrecs: all dimensions are fixed

	// Dimension list: time, lat, lon.
	w.u32(ncDimension)
	w.u32(3)
	w.name("time")
	w.u32(uint32(s.Len()))
	w.name("lat")
	w.u32(uint32(g.Rows))
	w.name("lon")
	w.u32(uint32(g.Cols))

	// No global attributes.
	w.u32(0)
	w.u32(0)

	// Variable list. Data offsets are assigned after the header size is
	// known, so the header is built twice: once to measure, once for real.
	type varDef struct {
		name   string
		dims   []uint32
		attrs  []ncAttr
		typ    uint32
		nelems int
	}
	fill := float32(s.NoData)
	vars := []varDef{
		{"time", []uint32{0}, []ncAttr{textAttr("units", epochUnits)}, ncDouble, s.Len()},
		{"lat", []uint32{1}, []ncAttr{textAttr("units", "degrees_north")}, ncDouble, g.Rows},
		{"lon", []uint32{2}, []ncAttr{textAttr("units", "degrees_east")}, ncDouble, g.Cols},
		{s.Name, []uint32{0, 1, 2}, []ncAttr{
			textAttr("units", s.Units),
			floatAttr("_FillValue", fill),
		}, ncFloat, s.Len() * g.NumCells()},
	}

	writeVarList := func(w *ncWriter, begins []uint32) {
		w.u32(ncVariable)
		w.u32(uint32(len(vars)))
		for i, v := range vars {
			w.name(v.name)
			w.u32(uint32(len(v.dims)))
			for _, d := range v.dims {
				w.u32(d)
			}
			w.attrs(v.attrs)
			w.u32(v.typ)
			w.u32(uint32(pad4(v.nelems * ncTypeSize(v.typ))))
			w.u32(begins[i])
		}
	}

	// First pass with zero offsets to measure the header.
	var probe ncWriter
	writeVarList(&probe, make([]uint32, len(vars)))
	headerLen := w.raw.Len() + probe.raw.Len()

	begins := make([]uint32, len(vars))
	offset := uint32(headerLen)
	for i, v := range vars {
		begins[i] = offset
		offset += uint32(pad4(v.nelems * ncTypeSize(v.typ)))
	}
	writeVarList(&w, begins)

	// Data section, in variable order.
	for _, t := range times {
		w.f64(t)
	}
	for _, v := range lats {
		w.f64(v)
	}
	for _, v := range lons {
		w.f64(v)
	}
	for _, layer := range s.Layers {
		for row := 0; row < g.Rows; row++ {
			for col := 0; col < g.Cols; col++ {
				val := layer.At(row, col)
				if layer.IsNoData(val) {
					w.f32(fill)
				} else {
					w.f32(float32(val))
				}
			}
		}
	}

	if err := os.WriteFile(path, w.raw.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "netcdf: write %s", path)
	}
	return nil
}

// ReadNetCDF reads a weekly stack written by WriteNetCDF. varName selects
// the data variable.
func ReadNetCDF(path, varName, units string) (*raster.Stack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "netcdf: read %s", path)
	}
	r := &ncReader{data: data}

	if !bytes.HasPrefix(data, []byte("CDF\x01")) {
		return nil, eris.Errorf("netcdf: %s: not a classic NetCDF file", path)
	}
	r.pos = 4
	r.u32() // numrecs

	// Dimensions.
	dims := make(map[string]int)
	if tag := r.u32(); tag == ncDimension {
		n := int(r.u32())
		for i := 0; i < n; i++ {
			name := r.name()
			dims[name] = int(r.u32())
		}
	} else {
		r.u32() // count of absent list
	}

	// Global attributes.
	r.skipAttrs()

	// Variables.
	type ncVar struct {
		name  string
		dims  []int
		typ   uint32
		begin uint32
		attrs map[string][]byte
	}
	var vars []ncVar
	if tag := r.u32(); tag == ncVariable {
		n := int(r.u32())
		for i := 0; i < n; i++ {
			var v ncVar
			v.name = r.name()
			nd := int(r.u32())
			for j := 0; j < nd; j++ {
				v.dims = append(v.dims, int(r.u32()))
			}
			v.attrs = r.readAttrs()
			v.typ = r.u32()
			r.u32() // vsize
			v.begin = r.u32()
			vars = append(vars, v)
		}
	}
	if r.err != nil {
		return nil, eris.Wrapf(r.err, "netcdf: %s: parse header", path)
	}

	find := func(name string) *ncVar {
		for i := range vars {
			if vars[i].name == name {
				return &vars[i]
			}
		}
		return nil
	}

	dv := find(varName)
	tv := find("time")
	latv := find("lat")
	lonv := find("lon")
	if dv == nil || tv == nil || latv == nil || lonv == nil {
		return nil, eris.Errorf("netcdf: %s: variable %q or coordinates missing", path, varName)
	}

	nTime := dims["time"]
	nLat := dims["lat"]
	nLon := dims["lon"]
	if nTime == 0 || nLat == 0 || nLon == 0 {
		return nil, eris.Errorf("netcdf: %s: missing time/lat/lon dimensions", path)
	}

	times := r.doublesAt(tv.begin, nTime)
	lats := r.doublesAt(latv.begin, nLat)
	lons := r.doublesAt(lonv.begin, nLon)
	values := r.floatsAt(dv.begin, nTime*nLat*nLon)
	if r.err != nil {
		return nil, eris.Wrapf(r.err, "netcdf: %s: read data", path)
	}

	res := 0.1
	if nLon > 1 {
		res = lons[1] - lons[0]
	} else if nLat > 1 {
		res = lats[1] - lats[0]
	}
	region := grid.Region{
		MinLon: lons[0] - res/2,
		MaxLon: lons[nLon-1] + res/2,
		MinLat: lats[0] - res/2,
		MaxLat: lats[nLat-1] + res/2,
	}
	g := grid.Grid{Region: region, Resolution: res, Rows: nLat, Cols: nLon}

	stack := raster.NewStack(g, varName, units)
	if fv, ok := dv.attrs["_FillValue"]; ok && len(fv) >= 4 {
		stack.NoData = float64(math.Float32frombits(binary.BigEndian.Uint32(fv)))
	}

	for ti := 0; ti < nTime; ti++ {
		layer := raster.New(g, varName, units)
		layer.NoData = stack.NoData
		for row := 0; row < nLat; row++ {
			for col := 0; col < nLon; col++ {
				layer.Set(row, col, float64(values[ti*nLat*nLon+row*nLon+col]))
			}
		}
		when := time.Unix(int64(times[ti]*86400.0), 0).UTC()
		stack.Times = append(stack.Times, when)
		stack.Layers = append(stack.Layers, layer)
	}

	return stack, nil
}

// ncWriter accumulates a big-endian NetCDF byte stream.
type ncWriter struct {
	raw bytes.Buffer
}

func (w *ncWriter) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.raw.Write(b[:])
}

func (w *ncWriter) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *ncWriter) f64(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	w.raw.Write(b[:])
}

func (w *ncWriter) name(s string) {
	w.u32(uint32(len(s)))
	w.raw.WriteString(s)
	for i := len(s); i%4 != 0; i++ {
		w.raw.WriteByte(0)
	}
}

type ncAttr struct {
	name  string
	typ   uint32
	value []byte
}

func textAttr(name, value string) ncAttr {
	return ncAttr{name: name, typ: ncChar, value: []byte(value)}
}

func floatAttr(name string, value float32) ncAttr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(value))
	return ncAttr{name: name, typ: ncFloat, value: b[:]}
}

func (w *ncWriter) attrs(attrs []ncAttr) {
	if len(attrs) == 0 {
		w.u32(0)
		w.u32(0)
		return
	}
	w.u32(ncAttribute)
	w.u32(uint32(len(attrs)))
	for _, a := range attrs {
		w.name(a.name)
		w.u32(a.typ)
		w.u32(uint32(len(a.value) / ncTypeSize(a.typ)))
		w.raw.Write(a.value)
		for i := len(a.value); i%4 != 0; i++ {
			w.raw.WriteByte(0)
		}
	}
}

func ncTypeSize(typ uint32) int {
	switch typ {
	case ncChar:
		return 1
	case ncFloat:
		return 4
	case ncDouble:
		return 8
	default:
		return 1
	}
}

func pad4(n int) int {
	if n%4 == 0 {
		return n
	}
	return n + 4 - n%4
}

// ncReader walks a big-endian NetCDF byte stream.
type ncReader struct {
	data []byte
	pos  int
	err  error
}

func (r *ncReader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.pos+4 > len(r.data) {
		r.err = eris.New("truncated file")
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *ncReader) name() string {
	n := int(r.u32())
	if r.err != nil || r.pos+n > len(r.data) {
		if r.err == nil {
			r.err = eris.New("truncated name")
		}
		return ""
	}
	s := string(r.data[r.pos : r.pos+n])
	r.pos += pad4(n)
	return s
}

func (r *ncReader) readAttrs() map[string][]byte {
	attrs := make(map[string][]byte)
	tag := r.u32()
	n := int(r.u32())
	if tag != ncAttribute {
		return attrs
	}
	for i := 0; i < n; i++ {
		name := r.name()
		typ := r.u32()
		nelems := int(r.u32())
		size := nelems * ncTypeSize(typ)
		if r.pos+size > len(r.data) {
			r.err = eris.New("truncated attribute")
			return attrs
		}
		attrs[name] = r.data[r.pos : r.pos+size]
		r.pos += pad4(size)
	}
	return attrs
}

func (r *ncReader) skipAttrs() { r.readAttrs() }

func (r *ncReader) doublesAt(begin uint32, n int) []float64 {
	if int(begin)+n*8 > len(r.data) {
		r.err = eris.New("data beyond file end")
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.BigEndian.Uint64(r.data[int(begin)+i*8:]))
	}
	return out
}

func (r *ncReader) floatsAt(begin uint32, n int) []float32 {
	if int(begin)+n*4 > len(r.data) {
		r.err = eris.New("data beyond file end")
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(r.data[int(begin)+i*4:]))
	}
	return out
}
