// Package ncgrid loads climatology grids from NetCDF files and resamples
// them onto the engine's lattices.
package ncgrid

import (
	"fmt"
	"math"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/climatology-api/internal/domain"
)

// fillShort is the NetCDF default fill for 16-bit variables.
const fillShort int16 = -32767

var (
	latNames = []string{"lat", "latitude", "y", "LAT", "Latitude"}
	lonNames = []string{"lon", "longitude", "x", "LON", "Longitude"}
)

// array is a NetCDF variable in memory. Fill values are NaN and packing
// attributes have been applied.
type array struct {
	name  string
	dims  []string
	shape []int
	data  []float64
}

// findVar returns the first variable of names present in the file.
func findVar(nc netcdf.Dataset, names []string) (netcdf.Var, string, error) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if v, err := nc.Var(name); err == nil {
			return v, name, nil
		}
	}
	return netcdf.Var{}, "", fmt.Errorf("variable not found (tried: %v)", names)
}

// readAxis reads a 1D coordinate variable.
func readAxis(nc netcdf.Dataset, names []string) ([]float64, error) {
	v, name, err := findVar(nc, names)
	if err != nil {
		return nil, err
	}
	a, err := readArray(v, name)
	if err != nil {
		return nil, fmt.Errorf("axis %s: %w", name, err)
	}
	if len(a.shape) != 1 {
		return nil, fmt.Errorf("axis %s: expected 1D variable, got %dD", name, len(a.shape))
	}
	for i, x := range a.data {
		if math.IsNaN(x) {
			return nil, fmt.Errorf("axis %s: missing coordinate at %d", name, i)
		}
	}
	return a.data, nil
}

// readArray reads a whole variable.
func readArray(v netcdf.Var, name string) (*array, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	a := &array{name: name}
	total := 1
	for _, d := range dims {
		n, err := d.Len()
		if err != nil {
			return nil, fmt.Errorf("failed to get dimension length: %w", err)
		}
		dn, _ := d.Name()
		a.dims = append(a.dims, dn)
		a.shape = append(a.shape, int(n))
		total *= int(n)
	}

	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}
	if t == netcdf.SHORT {
		a.data, err = readPacked(v, total)
		if err != nil {
			return nil, err
		}
		return a, nil
	}

	a.data, err = readValues(v, t, total)
	if err != nil {
		return nil, err
	}

	// Fill values are compared before unpacking.
	if fv, ok := fillValue(v); ok {
		for i, x := range a.data {
			if x == fv {
				a.data[i] = math.NaN()
			}
		}
	}
	scale, hasScale := attrFloat(v, "scale_factor")
	offset, hasOffset := attrFloat(v, "add_offset")
	if (hasScale && scale != 1 && scale != 0) || (hasOffset && offset != 0) {
		if !hasScale || scale == 0 {
			scale = 1
		}
		for i := range a.data {
			a.data[i] = a.data[i]*scale + offset
		}
	}
	return a, nil
}

// readPacked reads a 16-bit variable through the fixed-point decoder. The
// sentinel is the variable's fill value, or the NetCDF default.
func readPacked(v netcdf.Var, total int) ([]float64, error) {
	raw := make([]int16, total)
	if err := v.ReadInt16s(raw); err != nil {
		return nil, fmt.Errorf("failed to read int16: %w", err)
	}
	scale, ok := attrFloat(v, "scale_factor")
	if !ok || scale == 0 {
		scale = 1
	}
	offset, _ := attrFloat(v, "add_offset")
	sentinel := fillShort
	if fv, ok := fillValue(v); ok && fv >= math.MinInt16 && fv <= math.MaxInt16 && fv == math.Trunc(fv) {
		sentinel = int16(fv)
	}

	decoded := domain.DecodeFixedPoint(raw, scale, offset, sentinel)
	out := make([]float64, total)
	for i, x := range decoded {
		out[i] = float64(x)
	}
	return out, nil
}

// readValues reads a variable of any other numeric type as float64.
func readValues(v netcdf.Var, t netcdf.Type, total int) ([]float64, error) {
	out := make([]float64, total)
	switch t {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64s(out); err != nil {
			return nil, fmt.Errorf("failed to read float64: %w", err)
		}
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, fmt.Errorf("failed to read float32: %w", err)
		}
		for i, x := range tmp {
			out[i] = float64(x)
		}
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, fmt.Errorf("failed to read int32: %w", err)
		}
		for i, x := range tmp {
			out[i] = float64(x)
		}
	case netcdf.BYTE:
		tmp := make([]int8, total)
		if err := v.ReadInt8s(tmp); err != nil {
			return nil, fmt.Errorf("failed to read int8: %w", err)
		}
		for i, x := range tmp {
			out[i] = float64(x)
		}
	case netcdf.UBYTE:
		tmp := make([]uint8, total)
		if err := v.ReadUint8s(tmp); err != nil {
			return nil, fmt.Errorf("failed to read uint8: %w", err)
		}
		for i, x := range tmp {
			out[i] = float64(x)
		}
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
	return out, nil
}

// fillValue returns the _FillValue or missing_value attribute if present.
func fillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		if fv, ok := attrFloat(v, name); ok {
			return fv, true
		}
	}
	return 0, false
}

// attrFloat reads the first element of a numeric attribute.
func attrFloat(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	if n, err := a.Len(); err != nil || n == 0 {
		return 0, false
	}
	buf64 := make([]float64, 1)
	if err := a.ReadFloat64s(buf64); err == nil {
		return buf64[0], true
	}
	buf32 := make([]float32, 1)
	if err := a.ReadFloat32s(buf32); err == nil {
		return float64(buf32[0]), true
	}
	bufi := make([]int32, 1)
	if err := a.ReadInt32s(bufi); err == nil {
		return float64(bufi[0]), true
	}
	bufs := make([]int16, 1)
	if err := a.ReadInt16s(bufs); err == nil {
		return float64(bufs[0]), true
	}
	bufb := make([]uint8, 1)
	if err := a.ReadUint8s(bufb); err == nil {
		return float64(bufb[0]), true
	}
	return 0, false
}

// slices splits a (time, lat, lon), (lat, lon) or transposed variable into
// row-major lat x lon slices. Leading singleton dimensions are dropped.
func (a *array) slices(nLat, nLon int) ([][]float64, error) {
	shape := a.shape
	for len(shape) > 3 && shape[0] == 1 {
		shape = shape[1:]
	}
	for len(shape) > 3 && shape[1] == 1 {
		shape = append([]int{shape[0]}, shape[2:]...)
	}

	var count, d0, d1 int
	switch len(shape) {
	case 2:
		count, d0, d1 = 1, shape[0], shape[1]
	case 3:
		count, d0, d1 = shape[0], shape[1], shape[2]
	default:
		return nil, fmt.Errorf("%s: expected 2D or 3D data, got shape %v", a.name, a.shape)
	}

	transposed := false
	switch {
	case d0 == nLat && d1 == nLon:
	case d0 == nLon && d1 == nLat:
		transposed = true
	default:
		return nil, fmt.Errorf("%s: dimension mismatch: data is %v, expected [%d, %d] or [%d, %d]",
			a.name, a.shape, nLat, nLon, nLon, nLat)
	}

	per := nLat * nLon
	out := make([][]float64, count)
	for s := 0; s < count; s++ {
		src := a.data[s*per : (s+1)*per]
		if !transposed {
			out[s] = src
			continue
		}
		dst := make([]float64, per)
		for i := 0; i < nLon; i++ {
			for j := 0; j < nLat; j++ {
				dst[j*nLon+i] = src[i*nLat+j]
			}
		}
		out[s] = dst
	}
	return out, nil
}
