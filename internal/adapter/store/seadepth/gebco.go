// Package seadepth builds the sea-depth field from a GEBCO-style elevation
// grid by block-averaging it onto a coarse lattice.
package seadepth

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/climatology-api/internal/adapter/store"
	"go.ngs.io/climatology-api/internal/domain"
)

// bandRows is the number of source rows read per hyperslab.
const bandRows = 240

var (
	latNames  = []string{"lat", "latitude", "y"}
	lonNames  = []string{"lon", "longitude", "x"}
	elevNames = []string{"elevation", "z", "data"}
)

// Loader reads elevation grids. GEBCO stores depth below sea level as
// negative elevation; cells without any sea sample are land and read as
// missing.
type Loader struct {
	dataDir string
	logger  *slog.Logger
}

// NewLoader creates a sea-depth loader.
func NewLoader(dataDir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{dataDir: dataDir, logger: logger}
}

// LoadField averages the sea samples of every lattice cell into a single
// slice of positive depths in metres.
func (l *Loader) LoadField(ctx context.Context, src store.Source) (*domain.GriddedField, error) {
	res, err := src.Resolution()
	if err != nil {
		return nil, err
	}
	path := src.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.dataDir, path)
	}

	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	lats, err := readAxis(nc, latNames)
	if err != nil {
		return nil, err
	}
	lons, err := readAxis(nc, lonNames)
	if err != nil {
		return nil, err
	}
	names := src.Names
	if len(names) == 0 {
		names = elevNames
	}
	v, err := findVar(nc, names)
	if err != nil {
		return nil, err
	}
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 2 {
		return nil, fmt.Errorf("expected 2D elevation, got %dD", len(dims))
	}
	d0, _ := dims[0].Len()
	d1, _ := dims[1].Len()
	if int(d0) != len(lats) || int(d1) != len(lons) {
		return nil, fmt.Errorf("dimension mismatch: elevation is [%d, %d], expected [lat %d, lon %d]", d0, d1, len(lats), len(lons))
	}

	// Precompute the target column of every source column.
	cols := make([]int, len(lons))
	for j, lon := range lons {
		cols[j] = res.ColumnOf(lon)
	}

	sum := make([]float64, res.Cells())
	sea := make([]int, res.Cells())
	scale := src.ScaleOrOne()
	nLon := len(lons)
	for r0 := 0; r0 < len(lats); r0 += bandRows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := min(bandRows, len(lats)-r0)
		band, err := readBand(v, r0, n, nLon)
		if err != nil {
			return nil, fmt.Errorf("rows %d-%d: %w", r0, r0+n, err)
		}
		for i := 0; i < n; i++ {
			row := res.RowOf(lats[r0+i])
			if row < 0 {
				continue
			}
			for j := 0; j < nLon; j++ {
				elev := band[i*nLon+j]
				if math.IsNaN(elev) || elev >= 0 {
					continue
				}
				k := res.Index(row, cols[j])
				sum[k] += -elev * scale
				sea[k]++
			}
		}
	}

	out := make([]float32, res.Cells())
	wet := 0
	for k := range out {
		if sea[k] == 0 {
			out[k] = float32(math.NaN())
			continue
		}
		out[k] = float32(sum[k] / float64(sea[k]))
		wet++
	}
	l.logger.Info("built sea depth field",
		"path", src.Path,
		"source_grid", fmt.Sprintf("%dx%d", len(lats), nLon),
		"sea_cells", wet,
		"cells", len(out))
	return domain.NewGriddedField(res, [][]float32{out})
}

func findVar(nc netcdf.Dataset, names []string) (netcdf.Var, error) {
	for _, name := range names {
		if v, err := nc.Var(name); err == nil {
			return v, nil
		}
	}
	return netcdf.Var{}, fmt.Errorf("variable not found (tried: %v)", names)
}

// readAxis reads a 1D coordinate variable.
func readAxis(nc netcdf.Dataset, names []string) ([]float64, error) {
	v, err := findVar(nc, names)
	if err != nil {
		return nil, err
	}
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(dims))
	}
	length, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	data := make([]float64, length)
	if err := v.ReadFloat64s(data); err != nil {
		return nil, err
	}
	return data, nil
}

// readBand reads rows [row, row+n) of a 2D variable. Fill values become NaN.
func readBand(v netcdf.Var, row, n, nCols int) ([]float64, error) {
	varType, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get variable type: %w", err)
	}
	start := []uint64{uint64(row), 0}
	count := []uint64{uint64(n), uint64(nCols)}
	total := n * nCols
	out := make([]float64, total)

	switch varType {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64Slice(out, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float64 subset: %w", err)
		}
	case netcdf.FLOAT:
		buf := make([]float32, total)
		if err := v.ReadFloat32Slice(buf, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float32 subset: %w", err)
		}
		for i, x := range buf {
			out[i] = float64(x)
		}
	case netcdf.SHORT:
		buf := make([]int16, total)
		if err := v.ReadInt16Slice(buf, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int16 subset: %w", err)
		}
		for i, x := range buf {
			out[i] = float64(x)
		}
	case netcdf.INT:
		buf := make([]int32, total)
		if err := v.ReadInt32Slice(buf, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int32 subset: %w", err)
		}
		for i, x := range buf {
			out[i] = float64(x)
		}
	default:
		return nil, fmt.Errorf("unsupported data type: %v (expected DOUBLE, FLOAT, INT, or SHORT)", varType)
	}

	if fv, ok := fillValue(v); ok {
		for i, x := range out {
			if x == fv {
				out[i] = math.NaN()
			}
		}
	}
	return out, nil
}

func fillValue(v netcdf.Var) (float64, bool) {
	a := v.Attr("_FillValue")
	if n, err := a.Len(); err != nil || n == 0 {
		return 0, false
	}
	f64 := make([]float64, 1)
	if err := a.ReadFloat64s(f64); err == nil {
		return f64[0], true
	}
	f32 := make([]float32, 1)
	if err := a.ReadFloat32s(f32); err == nil {
		return float64(f32[0]), true
	}
	i16 := make([]int16, 1)
	if err := a.ReadInt16s(i16); err == nil {
		return float64(i16[0]), true
	}
	i32 := make([]int32, 1)
	if err := a.ReadInt32s(i32); err == nil {
		return float64(i32[0]), true
	}
	return 0, false
}

var _ store.FieldLoader = (*Loader)(nil)
