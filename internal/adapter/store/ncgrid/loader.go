package ncgrid

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

// Default variable names for the vector sources.
var (
	currentNames = []string{"u", "v"}
	polarNames   = []string{"storm", "calm", "directions", "speeds"}
)

// Loader reads NetCDF climatology sources. Relative paths are resolved
// against the data directory.
type Loader struct {
	dataDir string
	logger  *slog.Logger
}

// NewLoader creates a NetCDF loader.
func NewLoader(dataDir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{dataDir: dataDir, logger: logger}
}

func (l *Loader) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.dataDir, p)
}

// readGrid opens path and reads the first of names as oriented slices.
func readGrid(path string, names []string) (*grid, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer nc.Close()

	lats, err := readAxis(nc, latNames)
	if err != nil {
		return nil, err
	}
	lons, err := readAxis(nc, lonNames)
	if err != nil {
		return nil, err
	}
	v, name, err := findVar(nc, names)
	if err != nil {
		return nil, err
	}
	a, err := readArray(v, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	slices, err := a.slices(len(lats), len(lons))
	if err != nil {
		return nil, err
	}
	return orient(lats, lons, slices)
}

// LoadField loads a scalar variable and resamples it onto the source's
// resolution. Sources with 12 slices get their annual mean derived.
func (l *Loader) LoadField(ctx context.Context, src store.Source) (*domain.GriddedField, error) {
	res, err := src.Resolution()
	if err != nil {
		return nil, err
	}
	names := src.Names
	if len(names) == 0 {
		names = []string{src.Variable.String()}
	}
	g, err := readGrid(l.path(src.Path), names)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Variable, err)
	}
	if n := len(g.slices); n != 1 && n != domain.MonthCount && n != domain.SliceCount {
		return nil, fmt.Errorf("%s: expected 1, 12 or 13 time steps, got %d", src.Variable, n)
	}

	scale := src.ScaleOrOne()
	out := make([][]float32, len(g.slices))
	for s := range g.slices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[s], err = g.resample(s, res)
		if err != nil {
			return nil, fmt.Errorf("%s: slice %d: %w", src.Variable, s, err)
		}
		if scale != 1 || src.Offset != 0 {
			for i, x := range out[s] {
				out[s][i] = float32(float64(x)*scale + src.Offset)
			}
		}
	}

	l.logger.Debug("loaded netcdf field",
		"variable", src.Variable.String(),
		"path", src.Path,
		"source_grid", fmt.Sprintf("%dx%d", len(g.lats), len(g.lons)),
		"slices", len(out),
		"resampled", !g.matches(res))
	return domain.NewGriddedField(res, out)
}

// LoadCurrents loads eastward and northward components as a vector field.
func (l *Loader) LoadCurrents(ctx context.Context, src store.Source) (*domain.VectorField, error) {
	res, err := src.Resolution()
	if err != nil {
		return nil, err
	}
	names := src.Names
	if len(names) < 2 {
		names = currentNames
	}
	u, err := readGrid(l.path(src.Path), names[:1])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Variable, err)
	}
	v, err := readGrid(l.path(src.Path), names[1:2])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Variable, err)
	}
	if len(u.slices) != len(v.slices) {
		return nil, fmt.Errorf("%s: component slice counts differ (%d, %d)", src.Variable, len(u.slices), len(v.slices))
	}

	out := make([][]domain.Vector, len(u.slices))
	for s := range u.slices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		us, err := u.resample(s, res)
		if err != nil {
			return nil, fmt.Errorf("%s: u slice %d: %w", src.Variable, s, err)
		}
		vs, err := v.resample(s, res)
		if err != nil {
			return nil, fmt.Errorf("%s: v slice %d: %w", src.Variable, s, err)
		}
		out[s] = make([]domain.Vector, res.Cells())
		for i := range out[s] {
			out[s][i] = domain.Vector{U: us[i], V: vs[i]}
		}
	}

	multiplier := src.Multiplier
	if multiplier == 0 {
		multiplier = 1
	}
	return domain.NewVectorField(res, multiplier, out)
}

// LoadWindAtlas loads polar wind distributions. The atlas variables are
// bytes laid out as storm/calm (time, lat, lon) and directions/speeds
// (time, dir, lat, lon) on a grid that must match the source resolution.
func (l *Loader) LoadWindAtlas(ctx context.Context, src store.Source) (*domain.WindAtlas, error) {
	res, err := src.Resolution()
	if err != nil {
		return nil, err
	}
	names := src.Names
	if len(names) < len(polarNames) {
		names = polarNames
	}

	nc, err := netcdf.OpenFile(l.path(src.Path), netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src.Path, err)
	}
	defer nc.Close()

	lats, err := readAxis(nc, latNames)
	if err != nil {
		return nil, err
	}
	lons, err := readAxis(nc, lonNames)
	if err != nil {
		return nil, err
	}

	arrays := make([]*array, len(polarNames))
	for k := range polarNames {
		v, err := nc.Var(names[k])
		if err != nil {
			return nil, fmt.Errorf("%s: variable %s not found: %w", src.Variable, names[k], err)
		}
		if arrays[k], err = readArray(v, names[k]); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", src.Variable, names[k], err)
		}
	}
	storm, calm, dirs, speeds := arrays[0], arrays[1], arrays[2], arrays[3]
	if len(storm.shape) != 3 || len(dirs.shape) != 4 {
		return nil, fmt.Errorf("%s: expected storm (time, lat, lon) and directions (time, dir, lat, lon)", src.Variable)
	}
	nTime, nDir := storm.shape[0], dirs.shape[1]
	nLat, nLon := len(lats), len(lons)
	if dirs.shape[0] != nTime || dirs.shape[2] != nLat || dirs.shape[3] != nLon ||
		storm.shape[1] != nLat || storm.shape[2] != nLon {
		return nil, fmt.Errorf("%s: inconsistent atlas shapes storm %v directions %v", src.Variable, storm.shape, dirs.shape)
	}
	if !sameShape(storm.shape, calm.shape) || !sameShape(dirs.shape, speeds.shape) {
		return nil, fmt.Errorf("%s: calm/speeds shapes do not match storm/directions", src.Variable)
	}
	if nDir < 1 || nDir > domain.MaxDirections {
		return nil, fmt.Errorf("%s: %d direction bins (max %d)", src.Variable, nDir, domain.MaxDirections)
	}

	// Orient every per-direction plane through the same index mapping.
	planes := make([][]float64, 0, nTime*(2+2*nDir))
	per := nLat * nLon
	for t := 0; t < nTime; t++ {
		planes = append(planes, storm.data[t*per:(t+1)*per], calm.data[t*per:(t+1)*per])
		for d := 0; d < nDir; d++ {
			off := (t*nDir + d) * per
			planes = append(planes, dirs.data[off:off+per])
		}
		for d := 0; d < nDir; d++ {
			off := (t*nDir + d) * per
			planes = append(planes, speeds.data[off:off+per])
		}
	}
	g, err := orient(lats, lons, planes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Variable, err)
	}
	if !g.matches(res) {
		return nil, fmt.Errorf("%s: atlas grid %dx%d does not match the %.2f° lattice", src.Variable, nLat, nLon, res.LatStep)
	}

	col := make([]int, res.LonCount)
	for j := range col {
		col[j] = nearest(g.lons, res.Lon(j))
	}

	stride := 2 + 2*nDir
	out := make([][]domain.Polar, nTime)
	dirBuf := make([]byte, nDir)
	speedBuf := make([]byte, nDir)
	for t := 0; t < nTime; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		base := t * stride
		out[t] = make([]domain.Polar, res.Cells())
		for i := 0; i < res.LatCount; i++ {
			for j := 0; j < res.LonCount; j++ {
				k := i*nLon + col[j]
				for d := 0; d < nDir; d++ {
					dirBuf[d] = toByte(g.slices[base+2+d][k])
					speedBuf[d] = toByte(g.slices[base+2+nDir+d][k])
				}
				p, err := domain.DecodePolar(toByte(g.slices[base][k]), toByte(g.slices[base+1][k]), dirBuf, speedBuf)
				if err != nil {
					return nil, fmt.Errorf("%s: cell (%d, %d): %w", src.Variable, i, j, err)
				}
				out[t][res.Index(i, j)] = p
			}
		}
	}
	return domain.NewWindAtlas(res, nDir, out)
}

// toByte converts an atlas sample to its byte code; fill values map to
// the no-data marker.
func toByte(x float64) byte {
	if math.IsNaN(x) || x < 0 || x > 255 {
		return domain.NoPolarData
	}
	return byte(math.Round(x))
}

func nearest(axis []float64, x float64) int {
	best, bestD := 0, math.Inf(1)
	for i, a := range axis {
		if d := math.Abs(a - x); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var (
	_ store.FieldLoader   = (*Loader)(nil)
	_ store.CurrentLoader = (*Loader)(nil)
	_ store.WindLoader    = (*Loader)(nil)
)
