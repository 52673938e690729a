package domain

import (
	"fmt"
	"math"

	"go.ngs.io/climatology-api/internal/adapter/interp"
)

// Resolution describes a regular global lattice. Row 0 is the southernmost
// row and column 0 sits at LonOrigin; columns advance eastwards and wrap.
type Resolution struct {
	LatStep   float64 `toml:"lat_step" msgpack:"lat_step"`
	LonStep   float64 `toml:"lon_step" msgpack:"lon_step"`
	LatOrigin float64 `toml:"lat_origin" msgpack:"lat_origin"`
	LonOrigin float64 `toml:"lon_origin" msgpack:"lon_origin"`
	LatCount  int     `toml:"lat_count" msgpack:"lat_count"`
	LonCount  int     `toml:"lon_count" msgpack:"lon_count"`
}

// NewResolution returns the cell-centred global lattice for the given steps.
func NewResolution(latStep, lonStep float64) (Resolution, error) {
	if latStep <= 0 || lonStep <= 0 {
		return Resolution{}, fmt.Errorf("%w: steps must be positive (lat %.4f, lon %.4f)", ErrInvalidResolution, latStep, lonStep)
	}
	r := Resolution{
		LatStep:   latStep,
		LonStep:   lonStep,
		LatOrigin: -90 + latStep/2,
		LonOrigin: lonStep / 2,
		LatCount:  int(math.Round(180 / latStep)),
		LonCount:  int(math.Round(360 / lonStep)),
	}
	if err := r.Validate(); err != nil {
		return Resolution{}, err
	}
	return r, nil
}

// MustResolution is NewResolution for compile-time constant steps.
func MustResolution(latStep, lonStep float64) Resolution {
	r, err := NewResolution(latStep, lonStep)
	if err != nil {
		panic(err)
	}
	return r
}

// Validate checks that the lattice covers 360 degrees of longitude exactly
// and that every row lies within ±90.
func (r Resolution) Validate() error {
	if r.LatStep <= 0 || r.LonStep <= 0 {
		return fmt.Errorf("%w: steps must be positive", ErrInvalidResolution)
	}
	if r.LatCount < 1 || r.LonCount < 1 {
		return fmt.Errorf("%w: empty lattice %dx%d", ErrInvalidResolution, r.LatCount, r.LonCount)
	}
	if math.Abs(float64(r.LonCount)*r.LonStep-360) > 1e-6 {
		return fmt.Errorf("%w: %d columns of %.4f° do not cover 360°", ErrInvalidResolution, r.LonCount, r.LonStep)
	}
	top := r.LatOrigin + float64(r.LatCount-1)*r.LatStep
	if r.LatOrigin < -90-1e-9 || top > 90+1e-9 {
		return fmt.Errorf("%w: rows span [%.4f, %.4f]", ErrInvalidResolution, r.LatOrigin, top)
	}
	return nil
}

// Cells returns the number of samples in one slice.
func (r Resolution) Cells() int {
	return r.LatCount * r.LonCount
}

// Lat returns the latitude of row i.
func (r Resolution) Lat(i int) float64 {
	return r.LatOrigin + float64(i)*r.LatStep
}

// Lon returns the longitude of column j, in [0, 360).
func (r Resolution) Lon(j int) float64 {
	return NormalizeLon(r.LonOrigin + float64(j)*r.LonStep)
}

// Index returns the flat offset of (row, col) inside a slice.
func (r Resolution) Index(row, col int) int {
	return row*r.LonCount + col
}

// RowOf returns the row whose cell contains lat, or -1 outside the lattice.
func (r Resolution) RowOf(lat float64) int {
	i := int(math.Floor((lat - r.LatOrigin + r.LatStep/2) / r.LatStep))
	if i == r.LatCount && lat <= r.LatOrigin+(float64(r.LatCount)-0.5)*r.LatStep+1e-9 {
		i--
	}
	if i < 0 || i >= r.LatCount {
		return -1
	}
	return i
}

// ColumnOf returns the column whose cell contains lon.
func (r Resolution) ColumnOf(lon float64) int {
	j := int(math.Floor(NormalizeLon(lon-r.LonOrigin+r.LonStep/2) / r.LonStep))
	return j % r.LonCount
}

// NormalizeLon wraps a longitude into [0, 360).
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	if lon >= 360 {
		lon = 0
	}
	return lon
}

// neighbours holds the four flat offsets surrounding a point, ordered
// (row0,col0), (row0,col1), (row1,col0), (row1,col1), and their weights.
type neighbours struct {
	idx [4]int
	w   [4]float64
}

// locate finds the bilinear neighbours of (lat, lon). Latitudes beyond ±90
// are rejected; latitudes between the pole and the outermost row use that row.
func (r Resolution) locate(lat, lon float64) (neighbours, bool) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lon, 0) || lat < -90 || lat > 90 {
		return neighbours{}, false
	}

	row0, row1, u := 0, 0, 0.0
	if r.LatCount > 1 {
		y := (lat - r.LatOrigin) / r.LatStep
		switch last := float64(r.LatCount - 1); {
		case y <= 0:
		case y >= last:
			row0, row1 = r.LatCount-1, r.LatCount-1
		default:
			row0 = int(math.Floor(y))
			row1 = row0 + 1
			u = y - float64(row0)
		}
	}

	x := (NormalizeLon(lon) - r.LonOrigin) / r.LonStep
	cols := float64(r.LonCount)
	x = math.Mod(x, cols)
	if x < 0 {
		x += cols
	}
	col0 := int(math.Floor(x))
	t := x - float64(col0)
	if col0 >= r.LonCount {
		col0 -= r.LonCount
	}
	col1 := (col0 + 1) % r.LonCount

	return neighbours{
		idx: [4]int{
			r.Index(row0, col0),
			r.Index(row0, col1),
			r.Index(row1, col0),
			r.Index(row1, col1),
		},
		w: interp.Weights(t, u),
	}, true
}

// Lattice stores per-slice samples of any cell type on one Resolution.
// It is the shared container behind scalar, vector and wind atlas grids.
type Lattice[T any] struct {
	Res    Resolution
	Slices [][]T
}

// NewLattice validates the slice shapes. A lattice holds either a single
// slice, used for every month, or SliceCount slices.
func NewLattice[T any](res Resolution, slices [][]T) (*Lattice[T], error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	if len(slices) != 1 && len(slices) != SliceCount {
		return nil, fmt.Errorf("lattice must have 1 or %d slices, got %d", SliceCount, len(slices))
	}
	for i, s := range slices {
		if len(s) != res.Cells() {
			return nil, fmt.Errorf("slice %d has %d cells, expected %d (%dx%d)", i, len(s), res.Cells(), res.LatCount, res.LonCount)
		}
	}
	return &Lattice[T]{Res: res, Slices: slices}, nil
}

// slice returns the backing cells for a slice index.
func (l *Lattice[T]) slice(i int) []T {
	if len(l.Slices) == 1 {
		return l.Slices[0]
	}
	if i < 0 || i >= len(l.Slices) {
		return nil
	}
	return l.Slices[i]
}

// Cell returns a pointer to one stored sample, or nil when out of range.
func (l *Lattice[T]) Cell(slice, row, col int) *T {
	s := l.slice(slice)
	if s == nil || row < 0 || row >= l.Res.LatCount || col < 0 || col >= l.Res.LonCount {
		return nil
	}
	return &s[l.Res.Index(row, col)]
}

// corners returns pointers to the four neighbouring samples and their weights.
func (l *Lattice[T]) corners(slice int, lat, lon float64) ([4]*T, [4]float64, bool) {
	var c [4]*T
	s := l.slice(slice)
	if s == nil {
		return c, [4]float64{}, false
	}
	n, ok := l.Res.locate(lat, lon)
	if !ok {
		return c, [4]float64{}, false
	}
	for k, i := range n.idx {
		c[k] = &s[i]
	}
	return c, n.w, true
}

// withAnnual appends an annual slice built cell by cell from 12 monthly
// slices.
func withAnnual[T any](months [][]T, mean func(samples []*T) T) [][]T {
	if len(months) != MonthCount || len(months[0]) == 0 {
		return months
	}
	n := len(months[0])
	for _, m := range months {
		if len(m) != n {
			return months
		}
	}
	annual := make([]T, n)
	samples := make([]*T, MonthCount)
	for i := 0; i < n; i++ {
		for m := range months {
			samples[m] = &months[m][i]
		}
		annual[i] = mean(samples)
	}
	return append(months[:MonthCount:MonthCount], annual)
}

// sampleTime blends two monthly results by the interpolation weight; the
// result is missing when either month is.
func sampleTime[T any](in Interpolation, sample func(slice int) (T, bool), mix func(a, b T, w float64) T) (T, bool) {
	a, ok := sample(in.Month)
	if !ok {
		return a, false
	}
	if in.NextMonth == in.Month {
		return a, true
	}
	b, ok := sample(in.NextMonth)
	if !ok {
		return b, false
	}
	return mix(a, b, in.Weight()), true
}
