// Package isobar extracts isolines from a scalar point function over a
// geographic extent using marching squares.
package isobar

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrTooManyLevels is returned when the spacing is too fine for the value
// range inside one lattice cell.
var ErrTooManyLevels = errors.New("too many contour levels")

// SampleFunc returns the value at a point, or ok == false where data is
// missing.
type SampleFunc func(lat, lon float64) (float64, bool)

// Extent is a geographic box. MinLon > MaxLon describes a box crossing the
// antimeridian.
type Extent struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Viewport is the visible extent and its size in pixels.
type Viewport struct {
	Extent
	WidthPx  int
	HeightPx int
}

// Settings select the contour levels: levels are multiples of Spacing,
// rounded to multiples of Step when Step > 0.
type Settings struct {
	Spacing float64
	Step    float64
}

// Options tune the sampling lattice and stitching.
type Options struct {
	PixelsPerCell  float64
	MinCellDegrees float64
	MaxCellDegrees float64
	Tolerance      float64 // degrees; endpoints closer than this are joined
	MaxLevels      int     // per lattice cell
}

// DefaultOptions returns the options used by Extract.
func DefaultOptions() Options {
	return Options{
		PixelsPerCell:  8,
		MinCellDegrees: 0.1,
		MaxCellDegrees: 5,
		Tolerance:      1e-6,
		MaxLevels:      512,
	}
}

// Point is a polyline vertex. Longitudes stay in the unwrapped frame of the
// extent, so they can exceed 360 east of the antimeridian.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Isobar is one polyline at a level.
type Isobar struct {
	Level  float64 `json:"level"`
	Points []Point `json:"points"`
}

// Extractor holds lattice options. It keeps no state between calls and is
// safe for concurrent use.
type Extractor struct {
	opts Options
}

// New returns an extractor; zero fields of opts take their defaults.
func New(opts Options) *Extractor {
	d := DefaultOptions()
	if opts.PixelsPerCell <= 0 {
		opts.PixelsPerCell = d.PixelsPerCell
	}
	if opts.MinCellDegrees <= 0 {
		opts.MinCellDegrees = d.MinCellDegrees
	}
	if opts.MaxCellDegrees <= 0 {
		opts.MaxCellDegrees = d.MaxCellDegrees
	}
	if opts.MaxCellDegrees < opts.MinCellDegrees {
		opts.MaxCellDegrees = opts.MinCellDegrees
	}
	if opts.Tolerance < 0 {
		opts.Tolerance = 0
	}
	if opts.MaxLevels <= 0 {
		opts.MaxLevels = d.MaxLevels
	}
	return &Extractor{opts: opts}
}

// Extract runs New(DefaultOptions()).Extract.
func Extract(f SampleFunc, vp Viewport, s Settings) ([]Isobar, error) {
	return New(DefaultOptions()).Extract(f, vp, s)
}

// Validate checks the level settings.
func (s Settings) Validate() error {
	if !(s.Spacing > 0) || math.IsInf(s.Spacing, 0) {
		return fmt.Errorf("spacing must be positive, got %v", s.Spacing)
	}
	if s.Step < 0 || math.IsNaN(s.Step) || math.IsInf(s.Step, 0) {
		return fmt.Errorf("step must be zero or positive, got %v", s.Step)
	}
	return nil
}

// Level returns the k-th level.
func (s Settings) Level(k int) float64 {
	l := float64(k) * s.Spacing
	if s.Step > 0 {
		l = math.Round(l/s.Step) * s.Step
	}
	return l
}

// Unwrapped returns the extent with MaxLon moved east of MinLon.
func (e Extent) Unwrapped() Extent {
	if e.MinLon > e.MaxLon {
		e.MaxLon += 360
	}
	return e
}

// Validate checks the extent.
func (e Extent) Validate() error {
	if e.MinLat < -90 || e.MaxLat > 90 || e.MinLat >= e.MaxLat {
		return fmt.Errorf("invalid latitude range [%.4f, %.4f]", e.MinLat, e.MaxLat)
	}
	u := e.Unwrapped()
	if u.MaxLon-u.MinLon <= 0 || u.MaxLon-u.MinLon > 360 {
		return fmt.Errorf("invalid longitude range [%.4f, %.4f]", e.MinLon, e.MaxLon)
	}
	return nil
}

// CellDegrees returns the lattice step used for a viewport.
func (x *Extractor) CellDegrees(vp Viewport) float64 {
	e := vp.Unwrapped()
	step := x.opts.MaxCellDegrees
	if vp.WidthPx > 0 && vp.HeightPx > 0 {
		nx := math.Max(1, float64(vp.WidthPx)/x.opts.PixelsPerCell)
		ny := math.Max(1, float64(vp.HeightPx)/x.opts.PixelsPerCell)
		step = math.Max((e.MaxLon-e.MinLon)/nx, (e.MaxLat-e.MinLat)/ny)
	}
	return math.Min(x.opts.MaxCellDegrees, math.Max(x.opts.MinCellDegrees, step))
}

// Extract samples f over the viewport and returns the isolines sorted by
// level.
func (x *Extractor) Extract(f SampleFunc, vp Viewport, s Settings) ([]Isobar, error) {
	return x.ExtractContext(context.Background(), f, vp, s)
}

// ExtractContext is Extract checking ctx between lattice rows. A cancelled
// sweep returns ctx.Err() and no partial result.
func (x *Extractor) ExtractContext(ctx context.Context, f SampleFunc, vp Viewport, s Settings) ([]Isobar, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := vp.Validate(); err != nil {
		return nil, err
	}

	e := vp.Unwrapped()
	step := x.CellDegrees(vp)
	lats := axis(e.MinLat, e.MaxLat, step)
	lons := axis(e.MinLon, e.MaxLon, step)

	segs := make(map[float64][]segment)
	below := sampleRow(f, lats[0], lons)
	for i := 1; i < len(lats); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		above := sampleRow(f, lats[i], lons)
		for j := 1; j < len(lons); j++ {
			c := cell{
				lat0: lats[i-1], lat1: lats[i],
				lon0: lons[j-1], lon1: lons[j],
				bl: below[j-1], br: below[j],
				tl: above[j-1], tr: above[j],
			}
			if err := x.contourCell(c, s, segs); err != nil {
				return nil, err
			}
		}
		below = above
	}

	levels := make([]float64, 0, len(segs))
	for l := range segs {
		levels = append(levels, l)
	}
	sort.Float64s(levels)

	var out []Isobar
	for _, l := range levels {
		for _, line := range stitch(segs[l], x.opts.Tolerance) {
			out = append(out, Isobar{Level: l, Points: line})
		}
	}
	return out, nil
}

// axis returns lo, lo+step, ... ending exactly at hi.
func axis(lo, hi, step float64) []float64 {
	n := int(math.Ceil((hi-lo)/step - 1e-9))
	if n < 1 {
		n = 1
	}
	out := make([]float64, n+1)
	for i := 0; i < n; i++ {
		out[i] = lo + float64(i)*step
	}
	out[n] = hi
	return out
}

func sampleRow(f SampleFunc, lat float64, lons []float64) []float64 {
	row := make([]float64, len(lons))
	for j, lon := range lons {
		v, ok := f(lat, lon)
		if !ok || math.IsInf(v, 0) {
			v = math.NaN()
		}
		row[j] = v
	}
	return row
}
