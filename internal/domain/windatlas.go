package domain

import (
	"fmt"
	"math"
	"time"
)

// MaxDirections bounds the direction bins of a wind distribution.
const MaxDirections = 16

// NoPolarData is the storm byte that marks a cell without a distribution.
const NoPolarData = 255

// Polar is the wind distribution of one cell. Directions holds the share of
// observations blowing from each bin (bin i centred on i*360/Count degrees)
// and Speeds the mean speed in knots for that bin. A NaN Storm marks a cell
// with no data.
type Polar struct {
	Storm      float32
	Calm       float32
	Count      uint8
	Directions [MaxDirections]float32
	Speeds     [MaxDirections]float32
}

// MissingPolar returns the no-data distribution.
func MissingPolar() Polar {
	return Polar{Storm: float32(math.NaN())}
}

// Valid reports whether p carries data.
func (p *Polar) Valid() bool {
	return !math.IsNaN(float64(p.Storm))
}

// DecodePolar converts the byte encoding of a distribution: storm, calm and
// direction shares are percentages, speeds are knots. A storm byte of
// NoPolarData yields the missing distribution.
func DecodePolar(storm, calm byte, dirs, speeds []byte) (Polar, error) {
	if len(dirs) != len(speeds) {
		return Polar{}, fmt.Errorf("direction and speed counts differ: %d != %d", len(dirs), len(speeds))
	}
	if len(dirs) == 0 || len(dirs) > MaxDirections {
		return Polar{}, fmt.Errorf("direction count %d outside 1..%d", len(dirs), MaxDirections)
	}
	if storm == NoPolarData {
		p := MissingPolar()
		p.Count = uint8(len(dirs))
		return p, nil
	}
	p := Polar{
		Storm: float32(storm) / 100,
		Calm:  float32(calm) / 100,
		Count: uint8(len(dirs)),
	}
	for i := range dirs {
		p.Directions[i] = float32(dirs[i]) / 100
		p.Speeds[i] = float32(speeds[i])
	}
	return p, nil
}

// Value reads one coordinate out of the distribution. U and V are the
// components of the share-weighted resultant of the bins' bearings scaled by
// speed, Magnitude the share-weighted mean speed and Direction the bearing of
// the resultant in degrees [0, 360).
func (p *Polar) Value(c Coord) (float64, bool) {
	if !p.Valid() {
		return 0, false
	}
	switch c {
	case CoordStorm:
		return float64(p.Storm), true
	case CoordCalm:
		return float64(p.Calm), true
	}

	n := int(p.Count)
	var u, v, speed, total float64
	for i := 0; i < n; i++ {
		w := float64(p.Directions[i])
		s := float64(p.Speeds[i])
		rad := float64(i) * 2 * math.Pi / float64(n)
		u += w * s * math.Sin(rad)
		v += w * s * math.Cos(rad)
		speed += w * s
		total += w
	}
	if total > 0 {
		u /= total
		v /= total
		speed /= total
	}

	switch c {
	case CoordU:
		return u, true
	case CoordV:
		return v, true
	case CoordMagnitude:
		return speed, true
	case CoordDirection:
		return bearing(u, v), true
	}
	return 0, false
}

// bearing returns the compass bearing of (u, v) in degrees [0, 360).
func bearing(u, v float64) float64 {
	d := math.Atan2(u, v) * 180 / math.Pi
	if d < 0 {
		d += 360
	}
	return d
}

// WindAtlas holds per-cell wind distributions for 12 months plus the annual
// distribution, in one contiguous []Polar per slice.
type WindAtlas struct {
	lattice  *Lattice[Polar]
	dirCount int
}

// NewWindAtlas builds an atlas from 12 or 13 slices of distributions.
func NewWindAtlas(res Resolution, dirCount int, slices [][]Polar) (*WindAtlas, error) {
	if dirCount < 1 || dirCount > MaxDirections {
		return nil, fmt.Errorf("direction count %d outside 1..%d", dirCount, MaxDirections)
	}
	if len(slices) == MonthCount {
		slices = withAnnual(slices, meanPolar)
	}
	l, err := NewLattice(res, slices)
	if err != nil {
		return nil, err
	}
	for s, cells := range l.Slices {
		for i := range cells {
			if cells[i].Valid() && int(cells[i].Count) != dirCount {
				return nil, fmt.Errorf("slice %d cell %d has %d directions, expected %d", s, i, cells[i].Count, dirCount)
			}
		}
	}
	return &WindAtlas{lattice: l, dirCount: dirCount}, nil
}

// Resolution returns the atlas lattice geometry.
func (a *WindAtlas) Resolution() Resolution {
	return a.lattice.Res
}

// DirectionCount returns the number of direction bins per distribution.
func (a *WindAtlas) DirectionCount() int {
	return a.dirCount
}

// Slices returns the stored slices. Callers must not modify them.
func (a *WindAtlas) Slices() [][]Polar {
	return a.lattice.Slices
}

// InterpolateSlice interpolates every component of the distribution over
// the four neighbours. All four must carry data.
func (a *WindAtlas) InterpolateSlice(slice int, lat, lon float64) (Polar, bool) {
	c, w, ok := a.lattice.corners(slice, lat, lon)
	if !ok {
		return MissingPolar(), false
	}
	for _, p := range c {
		if !p.Valid() {
			return MissingPolar(), false
		}
	}
	out := Polar{Count: uint8(a.dirCount)}
	for k, p := range c {
		wk := float32(w[k])
		out.Storm += wk * p.Storm
		out.Calm += wk * p.Calm
		for i := 0; i < a.dirCount; i++ {
			out.Directions[i] += wk * p.Directions[i]
			out.Speeds[i] += wk * p.Speeds[i]
		}
	}
	return out, true
}

// Interpolate interpolates both months selected by in and blends them. Any
// of the up to eight contributing cells lacking data makes it missing.
func (a *WindAtlas) Interpolate(lat, lon float64, in Interpolation) (Polar, bool) {
	p, ok := sampleTime(in, func(slice int) (Polar, bool) {
		return a.InterpolateSlice(slice, lat, lon)
	}, mixPolar)
	if !ok {
		return MissingPolar(), false
	}
	return p, true
}

// At interpolates the atlas at a date; nil selects the annual slice.
func (a *WindAtlas) At(lat, lon float64, date *time.Time) (Polar, bool) {
	return a.Interpolate(lat, lon, Locate(date))
}

// Value reads a coordinate from the interpolated distribution.
func (a *WindAtlas) Value(c Coord, lat, lon float64, in Interpolation) (float64, bool) {
	p, ok := a.Interpolate(lat, lon, in)
	if !ok {
		return 0, false
	}
	return p.Value(c)
}

func mixPolar(a, b Polar, w float64) Polar {
	wa, wb := float32(1-w), float32(w)
	out := Polar{
		Storm: wa*a.Storm + wb*b.Storm,
		Calm:  wa*a.Calm + wb*b.Calm,
		Count: a.Count,
	}
	for i := 0; i < int(a.Count); i++ {
		out.Directions[i] = wa*a.Directions[i] + wb*b.Directions[i]
		out.Speeds[i] = wa*a.Speeds[i] + wb*b.Speeds[i]
	}
	return out
}

func meanPolar(samples []*Polar) Polar {
	out := Polar{}
	for _, p := range samples {
		if !p.Valid() {
			m := MissingPolar()
			m.Count = p.Count
			return m
		}
		out.Count = p.Count
		out.Storm += p.Storm
		out.Calm += p.Calm
		for i := 0; i < int(p.Count); i++ {
			out.Directions[i] += p.Directions[i]
			out.Speeds[i] += p.Speeds[i]
		}
	}
	n := float32(len(samples))
	out.Storm /= n
	out.Calm /= n
	for i := range out.Directions {
		out.Directions[i] /= n
		out.Speeds[i] /= n
	}
	return out
}
