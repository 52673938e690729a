package domain

import (
	"fmt"
	"math"
	"time"

	"go.ngs.io/climatology-api/internal/adapter/interp"
)

// Vector is an eastward (U) and northward (V) pair. NaN components mark a
// missing sample.
type Vector struct {
	U float32
	V float32
}

// MissingVector returns the missing sample.
func MissingVector() Vector {
	nan := float32(math.NaN())
	return Vector{U: nan, V: nan}
}

// Valid reports whether both components are present.
func (v Vector) Valid() bool {
	return !math.IsNaN(float64(v.U)) && !math.IsNaN(float64(v.V))
}

// Value reads a coordinate scaled by multiplier. Direction is the bearing
// the vector points towards, in degrees [0, 360).
func (v Vector) Value(c Coord, multiplier float64) (float64, bool) {
	if !v.Valid() {
		return 0, false
	}
	u, n := float64(v.U)*multiplier, float64(v.V)*multiplier
	switch c {
	case CoordU:
		return u, true
	case CoordV:
		return n, true
	case CoordMagnitude:
		return math.Hypot(u, n), true
	case CoordDirection:
		return bearing(float64(v.U), float64(v.V)), true
	}
	return 0, false
}

// VectorField is an immutable two-component grid (ocean currents) with a
// unit multiplier that turns stored components into knots.
type VectorField struct {
	lattice    *Lattice[Vector]
	multiplier float64
}

// NewVectorField builds a vector field from 1, 12 or 13 slices.
func NewVectorField(res Resolution, multiplier float64, slices [][]Vector) (*VectorField, error) {
	if multiplier == 0 || math.IsNaN(multiplier) {
		return nil, fmt.Errorf("invalid multiplier %v", multiplier)
	}
	if len(slices) == MonthCount {
		slices = withAnnual(slices, meanVector)
	}
	l, err := NewLattice(res, slices)
	if err != nil {
		return nil, err
	}
	return &VectorField{lattice: l, multiplier: multiplier}, nil
}

// Resolution returns the field's lattice geometry.
func (f *VectorField) Resolution() Resolution {
	return f.lattice.Res
}

// Multiplier returns the unit multiplier applied by Value.
func (f *VectorField) Multiplier() float64 {
	return f.multiplier
}

// Slices returns the stored slices. Callers must not modify them.
func (f *VectorField) Slices() [][]Vector {
	return f.lattice.Slices
}

// Interpolate bilinearly interpolates both components of one slice. Any
// missing neighbour makes the result missing.
func (f *VectorField) Interpolate(slice int, lat, lon float64) (Vector, bool) {
	c, w, ok := f.lattice.corners(slice, lat, lon)
	if !ok {
		return MissingVector(), false
	}
	u, ok := interp.Blend(w, [4]float64{float64(c[0].U), float64(c[1].U), float64(c[2].U), float64(c[3].U)})
	if !ok {
		return MissingVector(), false
	}
	v, ok := interp.Blend(w, [4]float64{float64(c[0].V), float64(c[1].V), float64(c[2].V), float64(c[3].V)})
	if !ok {
		return MissingVector(), false
	}
	return Vector{U: float32(u), V: float32(v)}, true
}

// At interpolates both months selected by in and blends them.
func (f *VectorField) At(lat, lon float64, in Interpolation) (Vector, bool) {
	return sampleTime(in, func(slice int) (Vector, bool) {
		return f.Interpolate(slice, lat, lon)
	}, mixVector)
}

// AtDate interpolates at a date; nil selects the annual slice.
func (f *VectorField) AtDate(lat, lon float64, date *time.Time) (Vector, bool) {
	return f.At(lat, lon, Locate(date))
}

// Value reads a coordinate, scaled by the field multiplier.
func (f *VectorField) Value(c Coord, lat, lon float64, in Interpolation) (float64, bool) {
	v, ok := f.At(lat, lon, in)
	if !ok {
		return 0, false
	}
	return v.Value(c, f.multiplier)
}

func mixVector(a, b Vector, w float64) Vector {
	wa, wb := float32(1-w), float32(w)
	return Vector{U: wa*a.U + wb*b.U, V: wa*a.V + wb*b.V}
}

func meanVector(samples []*Vector) Vector {
	var u, v float64
	for _, s := range samples {
		if !s.Valid() {
			return MissingVector()
		}
		u += float64(s.U)
		v += float64(s.V)
	}
	n := float64(len(samples))
	return Vector{U: float32(u / n), V: float32(v / n)}
}
