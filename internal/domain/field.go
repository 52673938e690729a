package domain

import (
	"fmt"
	"math"
	"time"

	"go.ngs.io/climatology-api/internal/adapter/interp"
)

const (
	// MonthCount is the number of monthly slices in a seasonal field.
	MonthCount = 12
	// SliceCount is the number of slices in a seasonal field: 12 months plus
	// the annual mean.
	SliceCount = 13
	// AnnualSlice is the index of the annual mean slice.
	AnnualSlice = 12
)

// GriddedField is an immutable scalar grid of 1 or 13 slices. Missing
// samples are stored as NaN and surface as ok == false.
type GriddedField struct {
	lattice *Lattice[float32]
}

// NewGriddedField builds a field from decoded slices. Twelve monthly slices
// are extended with their annual mean; a single slice serves every month.
func NewGriddedField(res Resolution, slices [][]float32) (*GriddedField, error) {
	if len(slices) == MonthCount {
		for i, s := range slices {
			if len(s) != res.Cells() {
				return nil, fmt.Errorf("slice %d has %d cells, expected %d", i, len(s), res.Cells())
			}
		}
		annual, err := AnnualMean(slices)
		if err != nil {
			return nil, err
		}
		slices = append(slices[:MonthCount:MonthCount], annual)
	}
	l, err := NewLattice(res, slices)
	if err != nil {
		return nil, err
	}
	return &GriddedField{lattice: l}, nil
}

// Resolution returns the field's lattice geometry.
func (f *GriddedField) Resolution() Resolution {
	return f.lattice.Res
}

// Slices returns the stored slices. Callers must not modify them.
func (f *GriddedField) Slices() [][]float32 {
	return f.lattice.Slices
}

// Seasonal reports whether the field has monthly slices.
func (f *GriddedField) Seasonal() bool {
	return len(f.lattice.Slices) == SliceCount
}

// Cell returns the stored sample at a lattice point.
func (f *GriddedField) Cell(slice, row, col int) (float64, bool) {
	c := f.lattice.Cell(slice, row, col)
	if c == nil || math.IsNaN(float64(*c)) {
		return 0, false
	}
	return float64(*c), true
}

// Sample bilinearly interpolates one slice at (lat, lon). Any missing
// neighbour makes the result missing.
func (f *GriddedField) Sample(slice int, lat, lon float64) (float64, bool) {
	c, w, ok := f.lattice.corners(slice, lat, lon)
	if !ok {
		return 0, false
	}
	return interp.Blend(w, [4]float64{float64(*c[0]), float64(*c[1]), float64(*c[2]), float64(*c[3])})
}

// SampleAt blends the two monthly samples selected by in.
func (f *GriddedField) SampleAt(lat, lon float64, in Interpolation) (float64, bool) {
	return sampleTime(in, func(slice int) (float64, bool) {
		return f.Sample(slice, lat, lon)
	}, mixFloat)
}

// SampleAtDate samples the field at a date; a nil date selects the annual
// slice.
func (f *GriddedField) SampleAtDate(lat, lon float64, date *time.Time) (float64, bool) {
	return f.SampleAt(lat, lon, Locate(date))
}

func mixFloat(a, b, w float64) float64 {
	return a*(1-w) + b*w
}

// DecodeFixedPoint converts scaled integer samples into physical values.
// Samples equal to sentinel become NaN.
func DecodeFixedPoint(raw []int16, scale, offset float64, sentinel int16) []float32 {
	out := make([]float32, len(raw))
	for i, v := range raw {
		if v == sentinel {
			out[i] = float32(math.NaN())
			continue
		}
		out[i] = float32(float64(v)*scale + offset)
	}
	return out
}

// DecodeBytes converts byte samples into physical values (value = byte *
// scale). Samples equal to sentinel become NaN.
func DecodeBytes(raw []byte, scale float64, sentinel byte) []float32 {
	out := make([]float32, len(raw))
	for i, v := range raw {
		if v == sentinel {
			out[i] = float32(math.NaN())
			continue
		}
		out[i] = float32(float64(v) * scale)
	}
	return out
}

// AnnualMean averages 12 monthly slices cell by cell. A cell missing in any
// month is missing in the result.
func AnnualMean(months [][]float32) ([]float32, error) {
	if len(months) != MonthCount {
		return nil, fmt.Errorf("annual mean needs %d monthly slices, got %d", MonthCount, len(months))
	}
	n := len(months[0])
	if n == 0 {
		return nil, fmt.Errorf("annual mean of empty slices")
	}
	for i, m := range months {
		if len(m) != n {
			return nil, fmt.Errorf("month %d has %d cells, expected %d", i+1, len(m), n)
		}
	}
	return withAnnual(months, meanFloat32)[AnnualSlice], nil
}

func meanFloat32(samples []*float32) float32 {
	sum := 0.0
	for _, s := range samples {
		if math.IsNaN(float64(*s)) {
			return float32(math.NaN())
		}
		sum += float64(*s)
	}
	return float32(sum / float64(len(samples)))
}
