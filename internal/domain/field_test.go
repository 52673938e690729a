package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quadField is a 2x2 global lattice with rows at ±45 and columns at 90/270.
func quadField(t *testing.T, cells []float32) *GriddedField {
	t.Helper()
	res, err := NewResolution(90, 180)
	require.NoError(t, err)
	f, err := NewGriddedField(res, [][]float32{cells})
	require.NoError(t, err)
	return f
}

func nan32() float32 { return float32(math.NaN()) }

func TestNewResolution(t *testing.T) {
	res, err := NewResolution(2.5, 2.5)
	require.NoError(t, err)
	assert.Equal(t, 72, res.LatCount)
	assert.Equal(t, 144, res.LonCount)
	assert.InDelta(t, -88.75, res.LatOrigin, 1e-12)
	assert.InDelta(t, 1.25, res.LonOrigin, 1e-12)

	_, err = NewResolution(7, 7)
	assert.ErrorIs(t, err, ErrInvalidResolution)

	_, err = NewResolution(0, 1)
	assert.ErrorIs(t, err, ErrInvalidResolution)
}

func TestResolution_RowAndColumnOf(t *testing.T) {
	res := MustResolution(1, 1)
	assert.Equal(t, 0, res.RowOf(-90))
	assert.Equal(t, 0, res.RowOf(-89.01))
	assert.Equal(t, 1, res.RowOf(-89))
	assert.Equal(t, 179, res.RowOf(90))
	assert.Equal(t, -1, res.RowOf(90.5))
	assert.Equal(t, -1, res.RowOf(-91))

	assert.Equal(t, 0, res.ColumnOf(0))
	assert.Equal(t, 0, res.ColumnOf(0.99))
	assert.Equal(t, 359, res.ColumnOf(-0.5))
	assert.Equal(t, 180, res.ColumnOf(-180))
	assert.Equal(t, 0, res.ColumnOf(360))
}

func TestSample_CenterOfQuad(t *testing.T) {
	f := quadField(t, []float32{0, 10, 10, 20})

	v, ok := f.Sample(0, 0, 180)
	require.True(t, ok)
	assert.InDelta(t, 10.0, v, 1e-9)
}

func TestSample_LatticePoints(t *testing.T) {
	f := quadField(t, []float32{0, 10, 10, 20})

	tests := []struct {
		lat, lon float64
		want     float64
	}{
		{-45, 90, 0},
		{-45, 270, 10},
		{45, 90, 10},
		{45, 270, 20},
	}
	for _, tt := range tests {
		v, ok := f.Sample(0, tt.lat, tt.lon)
		require.True(t, ok, "lat=%v lon=%v", tt.lat, tt.lon)
		assert.InDelta(t, tt.want, v, 1e-9, "lat=%v lon=%v", tt.lat, tt.lon)
	}
}

func TestSample_BilinearFormula(t *testing.T) {
	f := quadField(t, []float32{0, 10, 10, 20})

	// t = (117-90)/180 = 0.15, u = (9+45)/90 = 0.6
	tt, u := 0.15, 0.6
	want := (1-tt)*(1-u)*0 + tt*(1-u)*10 + (1-tt)*u*10 + tt*u*20

	v, ok := f.Sample(0, 9, 117)
	require.True(t, ok)
	assert.InDelta(t, want, v, 1e-9)
}

func TestSample_LongitudeWrap(t *testing.T) {
	f := quadField(t, []float32{0, 10, 10, 20})

	base, ok := f.Sample(0, 9, 117)
	require.True(t, ok)
	for _, k := range []float64{-3, -1, 1, 2, 5} {
		v, ok := f.Sample(0, 9, 117+360*k)
		require.True(t, ok)
		assert.InDelta(t, base, v, 1e-9, "k=%v", k)
	}

	// Between the last column (270) and the first (90 + 360).
	v, ok := f.Sample(0, -45, 0)
	require.True(t, ok)
	assert.InDelta(t, 5.0, v, 1e-9)
}

func TestSample_LatitudeBounds(t *testing.T) {
	f := quadField(t, []float32{0, 10, 10, 20})

	_, ok := f.Sample(0, 90.5, 0)
	assert.False(t, ok)
	_, ok = f.Sample(0, -91, 0)
	assert.False(t, ok)
	_, ok = f.Sample(0, math.NaN(), 0)
	assert.False(t, ok)

	// Beyond the outermost row the edge row is used.
	v, ok := f.Sample(0, 89, 270)
	require.True(t, ok)
	assert.InDelta(t, 20.0, v, 1e-9)
}

func TestSample_MissingNeighbourVetoes(t *testing.T) {
	f := quadField(t, []float32{nan32(), 10, 10, 20})

	_, ok := f.Sample(0, 0, 180)
	assert.False(t, ok, "a missing corner must not be blended")

	// Points whose neighbours avoid the missing cell still resolve.
	v, ok := f.Sample(0, 45, 270)
	require.True(t, ok)
	assert.InDelta(t, 20.0, v, 1e-9)
}

func monthlyField(t *testing.T, missingMonth int) *GriddedField {
	t.Helper()
	res, err := NewResolution(90, 180)
	require.NoError(t, err)
	slices := make([][]float32, MonthCount)
	for m := range slices {
		v := float32(m)
		if m == missingMonth {
			v = nan32()
		}
		slices[m] = []float32{v, v, v, v}
	}
	f, err := NewGriddedField(res, slices)
	require.NoError(t, err)
	return f
}

func TestSampleAtDate(t *testing.T) {
	f := monthlyField(t, -1)
	require.True(t, f.Seasonal())

	v, ok := f.SampleAtDate(10, 20, nil)
	require.True(t, ok)
	assert.InDelta(t, 5.5, v, 1e-6, "annual slice is the monthly mean")

	date := time.Date(2021, time.April, 15, 0, 0, 0, 0, time.UTC)
	v, ok = f.SampleAtDate(10, 20, &date)
	require.True(t, ok)
	w := 0.5 - 14.0/30
	assert.InDelta(t, 3*(1-w)+2*w, v, 1e-6)
}

func TestSampleAtDate_MissingMonth(t *testing.T) {
	f := monthlyField(t, 2) // March

	early := time.Date(2021, time.April, 5, 0, 0, 0, 0, time.UTC)
	_, ok := f.SampleAtDate(10, 20, &early)
	assert.False(t, ok, "April blends with March in its first half")

	late := time.Date(2021, time.April, 20, 0, 0, 0, 0, time.UTC)
	_, ok = f.SampleAtDate(10, 20, &late)
	assert.True(t, ok, "April blends with May in its second half")

	_, ok = f.SampleAtDate(10, 20, nil)
	assert.False(t, ok, "annual mean of a missing month is missing")
}

func TestSampleAtDate_ContinuousAcrossMonthBoundary(t *testing.T) {
	f := monthlyField(t, -1)

	before := time.Date(2021, time.April, 30, 23, 59, 0, 0, time.UTC)
	after := time.Date(2021, time.May, 1, 0, 0, 0, 0, time.UTC)

	a, ok := f.SampleAtDate(0, 0, &before)
	require.True(t, ok)
	b, ok := f.SampleAtDate(0, 0, &after)
	require.True(t, ok)
	assert.InDelta(t, a, b, 1e-3)
	assert.InDelta(t, 3.5, b, 1e-6)
}

func TestNewGriddedField_Shape(t *testing.T) {
	res, err := NewResolution(90, 180)
	require.NoError(t, err)

	_, err = NewGriddedField(res, [][]float32{{1, 2, 3}})
	assert.Error(t, err)

	_, err = NewGriddedField(res, make([][]float32, 5))
	assert.Error(t, err)
}

func TestDecodeBytes(t *testing.T) {
	out := DecodeBytes([]byte{0, 5, 255, 150}, 0.2, 255)
	require.Len(t, out, 4)
	assert.InDelta(t, 0.0, out[0], 1e-6)
	assert.InDelta(t, 1.0, out[1], 1e-6)
	assert.True(t, math.IsNaN(float64(out[2])))
	assert.InDelta(t, 30.0, out[3], 1e-5)
}

func TestDecodeFixedPoint(t *testing.T) {
	out := DecodeFixedPoint([]int16{-32768, 100, 2500}, 0.01, 1000, -32768)
	require.Len(t, out, 3)
	assert.True(t, math.IsNaN(float64(out[0])))
	assert.InDelta(t, 1001.0, out[1], 1e-3)
	assert.InDelta(t, 1025.0, out[2], 1e-3)
}

func TestAnnualMean(t *testing.T) {
	months := make([][]float32, MonthCount)
	for m := range months {
		months[m] = []float32{float32(m + 1), 2}
	}
	months[7][1] = nan32()

	annual, err := AnnualMean(months)
	require.NoError(t, err)
	assert.InDelta(t, 6.5, annual[0], 1e-6)
	assert.True(t, math.IsNaN(float64(annual[1])))

	_, err = AnnualMean(months[:11])
	assert.Error(t, err)
}
