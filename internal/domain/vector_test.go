package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorValue(t *testing.T) {
	tests := []struct {
		name  string
		v     Vector
		coord Coord
		mul   float64
		want  float64
	}{
		{"east direction", Vector{U: 1, V: 0}, CoordDirection, 1, 90},
		{"south direction", Vector{U: 0, V: -1}, CoordDirection, 1, 180},
		{"west direction", Vector{U: -1, V: 0}, CoordDirection, 1, 270},
		{"north direction", Vector{U: 0, V: 2}, CoordDirection, 1, 0},
		{"magnitude scaled", Vector{U: 3, V: 4}, CoordMagnitude, 2, 10},
		{"u scaled", Vector{U: 3, V: 4}, CoordU, 2, 6},
		{"v scaled", Vector{U: 3, V: 4}, CoordV, 0.5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.v.Value(tt.coord, tt.mul)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}

	_, ok := Vector{U: 1, V: 1}.Value(CoordStorm, 1)
	assert.False(t, ok)
	_, ok = MissingVector().Value(CoordU, 1)
	assert.False(t, ok)
}

func TestVectorField_Interpolate(t *testing.T) {
	res, err := NewResolution(90, 180)
	require.NoError(t, err)

	f, err := NewVectorField(res, 2, [][]Vector{{
		{U: 0, V: 1}, {U: 2, V: 1},
		{U: 2, V: 3}, {U: 4, V: 3},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2.0, f.Multiplier())

	v, ok := f.Interpolate(0, 0, 180)
	require.True(t, ok)
	assert.InDelta(t, 2.0, v.U, 1e-6)
	assert.InDelta(t, 2.0, v.V, 1e-6)

	mag, ok := f.Value(CoordMagnitude, 0, 180, Annual())
	require.True(t, ok)
	assert.InDelta(t, 2*2.8284271, mag, 1e-5)

	dir, ok := f.Value(CoordDirection, 0, 180, Annual())
	require.True(t, ok)
	assert.InDelta(t, 45.0, dir, 1e-5)
}

func TestVectorField_MissingVetoes(t *testing.T) {
	res, err := NewResolution(90, 180)
	require.NoError(t, err)

	f, err := NewVectorField(res, 1, [][]Vector{{
		{U: 0, V: 1}, MissingVector(),
		{U: 2, V: 3}, {U: 4, V: 3},
	}})
	require.NoError(t, err)

	_, ok := f.Interpolate(0, 0, 180)
	assert.False(t, ok)
	_, ok = f.AtDate(0, 180, nil)
	assert.False(t, ok)

	_, err = NewVectorField(res, 0, [][]Vector{{{}, {}, {}, {}}})
	assert.Error(t, err)
}

func TestVectorField_AnnualFromMonths(t *testing.T) {
	res, err := NewResolution(90, 180)
	require.NoError(t, err)

	slices := make([][]Vector, MonthCount)
	for m := range slices {
		v := Vector{U: float32(m), V: 1}
		slices[m] = []Vector{v, v, v, v}
	}
	f, err := NewVectorField(res, 1, slices)
	require.NoError(t, err)
	require.Len(t, f.Slices(), SliceCount)

	v, ok := f.AtDate(10, 10, nil)
	require.True(t, ok)
	assert.InDelta(t, 5.5, v.U, 1e-6)
	assert.InDelta(t, 1.0, v.V, 1e-6)
}
