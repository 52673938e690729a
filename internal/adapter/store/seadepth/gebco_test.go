package seadepth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/climatology-api/internal/adapter/store"
	"go.ngs.io/climatology-api/internal/domain"
)

// createElevationTestFile writes a GEBCO-like (lat, lon) elevation grid.
func createElevationTestFile(t *testing.T, path string, latVals, lonVals []float64, values []int16) {
	t.Helper()
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	latDim, _ := f.AddDim("lat", uint64(len(latVals)))
	lonDim, _ := f.AddDim("lon", uint64(len(lonVals)))
	vlat, _ := f.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
	vlon, _ := f.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	velev, _ := f.AddVar("elevation", netcdf.SHORT, []netcdf.Dim{latDim, lonDim})
	require.NoError(t, f.EndDef())

	require.NoError(t, vlat.WriteFloat64s(latVals))
	require.NoError(t, vlon.WriteFloat64s(lonVals))
	require.NoError(t, velev.WriteInt16s(values))
}

func TestLoadField_BlockAverage(t *testing.T) {
	dir := t.TempDir()
	// 90x180 lattice: row 0 covers [-90, 0), row 1 covers [0, 90];
	// column 0 covers [0, 180), column 1 covers [180, 360).
	lats := []float64{-60, -30, 30, 60}
	lons := []float64{-170, -10, 10, 170}
	elev := []int16{
		-100, -200, -300, -500, // lat -60
		-100, -200, -100, 100, // lat -30
		10, 20, 30, 40, // lat 30: land
		10, -4000, 30, 40, // lat 60
	}
	createElevationTestFile(t, filepath.Join(dir, "gebco.nc"), lats, lons, elev)

	src := store.Source{Variable: domain.SeaDepth, Format: store.FormatGEBCO, Path: "gebco.nc", LatStep: 90, LonStep: 180}
	f, err := NewLoader(dir, nil).LoadField(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, f.Slices(), 1)

	// South, east half (lon 10, 170): -300, -500, -100 and land 100.
	v, ok := f.Cell(0, 0, 0)
	require.True(t, ok)
	assert.InDelta(t, 300.0, v, 1e-4)

	// South, west half (lon -170, -10): 100, 200, 100, 200.
	v, ok = f.Cell(0, 0, 1)
	require.True(t, ok)
	assert.InDelta(t, 150.0, v, 1e-4)

	// North, east half is all land.
	_, ok = f.Cell(0, 1, 0)
	assert.False(t, ok)

	// North, west half has a single sea sample.
	v, ok = f.Cell(0, 1, 1)
	require.True(t, ok)
	assert.InDelta(t, 4000.0, v, 1e-4)
}

func TestLoadField_MissingElevation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.nc")
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	require.NoError(t, err)
	latDim, _ := f.AddDim("lat", 1)
	vlat, _ := f.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
	lonDim, _ := f.AddDim("lon", 1)
	vlon, _ := f.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	require.NoError(t, f.EndDef())
	require.NoError(t, vlat.WriteFloat64s([]float64{0}))
	require.NoError(t, vlon.WriteFloat64s([]float64{0}))
	require.NoError(t, f.Close())

	src := store.Source{Variable: domain.SeaDepth, Path: path, LatStep: 1, LonStep: 1}
	_, err = NewLoader(dir, nil).LoadField(context.Background(), src)
	assert.Error(t, err)
}
