package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/climatology-api/internal/adapter/store"
	"go.ngs.io/climatology-api/internal/adapter/store/condensed"
	"go.ngs.io/climatology-api/internal/domain"
	"go.ngs.io/climatology-api/internal/observability"
)

func writeCondensed(t *testing.T, dir, name string, value float32) {
	t.Helper()
	res := domain.MustResolution(90, 180)
	months := make([][]float32, domain.MonthCount)
	for m := range months {
		months[m] = []float32{value, value, value, value}
	}
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, condensed.Encode(f, res, months))
}

func coarseSource(path string) store.Source {
	return store.Source{Format: store.FormatCondensed, Path: path, LatStep: 90, LonStep: 180}
}

func TestLoad_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	writeCondensed(t, dir, "precip.bin", 4)
	writeCondensed(t, dir, "cloud.bin", 20)

	sources := map[domain.Variable]store.Source{
		domain.Precipitation: coarseSource("precip.bin"),
		domain.CloudCover:    coarseSource("cloud.bin"),
		domain.Pressure:      coarseSource("missing.bin"),
	}
	ds, err := Load(context.Background(), sources, DefaultLoaders(dir, observability.NopLogger()), observability.NopLogger(), Options{Concurrency: 2})
	require.NoError(t, err)

	assert.True(t, ds.Available(domain.Precipitation))
	assert.True(t, ds.Available(domain.CloudCover))
	assert.False(t, ds.Available(domain.Pressure))
	assert.Error(t, ds.LoadError(domain.Pressure))
	assert.Equal(t, []domain.Variable{domain.Pressure}, ds.Failures())

	v, ok := ds.Value(domain.CoordMagnitude, domain.CloudCover, 10, 20, nil)
	require.True(t, ok)
	assert.InDelta(t, 20.0, v, 0.1)

	_, ok = ds.Value(domain.CoordMagnitude, domain.Pressure, 10, 20, nil)
	assert.False(t, ok)
}

func TestLoad_UnknownFormat(t *testing.T) {
	sources := map[domain.Variable]store.Source{
		domain.Lightning: {Format: "grib", Path: "x", LatStep: 1, LonStep: 1},
		domain.Cyclones:  {Format: store.FormatNetCDF, Path: "x"},
	}
	ds, err := Load(context.Background(), sources, Loaders{}, nil, Options{})
	require.NoError(t, err)
	assert.ErrorContains(t, ds.LoadError(domain.Lightning), "no field loader")
	assert.ErrorContains(t, ds.LoadError(domain.Cyclones), "no cyclone loader")
}

type stubField struct{}

func (s stubField) LoadField(ctx context.Context, src store.Source) (*domain.GriddedField, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loaders := Loaders{Fields: map[store.Format]store.FieldLoader{store.FormatNetCDF: stubField{}}}
	sources := map[domain.Variable]store.Source{
		domain.Pressure: {Format: store.FormatNetCDF, Path: "slp.nc", LatStep: 2, LonStep: 2},
	}
	_, err := Load(ctx, sources, loaders, observability.NopLogger(), Options{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoad_UnknownVariable(t *testing.T) {
	sources := map[domain.Variable]store.Source{
		domain.Variable(99): coarseSource("x"),
	}
	_, err := Load(context.Background(), sources, Loaders{}, nil, Options{})
	assert.ErrorIs(t, err, domain.ErrUnknownVariable)
}
