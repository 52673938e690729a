// Package store defines how climatology sources are described and the
// loader interfaces the catalog dispatches to.
package store

import (
	"context"
	"fmt"

	"go.ngs.io/climatology-api/internal/domain"
)

// Format names an on-disk source format.
type Format string

const (
	FormatNetCDF    Format = "netcdf"    // gridded NetCDF variable(s)
	FormatCondensed Format = "condensed" // byte grid, 255 = missing
	FormatGEBCO     Format = "gebco"     // elevation grid block-averaged to depth
	FormatCSV       Format = "csv"       // cyclone track directory
	FormatSQLite    Format = "sqlite"    // cyclone catalog database
)

// Source describes where one variable's data lives.
type Source struct {
	Variable domain.Variable `toml:"-"`
	Format   Format          `toml:"format"`
	Path     string          `toml:"path"`

	// Names lists candidate NetCDF variable names; for currents the first two
	// entries are the eastward and northward components.
	Names []string `toml:"names"`

	LatStep float64 `toml:"lat_step"`
	LonStep float64 `toml:"lon_step"`

	// Scale and Offset convert file values into base units after any
	// scale_factor/add_offset attributes.
	Scale  float64 `toml:"scale"`
	Offset float64 `toml:"offset"`

	// Multiplier converts stored current components into knots.
	Multiplier float64 `toml:"multiplier"`

	// ElNinoPath is the optional ENSO table read with cyclone tracks.
	ElNinoPath string `toml:"elnino_path"`
}

// Resolution returns the target lattice of the source.
func (s Source) Resolution() (domain.Resolution, error) {
	r, err := domain.NewResolution(s.LatStep, s.LonStep)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("%s: %w", s.Variable, err)
	}
	return r, nil
}

// ScaleOrOne returns Scale, treating zero as one.
func (s Source) ScaleOrOne() float64 {
	if s.Scale == 0 {
		return 1
	}
	return s.Scale
}

// FieldLoader loads a scalar variable.
type FieldLoader interface {
	LoadField(ctx context.Context, src Source) (*domain.GriddedField, error)
}

// CurrentLoader loads the ocean current field.
type CurrentLoader interface {
	LoadCurrents(ctx context.Context, src Source) (*domain.VectorField, error)
}

// WindLoader loads the wind atlas.
type WindLoader interface {
	LoadWindAtlas(ctx context.Context, src Source) (*domain.WindAtlas, error)
}

// CycloneLoader loads historical cyclone tracks.
type CycloneLoader interface {
	LoadCyclones(ctx context.Context, src Source) (*domain.CycloneIndex, error)
}
