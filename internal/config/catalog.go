package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"

	"go.ngs.io/climatology-api/internal/adapter/store"
	"go.ngs.io/climatology-api/internal/domain"
)

// Catalog maps each variable to its source.
type Catalog map[domain.Variable]store.Source

// catalogFile is the TOML layout:
//
//	[sources.pressure]
//	format = "netcdf"
//	path = "slp.mon.ltm.nc"
//	names = ["slp"]
//	lat_step = 2.0
//	lon_step = 2.0
type catalogFile struct {
	Sources map[string]store.Source `toml:"sources"`
}

// DefaultCatalog returns the built-in catalog with the resolutions the
// overlay datasets ship at.
func DefaultCatalog() Catalog {
	netcdf := func(v domain.Variable, path string, step float64, names ...string) store.Source {
		return store.Source{Variable: v, Format: store.FormatNetCDF, Path: path, Names: names, LatStep: step, LonStep: step}
	}
	c := Catalog{
		domain.Wind:             netcdf(domain.Wind, "wind_atlas.nc", 1),
		domain.Pressure:         netcdf(domain.Pressure, "slp.mon.ltm.nc", 2, "slp"),
		domain.SeaTemperature:   netcdf(domain.SeaTemperature, "sst.mon.ltm.nc", 1, "sst"),
		domain.AirTemperature:   netcdf(domain.AirTemperature, "air.mon.ltm.nc", 2, "air"),
		domain.CloudCover:       netcdf(domain.CloudCover, "tcdc.mon.ltm.nc", 2, "tcdc"),
		domain.RelativeHumidity: netcdf(domain.RelativeHumidity, "rhum.mon.ltm.nc", 1, "rhum"),
		domain.Lightning:        netcdf(domain.Lightning, "lightning.nc", 1, "lightning", "flash_rate"),
		domain.Precipitation: {
			Variable: domain.Precipitation, Format: store.FormatCondensed, Path: "precip.bin",
			LatStep: 2.5, LonStep: 2.5,
		},
		domain.SeaDepth: {
			Variable: domain.SeaDepth, Format: store.FormatGEBCO, Path: "gebco.nc",
			LatStep: 1, LonStep: 1,
		},
		domain.Cyclones: {
			Variable: domain.Cyclones, Format: store.FormatCSV, Path: "cyclones",
			ElNinoPath: "elnino.csv",
		},
	}
	cur := netcdf(domain.Current, "currents.nc", 1, "u", "v")
	cur.Multiplier = 1.943844 // m/s to knots
	c[domain.Current] = cur
	return c
}

// UseCycloneDB points the cyclone source at a SQLite catalog.
func (c Catalog) UseCycloneDB(path string) {
	c[domain.Cyclones] = store.Source{Variable: domain.Cyclones, Format: store.FormatSQLite, Path: path}
}

// Merge replaces entries of c with those of o.
func (c Catalog) Merge(o Catalog) {
	for v, src := range o {
		c[v] = src
	}
}

// Variables returns the catalogued variables in display order.
func (c Catalog) Variables() []domain.Variable {
	out := make([]domain.Variable, 0, len(c))
	for v := range c {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks every source's format against its variable.
func (c Catalog) Validate() error {
	var errs []error
	for _, v := range c.Variables() {
		if err := validateSource(c[v]); err != nil {
			errs = append(errs, fmt.Errorf("catalog %s: %w", v, err))
		}
	}
	return errors.Join(errs...)
}

func validateSource(src store.Source) error {
	if src.Path == "" {
		return errors.New("path is required")
	}
	switch src.Variable {
	case domain.Cyclones:
		if src.Format != store.FormatCSV && src.Format != store.FormatSQLite {
			return fmt.Errorf("format %q cannot hold cyclone tracks", src.Format)
		}
		return nil
	case domain.Wind, domain.Current:
		if src.Format != store.FormatNetCDF {
			return fmt.Errorf("format %q cannot hold %s", src.Format, src.Variable)
		}
	default:
		switch src.Format {
		case store.FormatNetCDF, store.FormatCondensed, store.FormatGEBCO:
		default:
			return fmt.Errorf("format %q cannot hold a scalar field", src.Format)
		}
	}
	_, err := src.Resolution()
	return err
}

// LoadCatalogFile reads catalog overrides from a TOML file.
func LoadCatalogFile(path string) (Catalog, error) {
	var f catalogFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("catalog %s: unknown keys %v", path, undecoded)
	}
	c := make(Catalog, len(f.Sources))
	for name, src := range f.Sources {
		v, err := domain.ParseVariable(name)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
		src.Variable = v
		c[v] = src
	}
	return c, nil
}
