package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/climatology-api/internal/adapter/store"
	"go.ngs.io/climatology-api/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, 256, cfg.ContourCacheSize)
	assert.Zero(t, cfg.CycloneSince)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.CORSAllowedOrigins)

	assert.Len(t, cfg.Catalog, domain.VariableCount)
	assert.Equal(t, 2.5, cfg.Catalog[domain.Precipitation].LatStep)
	assert.Equal(t, store.FormatCondensed, cfg.Catalog[domain.Precipitation].Format)
	assert.Equal(t, 2.0, cfg.Catalog[domain.Pressure].LatStep)
	assert.Equal(t, 1.0, cfg.Catalog[domain.SeaTemperature].LatStep)
	assert.Equal(t, store.FormatGEBCO, cfg.Catalog[domain.SeaDepth].Format)
	assert.Equal(t, store.FormatCSV, cfg.Catalog[domain.Cyclones].Format)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_DIR", "/srv/climatology")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_FILE", "/var/log/climatology.log")
	t.Setenv("CONTOUR_CACHE_SIZE", "32")
	t.Setenv("CYCLONE_DB_PATH", "/srv/cyclones.db")
	t.Setenv("CYCLONE_SINCE", "1950")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/srv/climatology", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "/var/log/climatology.log", cfg.LogFile)
	assert.Equal(t, 32, cfg.ContourCacheSize)
	assert.Equal(t, 1950, cfg.CycloneSince)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)

	src := cfg.Catalog[domain.Cyclones]
	assert.Equal(t, store.FormatSQLite, src.Format)
	assert.Equal(t, "/srv/cyclones.db", src.Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"shutdown timeout", "SHUTDOWN_TIMEOUT", "soon"},
		{"negative timeout", "SHUTDOWN_TIMEOUT", "-1s"},
		{"cache size", "CONTOUR_CACHE_SIZE", "many"},
		{"cyclone since", "CYCLONE_SINCE", "42"},
		{"log level", "LOG_LEVEL", "verbose"},
		{"log format", "LOG_FORMAT", "xml"},
		{"port", "PORT", "http"},
		{"missing config file", "CONFIG_FILE", "/nonexistent/catalog.toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_CatalogFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeCatalog(t, `
[sources.pressure]
format = "netcdf"
path = "era5/msl.nc"
names = ["msl"]
lat_step = 1.0
lon_step = 1.0
scale = 0.01

[sources.precipitation]
format = "netcdf"
path = "precip.mon.mean.nc"
names = ["precip"]
lat_step = 2.5
lon_step = 2.5
`))
	cfg, err := Load()
	require.NoError(t, err)

	p := cfg.Catalog[domain.Pressure]
	assert.Equal(t, domain.Pressure, p.Variable)
	assert.Equal(t, "era5/msl.nc", p.Path)
	assert.Equal(t, []string{"msl"}, p.Names)
	assert.Equal(t, 0.01, p.Scale)
	assert.Equal(t, store.FormatNetCDF, cfg.Catalog[domain.Precipitation].Format)
	// Untouched entries keep their defaults.
	assert.Equal(t, "sst.mon.ltm.nc", cfg.Catalog[domain.SeaTemperature].Path)
}

func TestLoadCatalogFile_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown variable": "[sources.snow]\nformat = \"netcdf\"\npath = \"x.nc\"\nlat_step = 1.0\nlon_step = 1.0\n",
		"unknown key":      "[sources.pressure]\nformat = \"netcdf\"\npath = \"x.nc\"\ncolour = \"red\"\n",
		"syntax":           "[sources.pressure\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCatalogFile(writeCatalog(t, body))
			assert.Error(t, err)
		})
	}
}

func TestCatalog_Validate(t *testing.T) {
	c := DefaultCatalog()
	require.NoError(t, c.Validate())

	c[domain.Wind] = store.Source{Variable: domain.Wind, Format: store.FormatCondensed, Path: "w.bin", LatStep: 1, LonStep: 1}
	c[domain.Pressure] = store.Source{Variable: domain.Pressure, Format: store.FormatNetCDF, Path: "p.nc", LatStep: 7, LonStep: 7}
	c[domain.Cyclones] = store.Source{Variable: domain.Cyclones, Format: store.FormatNetCDF, Path: "c.nc"}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wind")
	assert.Contains(t, err.Error(), "pressure")
	assert.Contains(t, err.Error(), "cyclones")
}
