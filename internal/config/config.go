// Package config reads server settings from the environment and the
// dataset catalog from an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all server settings, populated from environment variables.
type Config struct {
	Port       string
	DataDir    string
	ConfigFile string

	// SnapshotPath, when set and present, is loaded instead of the sources.
	SnapshotPath string

	LogLevel  string
	LogFormat string
	LogFile   string

	ContourCacheSize int
	CycloneDBPath    string
	CycloneSince     int
	ShutdownTimeout  time.Duration

	// CORSAllowedOrigins is empty when every origin is allowed.
	CORSAllowedOrigins []string

	Catalog Catalog
}

// Load reads configuration from environment variables, applying defaults
// where unset, then the catalog file if CONFIG_FILE names one.
func Load() (*Config, error) {
	shutdownTimeout, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil || shutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
	}
	cacheSize, err := strconv.Atoi(getEnv("CONTOUR_CACHE_SIZE", "256"))
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid CONTOUR_CACHE_SIZE")
	}
	since := 0
	if s := os.Getenv("CYCLONE_SINCE"); s != "" {
		if since, err = strconv.Atoi(s); err != nil || since < 1800 || since > 2200 {
			return nil, fmt.Errorf("invalid CYCLONE_SINCE %q: expected a year", s)
		}
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DataDir:            getEnv("DATA_DIR", "./data"),
		ConfigFile:         os.Getenv("CONFIG_FILE"),
		SnapshotPath:       os.Getenv("SNAPSHOT_PATH"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "json")),
		LogFile:            os.Getenv("LOG_FILE"),
		ContourCacheSize:   cacheSize,
		CycloneDBPath:      os.Getenv("CYCLONE_DB_PATH"),
		CycloneSince:       since,
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT %q", cfg.Port)
	}

	cfg.Catalog = DefaultCatalog()
	if cfg.CycloneDBPath != "" {
		cfg.Catalog.UseCycloneDB(cfg.CycloneDBPath)
	}
	if cfg.ConfigFile != "" {
		overrides, err := LoadCatalogFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.Catalog.Merge(overrides)
	}
	if err := cfg.Catalog.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
