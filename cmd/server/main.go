// Package main provides the climatology API HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.ngs.io/climatology-api/internal/adapter/store/catalog"
	"go.ngs.io/climatology-api/internal/adapter/store/snapshot"
	"go.ngs.io/climatology-api/internal/config"
	"go.ngs.io/climatology-api/internal/domain"
	httpHandler "go.ngs.io/climatology-api/internal/http"
	"go.ngs.io/climatology-api/internal/observability"
	"go.ngs.io/climatology-api/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("climatology-api version %s\n", version)
		return
	}

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, closer := observability.NewLogger(observability.LogOptions{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	defer closer.Close()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting climatology API server",
		"version", version,
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"config_file", cfg.ConfigFile,
	)

	metrics := observability.NewMetrics()

	// The dataset is built once, then only read.
	start := time.Now()
	ds, err := loadDataset(ctx, cfg, logger)
	if err != nil {
		return err
	}
	metrics.LoadDuration.Observe(time.Since(start).Seconds())
	for _, v := range ds.Failures() {
		logger.Warn("variable unavailable", "variable", v.String(), "error", ds.LoadError(v))
	}

	climatologyUC, err := usecase.NewClimatologyUseCase(ds, usecase.Options{
		ContourCacheSize: cfg.ContourCacheSize,
		CycloneSince:     cfg.CycloneSince,
		Metrics:          metrics,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	router := httpHandler.SetupRouter(climatologyUC, httpHandler.RouterOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "health", fmt.Sprintf("http://localhost:%s/health", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadDataset reads the snapshot when one is configured and present, and
// the catalog sources otherwise.
func loadDataset(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*domain.Dataset, error) {
	if cfg.SnapshotPath != "" {
		ds, info, err := snapshot.LoadFile(cfg.SnapshotPath)
		switch {
		case err == nil:
			logger.Info("loaded snapshot", "path", cfg.SnapshotPath, "created", info.Created)
			return ds, nil
		case errors.Is(err, os.ErrNotExist):
			logger.Info("snapshot not found, loading sources", "path", cfg.SnapshotPath)
		default:
			logger.Warn("snapshot unusable, loading sources", "path", cfg.SnapshotPath, "error", err)
		}
	}
	return catalog.Load(ctx, cfg.Catalog, catalog.DefaultLoaders(cfg.DataDir, logger), logger, catalog.Options{})
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Climatology API Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  climatology-api [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  DATA_DIR                Climatology data directory (default: ./data)")
	fmt.Println("  CONFIG_FILE             TOML file overriding the dataset catalog (optional)")
	fmt.Println("  SNAPSHOT_PATH           Dataset snapshot built by climpack (optional)")
	fmt.Println("  LOG_LEVEL               debug, info, warn or error (default: info)")
	fmt.Println("  LOG_FORMAT              json or text (default: json)")
	fmt.Println("  LOG_FILE                Rotated log file (default: stderr)")
	fmt.Println("  CONTOUR_CACHE_SIZE      Cached contour results (default: 256)")
	fmt.Println("  CYCLONE_DB_PATH         SQLite cyclone catalog instead of CSV tracks (optional)")
	fmt.Println("  CYCLONE_SINCE           First year counted by crossing queries (optional)")
	fmt.Println("  SHUTDOWN_TIMEOUT        Graceful shutdown timeout (default: 10s)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  climatology-api")
	fmt.Println()
	fmt.Println("  # Start server from a snapshot on a custom port")
	fmt.Println("  PORT=3000 SNAPSHOT_PATH=./data/climatology.snap climatology-api")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health                        Health check")
	fmt.Println("  GET /metrics                       Prometheus metrics")
	fmt.Println("  GET /v1/variables                  List variables and their availability")
	fmt.Println("  GET /v1/climatology/value          Read a variable at a point")
	fmt.Println("  GET /v1/climatology/contours       Isolines of a variable over an extent")
	fmt.Println("  GET /v1/climatology/contours.png   Isolines of one variable rendered as PNG")
	fmt.Println("  GET /v1/climatology/windatlas      Wind distribution at a point")
	fmt.Println("  GET /v1/cyclones/crossings         Cyclone crossings of a route segment")
	fmt.Println()
}
