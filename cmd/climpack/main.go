// Command climpack loads every catalog source once and writes a dataset
// snapshot the server can start from.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"go.ngs.io/climatology-api/internal/adapter/store/catalog"
	"go.ngs.io/climatology-api/internal/adapter/store/snapshot"
	"go.ngs.io/climatology-api/internal/config"
	"go.ngs.io/climatology-api/internal/observability"
)

func main() {
	dataDir := flag.String("data", "./data", "Climatology data directory")
	configFile := flag.String("config", "", "TOML file overriding the dataset catalog")
	cycloneDB := flag.String("cyclone-db", "", "Read cyclones from this SQLite catalog")
	outPath := flag.String("out", "./data/climatology.snap", "Snapshot output path")
	concurrency := flag.Int("j", 4, "Sources loaded at once")
	strict := flag.Bool("strict", false, "Fail when any source fails to load")
	flag.Parse()

	logger, closer := observability.NewLogger(observability.LogOptions{Level: "info", Format: "text"})
	defer closer.Close()

	if err := run(logger, *dataDir, *configFile, *cycloneDB, *outPath, *concurrency, *strict); err != nil {
		logger.Error("snapshot failed", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

func run(logger *slog.Logger, dataDir, configFile, cycloneDB, outPath string, concurrency int, strict bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cat := config.DefaultCatalog()
	if cycloneDB != "" {
		cat.UseCycloneDB(cycloneDB)
	}
	if configFile != "" {
		override, err := config.LoadCatalogFile(configFile)
		if err != nil {
			return err
		}
		cat.Merge(override)
	}
	if err := cat.Validate(); err != nil {
		return err
	}

	start := time.Now()
	ds, err := catalog.Load(ctx, cat, catalog.DefaultLoaders(dataDir, logger), logger, catalog.Options{Concurrency: concurrency})
	if err != nil {
		return err
	}
	failed := ds.Failures()
	logger.Info("loaded sources", "duration", time.Since(start), "failed", len(failed))
	if strict && len(failed) > 0 {
		return ds.LoadError(failed[0])
	}

	if err := snapshot.SaveFile(outPath, ds, time.Now()); err != nil {
		return err
	}
	if fi, err := os.Stat(outPath); err == nil {
		logger.Info("wrote snapshot", "path", outPath, "bytes", fi.Size())
	}
	return nil
}
