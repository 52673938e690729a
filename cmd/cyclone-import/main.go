// Command cyclone-import loads basin track CSV files and an optional El Niño
// table into the SQLite cyclone catalog.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.ngs.io/climatology-api/internal/adapter/store/cyclone"
	"go.ngs.io/climatology-api/internal/adapter/store/cyclonedb"
	"go.ngs.io/climatology-api/internal/adapter/store/zfile"
	"go.ngs.io/climatology-api/internal/domain"
	"go.ngs.io/climatology-api/internal/observability"
)

func main() {
	dbPath := flag.String("db", "./data/cyclones.db", "SQLite catalog path")
	tracksDir := flag.String("tracks", "./data/cyclones", "Directory of <basin>.csv track files")
	elNino := flag.String("elnino", "", "El Niño table CSV (optional)")
	debug := flag.Bool("debug", false, "Log SQL statements")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	logger, closer := observability.NewLogger(observability.LogOptions{Level: level, Format: "text"})
	defer closer.Close()

	if err := run(context.Background(), logger, *dbPath, *tracksDir, *elNino, *debug); err != nil {
		logger.Error("import failed", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, dbPath, tracksDir, elNinoPath string, debug bool) error {
	st, err := cyclonedb.Open(dbPath, debug, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, b := range domain.AllBasins() {
		path, err := zfile.Resolve(filepath.Join(tracksDir, b.String()+".csv"))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		rc, err := zfile.Open(path)
		if err != nil {
			return err
		}
		tracks, err := cyclone.ReadTracks(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		rows, err := st.ImportBasin(ctx, filepath.Base(path), b, tracks)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logger.Info("imported basin", "basin", b.String(), "tracks", len(tracks), "fixes", rows)
	}

	if elNinoPath != "" {
		table, err := cyclone.NewLoader("", logger).LoadElNino(elNinoPath)
		if err != nil {
			return err
		}
		if err := st.ImportElNino(ctx, table); err != nil {
			return err
		}
		logger.Info("imported El Niño table", "years", len(table))
	}

	imports, err := st.Imports(ctx)
	if err != nil {
		return err
	}
	logger.Info("catalog ready", "path", dbPath, "sources", len(imports))
	return nil
}
