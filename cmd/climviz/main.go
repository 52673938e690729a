// Command climviz renders the isolines of one variable over an extent to a
// PNG, for checking a dataset without running the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"go.ngs.io/climatology-api/internal/adapter/store"
	"go.ngs.io/climatology-api/internal/adapter/store/catalog"
	"go.ngs.io/climatology-api/internal/adapter/store/snapshot"
	"go.ngs.io/climatology-api/internal/config"
	"go.ngs.io/climatology-api/internal/domain"
	"go.ngs.io/climatology-api/internal/isobar"
	"go.ngs.io/climatology-api/internal/observability"
	"go.ngs.io/climatology-api/internal/render"
	"go.ngs.io/climatology-api/internal/usecase"
)

type options struct {
	dataDir  string
	snapshot string
	variable string
	extent   string
	width    int
	height   int
	spacing  float64
	date     string
	units    string
	out      string
}

func main() {
	var o options
	flag.StringVar(&o.dataDir, "data", "./data", "Climatology data directory")
	flag.StringVar(&o.snapshot, "snapshot", "", "Read this snapshot instead of the sources")
	flag.StringVar(&o.variable, "variable", "pressure", "Variable to contour")
	flag.StringVar(&o.extent, "extent", "0,60,-80,0", "min_lat,max_lat,min_lon,max_lon")
	flag.IntVar(&o.width, "width", 1024, "Image width in pixels")
	flag.IntVar(&o.height, "height", 768, "Image height in pixels")
	flag.Float64Var(&o.spacing, "spacing", 0, "Level spacing (0 derives one from the display range)")
	flag.StringVar(&o.date, "date", "", "Date YYYY-MM-DD (empty renders the annual mean)")
	flag.StringVar(&o.units, "units", "", "Display units")
	flag.StringVar(&o.out, "out", "contours.png", "Output PNG")
	flag.Parse()

	logger, closer := observability.NewLogger(observability.LogOptions{Level: "info", Format: "text"})
	defer closer.Close()

	if err := run(logger, o); err != nil {
		logger.Error("render failed", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

func parseExtent(s string) (isobar.Extent, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return isobar.Extent{}, fmt.Errorf("extent needs four values, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return isobar.Extent{}, fmt.Errorf("invalid extent value %q: %w", p, err)
		}
		v[i] = f
	}
	return isobar.Extent{MinLat: v[0], MaxLat: v[1], MinLon: v[2], MaxLon: v[3]}, nil
}

func run(logger *slog.Logger, o options) error {
	ctx := context.Background()
	variable, err := domain.ParseVariable(o.variable)
	if err != nil {
		return err
	}
	extent, err := parseExtent(o.extent)
	if err != nil {
		return err
	}
	var date *time.Time
	if o.date != "" {
		t, err := time.Parse(time.DateOnly, o.date)
		if err != nil {
			return fmt.Errorf("invalid date: %w", err)
		}
		date = &t
	}

	var ds *domain.Dataset
	if o.snapshot != "" {
		if ds, _, err = snapshot.LoadFile(o.snapshot); err != nil {
			return err
		}
	} else {
		// Only the requested variable is read.
		src, ok := config.DefaultCatalog()[variable]
		if !ok {
			return fmt.Errorf("no source for %s", variable)
		}
		ds, err = catalog.Load(ctx, map[domain.Variable]store.Source{variable: src}, catalog.DefaultLoaders(o.dataDir, logger), logger, catalog.Options{})
		if err != nil {
			return err
		}
	}

	uc, err := usecase.NewClimatologyUseCase(ds, usecase.Options{Logger: logger})
	if err != nil {
		return err
	}
	resp, err := uc.Contours(ctx, usecase.ContourRequest{
		Variable: variable,
		Extent:   extent,
		WidthPx:  o.width,
		HeightPx: o.height,
		Spacing:  o.spacing,
		Date:     date,
		Units:    o.units,
	})
	if err != nil {
		return err
	}

	f, err := os.Create(o.out)
	if err != nil {
		return err
	}
	vp := isobar.Viewport{Extent: extent, WidthPx: o.width, HeightPx: o.height}
	if err := render.PNG(f, resp.Isobars, vp, render.DefaultStyle(render.LevelRange(resp.Isobars))); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("wrote contours", "path", o.out, "variable", resp.Variable, "units", resp.Units, "isobars", len(resp.Isobars), "spacing", resp.Spacing)
	return nil
}
