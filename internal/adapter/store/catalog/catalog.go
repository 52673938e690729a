// Package catalog loads every configured source into a dataset.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"go.ngs.io/climatology-api/internal/adapter/store"
	"go.ngs.io/climatology-api/internal/adapter/store/condensed"
	"go.ngs.io/climatology-api/internal/adapter/store/cyclone"
	"go.ngs.io/climatology-api/internal/adapter/store/cyclonedb"
	"go.ngs.io/climatology-api/internal/adapter/store/ncgrid"
	"go.ngs.io/climatology-api/internal/adapter/store/seadepth"
	"go.ngs.io/climatology-api/internal/domain"
)

// Loaders dispatches each source format to its loader.
type Loaders struct {
	Fields   map[store.Format]store.FieldLoader
	Currents store.CurrentLoader
	Wind     store.WindLoader
	Cyclones map[store.Format]store.CycloneLoader
}

// DefaultLoaders wires the file loaders for dataDir.
func DefaultLoaders(dataDir string, logger *slog.Logger) Loaders {
	nc := ncgrid.NewLoader(dataDir, logger)
	return Loaders{
		Fields: map[store.Format]store.FieldLoader{
			store.FormatNetCDF:    nc,
			store.FormatCondensed: condensed.NewLoader(dataDir),
			store.FormatGEBCO:     seadepth.NewLoader(dataDir, logger),
		},
		Currents: nc,
		Wind:     nc,
		Cyclones: map[store.Format]store.CycloneLoader{
			store.FormatCSV:    cyclone.NewLoader(dataDir, logger),
			store.FormatSQLite: cyclonedb.NewLoader(dataDir, logger),
		},
	}
}

// Options tunes Load.
type Options struct {
	// Concurrency bounds the sources read at once; zero means four.
	Concurrency int
}

type result struct {
	field    *domain.GriddedField
	wind     *domain.WindAtlas
	current  *domain.VectorField
	cyclones *domain.CycloneIndex
	err      error
}

// Load reads every source concurrently. A source that fails to load is
// recorded on the dataset and logged once; the others stay usable. The
// returned error is non-nil only if ctx ends the load.
func Load(ctx context.Context, sources map[domain.Variable]store.Source, loaders Loaders, logger *slog.Logger, opts Options) (*domain.Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}

	for v := range sources {
		if int(v) < 0 || int(v) >= domain.VariableCount {
			return nil, fmt.Errorf("%w: %d", domain.ErrUnknownVariable, int(v))
		}
	}

	// Each goroutine writes only its own slot.
	results := make([]result, domain.VariableCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for v, src := range sources {
		src.Variable = v
		g.Go(func() error {
			start := time.Now()
			r := loadOne(gctx, src, loaders)
			if err := gctx.Err(); err != nil {
				return err
			}
			if r.err == nil {
				logger.Info("loaded variable", "variable", v.String(), "format", string(src.Format), "duration", time.Since(start))
			}
			results[v] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := domain.NewDatasetBuilder()
	for _, v := range domain.AllVariables() {
		src, ok := sources[v]
		if !ok {
			continue
		}
		r := results[v]
		if r.err == nil {
			r.err = apply(b, v, r)
		}
		if r.err != nil {
			logger.Warn("variable failed to load", "variable", v.String(), "path", src.Path, "error", r.err)
			b.Fail(v, r.err)
		}
	}
	return b.Build(), nil
}

func loadOne(ctx context.Context, src store.Source, loaders Loaders) result {
	var r result
	switch src.Variable {
	case domain.Wind:
		if loaders.Wind == nil {
			return result{err: fmt.Errorf("no wind loader")}
		}
		r.wind, r.err = loaders.Wind.LoadWindAtlas(ctx, src)
	case domain.Current:
		if loaders.Currents == nil {
			return result{err: fmt.Errorf("no current loader")}
		}
		r.current, r.err = loaders.Currents.LoadCurrents(ctx, src)
	case domain.Cyclones:
		l, ok := loaders.Cyclones[src.Format]
		if !ok {
			return result{err: fmt.Errorf("no cyclone loader for format %q", src.Format)}
		}
		r.cyclones, r.err = l.LoadCyclones(ctx, src)
	default:
		l, ok := loaders.Fields[src.Format]
		if !ok {
			return result{err: fmt.Errorf("no field loader for format %q", src.Format)}
		}
		r.field, r.err = l.LoadField(ctx, src)
	}
	return r
}

func apply(b *domain.DatasetBuilder, v domain.Variable, r result) error {
	switch v {
	case domain.Wind:
		b.SetWindAtlas(r.wind)
	case domain.Current:
		b.SetCurrents(r.current)
	case domain.Cyclones:
		b.SetCyclones(r.cyclones)
	default:
		return b.SetField(v, r.field)
	}
	return nil
}
