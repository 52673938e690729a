// Package cyclonedb keeps the cyclone track catalog in SQLite.
package cyclonedb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"go.ngs.io/climatology-api/internal/adapter/store"
	"go.ngs.io/climatology-api/internal/domain"
)

// ImportModel records an imported source file so it is imported once.
type ImportModel struct {
	gorm.Model
	Source string `gorm:"index;unique"`
	Rows   int64
}

// TrackModel is one storm.
type TrackModel struct {
	ID    string `gorm:"primaryKey"`
	Basin string `gorm:"index"`
	Name  string
}

// FixModel is one best-track fix. Unknown wind or pressure is NULL.
type FixModel struct {
	TrackID    string `gorm:"primaryKey"`
	Year       int    `gorm:"primaryKey"`
	Month      int    `gorm:"primaryKey"`
	Day        int    `gorm:"primaryKey"`
	Hour       int    `gorm:"primaryKey"`
	Lat        float64
	Lon        float64
	WindKt     *float64
	PressureMb *float64
	Kind       string
}

// ElNinoModel is one monthly ENSO index.
type ElNinoModel struct {
	Year  int `gorm:"primaryKey"`
	Month int `gorm:"primaryKey"`
	Index float64
}

// Store wraps the catalog database.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open opens or creates the catalog at path and migrates its schema.
func Open(path string, debug bool, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	logMode := logger.Silent
	if debug {
		logMode = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&ImportModel{}, &TrackModel{}, &FixModel{}, &ElNinoModel{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return &Store{db: db, logger: log}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Imported reports whether source has already been imported.
func (s *Store) Imported(ctx context.Context, source string) (bool, error) {
	var rec ImportModel
	err := s.db.WithContext(ctx).Where("source = ?", source).First(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Imports lists the imported sources.
func (s *Store) Imports(ctx context.Context) ([]ImportModel, error) {
	var out []ImportModel
	err := s.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

// ImportBasin stores the tracks of one basin in a single transaction. A
// source already imported is skipped and reports zero rows.
func (s *Store) ImportBasin(ctx context.Context, source string, b domain.Basin, tracks []domain.Cyclone) (int64, error) {
	done, err := s.Imported(ctx, source)
	if err != nil || done {
		return 0, err
	}

	models := make([]TrackModel, 0, len(tracks))
	var fixes []FixModel
	for _, c := range tracks {
		if err := c.Validate(); err != nil {
			return 0, err
		}
		models = append(models, TrackModel{ID: c.ID, Basin: b.String(), Name: c.Name})
		for _, st := range c.States {
			fixes = append(fixes, FixModel{
				TrackID:    c.ID,
				Year:       st.Time.Year,
				Month:      st.Time.Month,
				Day:        st.Time.Day,
				Hour:       st.Time.Hour,
				Lat:        st.Lat,
				Lon:        st.Lon,
				WindKt:     nullable(st.WindKnots),
				PressureMb: nullable(st.PressureMb),
				Kind:       st.Kind.String(),
			})
		}
	}

	var rows int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(models) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(models, 500).Error; err != nil {
				return err
			}
		}
		if len(fixes) > 0 {
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(fixes, 2_000)
			if result.Error != nil {
				return result.Error
			}
			rows = result.RowsAffected
		}
		return tx.Create(&ImportModel{Source: source, Rows: rows}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", source, err)
	}
	s.logger.Info("import complete", "source", source, "basin", b.String(), "tracks", len(models), "fixes", rows)
	return rows, nil
}

// ImportElNino replaces the stored ENSO indices with table.
func (s *Store) ImportElNino(ctx context.Context, table domain.ElNinoTable) error {
	var rows []ElNinoModel
	for year, y := range table {
		for m, v := range y.Months {
			if !math.IsNaN(v) {
				rows = append(rows, ElNinoModel{Year: year, Month: m + 1, Index: v})
			}
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&ElNinoModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 1_000).Error
	})
}

// Cyclones reads the whole catalog into an index.
func (s *Store) Cyclones(ctx context.Context) (*domain.CycloneIndex, error) {
	db := s.db.WithContext(ctx)

	var tracks []TrackModel
	if err := db.Order("basin, id").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("read tracks: %w", err)
	}
	var fixes []FixModel
	if err := db.Order("track_id, year, month, day, hour").Find(&fixes).Error; err != nil {
		return nil, fmt.Errorf("read fixes: %w", err)
	}

	states := make(map[string][]domain.CycloneState, len(tracks))
	for _, f := range fixes {
		states[f.TrackID] = append(states[f.TrackID], domain.CycloneState{
			Kind:       domain.ParseStateKind(f.Kind),
			Time:       domain.Timestamp{Year: f.Year, Month: f.Month, Day: f.Day, Hour: f.Hour},
			Lat:        f.Lat,
			Lon:        f.Lon,
			WindKnots:  value(f.WindKt),
			PressureMb: value(f.PressureMb),
		})
	}

	byBasin := make(map[domain.Basin][]domain.Cyclone)
	for _, t := range tracks {
		b, err := domain.ParseBasin(t.Basin)
		if err != nil {
			return nil, fmt.Errorf("track %s: %w", t.ID, err)
		}
		st := states[t.ID]
		if len(st) == 0 {
			s.logger.Warn("track without fixes", "track", t.ID)
			continue
		}
		byBasin[b] = append(byBasin[b], domain.Cyclone{ID: t.ID, Name: t.Name, States: st})
	}

	var enso []ElNinoModel
	if err := db.Find(&enso).Error; err != nil {
		return nil, fmt.Errorf("read el niño: %w", err)
	}
	var table domain.ElNinoTable
	if len(enso) > 0 {
		table = make(domain.ElNinoTable)
		for _, e := range enso {
			y, ok := table[e.Year]
			if !ok {
				for m := range y.Months {
					y.Months[m] = math.NaN()
				}
			}
			if e.Month >= 1 && e.Month <= domain.MonthCount {
				y.Months[e.Month-1] = e.Index
			}
			table[e.Year] = y
		}
	}
	return domain.NewCycloneIndex(byBasin, table)
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// Loader opens the catalog named by a source for each load.
type Loader struct {
	dataDir string
	logger  *slog.Logger
}

// NewLoader creates a catalog loader.
func NewLoader(dataDir string, logger *slog.Logger) *Loader {
	return &Loader{dataDir: dataDir, logger: logger}
}

// LoadCyclones implements store.CycloneLoader.
func (l *Loader) LoadCyclones(ctx context.Context, src store.Source) (*domain.CycloneIndex, error) {
	path := src.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.dataDir, path)
	}
	s, err := Open(path, false, l.logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()
	return s.Cyclones(ctx)
}

var _ store.CycloneLoader = (*Loader)(nil)
