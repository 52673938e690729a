// Package cyclone loads historical cyclone tracks and the El Niño index
// from CSV files, one track file per basin.
package cyclone

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.ngs.io/climatology-api/internal/adapter/store"
	"go.ngs.io/climatology-api/internal/adapter/store/zfile"
	"go.ngs.io/climatology-api/internal/domain"
)

// TrackHeader is the expected header of a track file.
var TrackHeader = []string{"id", "name", "time", "lat", "lon", "wind_kt", "pressure_mb", "kind"}

var timeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006010215",
}

// ParseTime parses a fix time in any of the accepted layouts.
func ParseTime(s string) (domain.Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.TimestampOf(t.UTC()), nil
		}
	}
	return domain.Timestamp{}, fmt.Errorf("unrecognised time %q", s)
}

// ReadTracks parses a track file. Rows of one storm share an id; they need
// not be contiguous or sorted. Repeated fixes at the same hour keep the
// first row.
func ReadTracks(r io.Reader) ([]domain.Cyclone, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) != len(TrackHeader) {
		return nil, fmt.Errorf("invalid CSV header: expected %v, got %v", TrackHeader, header)
	}
	for i, h := range header {
		if strings.TrimSpace(h) != TrackHeader[i] {
			return nil, fmt.Errorf("invalid CSV header: expected column %d to be %s, got %s", i, TrackHeader[i], h)
		}
	}

	byID := make(map[string]int)
	var tracks []domain.Cyclone
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		state, err := parseState(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		id := strings.TrimSpace(record[0])
		k, ok := byID[id]
		if !ok {
			k = len(tracks)
			byID[id] = k
			tracks = append(tracks, domain.Cyclone{ID: id, Name: strings.TrimSpace(record[1])})
		}
		tracks[k].States = append(tracks[k].States, state)
	}

	for i := range tracks {
		tracks[i].States = sortStates(tracks[i].States)
	}
	return tracks, nil
}

func parseState(record []string) (domain.CycloneState, error) {
	var s domain.CycloneState
	var err error
	if s.Time, err = ParseTime(record[2]); err != nil {
		return s, err
	}
	if s.Lat, err = parseFloat(record[3], false); err != nil {
		return s, fmt.Errorf("invalid lat: %w", err)
	}
	if s.Lon, err = parseFloat(record[4], false); err != nil {
		return s, fmt.Errorf("invalid lon: %w", err)
	}
	if s.Lat < -90 || s.Lat > 90 {
		return s, fmt.Errorf("lat %.2f out of range", s.Lat)
	}
	if s.WindKnots, err = parseFloat(record[5], true); err != nil {
		return s, fmt.Errorf("invalid wind: %w", err)
	}
	if s.PressureMb, err = parseFloat(record[6], true); err != nil {
		return s, fmt.Errorf("invalid pressure: %w", err)
	}
	s.Kind = domain.ParseStateKind(record[7])
	return s, nil
}

// parseFloat parses a number. Optional fields may be blank or negative
// (best-track files use -999), which reads as NaN.
func parseFloat(s string, optional bool) (float64, error) {
	s = strings.TrimSpace(s)
	if optional && s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if optional && v < 0 {
		return math.NaN(), nil
	}
	return v, nil
}

func sortStates(states []domain.CycloneState) []domain.CycloneState {
	sort.SliceStable(states, func(i, j int) bool { return states[i].Time.Before(states[j].Time) })
	out := states[:0]
	for i, s := range states {
		if i > 0 && s.Time == out[len(out)-1].Time {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ReadElNino parses a "year,jan,...,dec" table. Blank cells and values at
// or below -99 are missing.
func ReadElNino(r io.Reader) (domain.ElNinoTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	reader.FieldsPerRecord = 1 + domain.MonthCount

	table := make(domain.ElNinoTable)
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		year, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: invalid year %q", line, record[0])
		}
		var y domain.ElNinoYear
		for m := 0; m < domain.MonthCount; m++ {
			cell := strings.TrimSpace(record[1+m])
			y.Months[m] = math.NaN()
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d month %d: %w", line, m+1, err)
			}
			if v > -99 {
				y.Months[m] = v
			}
		}
		table[year] = y
	}
	return table, nil
}

// Loader reads a directory holding <basin>.csv files (optionally .gz or
// .zst compressed). Basins without a file have no tracks.
type Loader struct {
	dataDir string
	logger  *slog.Logger
}

// NewLoader creates a CSV cyclone loader.
func NewLoader(dataDir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{dataDir: dataDir, logger: logger}
}

func (l *Loader) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.dataDir, p)
}

// ReadBasins reads every basin file under dir.
func (l *Loader) ReadBasins(ctx context.Context, dir string) (map[domain.Basin][]domain.Cyclone, error) {
	tracks := make(map[domain.Basin][]domain.Cyclone)
	for _, b := range domain.AllBasins() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := zfile.Resolve(filepath.Join(l.path(dir), b.String()+".csv"))
		if errors.Is(err, os.ErrNotExist) {
			l.logger.Debug("no track file for basin", "basin", b.String(), "dir", dir)
			continue
		}
		if err != nil {
			return nil, err
		}
		list, err := readTrackFile(path)
		if err != nil {
			return nil, fmt.Errorf("basin %s: %w", b, err)
		}
		tracks[b] = list
	}
	return tracks, nil
}

// LoadCyclones implements store.CycloneLoader.
func (l *Loader) LoadCyclones(ctx context.Context, src store.Source) (*domain.CycloneIndex, error) {
	tracks, err := l.ReadBasins(ctx, src.Path)
	if err != nil {
		return nil, err
	}
	var elNino domain.ElNinoTable
	if src.ElNinoPath != "" {
		if elNino, err = l.LoadElNino(src.ElNinoPath); err != nil {
			return nil, err
		}
	}
	total := 0
	for _, list := range tracks {
		total += len(list)
	}
	l.logger.Info("loaded cyclone tracks", "dir", src.Path, "basins", len(tracks), "tracks", total, "elnino_years", len(elNino))
	return domain.NewCycloneIndex(tracks, elNino)
}

// LoadElNino reads the El Niño table at path.
func (l *Loader) LoadElNino(path string) (domain.ElNinoTable, error) {
	rc, err := zfile.Open(l.path(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open El Niño table: %w", err)
	}
	defer rc.Close()
	return ReadElNino(rc)
}

func readTrackFile(path string) ([]domain.Cyclone, error) {
	rc, err := zfile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer rc.Close()
	return ReadTracks(rc)
}

var _ store.CycloneLoader = (*Loader)(nil)
