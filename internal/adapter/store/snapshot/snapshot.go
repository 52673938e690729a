// Package snapshot saves a loaded dataset as msgpack compressed with zstd,
// so a server can start without re-reading and resampling every source.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"go.ngs.io/climatology-api/internal/domain"
)

// Version is bumped whenever the encoded layout changes.
const Version = 1

// ErrVersion is returned for snapshots written by another layout version.
var ErrVersion = errors.New("snapshot version mismatch")

type fieldRecord struct {
	Variable string            `msgpack:"variable"`
	Res      domain.Resolution `msgpack:"res"`
	Slices   [][]float32       `msgpack:"slices"`
}

type windRecord struct {
	Res      domain.Resolution `msgpack:"res"`
	DirCount int               `msgpack:"dir_count"`
	Slices   [][]domain.Polar  `msgpack:"slices"`
}

type currentRecord struct {
	Res        domain.Resolution `msgpack:"res"`
	Multiplier float64           `msgpack:"multiplier"`
	Slices     [][]domain.Vector `msgpack:"slices"`
}

type cycloneRecord struct {
	Tracks map[string][]domain.Cyclone `msgpack:"tracks"`
	ElNino map[int][12]float64         `msgpack:"elnino"`
}

type rawSnapshot struct {
	Version  int               `msgpack:"version"`
	Created  time.Time         `msgpack:"created"`
	Fields   []fieldRecord     `msgpack:"fields"`
	Wind     *windRecord       `msgpack:"wind"`
	Currents *currentRecord    `msgpack:"currents"`
	Cyclones *cycloneRecord    `msgpack:"cyclones"`
	Failures map[string]string `msgpack:"failures"`
}

// Save writes d to w.
func Save(w io.Writer, d *domain.Dataset, created time.Time) error {
	raw := rawSnapshot{Version: Version, Created: created.UTC(), Failures: make(map[string]string)}
	for _, v := range domain.AllVariables() {
		if f, ok := d.Field(v); ok {
			raw.Fields = append(raw.Fields, fieldRecord{Variable: v.String(), Res: f.Resolution(), Slices: f.Slices()})
		}
		if err := d.LoadError(v); err != nil {
			raw.Failures[v.String()] = err.Error()
		}
	}
	if a := d.WindAtlas(); a != nil {
		raw.Wind = &windRecord{Res: a.Resolution(), DirCount: a.DirectionCount(), Slices: a.Slices()}
	}
	if c := d.Currents(); c != nil {
		raw.Currents = &currentRecord{Res: c.Resolution(), Multiplier: c.Multiplier(), Slices: c.Slices()}
	}
	if x := d.Cyclones(); x != nil {
		rec := &cycloneRecord{Tracks: make(map[string][]domain.Cyclone)}
		for _, b := range domain.AllBasins() {
			if t := x.Tracks(b); len(t) > 0 {
				rec.Tracks[b.String()] = t
			}
		}
		if t := x.ElNino(); t != nil {
			rec.ElNino = make(map[int][12]float64, len(t))
			for year, y := range t {
				rec.ElNino[year] = y.Months
			}
		}
		raw.Cyclones = rec
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer zw.Close()

	if err := msgpack.NewEncoder(zw).Encode(&raw); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}
	return nil
}

// Info describes a decoded snapshot.
type Info struct {
	Created time.Time
}

// Load reads a dataset written by Save.
func Load(r io.Reader) (*domain.Dataset, Info, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var raw rawSnapshot
	if err := msgpack.NewDecoder(zr).Decode(&raw); err != nil {
		return nil, Info{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if raw.Version != Version {
		return nil, Info{}, fmt.Errorf("%w: got %d, want %d", ErrVersion, raw.Version, Version)
	}

	b := domain.NewDatasetBuilder()
	for _, rec := range raw.Fields {
		v, err := domain.ParseVariable(rec.Variable)
		if err != nil {
			return nil, Info{}, err
		}
		f, err := domain.NewGriddedField(rec.Res, rec.Slices)
		if err != nil {
			return nil, Info{}, fmt.Errorf("%s: %w", v, err)
		}
		if err := b.SetField(v, f); err != nil {
			return nil, Info{}, err
		}
	}
	if raw.Wind != nil {
		a, err := domain.NewWindAtlas(raw.Wind.Res, raw.Wind.DirCount, raw.Wind.Slices)
		if err != nil {
			return nil, Info{}, fmt.Errorf("wind: %w", err)
		}
		b.SetWindAtlas(a)
	}
	if raw.Currents != nil {
		c, err := domain.NewVectorField(raw.Currents.Res, raw.Currents.Multiplier, raw.Currents.Slices)
		if err != nil {
			return nil, Info{}, fmt.Errorf("current: %w", err)
		}
		b.SetCurrents(c)
	}
	if raw.Cyclones != nil {
		tracks := make(map[domain.Basin][]domain.Cyclone, len(raw.Cyclones.Tracks))
		for code, list := range raw.Cyclones.Tracks {
			basin, err := domain.ParseBasin(code)
			if err != nil {
				return nil, Info{}, err
			}
			tracks[basin] = list
		}
		var table domain.ElNinoTable
		if raw.Cyclones.ElNino != nil {
			table = make(domain.ElNinoTable, len(raw.Cyclones.ElNino))
			for year, months := range raw.Cyclones.ElNino {
				table[year] = domain.ElNinoYear{Months: months}
			}
		}
		x, err := domain.NewCycloneIndex(tracks, table)
		if err != nil {
			return nil, Info{}, fmt.Errorf("cyclones: %w", err)
		}
		b.SetCyclones(x)
	}
	for name, msg := range raw.Failures {
		v, err := domain.ParseVariable(name)
		if err != nil {
			return nil, Info{}, err
		}
		b.Fail(v, errors.New(msg))
	}
	return b.Build(), Info{Created: raw.Created}, nil
}

// SaveFile writes a snapshot to path atomically.
func SaveFile(path string, d *domain.Dataset, created time.Time) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := Save(f, d, created); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadFile reads a snapshot from path.
func LoadFile(path string) (*domain.Dataset, Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Info{}, err
	}
	defer f.Close()
	return Load(f)
}
