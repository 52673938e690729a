// Package condensed reads and writes the condensed byte grid used for
// precipitation: 13 slices of latCount x lonCount bytes, time-major then
// row-major (rows south to north, columns eastwards from the lattice
// origin). Byte 255 is missing; any other byte b is b/5 in base units.
//
// Legacy files hold only the twelve monthly slices in the CMAP source
// order, rows north to south. Decode recognises them by size and flips
// their rows.
package condensed

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"

	"go.ngs.io/climatology-api/internal/adapter/store"
	"go.ngs.io/climatology-api/internal/adapter/store/zfile"
	"go.ngs.io/climatology-api/internal/domain"
)

const (
	// Missing marks a missing sample.
	Missing byte = 255
	// Scale is the number of byte steps per base unit.
	Scale = 5
	// MaxValue is the largest encodable value.
	MaxValue = float64(Missing-1) / Scale
)

// EncodeValue quantises v to the nearest 1/Scale step. NaN and negative
// values encode as Missing; values above MaxValue saturate.
func EncodeValue(v float64) byte {
	if math.IsNaN(v) || v < 0 {
		return Missing
	}
	q := math.Round(v * Scale)
	if q > float64(Missing-1) {
		q = float64(Missing - 1)
	}
	return byte(q)
}

// Encode writes a field's slices. Twelve monthly slices are completed with
// their annual mean so the output always holds SliceCount slices.
func Encode(w io.Writer, res domain.Resolution, slices [][]float32) error {
	switch len(slices) {
	case domain.MonthCount:
		annual, err := domain.AnnualMean(slices)
		if err != nil {
			return err
		}
		slices = append(slices[:domain.MonthCount:domain.MonthCount], annual)
	case domain.SliceCount:
	default:
		return fmt.Errorf("condensed grid needs %d or %d slices, got %d", domain.MonthCount, domain.SliceCount, len(slices))
	}

	buf := make([]byte, res.Cells())
	for s, slice := range slices {
		if len(slice) != res.Cells() {
			return fmt.Errorf("slice %d has %d cells, expected %d", s, len(slice), res.Cells())
		}
		for i, v := range slice {
			buf[i] = EncodeValue(float64(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("failed to write slice %d: %w", s, err)
		}
	}
	return nil
}

// Decode reads a condensed grid for res. A legacy stream holding only the
// twelve monthly slices is reordered south to north and its annual slice
// derived.
func Decode(r io.Reader, res domain.Resolution) (*domain.GriddedField, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read condensed grid: %w", err)
	}
	cells := res.Cells()
	var n int
	switch len(raw) {
	case domain.SliceCount * cells:
		n = domain.SliceCount
	case domain.MonthCount * cells:
		n = domain.MonthCount
	default:
		return nil, fmt.Errorf("condensed grid is %d bytes, expected %d or %d for %dx%d",
			len(raw), domain.SliceCount*cells, domain.MonthCount*cells, res.LatCount, res.LonCount)
	}

	if n == domain.MonthCount {
		flipRows(raw, res)
	}
	slices := make([][]float32, n)
	for s := range slices {
		slices[s] = domain.DecodeBytes(raw[s*cells:(s+1)*cells], 1.0/Scale, Missing)
	}
	return domain.NewGriddedField(res, slices)
}

// flipRows reverses the row order of every slice in place.
func flipRows(raw []byte, res domain.Resolution) {
	w := res.LonCount
	tmp := make([]byte, w)
	for base := 0; base < len(raw); base += res.Cells() {
		for top, bottom := 0, res.LatCount-1; top < bottom; top, bottom = top+1, bottom-1 {
			a := raw[base+top*w : base+(top+1)*w]
			b := raw[base+bottom*w : base+(bottom+1)*w]
			copy(tmp, a)
			copy(a, b)
			copy(b, tmp)
		}
	}
}

// Loader loads condensed grids, optionally compressed.
type Loader struct {
	dataDir string
}

// NewLoader creates a condensed grid loader.
func NewLoader(dataDir string) *Loader {
	return &Loader{dataDir: dataDir}
}

// LoadField implements store.FieldLoader.
func (l *Loader) LoadField(ctx context.Context, src store.Source) (*domain.GriddedField, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := src.Resolution()
	if err != nil {
		return nil, err
	}
	path := src.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.dataDir, path)
	}
	path, err = zfile.Resolve(path)
	if err != nil {
		return nil, err
	}
	rc, err := zfile.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	f, err := Decode(rc, res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Variable, err)
	}
	return f, nil
}

var _ store.FieldLoader = (*Loader)(nil)
