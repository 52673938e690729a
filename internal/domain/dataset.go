package domain

import (
	"fmt"
	"sort"
	"time"
)

// Dataset is the loaded climatology: one immutable value shared by every
// query. Build it with a DatasetBuilder.
type Dataset struct {
	scalars  map[Variable]*GriddedField
	wind     *WindAtlas
	current  *VectorField
	cyclones *CycloneIndex
	failures map[Variable]error
}

// DatasetBuilder collects variables during the load phase.
type DatasetBuilder struct {
	ds *Dataset
}

// NewDatasetBuilder returns an empty builder.
func NewDatasetBuilder() *DatasetBuilder {
	return &DatasetBuilder{ds: &Dataset{
		scalars:  make(map[Variable]*GriddedField),
		failures: make(map[Variable]error),
	}}
}

// SetField stores a scalar variable.
func (b *DatasetBuilder) SetField(v Variable, f *GriddedField) error {
	if !v.IsScalar() {
		return fmt.Errorf("%s is not a scalar variable", v)
	}
	if f == nil {
		return fmt.Errorf("nil field for %s", v)
	}
	b.ds.scalars[v] = f
	delete(b.ds.failures, v)
	return nil
}

// SetWindAtlas stores the wind atlas.
func (b *DatasetBuilder) SetWindAtlas(a *WindAtlas) {
	b.ds.wind = a
	delete(b.ds.failures, Wind)
}

// SetCurrents stores the ocean current field.
func (b *DatasetBuilder) SetCurrents(f *VectorField) {
	b.ds.current = f
	delete(b.ds.failures, Current)
}

// SetCyclones stores the cyclone index.
func (b *DatasetBuilder) SetCyclones(x *CycloneIndex) {
	b.ds.cyclones = x
	delete(b.ds.failures, Cyclones)
}

// Fail records a load failure. The variable answers missing for the rest of
// the session.
func (b *DatasetBuilder) Fail(v Variable, err error) {
	if err == nil {
		return
	}
	switch {
	case v == Wind:
		b.ds.wind = nil
	case v == Current:
		b.ds.current = nil
	case v == Cyclones:
		b.ds.cyclones = nil
	default:
		delete(b.ds.scalars, v)
	}
	b.ds.failures[v] = err
}

// Build returns the dataset. The builder must not be used afterwards.
func (b *DatasetBuilder) Build() *Dataset {
	ds := b.ds
	b.ds = nil
	return ds
}

// Available reports whether a variable loaded.
func (d *Dataset) Available(v Variable) bool {
	switch {
	case v == Wind:
		return d.wind != nil
	case v == Current:
		return d.current != nil
	case v == Cyclones:
		return d.cyclones != nil
	}
	_, ok := d.scalars[v]
	return ok
}

// LoadError returns the recorded load failure of a variable, if any.
func (d *Dataset) LoadError(v Variable) error {
	return d.failures[v]
}

// Failures returns the failed variables in display order.
func (d *Dataset) Failures() []Variable {
	out := make([]Variable, 0, len(d.failures))
	for v := range d.failures {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Field returns a scalar variable's grid.
func (d *Dataset) Field(v Variable) (*GriddedField, bool) {
	f, ok := d.scalars[v]
	return f, ok
}

// WindAtlas returns the wind atlas, or nil.
func (d *Dataset) WindAtlas() *WindAtlas {
	return d.wind
}

// Currents returns the ocean current field, or nil.
func (d *Dataset) Currents() *VectorField {
	return d.current
}

// Cyclones returns the cyclone index, or nil.
func (d *Dataset) Cyclones() *CycloneIndex {
	return d.cyclones
}

// Value reads a variable at a point and date in base units; a nil date
// selects the annual slice.
func (d *Dataset) Value(c Coord, v Variable, lat, lon float64, date *time.Time) (float64, bool) {
	return d.ValueAt(c, v, lat, lon, Locate(date))
}

// ValueMonth reads a single slice (0-11 or AnnualSlice) without blending.
func (d *Dataset) ValueMonth(c Coord, v Variable, lat, lon float64, month int) (float64, bool) {
	if month < 0 || month >= SliceCount {
		return 0, false
	}
	return d.ValueAt(c, v, lat, lon, MonthOnly(month))
}

// ValueAt reads a variable for an explicit interpolation.
func (d *Dataset) ValueAt(c Coord, v Variable, lat, lon float64, in Interpolation) (float64, bool) {
	switch {
	case v == Wind:
		if d.wind == nil {
			return 0, false
		}
		return d.wind.Value(c, lat, lon, in)
	case v == Current:
		if d.current == nil || !v.Supports(c) {
			return 0, false
		}
		return d.current.Value(c, lat, lon, in)
	case v.IsScalar():
		f, ok := d.scalars[v]
		if !ok || c != CoordMagnitude {
			return 0, false
		}
		return f.SampleAt(lat, lon, in)
	}
	return 0, false
}

// Sampler returns a point function for contour extraction. It reads missing
// everywhere when the variable is unavailable.
func (d *Dataset) Sampler(v Variable, c Coord, in Interpolation) func(lat, lon float64) (float64, bool) {
	return func(lat, lon float64) (float64, bool) {
		return d.ValueAt(c, v, lat, lon, in)
	}
}

// WindAtlasAt returns the interpolated wind distribution at a point.
func (d *Dataset) WindAtlasAt(lat, lon float64, date *time.Time) (Polar, bool) {
	if d.wind == nil {
		return MissingPolar(), false
	}
	return d.wind.At(lat, lon, date)
}
