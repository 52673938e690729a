package domain

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Basin is an ocean region grouping cyclone tracks.
type Basin int

const (
	WestPacific Basin = iota
	EastPacific
	SouthPacific
	Atlantic
	SouthIndian
	NorthIndian
)

// BasinCount is the number of basins.
const BasinCount = int(NorthIndian) + 1

var basinCodes = [...]string{"wpa", "epa", "spa", "atl", "she", "nio"}

// AllBasins lists every basin.
func AllBasins() []Basin {
	out := make([]Basin, BasinCount)
	for i := range out {
		out[i] = Basin(i)
	}
	return out
}

func (b Basin) String() string {
	if b < 0 || int(b) >= len(basinCodes) {
		return fmt.Sprintf("basin(%d)", int(b))
	}
	return basinCodes[b]
}

// ParseBasin parses a basin code such as "atl".
func ParseBasin(s string) (Basin, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, c := range basinCodes {
		if s == c {
			return Basin(i), nil
		}
	}
	return 0, fmt.Errorf("unknown basin %q", s)
}

// StateKind classifies a cyclone state.
type StateKind int

const (
	Tropical StateKind = iota
	Subtropical
	Extratropical
	Wave
	Remnant
	UnknownKind
)

var kindNames = [...]string{"tropical", "subtropical", "extratropical", "wave", "remnant", "unknown"}

func (k StateKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[UnknownKind]
	}
	return kindNames[k]
}

// ParseStateKind maps a name or a best-track status code to a kind. Anything
// unrecognised is UnknownKind.
func ParseStateKind(s string) StateKind {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TROPICAL", "TD", "TS", "HU", "TY", "ST", "TC":
		return Tropical
	case "SUBTROPICAL", "SD", "SS":
		return Subtropical
	case "EXTRATROPICAL", "EX", "ET":
		return Extratropical
	case "WAVE", "WV", "DB", "LO":
		return Wave
	case "REMNANT", "REMANENT", "RM":
		return Remnant
	}
	return UnknownKind
}

// Timestamp is a compact calendar stamp. Month is 1-12.
type Timestamp struct {
	Year  int
	Month int
	Day   int
	Hour  int
}

// TimestampOf takes the calendar fields of t in its own location.
func TimestampOf(t time.Time) Timestamp {
	y, m, d := t.Date()
	return Timestamp{Year: y, Month: int(m), Day: d, Hour: t.Hour()}
}

// Time converts the stamp to a UTC time.
func (t Timestamp) Time() time.Time {
	return time.Date(t.Year, time.Month(t.Month), t.Day, t.Hour, 0, 0, 0, time.UTC)
}

// Compare returns -1, 0 or +1 as t is before, equal to or after o.
func (t Timestamp) Compare(o Timestamp) int {
	a := [4]int{t.Year, t.Month, t.Day, t.Hour}
	b := [4]int{o.Year, o.Month, o.Day, o.Hour}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// Before reports whether t is strictly before o.
func (t Timestamp) Before(o Timestamp) bool {
	return t.Compare(o) < 0
}

// DayOfYear returns the one-based day of the climatological year.
func (t Timestamp) DayOfYear() int {
	return DayOfYear(t.Month, t.Day)
}

// Validate checks the calendar fields.
func (t Timestamp) Validate() error {
	if t.Month < 1 || t.Month > 12 {
		return fmt.Errorf("month %d out of range", t.Month)
	}
	if t.Day < 1 || t.Day > DaysIn(t.Year, t.Month) {
		return fmt.Errorf("day %d out of range for %04d-%02d", t.Day, t.Year, t.Month)
	}
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("hour %d out of range", t.Hour)
	}
	return nil
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d", t.Year, t.Month, t.Day, t.Hour)
}

// CycloneState is one best-track fix.
type CycloneState struct {
	Kind       StateKind
	Time       Timestamp
	Lat        float64
	Lon        float64
	WindKnots  float64
	PressureMb float64
}

// Cyclone is one storm track with states in ascending time order.
type Cyclone struct {
	ID     string
	Name   string
	States []CycloneState
}

// Validate checks that the track has states in strictly ascending order.
func (c *Cyclone) Validate() error {
	if len(c.States) == 0 {
		return fmt.Errorf("%w: %s has no states", ErrInvalidTrack, c.ID)
	}
	for i, s := range c.States {
		if err := s.Time.Validate(); err != nil {
			return fmt.Errorf("%w: %s state %d: %v", ErrInvalidTrack, c.ID, i, err)
		}
		if i > 0 && !c.States[i-1].Time.Before(s.Time) {
			return fmt.Errorf("%w: %s state %d at %s is not after %s", ErrInvalidTrack, c.ID, i, s.Time, c.States[i-1].Time)
		}
	}
	return nil
}

// CycloneIndex holds historical tracks by basin. It is read-only once built.
type CycloneIndex struct {
	tracks [BasinCount][]Cyclone
	elNino ElNinoTable
}

// NewCycloneIndex validates every track.
func NewCycloneIndex(tracks map[Basin][]Cyclone, elNino ElNinoTable) (*CycloneIndex, error) {
	idx := &CycloneIndex{elNino: elNino}
	for b, list := range tracks {
		if b < 0 || int(b) >= BasinCount {
			return nil, fmt.Errorf("unknown basin %d", int(b))
		}
		for i := range list {
			if err := list[i].Validate(); err != nil {
				return nil, fmt.Errorf("basin %s: %w", b, err)
			}
		}
		idx.tracks[b] = list
	}
	return idx, nil
}

// Tracks returns the tracks of a basin. Callers must not modify them.
func (x *CycloneIndex) Tracks(b Basin) []Cyclone {
	if b < 0 || int(b) >= BasinCount {
		return nil
	}
	return x.tracks[b]
}

// ElNino returns the ENSO table the index filters with.
func (x *CycloneIndex) ElNino() ElNinoTable {
	return x.elNino
}

// CrossingQuery describes a route segment and the filters of a crossing
// count. An empty Basins list means every basin.
type CrossingQuery struct {
	Lat1, Lon1   float64
	Lat2, Lon2   float64
	Date         Timestamp
	DayRange     int
	MinWindKnots float64
	Since        Timestamp
	Basins       []Basin
	ElNino       *ElNinoFilter
}

func (q *CrossingQuery) basins() []Basin {
	return UniqueBasins(q.Basins)
}

// UniqueBasins drops repeated basins, keeping first-seen order. An empty
// list means every basin.
func UniqueBasins(basins []Basin) []Basin {
	if len(basins) == 0 {
		return AllBasins()
	}
	var seen [BasinCount]bool
	out := make([]Basin, 0, len(basins))
	for _, b := range basins {
		if b >= 0 && int(b) < BasinCount {
			if seen[b] {
				continue
			}
			seen[b] = true
		}
		out = append(out, b)
	}
	return out
}

// CountCrossings counts track segments that cross the query segment. A
// segment counts when either end reaches MinWindKnots and its later state
// falls within DayRange days of Date's day of year, on or after Since.
func (x *CycloneIndex) CountCrossings(q CrossingQuery) int {
	n, _ := x.CountCrossingsContext(context.Background(), q)
	return n
}

// CountCrossingsContext is CountCrossings checking ctx between tracks.
func (x *CycloneIndex) CountCrossingsContext(ctx context.Context, q CrossingQuery) (int, error) {
	total := 0
	for _, b := range q.basins() {
		n, err := x.CountBasinCrossings(ctx, b, q)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// CountBasinCrossings counts crossings for a single basin.
func (x *CycloneIndex) CountBasinCrossings(ctx context.Context, b Basin, q CrossingQuery) (int, error) {
	seg, ok := newQuerySegment(q.Lat1, q.Lon1, q.Lat2, q.Lon2)
	if !ok {
		return 0, nil
	}
	doy := q.Date.DayOfYear()

	count := 0
	for _, track := range x.Tracks(b) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		states := track.States
		for i := 1; i < len(states); i++ {
			s1, s2 := &states[i-1], &states[i]
			if s1.WindKnots < q.MinWindKnots && s2.WindKnots < q.MinWindKnots {
				continue
			}
			if DayDistance(s2.Time.DayOfYear(), doy) > q.DayRange {
				continue
			}
			if s2.Time.Before(q.Since) {
				continue
			}
			if q.ElNino != nil && !q.ElNino.Accept(x.elNino, s2.Time.Year, s2.Time.Month) {
				continue
			}
			if seg.crosses(s1.Lat, s1.Lon, s2.Lat, s2.Lon) {
				count++
			}
		}
	}
	return count, nil
}

// YearsCovered returns the number of calendar years spanned by the tracks of
// the given basins, starting no earlier than since.
func (x *CycloneIndex) YearsCovered(basins []Basin, since Timestamp) int {
	basins = UniqueBasins(basins)
	first, last := math.MaxInt, math.MinInt
	for _, b := range basins {
		for _, t := range x.Tracks(b) {
			if t.States[0].Time.Year < first {
				first = t.States[0].Time.Year
			}
			if y := t.States[len(t.States)-1].Time.Year; y > last {
				last = y
			}
		}
	}
	if last == math.MinInt {
		return 0
	}
	if since.Year > first {
		first = since.Year
	}
	if last < first {
		return 0
	}
	return last - first + 1
}

// Frequency normalises a crossing count into crossings per year.
func Frequency(count, years int) float64 {
	if years <= 0 {
		return 0
	}
	return float64(count) / float64(years)
}

type point struct{ x, y float64 }

// querySegment is a route segment with longitudes unwrapped around its
// midpoint, so that both endpoint orders produce the same frame.
type querySegment struct {
	a, b point
	mid  float64
}

func newQuerySegment(lat1, lon1, lat2, lon2 float64) (querySegment, bool) {
	// Endpoints 180 degrees apart have two shortest frames; a fixed endpoint
	// order picks the same one for either argument order.
	n1, n2 := NormalizeLon(lon1), NormalizeLon(lon2)
	if n2 < n1 || (n2 == n1 && lat2 < lat1) {
		lat1, lon1, lat2, lon2 = lat2, lon2, lat1, lon1
	}
	d := wrap180(lon2 - lon1)
	if lat1 == lat2 && d == 0 {
		return querySegment{}, false
	}
	mid := NormalizeLon(lon1 + d/2)
	a := point{x: mid + wrap180(lon1-mid), y: lat1}
	b := point{x: mid + wrap180(lon2-mid), y: lat2}
	return querySegment{a: a, b: b, mid: mid}, true
}

// crosses unwraps a track segment into the query frame and tests it.
func (s querySegment) crosses(lat1, lon1, lat2, lon2 float64) bool {
	x1 := s.mid + wrap180(lon1-s.mid)
	x2 := x1 + wrap180(lon2-lon1)
	return segmentsIntersect(s.a, s.b, point{x: x1, y: lat1}, point{x: x2, y: lat2})
}

// wrap180 wraps a longitude difference into [-180, 180).
func wrap180(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}

func orientation(p, q, r point) int {
	v := (q.x-p.x)*(r.y-p.y) - (q.y-p.y)*(r.x-p.x)
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func onSegment(p, q, r point) bool {
	return math.Min(p.x, r.x) <= q.x && q.x <= math.Max(p.x, r.x) &&
		math.Min(p.y, r.y) <= q.y && q.y <= math.Max(p.y, r.y)
}

// segmentsIntersect reports whether p1p2 and q1q2 share a point.
func segmentsIntersect(p1, p2, q1, q2 point) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}
	switch {
	case o1 == 0 && onSegment(p1, q1, p2):
		return true
	case o2 == 0 && onSegment(p1, q2, p2):
		return true
	case o3 == 0 && onSegment(q1, p1, q2):
		return true
	case o4 == 0 && onSegment(q1, p2, q2):
		return true
	}
	return false
}
