package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func state(y, m, d, h int, lat, lon, wind float64) CycloneState {
	return CycloneState{
		Kind:      Tropical,
		Time:      Timestamp{Year: y, Month: m, Day: d, Hour: h},
		Lat:       lat,
		Lon:       lon,
		WindKnots: wind,
	}
}

// crossingTrack passes eastwards through lat 15 between lon -65 and -55.
func crossingTrack(id string, y, m, d int, wind float64) Cyclone {
	return Cyclone{ID: id, States: []CycloneState{
		state(y, m, d, 0, 15, -65, wind),
		state(y, m, d, 12, 15, -55, wind),
	}}
}

func atlanticIndex(t *testing.T, tracks ...Cyclone) *CycloneIndex {
	t.Helper()
	idx, err := NewCycloneIndex(map[Basin][]Cyclone{Atlantic: tracks}, nil)
	require.NoError(t, err)
	return idx
}

func routeQuery() CrossingQuery {
	return CrossingQuery{
		Lat1: 10, Lon1: -60,
		Lat2: 20, Lon2: -60,
		Date:         Timestamp{Year: 2024, Month: 9, Day: 5},
		DayRange:     15,
		MinWindKnots: 34,
		Since:        Timestamp{Year: 1950, Month: 1, Day: 1},
	}
}

func TestCountCrossings_DayRangeFilter(t *testing.T) {
	idx := atlanticIndex(t,
		crossingTrack("AL011990", 1990, 9, 1, 80),
		crossingTrack("AL021990", 1990, 3, 1, 80),
	)

	assert.Equal(t, 1, idx.CountCrossings(routeQuery()))
}

func TestCountCrossings_Symmetric(t *testing.T) {
	idx := atlanticIndex(t,
		crossingTrack("AL011990", 1990, 9, 1, 80),
		crossingTrack("AL021991", 1991, 9, 10, 60),
	)

	q := routeQuery()
	swapped := q
	swapped.Lat1, swapped.Lon1, swapped.Lat2, swapped.Lon2 = q.Lat2, q.Lon2, q.Lat1, q.Lon1

	assert.Equal(t, 2, idx.CountCrossings(q))
	assert.Equal(t, idx.CountCrossings(q), idx.CountCrossings(swapped))
}

func TestCountCrossings_SymmetricHalfGlobeApart(t *testing.T) {
	northwards := func(id string, lon float64) Cyclone {
		return Cyclone{ID: id, States: []CycloneState{
			state(1990, 9, 1, 0, 5, lon, 80),
			state(1990, 9, 1, 12, 15, lon, 80),
		}}
	}
	idx := atlanticIndex(t, northwards("AL011990", 90), northwards("AL021990", 270))

	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
	}{
		{"same latitude", 10, 0, 10, 180},
		{"different latitudes", 8, 0, 12, 180},
		{"signed longitudes", 10, -180, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := routeQuery()
			q.Lat1, q.Lon1, q.Lat2, q.Lon2 = tt.lat1, tt.lon1, tt.lat2, tt.lon2
			swapped := q
			swapped.Lat1, swapped.Lon1, swapped.Lat2, swapped.Lon2 = q.Lat2, q.Lon2, q.Lat1, q.Lon1

			forward := idx.CountCrossings(q)
			assert.Equal(t, 1, forward, "one half of the globe is crossed")
			assert.Equal(t, forward, idx.CountCrossings(swapped))
		})
	}
}

func TestCountCrossings_RepeatedBasin(t *testing.T) {
	idx := atlanticIndex(t, crossingTrack("AL011990", 1990, 9, 1, 80))

	q := routeQuery()
	q.Basins = []Basin{Atlantic}
	require.Equal(t, 1, idx.CountCrossings(q))

	q.Basins = []Basin{Atlantic, Atlantic}
	assert.Equal(t, 1, idx.CountCrossings(q))
	assert.Equal(t, 1, idx.YearsCovered(q.Basins, q.Since))
}

func TestUniqueBasins(t *testing.T) {
	assert.Equal(t, AllBasins(), UniqueBasins(nil))
	assert.Equal(t, []Basin{Atlantic, WestPacific}, UniqueBasins([]Basin{Atlantic, WestPacific, Atlantic}))
}

func TestCountCrossings_ZeroLengthQuery(t *testing.T) {
	idx := atlanticIndex(t, crossingTrack("AL011990", 1990, 9, 1, 80))

	q := routeQuery()
	q.Lat1, q.Lon1, q.Lat2, q.Lon2 = 15, -60, 15, -60
	assert.Zero(t, idx.CountCrossings(q), "a point on the track is not a crossing")

	q.Lon2 = 300
	assert.Zero(t, idx.CountCrossings(q), "the same point written in 0-360")
}

func TestCountCrossings_SingleStateTrack(t *testing.T) {
	idx := atlanticIndex(t, Cyclone{ID: "AL031990", States: []CycloneState{
		state(1990, 9, 1, 0, 15, -60, 100),
	}})

	assert.Zero(t, idx.CountCrossings(routeQuery()))
}

func TestCountCrossings_WindThreshold(t *testing.T) {
	weak := crossingTrack("AL011990", 1990, 9, 1, 20)
	idx := atlanticIndex(t, weak)
	assert.Zero(t, idx.CountCrossings(routeQuery()))

	weak.States[1].WindKnots = 40
	idx = atlanticIndex(t, weak)
	assert.Equal(t, 1, idx.CountCrossings(routeQuery()), "one strong end is enough")
}

func TestCountCrossings_Since(t *testing.T) {
	idx := atlanticIndex(t, crossingTrack("AL011990", 1990, 9, 1, 80))

	q := routeQuery()
	q.Since = Timestamp{Year: 2000, Month: 1, Day: 1}
	assert.Zero(t, idx.CountCrossings(q))
}

func TestCountCrossings_DayRangeWrapsYear(t *testing.T) {
	idx := atlanticIndex(t, crossingTrack("AL301990", 1990, 12, 30, 80))

	q := routeQuery()
	q.Date = Timestamp{Year: 2024, Month: 1, Day: 3}
	q.DayRange = 5
	assert.Equal(t, 1, idx.CountCrossings(q))
}

func TestCountCrossings_Antimeridian(t *testing.T) {
	track := Cyclone{ID: "SH011995", States: []CycloneState{
		state(1995, 2, 1, 0, -15, 170, 70),
		state(1995, 2, 2, 0, -15, -170, 70),
	}}
	track360 := Cyclone{ID: "SH021995", States: []CycloneState{
		state(1995, 2, 3, 0, -15, 170, 70),
		state(1995, 2, 4, 0, -15, 190, 70),
	}}
	idx, err := NewCycloneIndex(map[Basin][]Cyclone{SouthPacific: {track, track360}}, nil)
	require.NoError(t, err)

	q := CrossingQuery{
		Lat1: -20, Lon1: 175,
		Lat2: -10, Lon2: -175,
		Date:     Timestamp{Year: 2024, Month: 2, Day: 2},
		DayRange: 10,
		Basins:   []Basin{SouthPacific},
	}
	assert.Equal(t, 2, idx.CountCrossings(q))

	q.Basins = []Basin{Atlantic}
	assert.Zero(t, idx.CountCrossings(q))
}

func TestCountCrossings_ElNinoFilter(t *testing.T) {
	table := ElNinoTable{1990: {Months: [12]float64{8: 1.2}}}
	idx, err := NewCycloneIndex(map[Basin][]Cyclone{
		Atlantic: {crossingTrack("AL011990", 1990, 9, 1, 80)},
	}, table)
	require.NoError(t, err)

	q := routeQuery()
	q.ElNino = &ElNinoFilter{Min: 0.5, Max: 2}
	assert.Equal(t, 1, idx.CountCrossings(q))

	q.ElNino = &ElNinoFilter{Min: -2, Max: 0}
	assert.Zero(t, idx.CountCrossings(q))
}

func TestCountCrossingsContext_Cancelled(t *testing.T) {
	idx := atlanticIndex(t, crossingTrack("AL011990", 1990, 9, 1, 80))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := idx.CountCrossingsContext(ctx, routeQuery())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewCycloneIndex_Validation(t *testing.T) {
	_, err := NewCycloneIndex(map[Basin][]Cyclone{
		Atlantic: {{ID: "empty"}},
	}, nil)
	assert.ErrorIs(t, err, ErrInvalidTrack)

	_, err = NewCycloneIndex(map[Basin][]Cyclone{
		Atlantic: {{ID: "backwards", States: []CycloneState{
			state(1990, 9, 2, 0, 15, -60, 50),
			state(1990, 9, 1, 0, 16, -61, 50),
		}}},
	}, nil)
	assert.ErrorIs(t, err, ErrInvalidTrack)

	_, err = NewCycloneIndex(map[Basin][]Cyclone{
		Atlantic: {{ID: "duplicate", States: []CycloneState{
			state(1990, 9, 1, 6, 15, -60, 50),
			state(1990, 9, 1, 6, 16, -61, 50),
		}}},
	}, nil)
	assert.ErrorIs(t, err, ErrInvalidTrack)
}

func TestYearsCoveredAndFrequency(t *testing.T) {
	idx := atlanticIndex(t,
		crossingTrack("AL011990", 1990, 9, 1, 80),
		crossingTrack("AL011995", 1995, 9, 1, 80),
	)

	assert.Equal(t, 6, idx.YearsCovered(nil, Timestamp{}))
	assert.Equal(t, 3, idx.YearsCovered([]Basin{Atlantic}, Timestamp{Year: 1993}))
	assert.Zero(t, idx.YearsCovered([]Basin{NorthIndian}, Timestamp{}))
	assert.InDelta(t, 0.5, Frequency(3, 6), 1e-12)
	assert.Zero(t, Frequency(3, 0))
}

func TestParseBasin(t *testing.T) {
	for _, b := range AllBasins() {
		got, err := ParseBasin(b.String())
		require.NoError(t, err)
		assert.Equal(t, b, got)
	}
	_, err := ParseBasin("arctic")
	assert.Error(t, err)
}

func TestParseStateKind(t *testing.T) {
	assert.Equal(t, Tropical, ParseStateKind("HU"))
	assert.Equal(t, Extratropical, ParseStateKind("extratropical"))
	assert.Equal(t, Remnant, ParseStateKind("remanent"))
	assert.Equal(t, UnknownKind, ParseStateKind("??"))
}

func TestSegmentsIntersect(t *testing.T) {
	p := func(x, y float64) point { return point{x: x, y: y} }

	assert.True(t, segmentsIntersect(p(0, 0), p(2, 2), p(0, 2), p(2, 0)))
	assert.False(t, segmentsIntersect(p(0, 0), p(1, 1), p(2, 0), p(3, 1)))
	assert.True(t, segmentsIntersect(p(0, 0), p(2, 0), p(1, 0), p(3, 0)), "collinear overlap")
	assert.False(t, segmentsIntersect(p(0, 0), p(1, 0), p(2, 0), p(3, 0)), "collinear disjoint")
	assert.True(t, segmentsIntersect(p(0, 0), p(2, 0), p(1, 0), p(1, 5)), "touching")
}
