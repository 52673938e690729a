package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/climatology-api/internal/domain"
)

// route crosses the ISAAC track at 15N 50W.
func route() CrossingsRequest {
	return CrossingsRequest{
		Lat1: 15, Lon1: -55,
		Lat2: 15, Lon2: -45,
		DayRange:     5,
		MinWindKnots: 34,
	}
}

func TestCrossings(t *testing.T) {
	f := newFixture(t)

	resp, err := f.uc.Crossings(context.Background(), route())
	require.NoError(t, err)
	assert.Equal(t, "2024-09-05", resp.Date, "defaults to today")
	assert.Equal(t, 1950, resp.Since)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 4, resp.Years)
	assert.InDelta(t, 0.25, resp.Frequency, 1e-12)
	require.Len(t, resp.Basins, domain.BasinCount)
	atl := resp.Basins[domain.Atlantic]
	assert.Equal(t, BasinCrossings{Basin: "atl", Count: 1, Years: 4, Frequency: 0.25}, atl)
	assert.Equal(t, BasinCrossings{Basin: "wpa"}, resp.Basins[domain.WestPacific])
}

func TestCrossings_Filters(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		modify func(r *CrossingsRequest)
		count  int
		years  int
	}{
		{"basin", func(r *CrossingsRequest) { r.Basins = []domain.Basin{domain.Atlantic} }, 1, 4},
		{"other basin", func(r *CrossingsRequest) { r.Basins = []domain.Basin{domain.EastPacific} }, 0, 0},
		{"since", func(r *CrossingsRequest) { r.Since = 2001 }, 0, 3},
		{"wind", func(r *CrossingsRequest) { r.MinWindKnots = 80 }, 0, 4},
		{"day range", func(r *CrossingsRequest) {
			r.Date = time.Date(2024, time.September, 10, 0, 0, 0, 0, time.UTC)
			r.DayRange = 4
		}, 0, 4},
		{"el nino without table", func(r *CrossingsRequest) { r.ElNino = &domain.ElNinoFilter{Min: -5, Max: 5} }, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := route()
			tt.modify(&req)
			resp, err := f.uc.Crossings(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.count, resp.Count)
			assert.Equal(t, tt.years, resp.Years)
		})
	}
}

func TestCrossings_RepeatedBasin(t *testing.T) {
	f := newFixture(t)

	req := route()
	req.Basins = []domain.Basin{domain.Atlantic, domain.Atlantic}
	resp, err := f.uc.Crossings(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	assert.InDelta(t, 0.25, resp.Frequency, 1e-12)
	require.Len(t, resp.Basins, 1)
	assert.Equal(t, "atl", resp.Basins[0].Basin)
}

func TestCrossings_Validate(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		modify func(r *CrossingsRequest)
	}{
		{"latitude", func(r *CrossingsRequest) { r.Lat2 = 95 }},
		{"day range", func(r *CrossingsRequest) { r.DayRange = 400 }},
		{"wind", func(r *CrossingsRequest) { r.MinWindKnots = -1 }},
		{"since", func(r *CrossingsRequest) { r.Since = 1700 }},
		{"basin", func(r *CrossingsRequest) { r.Basins = []domain.Basin{9} }},
		{"el nino", func(r *CrossingsRequest) { r.ElNino = &domain.ElNinoFilter{Min: 1, Max: -1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := route()
			tt.modify(&req)
			_, err := f.uc.Crossings(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestCrossings_Unavailable(t *testing.T) {
	b := domain.NewDatasetBuilder()
	uc, err := NewClimatologyUseCase(b.Build(), Options{})
	require.NoError(t, err)

	_, err = uc.Crossings(context.Background(), route())
	assert.ErrorIs(t, err, domain.ErrVariableUnavailable)
}

func TestCrossings_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.uc.Crossings(ctx, route())
	assert.ErrorIs(t, err, context.Canceled)
}
