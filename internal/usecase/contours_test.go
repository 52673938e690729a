package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/climatology-api/internal/domain"
	"go.ngs.io/climatology-api/internal/isobar"
)

var northAtlantic = isobar.Extent{MinLat: 0, MaxLat: 40, MinLon: 0, MaxLon: 40}

func TestContours(t *testing.T) {
	f := newFixture(t)

	resp, err := f.uc.Contours(context.Background(), ContourRequest{
		Variable: domain.Pressure,
		Extent:   northAtlantic,
		Spacing:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, "mb", resp.Units)
	assert.InDelta(t, 40.0/96, resp.CellDegrees, 1e-9)
	require.NotEmpty(t, resp.Isobars)
	for _, line := range resp.Isobars {
		assert.InDelta(t, 1010.0, line.Level, 1e-9)
		for _, p := range line.Points {
			assert.InDelta(t, 25.5, p.Lat, 1e-3)
		}
	}
}

func TestContours_DefaultSpacingAndUnits(t *testing.T) {
	f := newFixture(t)

	resp, err := f.uc.Contours(context.Background(), ContourRequest{Variable: domain.Pressure, Extent: northAtlantic})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, resp.Spacing, 1e-12)
	levels := make(map[float64]bool)
	for _, line := range resp.Isobars {
		levels[line.Level] = true
	}
	assert.Equal(t, map[float64]bool{1005: true, 1010: true}, levels)

	resp, err = f.uc.Contours(context.Background(), ContourRequest{
		Variable: domain.Pressure,
		Extent:   northAtlantic,
		Spacing:  0.3,
		Units:    "inHg",
	})
	require.NoError(t, err)
	assert.Equal(t, "inHg", resp.Units)
	require.NotEmpty(t, resp.Isobars)
	assert.InDelta(t, 29.7, resp.Isobars[0].Level, 1e-9)
}

func TestContours_Cache(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2022, time.June, 3, 18, 0, 0, 0, time.UTC)
	req := ContourRequest{Variable: domain.Pressure, Extent: northAtlantic, Spacing: 10, Date: &date}

	first, err := f.uc.Contours(context.Background(), req)
	require.NoError(t, err)
	sameDay := time.Date(2022, time.June, 3, 6, 0, 0, 0, time.UTC)
	req.Date = &sameDay
	second, err := f.uc.Contours(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, second.Isobars)
	assert.Same(t, &first.Isobars[0], &second.Isobars[0])
	assert.Equal(t, "2022-06-03", second.Date)

	req.Units = "mmHg"
	_, err = f.uc.Contours(context.Background(), req)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, metricValue(t, f.reg, "climatology_contour_cache_total", map[string]string{"result": "hit"}), 1e-12)
	assert.InDelta(t, 2.0, metricValue(t, f.reg, "climatology_contour_cache_total", map[string]string{"result": "miss"}), 1e-12)
}

func TestContours_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  ContourRequest
		want error
	}{
		{"extent", ContourRequest{Variable: domain.Pressure, Extent: isobar.Extent{MinLat: 10, MaxLat: 0, MaxLon: 10}}, ErrInvalidRequest},
		{"direction", ContourRequest{Variable: domain.Wind, Coord: coordPtr(domain.CoordDirection), Extent: northAtlantic}, ErrInvalidRequest},
		{"cyclones", ContourRequest{Variable: domain.Cyclones, Extent: northAtlantic}, ErrInvalidRequest},
		{"pixels", ContourRequest{Variable: domain.Pressure, Extent: northAtlantic, WidthPx: 100000}, ErrInvalidRequest},
		{"spacing", ContourRequest{Variable: domain.Pressure, Extent: northAtlantic, Spacing: -1}, ErrInvalidRequest},
		{"unit", ContourRequest{Variable: domain.Pressure, Extent: northAtlantic, Units: "hPa"}, ErrInvalidRequest},
		{"unavailable", ContourRequest{Variable: domain.SeaTemperature, Extent: northAtlantic}, domain.ErrVariableUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Contours(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestContours_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := ContourRequest{Variable: domain.Pressure, Extent: northAtlantic, Spacing: 10}
	_, err := f.uc.Contours(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)

	// Nothing was cached by the abandoned sweep.
	_, err = f.uc.Contours(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, metricValue(t, f.reg, "climatology_contour_cache_total", map[string]string{"result": "hit"}), 1e-12)
}

func TestContoursMany(t *testing.T) {
	f := newFixture(t)

	reqs := []ContourRequest{
		{Variable: domain.Pressure, Extent: northAtlantic, Spacing: 10},
		{Variable: domain.Current, Extent: northAtlantic, Spacing: 0.5},
		{Variable: domain.Wind, Coord: coordPtr(domain.CoordStorm), Extent: northAtlantic},
	}
	out, err := f.uc.ContoursMany(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "pressure", out[0].Variable)
	assert.Equal(t, "current", out[1].Variable)
	assert.Equal(t, "storm", out[2].Coord)

	reqs = append(reqs, ContourRequest{Variable: domain.Lightning, Extent: northAtlantic})
	_, err = f.uc.ContoursMany(context.Background(), reqs)
	assert.ErrorIs(t, err, domain.ErrVariableUnavailable)
	assert.ErrorContains(t, err, "lightning")
}

func TestNiceStep(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{5, 5},
		{1.2, 1},
		{3, 2},
		{0.04, 0.05},
		{80, 100},
		{3.4, 2},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, niceStep(tt.in), 1e-12, "in=%v", tt.in)
	}
}
