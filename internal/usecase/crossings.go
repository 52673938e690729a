package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"go.ngs.io/climatology-api/internal/domain"
)

// MaxDayRange is the widest day-of-year window; larger ones cover the whole
// year.
const MaxDayRange = domain.DaysPerYear / 2

// CrossingsRequest asks how often cyclone tracks crossed a route segment.
type CrossingsRequest struct {
	Lat1, Lon1   float64
	Lat2, Lon2   float64
	Date         time.Time // zero uses today
	DayRange     int
	MinWindKnots float64
	Since        int // first year; zero uses the configured default
	Basins       []domain.Basin
	ElNino       *domain.ElNinoFilter
}

// BasinCrossings is the count for one basin.
type BasinCrossings struct {
	Basin     string  `json:"basin"`
	Count     int     `json:"count"`
	Years     int     `json:"years"`
	Frequency float64 `json:"frequency"`
}

// CrossingsResponse is the total and the per-basin breakdown.
type CrossingsResponse struct {
	Date      string           `json:"date"`
	DayRange  int              `json:"day_range"`
	Since     int              `json:"since,omitempty"`
	Count     int              `json:"count"`
	Years     int              `json:"years"`
	Frequency float64          `json:"frequency"`
	Basins    []BasinCrossings `json:"basins"`
}

// Validate checks the request.
func (r *CrossingsRequest) Validate() error {
	if err := validatePoint(r.Lat1, r.Lon1); err != nil {
		return err
	}
	if err := validatePoint(r.Lat2, r.Lon2); err != nil {
		return err
	}
	if r.DayRange < 0 || r.DayRange > MaxDayRange {
		return invalid("day_range must be between 0 and %d", MaxDayRange)
	}
	if r.MinWindKnots < 0 {
		return invalid("min_wind must not be negative")
	}
	if r.Since != 0 && (r.Since < 1800 || r.Since > 2200) {
		return invalid("since must be a year between 1800 and 2200")
	}
	for _, b := range r.Basins {
		if b < 0 || int(b) >= domain.BasinCount {
			return invalid("unknown basin %d", int(b))
		}
	}
	if r.ElNino != nil && r.ElNino.Min > r.ElNino.Max {
		return invalid("elnino_min must not exceed elnino_max")
	}
	return nil
}

// Crossings counts track segments crossing the route, per basin.
func (uc *ClimatologyUseCase) Crossings(ctx context.Context, req CrossingsRequest) (resp *CrossingsResponse, err error) {
	start := uc.clock.Now()
	defer func() { uc.observe("crossings", start, outcomeOf(err)) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := uc.available(domain.Cyclones); err != nil {
		return nil, err
	}
	idx := uc.ds.Cyclones()

	date := req.Date
	if date.IsZero() {
		date = uc.clock.Now()
	}
	since := uc.since
	if req.Since != 0 {
		since = domain.Timestamp{Year: req.Since, Month: 1, Day: 1}
	}
	q := domain.CrossingQuery{
		Lat1: req.Lat1, Lon1: req.Lon1,
		Lat2: req.Lat2, Lon2: req.Lon2,
		Date:         domain.TimestampOf(date),
		DayRange:     req.DayRange,
		MinWindKnots: req.MinWindKnots,
		Since:        since,
		Basins:       req.Basins,
		ElNino:       req.ElNino,
	}
	basins := domain.UniqueBasins(req.Basins)

	counts := make([]int, len(basins))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range basins {
		g.Go(func() error {
			n, err := idx.CountBasinCrossings(gctx, b, q)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp = &CrossingsResponse{
		Date:     date.Format(time.DateOnly),
		DayRange: req.DayRange,
		Since:    since.Year,
		Basins:   make([]BasinCrossings, len(basins)),
	}
	for i, b := range basins {
		years := idx.YearsCovered([]domain.Basin{b}, since)
		resp.Basins[i] = BasinCrossings{
			Basin:     b.String(),
			Count:     counts[i],
			Years:     years,
			Frequency: domain.Frequency(counts[i], years),
		}
		resp.Count += counts[i]
	}
	resp.Years = idx.YearsCovered(basins, since)
	resp.Frequency = domain.Frequency(resp.Count, resp.Years)
	return resp, nil
}
