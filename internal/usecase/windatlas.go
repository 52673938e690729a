package usecase

import (
	"time"

	"go.ngs.io/climatology-api/internal/domain"
)

// WindAtlasRequest asks for the wind distribution at a point.
type WindAtlasRequest struct {
	Lat  float64
	Lon  float64
	Date *time.Time
}

// DirectionBin is one sector of a wind distribution.
type DirectionBin struct {
	Bearing    float64 `json:"bearing"`
	Share      float64 `json:"share"`
	SpeedKnots float64 `json:"speed_knots"`
}

// WindAtlasResponse is the interpolated distribution; the summary fields
// are nil where data is missing.
type WindAtlasResponse struct {
	Lat        float64        `json:"lat"`
	Lon        float64        `json:"lon"`
	Date       string         `json:"date,omitempty"`
	Missing    bool           `json:"missing"`
	Storm      *float64       `json:"storm,omitempty"`
	Calm       *float64       `json:"calm,omitempty"`
	SpeedKnots *float64       `json:"speed_knots,omitempty"`
	Direction  *float64       `json:"direction,omitempty"`
	Bins       []DirectionBin `json:"bins,omitempty"`
}

// Validate checks the request.
func (r *WindAtlasRequest) Validate() error {
	return validatePoint(r.Lat, r.Lon)
}

// WindAtlas interpolates the wind distribution at a point.
func (uc *ClimatologyUseCase) WindAtlas(req WindAtlasRequest) (resp *WindAtlasResponse, err error) {
	start := uc.clock.Now()
	defer func() {
		outcome := outcomeOf(err)
		if err == nil && resp.Missing {
			outcome = "missing"
		}
		uc.observe("windatlas", start, outcome)
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := uc.available(domain.Wind); err != nil {
		return nil, err
	}

	resp = &WindAtlasResponse{Lat: req.Lat, Lon: req.Lon}
	if req.Date != nil {
		resp.Date = req.Date.Format(time.RFC3339)
	}
	p, ok := uc.ds.WindAtlasAt(req.Lat, req.Lon, req.Date)
	if !ok {
		resp.Missing = true
		return resp, nil
	}

	read := func(c domain.Coord) *float64 {
		v, ok := p.Value(c)
		if !ok {
			return nil
		}
		return &v
	}
	resp.Storm = read(domain.CoordStorm)
	resp.Calm = read(domain.CoordCalm)
	resp.SpeedKnots = read(domain.CoordMagnitude)
	resp.Direction = read(domain.CoordDirection)

	n := int(p.Count)
	resp.Bins = make([]DirectionBin, n)
	for i := range resp.Bins {
		resp.Bins[i] = DirectionBin{
			Bearing:    float64(i) * 360 / float64(n),
			Share:      float64(p.Directions[i]),
			SpeedKnots: float64(p.Speeds[i]),
		}
	}
	return resp, nil
}
