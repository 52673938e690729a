package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"go.ngs.io/climatology-api/internal/domain"
	"go.ngs.io/climatology-api/internal/isobar"
	"go.ngs.io/climatology-api/internal/observability"
)

// Viewport size used when a request names none.
const (
	DefaultWidthPx  = 1024
	DefaultHeightPx = 768
	maxPixels       = 8192
	// Levels per display range when a request names no spacing.
	defaultLevels = 10
)

// ContourRequest asks for the isolines of a variable over an extent.
type ContourRequest struct {
	Variable domain.Variable
	Coord    *domain.Coord
	Extent   isobar.Extent
	WidthPx  int
	HeightPx int
	Spacing  float64 // zero derives a spacing from the display range
	Step     float64
	Date     *time.Time
	Units    string
}

// ContourResponse carries the isolines sorted by level.
type ContourResponse struct {
	Variable    string          `json:"variable"`
	Coord       string          `json:"coord"`
	Units       string          `json:"units"`
	Date        string          `json:"date,omitempty"`
	Spacing     float64         `json:"spacing"`
	CellDegrees float64         `json:"cell_degrees"`
	Isobars     []isobar.Isobar `json:"isobars"`
}

// Validate checks the request.
func (r *ContourRequest) Validate() error {
	if r.Variable == domain.Cyclones {
		return invalid("cyclones cannot be contoured")
	}
	c := coordOf(r.Variable, r.Coord)
	if !r.Variable.Supports(c) {
		return invalid("coordinate %s is not defined for %s", c, r.Variable)
	}
	if c.IsAngle() {
		return invalid("%s cannot be contoured", c)
	}
	if err := r.Extent.Validate(); err != nil {
		return invalid("%v", err)
	}
	if r.WidthPx < 0 || r.HeightPx < 0 || r.WidthPx > maxPixels || r.HeightPx > maxPixels {
		return invalid("viewport size must be between 0 and %d pixels", maxPixels)
	}
	if r.Spacing < 0 || math.IsNaN(r.Spacing) {
		return invalid("spacing must not be negative")
	}
	if _, err := r.Variable.Unit(r.Units); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.Spacing > 0 {
		if err := (isobar.Settings{Spacing: r.Spacing, Step: r.Step}).Validate(); err != nil {
			return invalid("%v", err)
		}
	}
	return nil
}

// viewport fills the default size.
func (r *ContourRequest) viewport() isobar.Viewport {
	vp := isobar.Viewport{Extent: r.Extent, WidthPx: r.WidthPx, HeightPx: r.HeightPx}
	if vp.WidthPx == 0 {
		vp.WidthPx = DefaultWidthPx
	}
	if vp.HeightPx == 0 {
		vp.HeightPx = DefaultHeightPx
	}
	return vp
}

// settings returns the level settings in display units.
func (r *ContourRequest) settings(c domain.Coord, unit domain.Unit) isobar.Settings {
	if r.Spacing > 0 {
		return isobar.Settings{Spacing: r.Spacing, Step: r.Step}
	}
	lo, hi := r.Variable.Range()
	span := math.Abs(domain.Calibrate(hi, c, unit) - domain.Calibrate(lo, c, unit))
	if c.IsProbability() {
		span = 1
	}
	if span == 0 {
		span = 1
	}
	return isobar.Settings{Spacing: niceStep(span / defaultLevels), Step: r.Step}
}

// niceStep rounds x to 1, 2 or 5 times a power of ten.
func niceStep(x float64) float64 {
	p := math.Pow(10, math.Floor(math.Log10(x)))
	switch f := x / p; {
	case f < 1.5:
		return p
	case f < 3.5:
		return 2 * p
	case f < 7.5:
		return 5 * p
	}
	return 10 * p
}

// contourKey identifies a cached extraction. The dataset never changes, so
// the settings fully determine the result.
type contourKey struct {
	variable domain.Variable
	coord    domain.Coord
	units    string
	extent   isobar.Extent
	width    int
	height   int
	settings isobar.Settings
	day      string
}

type contourCache struct {
	lru     *lru.Cache[contourKey, []isobar.Isobar]
	metrics *observability.Metrics
}

func newContourCache(size int, m *observability.Metrics) (*contourCache, error) {
	c, err := lru.New[contourKey, []isobar.Isobar](size)
	if err != nil {
		return nil, fmt.Errorf("contour cache: %w", err)
	}
	return &contourCache{lru: c, metrics: m}, nil
}

func (c *contourCache) get(k contourKey) ([]isobar.Isobar, bool) {
	lines, ok := c.lru.Get(k)
	if ok {
		c.metrics.ContourCache.WithLabelValues("hit").Inc()
	} else {
		c.metrics.ContourCache.WithLabelValues("miss").Inc()
	}
	return lines, ok
}

func (c *contourCache) add(k contourKey, lines []isobar.Isobar) {
	c.lru.Add(k, lines)
}

// Contours extracts isolines. Results are memoised per settings, units and
// day; callers must not modify the returned isolines.
func (uc *ClimatologyUseCase) Contours(ctx context.Context, req ContourRequest) (resp *ContourResponse, err error) {
	start := uc.clock.Now()
	defer func() { uc.observe("contours", start, outcomeOf(err)) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := uc.available(req.Variable); err != nil {
		return nil, err
	}

	c := coordOf(req.Variable, req.Coord)
	unit, _ := req.Variable.Unit(req.Units)
	vp := req.viewport()
	settings := req.settings(c, unit)

	// Contours blend at day resolution.
	var date *time.Time
	day := "annual"
	if req.Date != nil {
		y, m, d := req.Date.Date()
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		date = &t
		day = t.Format(time.DateOnly)
	}

	resp = &ContourResponse{
		Variable:    req.Variable.String(),
		Coord:       c.String(),
		Units:       unit.Name,
		Spacing:     settings.Spacing,
		CellDegrees: uc.extractor.CellDegrees(vp),
	}
	if date != nil {
		resp.Date = day
	}

	key := contourKey{
		variable: req.Variable,
		coord:    c,
		units:    unit.Name,
		extent:   req.Extent,
		width:    vp.WidthPx,
		height:   vp.HeightPx,
		settings: settings,
		day:      day,
	}
	if lines, ok := uc.contours.get(key); ok {
		resp.Isobars = lines
		return resp, nil
	}

	in := domain.Locate(date)
	sample := uc.ds.Sampler(req.Variable, c, in)
	calibrated := func(lat, lon float64) (float64, bool) {
		v, ok := sample(lat, lon)
		if !ok {
			return 0, false
		}
		return domain.Calibrate(v, c, unit), true
	}

	lines, err := uc.extractor.ExtractContext(ctx, calibrated, vp, settings)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, invalid("%v", err)
	}
	if lines == nil {
		lines = []isobar.Isobar{}
	}
	uc.contours.add(key, lines)
	uc.metrics.ContourLines.Observe(float64(len(lines)))
	uc.logger.Debug("extracted contours", "variable", resp.Variable, "levels", len(lines), "cell_degrees", resp.CellDegrees)

	resp.Isobars = lines
	return resp, nil
}

// ContoursMany extracts several requests concurrently. The first failure
// cancels the rest.
func (uc *ClimatologyUseCase) ContoursMany(ctx context.Context, reqs []ContourRequest) ([]*ContourResponse, error) {
	out := make([]*ContourResponse, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, req := range reqs {
		g.Go(func() error {
			resp, err := uc.Contours(gctx, req)
			if err != nil {
				return fmt.Errorf("%s: %w", req.Variable, err)
			}
			out[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
