package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"go.ngs.io/climatology-api/internal/domain"
	"go.ngs.io/climatology-api/internal/isobar"
	"go.ngs.io/climatology-api/internal/observability"
)

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Options configures a ClimatologyUseCase. Zero values take defaults.
type Options struct {
	ContourCacheSize int
	// CycloneSince is the first year counted by crossing queries that name
	// none.
	CycloneSince int
	Extractor    isobar.Options
	Clock        clockwork.Clock
	Metrics      *observability.Metrics
	Logger       *slog.Logger
	// Declination returns the magnetic declination in degrees east.
	Declination DeclinationFunc
}

// ClimatologyUseCase answers point, contour, wind atlas and cyclone queries
// against one loaded dataset.
type ClimatologyUseCase struct {
	ds          *domain.Dataset
	extractor   *isobar.Extractor
	contours    *contourCache
	since       domain.Timestamp
	clock       clockwork.Clock
	metrics     *observability.Metrics
	logger      *slog.Logger
	declination DeclinationFunc
}

// NewClimatologyUseCase creates a use case over ds.
func NewClimatologyUseCase(ds *domain.Dataset, opts Options) (*ClimatologyUseCase, error) {
	if ds == nil {
		return nil, fmt.Errorf("nil dataset")
	}
	if opts.ContourCacheSize <= 0 {
		opts.ContourCacheSize = 256
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetricsForTesting()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Declination == nil {
		opts.Declination = WMMDeclination
	}
	cache, err := newContourCache(opts.ContourCacheSize, opts.Metrics)
	if err != nil {
		return nil, err
	}

	uc := &ClimatologyUseCase{
		ds:          ds,
		extractor:   isobar.New(opts.Extractor),
		contours:    cache,
		clock:       opts.Clock,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		declination: opts.Declination,
	}
	if opts.CycloneSince != 0 {
		uc.since = domain.Timestamp{Year: opts.CycloneSince, Month: 1, Day: 1}
	}

	ready := 0
	for _, v := range domain.AllVariables() {
		if ds.Available(v) {
			ready++
		}
	}
	uc.metrics.VariablesReady.Set(float64(ready))
	return uc, nil
}

// Dataset returns the dataset the use case reads.
func (uc *ClimatologyUseCase) Dataset() *domain.Dataset {
	return uc.ds
}

// Now returns the current time of the use case clock.
func (uc *ClimatologyUseCase) Now() time.Time {
	return uc.clock.Now()
}

func (uc *ClimatologyUseCase) observe(kind string, start time.Time, outcome string) {
	uc.metrics.Queries.WithLabelValues(kind, outcome).Inc()
	uc.metrics.QueryDuration.WithLabelValues(kind).Observe(uc.clock.Since(start).Seconds())
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, domain.ErrUnknownUnit):
		return "invalid"
	case errors.Is(err, domain.ErrVariableUnavailable):
		return "unavailable"
	}
	return "error"
}

// available returns ErrVariableUnavailable, carrying the load error when
// there is one.
func (uc *ClimatologyUseCase) available(v domain.Variable) error {
	if uc.ds.Available(v) {
		return nil
	}
	if err := uc.ds.LoadError(v); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrVariableUnavailable, v, err)
	}
	return fmt.Errorf("%w: %s", domain.ErrVariableUnavailable, v)
}

// VariableInfo describes one variable for clients.
type VariableInfo struct {
	Name      string   `json:"name"`
	Available bool     `json:"available"`
	Error     string   `json:"error,omitempty"`
	Units     []string `json:"units"`
	Coords    []string `json:"coords,omitempty"`
	Min       float64  `json:"min"`
	Max       float64  `json:"max"`
}

// Variables lists every variable with its availability and units.
func (uc *ClimatologyUseCase) Variables() []VariableInfo {
	out := make([]VariableInfo, 0, domain.VariableCount)
	for _, v := range domain.AllVariables() {
		info := VariableInfo{
			Name:      v.String(),
			Available: uc.ds.Available(v),
		}
		if err := uc.ds.LoadError(v); err != nil {
			info.Error = err.Error()
		}
		for _, u := range v.Units() {
			info.Units = append(info.Units, u.Name)
		}
		for c := domain.CoordU; c <= domain.CoordCalm; c++ {
			if v.Supports(c) {
				info.Coords = append(info.Coords, c.String())
			}
		}
		info.Min, info.Max = v.Range()
		out = append(out, info)
	}
	return out
}

// ValueRequest asks for one variable at a point.
type ValueRequest struct {
	Variable domain.Variable
	Coord    *domain.Coord // nil selects the variable's default
	Lat      float64
	Lon      float64
	Date     *time.Time // nil selects the annual mean
	// Month (1-12) reads that month's slice without blending.
	Month int
	// DayOfYear (1-365) blends months for a day of the climatological year.
	// Date, Month and DayOfYear are mutually exclusive.
	DayOfYear int
	Units     string
	// Magnetic converts direction readouts from true to magnetic bearings.
	Magnetic bool
}

// ValueResponse is a point readout. Value is nil where data is missing.
type ValueResponse struct {
	Variable    string   `json:"variable"`
	Coord       string   `json:"coord"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	Date        string   `json:"date,omitempty"`
	Month       int      `json:"month,omitempty"`
	DayOfYear   int      `json:"day_of_year,omitempty"`
	Units       string   `json:"units"`
	Value       *float64 `json:"value"`
	Missing     bool     `json:"missing"`
	Magnetic    bool     `json:"magnetic,omitempty"`
	Declination *float64 `json:"declination,omitempty"`
}

func coordOf(v domain.Variable, c *domain.Coord) domain.Coord {
	if c == nil {
		return v.DefaultCoord()
	}
	return *c
}

func validatePoint(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return invalid("latitude must be between -90 and 90")
	}
	if math.IsNaN(lon) || lon < -180 || lon > 360 {
		return invalid("longitude must be between -180 and 360")
	}
	return nil
}

// Validate checks the request.
func (r *ValueRequest) Validate() error {
	if err := validatePoint(r.Lat, r.Lon); err != nil {
		return err
	}
	if r.Variable == domain.Cyclones {
		return invalid("cyclones are queried as crossings")
	}
	c := coordOf(r.Variable, r.Coord)
	if !r.Variable.Supports(c) {
		return invalid("coordinate %s is not defined for %s", c, r.Variable)
	}
	if r.Month < 0 || r.Month > domain.MonthCount {
		return invalid("month must be between 1 and %d", domain.MonthCount)
	}
	if r.DayOfYear < 0 || r.DayOfYear > domain.DaysPerYear {
		return invalid("day_of_year must be between 1 and %d", domain.DaysPerYear)
	}
	set := 0
	for _, ok := range []bool{r.Date != nil, r.Month != 0, r.DayOfYear != 0} {
		if ok {
			set++
		}
	}
	if set > 1 {
		return invalid("date, month and day_of_year are mutually exclusive")
	}
	if r.Magnetic && !c.IsAngle() {
		return invalid("magnetic applies to direction readouts only")
	}
	if _, err := r.Variable.Unit(r.Units); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// Value reads a variable at a point.
func (uc *ClimatologyUseCase) Value(req ValueRequest) (resp *ValueResponse, err error) {
	start := uc.clock.Now()
	defer func() {
		outcome := outcomeOf(err)
		if err == nil && resp.Missing {
			outcome = "missing"
		}
		uc.observe("value", start, outcome)
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := uc.available(req.Variable); err != nil {
		return nil, err
	}
	c := coordOf(req.Variable, req.Coord)
	unit, _ := req.Variable.Unit(req.Units)

	resp = &ValueResponse{
		Variable:  req.Variable.String(),
		Coord:     c.String(),
		Lat:       req.Lat,
		Lon:       req.Lon,
		Month:     req.Month,
		DayOfYear: req.DayOfYear,
		Units:     unit.Name,
		Magnetic:  req.Magnetic,
	}
	if req.Date != nil {
		resp.Date = req.Date.Format(time.RFC3339)
	}
	if c.IsAngle() {
		resp.Units = "degrees"
	}

	var v float64
	var ok bool
	switch {
	case req.Month != 0:
		v, ok = uc.ds.ValueMonth(c, req.Variable, req.Lat, req.Lon, req.Month-1)
	case req.DayOfYear != 0:
		in := domain.LocateDayOfYear(float64(req.DayOfYear - 1))
		v, ok = uc.ds.ValueAt(c, req.Variable, req.Lat, req.Lon, in)
	default:
		v, ok = uc.ds.Value(c, req.Variable, req.Lat, req.Lon, req.Date)
	}
	if !ok {
		resp.Missing = true
		return resp, nil
	}
	v = domain.Calibrate(v, c, unit)

	if req.Magnetic {
		at := uc.clock.Now()
		if req.Date != nil {
			at = *req.Date
		}
		d, err := uc.declination(req.Lat, req.Lon, at)
		if err != nil {
			return nil, fmt.Errorf("magnetic declination: %w", err)
		}
		resp.Declination = &d
		v = ToMagnetic(v, d)
	}
	resp.Value = &v
	return resp, nil
}
