package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/climatology-api/internal/domain"
	"go.ngs.io/climatology-api/internal/isobar"
	"go.ngs.io/climatology-api/internal/render"
	"go.ngs.io/climatology-api/internal/usecase"
)

// Handler handles HTTP requests for climatology queries.
type Handler struct {
	climatologyUC *usecase.ClimatologyUseCase
}

// NewHandler creates a new HTTP handler.
func NewHandler(climatologyUC *usecase.ClimatologyUseCase) *Handler {
	return &Handler{
		climatologyUC: climatologyUC,
	}
}

// errBadParam marks a query parameter that failed to parse.
var errBadParam = errors.New("bad parameter")

// writeError maps use case errors onto status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadParam),
		errors.Is(err, usecase.ErrInvalidRequest),
		errors.Is(err, domain.ErrUnknownVariable),
		errors.Is(err, domain.ErrUnknownCoord),
		errors.Is(err, domain.ErrUnknownUnit):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrVariableUnavailable):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func floatParam(c *gin.Context, name string) (float64, error) {
	s := c.Query(name)
	if s == "" {
		return 0, fmt.Errorf("%w: %s parameter is required", errBadParam, name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s: %v", errBadParam, name, err)
	}
	return v, nil
}

func optionalFloat(c *gin.Context, name string, def float64) (float64, error) {
	if c.Query(name) == "" {
		return def, nil
	}
	return floatParam(c, name)
}

func optionalInt(c *gin.Context, name string, def int) (int, error) {
	s := c.Query(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s: %v", errBadParam, name, err)
	}
	return v, nil
}

func optionalBool(c *gin.Context, name string) (bool, error) {
	s := c.Query(name)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: invalid %s: %v", errBadParam, name, err)
	}
	return v, nil
}

// dateParam accepts RFC3339 or a plain date. An empty value is nil. The
// offset is kept so the calendar fields stay the caller's.
func dateParam(c *gin.Context, name string) (*time.Time, error) {
	s := c.Query(name)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid %s (expected RFC3339 or YYYY-MM-DD): %q", errBadParam, name, s)
}

func coordParam(c *gin.Context) (*domain.Coord, error) {
	s := c.Query("coord")
	if s == "" {
		return nil, nil
	}
	coord, err := domain.ParseCoord(s)
	if err != nil {
		return nil, err
	}
	return &coord, nil
}

func splitParam(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetValue handles GET /v1/climatology/value.
func (h *Handler) GetValue(c *gin.Context) {
	variable, err := domain.ParseVariable(c.Query("variable"))
	if err != nil {
		writeError(c, err)
		return
	}
	req := usecase.ValueRequest{
		Variable: variable,
		Units:    c.Query("units"),
	}
	if req.Lat, err = floatParam(c, "lat"); err != nil {
		writeError(c, err)
		return
	}
	if req.Lon, err = floatParam(c, "lon"); err != nil {
		writeError(c, err)
		return
	}
	if req.Date, err = dateParam(c, "date"); err != nil {
		writeError(c, err)
		return
	}
	if req.Month, err = optionalInt(c, "month", 0); err != nil {
		writeError(c, err)
		return
	}
	if req.DayOfYear, err = optionalInt(c, "day_of_year", 0); err != nil {
		writeError(c, err)
		return
	}
	if req.Coord, err = coordParam(c); err != nil {
		writeError(c, err)
		return
	}
	if req.Magnetic, err = optionalBool(c, "magnetic"); err != nil {
		writeError(c, err)
		return
	}

	response, err := h.climatologyUC.Value(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// parseContours reads the contour parameters, one request per variable.
func parseContours(c *gin.Context) ([]usecase.ContourRequest, error) {
	names := splitParam(c.Query("variable"))
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: variable parameter is required", errBadParam)
	}

	var base usecase.ContourRequest
	var err error
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"min_lat", &base.Extent.MinLat},
		{"max_lat", &base.Extent.MaxLat},
		{"min_lon", &base.Extent.MinLon},
		{"max_lon", &base.Extent.MaxLon},
	} {
		if *p.dst, err = floatParam(c, p.name); err != nil {
			return nil, err
		}
	}
	if base.WidthPx, err = optionalInt(c, "width", 0); err != nil {
		return nil, err
	}
	if base.HeightPx, err = optionalInt(c, "height", 0); err != nil {
		return nil, err
	}
	if base.Spacing, err = optionalFloat(c, "spacing", 0); err != nil {
		return nil, err
	}
	if base.Step, err = optionalFloat(c, "step", 0); err != nil {
		return nil, err
	}
	if base.Date, err = dateParam(c, "date"); err != nil {
		return nil, err
	}
	if base.Coord, err = coordParam(c); err != nil {
		return nil, err
	}
	base.Units = c.Query("units")

	reqs := make([]usecase.ContourRequest, len(names))
	for i, name := range names {
		v, err := domain.ParseVariable(name)
		if err != nil {
			return nil, err
		}
		reqs[i] = base
		reqs[i].Variable = v
	}
	return reqs, nil
}

// GetContours handles GET /v1/climatology/contours. A comma separated
// variable list returns one result per variable.
func (h *Handler) GetContours(c *gin.Context) {
	reqs, err := parseContours(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if len(reqs) == 1 {
		response, err := h.climatologyUC.Contours(c.Request.Context(), reqs[0])
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, response)
		return
	}
	results, err := h.climatologyUC.ContoursMany(c.Request.Context(), reqs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

// GetContoursPNG handles GET /v1/climatology/contours.png.
func (h *Handler) GetContoursPNG(c *gin.Context) {
	reqs, err := parseContours(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(reqs) != 1 {
		writeError(c, fmt.Errorf("%w: a PNG renders one variable", errBadParam))
		return
	}
	req := reqs[0]
	if req.WidthPx == 0 {
		req.WidthPx = usecase.DefaultWidthPx
	}
	if req.HeightPx == 0 {
		req.HeightPx = usecase.DefaultHeightPx
	}

	response, err := h.climatologyUC.Contours(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	vp := isobar.Viewport{Extent: req.Extent, WidthPx: req.WidthPx, HeightPx: req.HeightPx}
	var buf bytes.Buffer
	if err := render.PNG(&buf, response.Isobars, vp, render.DefaultStyle(render.LevelRange(response.Isobars))); err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// GetWindAtlas handles GET /v1/climatology/windatlas.
func (h *Handler) GetWindAtlas(c *gin.Context) {
	var req usecase.WindAtlasRequest
	var err error
	if req.Lat, err = floatParam(c, "lat"); err != nil {
		writeError(c, err)
		return
	}
	if req.Lon, err = floatParam(c, "lon"); err != nil {
		writeError(c, err)
		return
	}
	if req.Date, err = dateParam(c, "date"); err != nil {
		writeError(c, err)
		return
	}

	response, err := h.climatologyUC.WindAtlas(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetCrossings handles GET /v1/cyclones/crossings.
func (h *Handler) GetCrossings(c *gin.Context) {
	var req usecase.CrossingsRequest
	var err error
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"lat1", &req.Lat1},
		{"lon1", &req.Lon1},
		{"lat2", &req.Lat2},
		{"lon2", &req.Lon2},
	} {
		if *p.dst, err = floatParam(c, p.name); err != nil {
			writeError(c, err)
			return
		}
	}
	date, err := dateParam(c, "date")
	if err != nil {
		writeError(c, err)
		return
	}
	if date != nil {
		req.Date = *date
	}
	if req.DayRange, err = optionalInt(c, "day_range", 15); err != nil {
		writeError(c, err)
		return
	}
	if req.MinWindKnots, err = optionalFloat(c, "min_wind", 34); err != nil {
		writeError(c, err)
		return
	}
	if req.Since, err = optionalInt(c, "since", 0); err != nil {
		writeError(c, err)
		return
	}
	for _, code := range splitParam(c.Query("basin")) {
		b, err := domain.ParseBasin(code)
		if err != nil {
			writeError(c, fmt.Errorf("%w: %v", errBadParam, err))
			return
		}
		req.Basins = append(req.Basins, b)
	}

	minIdx, maxIdx := c.Query("elnino_min"), c.Query("elnino_max")
	if minIdx != "" || maxIdx != "" {
		f := domain.ElNinoFilter{}
		if f.Min, err = optionalFloat(c, "elnino_min", -100); err != nil {
			writeError(c, err)
			return
		}
		if f.Max, err = optionalFloat(c, "elnino_max", 100); err != nil {
			writeError(c, err)
			return
		}
		req.ElNino = &f
	}

	response, err := h.climatologyUC.Crossings(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetVariables handles GET /v1/variables.
func (h *Handler) GetVariables(c *gin.Context) {
	variables := h.climatologyUC.Variables()
	c.JSON(http.StatusOK, gin.H{
		"variables": variables,
		"count":     len(variables),
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	ds := h.climatologyUC.Dataset()
	loaded := 0
	for _, v := range domain.AllVariables() {
		if ds.Available(v) {
			loaded++
		}
	}
	failed := make([]string, 0)
	for _, v := range ds.Failures() {
		failed = append(failed, v.String())
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"time":      h.climatologyUC.Now().UTC().Format(time.RFC3339),
		"variables": loaded,
		"failed":    failed,
	})
}
