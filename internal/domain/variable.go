package domain

import (
	"fmt"
	"strings"
)

// Variable is one climatology layer.
type Variable int

const (
	Wind Variable = iota
	Current
	Pressure
	SeaTemperature
	AirTemperature
	CloudCover
	Precipitation
	RelativeHumidity
	Lightning
	SeaDepth
	Cyclones
)

// VariableCount is the number of defined variables.
const VariableCount = int(Cyclones) + 1

var variableNames = [...]string{
	"wind",
	"current",
	"pressure",
	"sea_temperature",
	"air_temperature",
	"cloud_cover",
	"precipitation",
	"relative_humidity",
	"lightning",
	"sea_depth",
	"cyclones",
}

// Display ranges in base units.
var variableRanges = [...][2]float64{
	{0, 40},     // knots
	{0, 3},      // knots
	{980, 1030}, // mb
	{-2, 32},    // °C
	{-40, 40},   // °C
	{0, 100},    // %
	{0, 15},     // mm/day
	{0, 100},    // %
	{0, 40},     // flashes/km²/year
	{0, 8000},   // m
	{0, 1},      // crossings/year
}

func (v Variable) String() string {
	if v < 0 || int(v) >= len(variableNames) {
		return fmt.Sprintf("variable(%d)", int(v))
	}
	return variableNames[v]
}

// ParseVariable parses a variable name as produced by String.
func ParseVariable(s string) (Variable, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	for i, n := range variableNames {
		if s == n {
			return Variable(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariable, s)
}

// AllVariables lists every variable in display order.
func AllVariables() []Variable {
	out := make([]Variable, VariableCount)
	for i := range out {
		out[i] = Variable(i)
	}
	return out
}

// Range returns the display minimum and maximum in base units.
func (v Variable) Range() (min, max float64) {
	if v < 0 || int(v) >= len(variableRanges) {
		return 0, 0
	}
	r := variableRanges[v]
	return r[0], r[1]
}

// IsScalar reports whether the variable is stored as a GriddedField.
func (v Variable) IsScalar() bool {
	return v >= Pressure && v <= SeaDepth
}

// DefaultCoord is the coordinate read when a caller names none.
func (v Variable) DefaultCoord() Coord {
	return CoordMagnitude
}

// Supports reports whether coord can be read from v.
func (v Variable) Supports(c Coord) bool {
	switch {
	case v == Wind:
		return c >= CoordU && c <= CoordCalm
	case v == Current:
		return c >= CoordU && c <= CoordDirection
	case v.IsScalar():
		return c == CoordMagnitude
	}
	return false
}
