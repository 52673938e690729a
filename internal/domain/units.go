package domain

import (
	"fmt"
	"strings"
)

// Unit converts a base-unit value: out = in*Scale + Offset.
type Unit struct {
	Name   string
	Scale  float64
	Offset float64
}

// Apply converts a value from the variable's base unit.
func (u Unit) Apply(v float64) float64 {
	return v*u.Scale + u.Offset
}

var (
	speedUnits = []Unit{
		{Name: "knots", Scale: 1},
		{Name: "m/s", Scale: 0.514444},
		{Name: "km/h", Scale: 1.852},
		{Name: "mph", Scale: 1.150779},
	}
	pressureUnits = []Unit{
		{Name: "mb", Scale: 1},
		{Name: "inHg", Scale: 0.0295300},
		{Name: "mmHg", Scale: 0.750062},
	}
	temperatureUnits = []Unit{
		{Name: "C", Scale: 1},
		{Name: "F", Scale: 1.8, Offset: 32},
	}
	percentUnits       = []Unit{{Name: "%", Scale: 1}}
	precipitationUnits = []Unit{
		{Name: "mm/day", Scale: 1},
		{Name: "in/day", Scale: 1 / 25.4},
	}
	lightningUnits = []Unit{{Name: "flashes/km2/year", Scale: 1}}
	depthUnits     = []Unit{
		{Name: "m", Scale: 1},
		{Name: "ft", Scale: 3.28084},
		{Name: "fathoms", Scale: 0.546807},
	}
	frequencyUnits = []Unit{{Name: "per year", Scale: 1}}
)

// Units returns the units a variable can be displayed in; the first entry is
// the base unit.
func (v Variable) Units() []Unit {
	switch v {
	case Wind, Current:
		return speedUnits
	case Pressure:
		return pressureUnits
	case SeaTemperature, AirTemperature:
		return temperatureUnits
	case CloudCover, RelativeHumidity:
		return percentUnits
	case Precipitation:
		return precipitationUnits
	case Lightning:
		return lightningUnits
	case SeaDepth:
		return depthUnits
	case Cyclones:
		return frequencyUnits
	}
	return nil
}

// Unit looks up a unit by name. An empty name selects the base unit.
func (v Variable) Unit(name string) (Unit, error) {
	units := v.Units()
	if len(units) == 0 {
		return Unit{}, fmt.Errorf("%w: %s has no units", ErrUnknownUnit, v)
	}
	if name == "" {
		return units[0], nil
	}
	for _, u := range units {
		if strings.EqualFold(u.Name, name) {
			return u, nil
		}
	}
	return Unit{}, fmt.Errorf("%w: %q for %s", ErrUnknownUnit, name, v)
}

// Calibrate converts a base-unit readout of coord into unit. Angles and
// probabilities are not converted.
func Calibrate(v float64, c Coord, u Unit) float64 {
	if c.IsAngle() || c.IsProbability() {
		return v
	}
	if c == CoordU || c == CoordV {
		// Components are signed; an offset would be meaningless.
		return v * u.Scale
	}
	return u.Apply(v)
}
