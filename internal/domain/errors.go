package domain

import "errors"

var (
	// ErrUnknownVariable is returned when a variable name cannot be parsed.
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrUnknownCoord is returned when a coordinate name cannot be parsed.
	ErrUnknownCoord = errors.New("unknown coordinate")
	// ErrUnknownUnit is returned when a unit is not defined for a variable.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrInvalidTrack is returned for a cyclone track that breaks ordering rules.
	ErrInvalidTrack = errors.New("invalid cyclone track")
	// ErrVariableUnavailable is returned for a variable that is not loaded.
	ErrVariableUnavailable = errors.New("variable unavailable")
	// ErrInvalidResolution is returned for a lattice that does not tile the globe.
	ErrInvalidResolution = errors.New("invalid resolution")
)
