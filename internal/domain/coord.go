package domain

import (
	"fmt"
	"strings"
)

// Coord selects which scalar is read out of a vector or wind distribution.
type Coord int

const (
	CoordU Coord = iota
	CoordV
	CoordMagnitude
	CoordDirection
	CoordStorm
	CoordCalm
)

var coordNames = [...]string{"u", "v", "magnitude", "direction", "storm", "calm"}

func (c Coord) String() string {
	if c < 0 || int(c) >= len(coordNames) {
		return fmt.Sprintf("coord(%d)", int(c))
	}
	return coordNames[c]
}

// ParseCoord parses a coordinate name. "mag" and "dir" are accepted.
func ParseCoord(s string) (Coord, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mag":
		return CoordMagnitude, nil
	case "dir":
		return CoordDirection, nil
	}
	for i, n := range coordNames {
		if strings.EqualFold(strings.TrimSpace(s), n) {
			return Coord(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCoord, s)
}

// IsAngle reports whether the coordinate is a bearing in degrees.
func (c Coord) IsAngle() bool {
	return c == CoordDirection
}

// IsProbability reports whether the coordinate is a [0,1] probability.
func (c Coord) IsProbability() bool {
	return c == CoordStorm || c == CoordCalm
}
