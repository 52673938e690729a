package isobar

import (
	"fmt"
	"math"
)

type cell struct {
	lat0, lat1     float64
	lon0, lon1     float64
	bl, br, tl, tr float64
}

type segment struct {
	a, b Point
}

const (
	edgeBottom = iota
	edgeRight
	edgeTop
	edgeLeft
)

// caseEdges lists the edge pairs crossed for each corner configuration
// (bit 0 bl, 1 br, 2 tr, 3 tl set when the corner is above the level).
// Saddles (5 and 10) are resolved separately.
var caseEdges = [16][][2]int{
	1:  {{edgeLeft, edgeBottom}},
	2:  {{edgeBottom, edgeRight}},
	3:  {{edgeLeft, edgeRight}},
	4:  {{edgeRight, edgeTop}},
	6:  {{edgeBottom, edgeTop}},
	7:  {{edgeLeft, edgeTop}},
	8:  {{edgeTop, edgeLeft}},
	9:  {{edgeBottom, edgeTop}},
	11: {{edgeRight, edgeTop}},
	12: {{edgeLeft, edgeRight}},
	13: {{edgeBottom, edgeRight}},
	14: {{edgeLeft, edgeBottom}},
}

// contourCell appends the segments of every level crossing c.
func (x *Extractor) contourCell(c cell, s Settings, out map[float64][]segment) error {
	lo := math.Min(math.Min(c.bl, c.br), math.Min(c.tl, c.tr))
	hi := math.Max(math.Max(c.bl, c.br), math.Max(c.tl, c.tr))
	if math.IsNaN(lo) || math.IsNaN(hi) || lo == hi {
		return nil
	}

	kmin := int(math.Floor(lo/s.Spacing)) - 1
	kmax := int(math.Ceil(hi/s.Spacing)) + 1
	if kmax-kmin > x.opts.MaxLevels {
		return fmt.Errorf("%w: %d levels between %.4g and %.4g", ErrTooManyLevels, kmax-kmin, lo, hi)
	}

	prev := math.NaN()
	for k := kmin; k <= kmax; k++ {
		l := s.Level(k)
		if l == prev || l < lo || l >= hi {
			continue
		}
		prev = l
		for _, e := range cellEdges(c, l) {
			a, b := c.crossing(e[0], l), c.crossing(e[1], l)
			if a == b {
				continue
			}
			out[l] = append(out[l], segment{a: a, b: b})
		}
	}
	return nil
}

func cellEdges(c cell, l float64) [][2]int {
	idx := 0
	if c.bl > l {
		idx |= 1
	}
	if c.br > l {
		idx |= 2
	}
	if c.tr > l {
		idx |= 4
	}
	if c.tl > l {
		idx |= 8
	}

	centreAbove := (c.bl+c.br+c.tl+c.tr)/4 > l
	switch idx {
	case 5: // bl and tr above
		if centreAbove {
			return [][2]int{{edgeLeft, edgeTop}, {edgeBottom, edgeRight}}
		}
		return [][2]int{{edgeLeft, edgeBottom}, {edgeRight, edgeTop}}
	case 10: // br and tl above
		if centreAbove {
			return [][2]int{{edgeLeft, edgeBottom}, {edgeRight, edgeTop}}
		}
		return [][2]int{{edgeBottom, edgeRight}, {edgeTop, edgeLeft}}
	}
	return caseEdges[idx]
}

// crossing interpolates the level position along an edge. Each edge is
// always walked west to east or south to north, so the two cells sharing an
// edge produce the same point.
func (c cell) crossing(edge int, l float64) Point {
	switch edge {
	case edgeBottom:
		return Point{Lat: c.lat0, Lon: lerp(c.lon0, c.lon1, c.bl, c.br, l)}
	case edgeTop:
		return Point{Lat: c.lat1, Lon: lerp(c.lon0, c.lon1, c.tl, c.tr, l)}
	case edgeLeft:
		return Point{Lat: lerp(c.lat0, c.lat1, c.bl, c.tl, l), Lon: c.lon0}
	default:
		return Point{Lat: lerp(c.lat0, c.lat1, c.br, c.tr, l), Lon: c.lon1}
	}
}

func lerp(p0, p1, v0, v1, l float64) float64 {
	if v1 == v0 {
		return (p0 + p1) / 2
	}
	t := (l - v0) / (v1 - v0)
	return p0 + t*(p1-p0)
}
