package isobar

import "math"

type endpointKey struct {
	lat, lon int64
}

func keyOf(p Point, tol float64) endpointKey {
	if tol <= 0 {
		return endpointKey{lat: int64(math.Float64bits(p.Lat)), lon: int64(math.Float64bits(p.Lon))}
	}
	return endpointKey{lat: int64(math.Round(p.Lat / tol)), lon: int64(math.Round(p.Lon / tol))}
}

// stitch joins segments sharing endpoints into polylines. Every segment is
// consumed exactly once, so the walk always terminates; segments with no
// neighbour come out as two-point lines.
func stitch(segs []segment, tol float64) [][]Point {
	ends := make(map[endpointKey][]int, 2*len(segs))
	for i, s := range segs {
		ends[keyOf(s.a, tol)] = append(ends[keyOf(s.a, tol)], i)
		ends[keyOf(s.b, tol)] = append(ends[keyOf(s.b, tol)], i)
	}
	used := make([]bool, len(segs))

	// next consumes an unused segment touching p and returns its far end.
	next := func(p Point) (Point, bool) {
		k := keyOf(p, tol)
		for _, i := range ends[k] {
			if used[i] {
				continue
			}
			used[i] = true
			if keyOf(segs[i].a, tol) == k {
				return segs[i].b, true
			}
			return segs[i].a, true
		}
		return Point{}, false
	}

	var lines [][]Point
	for i, s := range segs {
		if used[i] {
			continue
		}
		used[i] = true

		forward := []Point{s.a, s.b}
		for p, ok := next(s.b); ok; p, ok = next(p) {
			forward = append(forward, p)
		}
		var backward []Point
		for p, ok := next(s.a); ok; p, ok = next(p) {
			backward = append(backward, p)
		}

		line := make([]Point, 0, len(backward)+len(forward))
		for j := len(backward) - 1; j >= 0; j-- {
			line = append(line, backward[j])
		}
		lines = append(lines, append(line, forward...))
	}
	return lines
}
