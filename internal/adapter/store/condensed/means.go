package condensed

import (
	"fmt"
	"math"

	"go.ngs.io/climatology-api/internal/domain"
)

// Accepted precipitation range in mm/day; samples outside it are treated as
// bad data.
const (
	MinAccepted = 0
	MaxAccepted = 30
)

// MonthlyMeans folds a monthly time series into twelve climatological
// months. Step k belongs to month (first+k) mod 12. Samples outside
// [lo, hi] or NaN are skipped; a cell with no accepted sample is NaN.
func MonthlyMeans(steps [][]float32, first int, lo, hi float64) ([][]float32, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("empty time series")
	}
	if first < 0 || first >= domain.MonthCount {
		return nil, fmt.Errorf("first month %d out of range", first)
	}
	cells := len(steps[0])
	sums := make([][]float64, domain.MonthCount)
	counts := make([][]int, domain.MonthCount)
	for m := range sums {
		sums[m] = make([]float64, cells)
		counts[m] = make([]int, cells)
	}
	for k, step := range steps {
		if len(step) != cells {
			return nil, fmt.Errorf("time step %d has %d cells, expected %d", k, len(step), cells)
		}
		m := (first + k) % domain.MonthCount
		for i, v := range step {
			x := float64(v)
			if math.IsNaN(x) || x < lo || x > hi {
				continue
			}
			sums[m][i] += x
			counts[m][i]++
		}
	}

	out := make([][]float32, domain.MonthCount)
	for m := range out {
		out[m] = make([]float32, cells)
		for i := range out[m] {
			if counts[m][i] == 0 {
				out[m][i] = float32(math.NaN())
				continue
			}
			out[m][i] = float32(sums[m][i] / float64(counts[m][i]))
		}
	}
	return out, nil
}
