package ncgrid

import (
	"fmt"
	"math"
	"sort"

	"go.ngs.io/climatology-api/internal/adapter/interp"
	"go.ngs.io/climatology-api/internal/domain"
)

// grid is a source grid with latitude increasing and longitude increasing
// in [0, 360). Slices are row-major lat x lon.
type grid struct {
	lats, lons []float64
	slices     [][]float64
	global     bool
}

// orient reorders a grid read from a file so that both axes increase.
// Longitudes are wrapped to [0, 360) and the columns rotated to match.
func orient(lats, lons []float64, slices [][]float64) (*grid, error) {
	nLat, nLon := len(lats), len(lons)
	if nLat < 1 || nLon < 2 {
		return nil, fmt.Errorf("grid too small: %d x %d", nLat, nLon)
	}

	latOrder := make([]int, nLat)
	for i := range latOrder {
		latOrder[i] = i
	}
	if nLat > 1 && lats[0] > lats[nLat-1] {
		for i := range latOrder {
			latOrder[i] = nLat - 1 - i
		}
	}

	lonOrder := make([]int, nLon)
	for j := range lonOrder {
		lonOrder[j] = j
	}
	wrapped := make([]float64, nLon)
	for j, lon := range lons {
		wrapped[j] = domain.NormalizeLon(lon)
	}
	sort.SliceStable(lonOrder, func(a, b int) bool { return wrapped[lonOrder[a]] < wrapped[lonOrder[b]] })

	g := &grid{lats: make([]float64, nLat), lons: make([]float64, nLon)}
	for i, src := range latOrder {
		g.lats[i] = lats[src]
	}
	for j, src := range lonOrder {
		g.lons[j] = wrapped[src]
	}
	for i := 1; i < nLat; i++ {
		if g.lats[i] <= g.lats[i-1] {
			return nil, fmt.Errorf("latitude axis is not monotonic at %d", i)
		}
	}
	for j := 1; j < nLon; j++ {
		if g.lons[j] <= g.lons[j-1] {
			return nil, fmt.Errorf("longitude axis has duplicate value %.4f", g.lons[j])
		}
	}

	// A grid is global when one more step past the last column reaches the
	// first column again.
	step := (g.lons[nLon-1] - g.lons[0]) / float64(nLon-1)
	g.global = math.Abs(g.lons[nLon-1]+step-(g.lons[0]+360)) < step/2

	for _, s := range slices {
		out := make([]float64, nLat*nLon)
		for i, si := range latOrder {
			for j, sj := range lonOrder {
				out[i*nLon+j] = s[si*nLon+sj]
			}
		}
		g.slices = append(g.slices, out)
	}
	return g, nil
}

// matches reports whether the grid already sits on the lattice points of res.
func (g *grid) matches(res domain.Resolution) bool {
	const eps = 1e-6
	if len(g.lats) != res.LatCount || len(g.lons) != res.LonCount {
		return false
	}
	for i, lat := range g.lats {
		if math.Abs(lat-res.Lat(i)) > eps {
			return false
		}
	}
	// Lattice columns start at the origin and wrap, so compare as sets.
	want := make([]float64, res.LonCount)
	for j := range want {
		want[j] = res.Lon(j)
	}
	sort.Float64s(want)
	for j, lon := range g.lons {
		if math.Abs(lon-want[j]) > eps {
			return false
		}
	}
	return true
}

// resample maps slice s onto res. Values outside the source coverage and
// cells whose interpolation touches a fill value become NaN.
func (g *grid) resample(s int, res domain.Resolution) ([]float32, error) {
	src := g.slices[s]
	nLat, nLon := len(g.lats), len(g.lons)
	out := make([]float32, res.Cells())

	if g.matches(res) {
		col := make([]int, res.LonCount)
		for j := range col {
			col[j] = sort.SearchFloat64s(g.lons, res.Lon(j)-1e-6)
		}
		for i := 0; i < res.LatCount; i++ {
			for j := 0; j < res.LonCount; j++ {
				out[res.Index(i, j)] = float32(src[i*nLon+col[j]])
			}
		}
		return out, nil
	}

	// Single-row sources cannot be interpolated in latitude; duplicate the row
	// so Grid2D has a cell to work with.
	lats := g.lats
	rows := make([][]float64, nLat)
	for i := range rows {
		rows[i] = src[i*nLon : (i+1)*nLon]
	}
	if nLat == 1 {
		lats = []float64{g.lats[0] - 1, g.lats[0] + 1}
		rows = [][]float64{rows[0], rows[0]}
	}

	g2 := interp.Grid2D{X: g.lons, Y: lats, Values: rows}
	if g.global {
		g2.X = append(append([]float64(nil), g.lons...), g.lons[0]+360)
		g2.Values = make([][]float64, len(rows))
		for i, row := range rows {
			g2.Values[i] = append(append([]float64(nil), row...), row[0])
		}
	}
	if err := g2.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source grid: %w", err)
	}

	yMin, yMax := g2.Y[0], g2.Y[len(g2.Y)-1]
	for i := 0; i < res.LatCount; i++ {
		y := math.Max(yMin, math.Min(yMax, res.Lat(i)))
		for j := 0; j < res.LonCount; j++ {
			x := res.Lon(j)
			if x < g2.X[0] {
				x += 360
			}
			// Fill values and points outside a regional source are both missing.
			v, err := g2.InterpolateAt(x, y)
			if err != nil {
				v = math.NaN()
			}
			out[res.Index(i, j)] = float32(v)
		}
	}
	return out, nil
}
