package ncgrid

import "go.ngs.io/climatology-api/internal/domain"

// Series is a time series of grids read from one NetCDF variable, with
// both axes oriented.
type Series struct {
	g *grid
}

// ReadSeries reads every time step of the first of names found in path.
func ReadSeries(path string, names []string) (*Series, error) {
	g, err := readGrid(path, names)
	if err != nil {
		return nil, err
	}
	return &Series{g: g}, nil
}

// Len returns the number of time steps.
func (s *Series) Len() int {
	return len(s.g.slices)
}

// Shape returns the source grid size.
func (s *Series) Shape() (nLat, nLon int) {
	return len(s.g.lats), len(s.g.lons)
}

// Resample maps time step i onto res.
func (s *Series) Resample(i int, res domain.Resolution) ([]float32, error) {
	return s.g.resample(i, res)
}
