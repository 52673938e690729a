package usecase

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// DeclinationFunc returns the magnetic declination at a point in degrees,
// positive east.
type DeclinationFunc func(lat, lon float64, at time.Time) (float64, error)

// WMMDeclination evaluates the World Magnetic Model at sea level.
func WMMDeclination(lat, lon float64, at time.Time) (float64, error) {
	loc := egm96.NewLocationGeodetic(lat, lon, 0)
	mag, err := wmm.CalculateWMMMagneticField(loc, at)
	if err != nil {
		return 0, err
	}
	return mag.D(), nil
}

// ToMagnetic converts a true bearing to a magnetic bearing in [0, 360).
func ToMagnetic(bearing, declination float64) float64 {
	b := math.Mod(bearing-declination, 360)
	if b < 0 {
		b += 360
	}
	return b
}
