package domain

import (
	"math"
	"time"
)

// DaysPerYear is the length of the climatological (non-leap) year.
const DaysPerYear = 365

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// monthStart[m] is the zero-based day of year on which month m starts in a
// non-leap year.
var monthStart = func() [13]int {
	var s [13]int
	for m, d := range monthDays {
		s[m+1] = s[m] + d
	}
	return s
}()

// Interpolation selects two slices and the position of the date inside
// Month. Months are zero based; AnnualSlice marks the annual mean.
type Interpolation struct {
	Month     int
	NextMonth int
	Fraction  float64
}

// Annual is the interpolation used when no date is given.
func Annual() Interpolation {
	return Interpolation{Month: AnnualSlice, NextMonth: AnnualSlice}
}

// MonthOnly selects a single slice with no temporal blending.
func MonthOnly(slice int) Interpolation {
	return Interpolation{Month: slice, NextMonth: slice}
}

// IsAnnual reports whether in selects the annual slice.
func (in Interpolation) IsAnnual() bool {
	return in.Month == AnnualSlice && in.NextMonth == AnnualSlice
}

// Weight returns the blend weight of NextMonth. Monthly values are anchored
// at the middle of their month, so the weight is 0 at mid-month and 0.5 on
// a month boundary, where Month and NextMonth swap.
func (in Interpolation) Weight() float64 {
	if in.Month == in.NextMonth {
		return 0
	}
	return math.Abs(in.Fraction - 0.5)
}

// Locate places a date inside its month. A nil date selects the annual
// slice. Only the calendar fields of the date are used, in its own location.
func Locate(date *time.Time) Interpolation {
	if date == nil {
		return Annual()
	}
	year, month, day := date.Date()
	hour, minute, _ := date.Clock()
	m := int(month) - 1
	pos := float64(day-1) + float64(hour)/24 + float64(minute)/1440
	return locateIn(m, pos/float64(DaysIn(year, int(month))))
}

// LocateDayOfYear is the year-less variant of Locate over a 365-day year.
// doy is zero based and wraps.
func LocateDayOfYear(doy float64) Interpolation {
	doy = math.Mod(doy, DaysPerYear)
	if doy < 0 {
		doy += DaysPerYear
	}
	m := 0
	for m < 11 && doy >= float64(monthStart[m+1]) {
		m++
	}
	return locateIn(m, (doy-float64(monthStart[m]))/float64(monthDays[m]))
}

func locateIn(month int, fraction float64) Interpolation {
	if fraction < 0 {
		fraction = 0
	}
	if fraction >= 1 {
		fraction = math.Nextafter(1, 0)
	}
	next := month + 1
	if fraction < 0.5 {
		next = month - 1
	}
	return Interpolation{
		Month:     month,
		NextMonth: (next + MonthCount) % MonthCount,
		Fraction:  fraction,
	}
}

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the number of days in month (1-12) of year.
func DaysIn(year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	if month == 2 && IsLeap(year) {
		return 29
	}
	return monthDays[month-1]
}

// DayOfYear returns the one-based day of the climatological year for a
// month (1-12) and day. February 29 shares day 59 with February 28.
func DayOfYear(month, day int) int {
	if month < 1 {
		month = 1
	}
	if month > 12 {
		month = 12
	}
	if day < 1 {
		day = 1
	}
	if day > monthDays[month-1] {
		day = monthDays[month-1]
	}
	return monthStart[month-1] + day
}

// DayDistance is the circular distance in days between two days of year.
func DayDistance(a, b int) int {
	d := (a - b) % DaysPerYear
	if d < 0 {
		d = -d
	}
	if d > DaysPerYear-d {
		d = DaysPerYear - d
	}
	return d
}
