package domain

import "math"

// ElNinoYear holds the monthly ENSO index of one year; NaN marks a month
// without a value.
type ElNinoYear struct {
	Months [12]float64
}

// ElNinoTable maps a year to its monthly indices.
type ElNinoTable map[int]ElNinoYear

// Index returns the index for year and month (1-12).
func (t ElNinoTable) Index(year, month int) (float64, bool) {
	if month < 1 || month > 12 {
		return 0, false
	}
	y, ok := t[year]
	if !ok {
		return 0, false
	}
	v := y.Months[month-1]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ElNinoFilter keeps states whose monthly index lies within [Min, Max].
type ElNinoFilter struct {
	Min float64
	Max float64
}

// Accept reports whether the index for year/month passes the filter. Months
// without an index never pass.
func (f ElNinoFilter) Accept(t ElNinoTable, year, month int) bool {
	v, ok := t.Index(year, month)
	return ok && v >= f.Min && v <= f.Max
}
