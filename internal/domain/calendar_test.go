package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d, h, min int) *time.Time {
	t := time.Date(y, m, d, h, min, 0, 0, time.UTC)
	return &t
}

func TestLocate_NoDate(t *testing.T) {
	in := Locate(nil)
	assert.Equal(t, Interpolation{Month: AnnualSlice, NextMonth: AnnualSlice, Fraction: 0}, in)
	assert.True(t, in.IsAnnual())
	assert.Zero(t, in.Weight())
}

func TestLocate_MidMonth(t *testing.T) {
	in := Locate(date(2021, time.April, 15, 0, 0))
	assert.Equal(t, 3, in.Month)
	assert.Equal(t, 2, in.NextMonth, "first half of April pairs with March")
	assert.InDelta(t, 0.5, in.Fraction, 0.05)

	in = Locate(date(2021, time.April, 16, 12, 0))
	assert.Equal(t, 4, in.NextMonth, "second half of April pairs with May")
	assert.InDelta(t, 15.5/30, in.Fraction, 1e-12)
}

func TestLocate_YearWrap(t *testing.T) {
	in := Locate(date(2021, time.January, 2, 0, 0))
	assert.Equal(t, 0, in.Month)
	assert.Equal(t, 11, in.NextMonth)

	in = Locate(date(2021, time.December, 20, 0, 0))
	assert.Equal(t, 11, in.Month)
	assert.Equal(t, 0, in.NextMonth)
}

func TestLocate_SwapsAtMonthBoundary(t *testing.T) {
	before := Locate(date(2021, time.April, 30, 23, 59))
	after := Locate(date(2021, time.May, 1, 0, 0))

	assert.Equal(t, before.Month, after.NextMonth)
	assert.Equal(t, before.NextMonth, after.Month)
	assert.InDelta(t, 1.0, before.Fraction, 1e-4)
	assert.InDelta(t, 0.0, after.Fraction, 1e-12)
	assert.InDelta(t, before.Weight(), after.Weight(), 1e-4)
}

func TestLocate_LeapFebruary(t *testing.T) {
	in := Locate(date(2024, time.February, 29, 0, 0))
	assert.Equal(t, 1, in.Month)
	assert.InDelta(t, 28.0/29, in.Fraction, 1e-12)
	assert.Less(t, in.Fraction, 1.0)
}

func TestLocateDayOfYear(t *testing.T) {
	in := LocateDayOfYear(0)
	assert.Equal(t, Interpolation{Month: 0, NextMonth: 11, Fraction: 0}, in)

	in = LocateDayOfYear(365 + 45)
	assert.Equal(t, 1, in.Month)
	assert.Equal(t, 2, in.NextMonth)
	assert.InDelta(t, 0.5, in.Fraction, 1e-12)

	in = LocateDayOfYear(-1)
	assert.Equal(t, 11, in.Month)
	assert.Equal(t, 0, in.NextMonth)
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 28, DaysIn(2023, 2))
	assert.Equal(t, 29, DaysIn(2024, 2))
	assert.Equal(t, 28, DaysIn(1900, 2))
	assert.Equal(t, 29, DaysIn(2000, 2))
	assert.Equal(t, 31, DaysIn(2023, 12))
	assert.Equal(t, 0, DaysIn(2023, 13))
}

func TestDayOfYear(t *testing.T) {
	assert.Equal(t, 1, DayOfYear(1, 1))
	assert.Equal(t, 59, DayOfYear(2, 28))
	assert.Equal(t, 59, DayOfYear(2, 29))
	assert.Equal(t, 60, DayOfYear(3, 1))
	assert.Equal(t, 365, DayOfYear(12, 31))
}

func TestDayDistance(t *testing.T) {
	assert.Equal(t, 0, DayDistance(100, 100))
	assert.Equal(t, 10, DayDistance(10, 20))
	assert.Equal(t, 10, DayDistance(20, 10))
	assert.Equal(t, 1, DayDistance(1, 365))
	assert.Equal(t, 182, DayDistance(1, 183))
	assert.Equal(t, 182, DayDistance(1, 184))
}
