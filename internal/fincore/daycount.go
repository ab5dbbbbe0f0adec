package fincore

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DayCount identifies a day count convention for interest accrual
type DayCount string

const (
	DayCount30360     DayCount = "30/360"
	DayCountACT365    DayCount = "ACT/365"
	DayCountACT360    DayCount = "ACT/360"
	DayCountACTACT    DayCount = "ACT/ACT"
)

var ErrUnknownDayCount = errors.New("unknown day count convention")

var (
	d360 = decimal.NewFromInt(360)
	d365 = decimal.NewFromInt(365)
	d366 = decimal.NewFromInt(366)
)

// ParseDayCount validates and normalizes a day count convention string
func ParseDayCount(s string) (DayCount, error) {
	switch DayCount(s) {
	case DayCount30360, DayCountACT365, DayCountACT360, DayCountACTACT:
		return DayCount(s), nil
	}
	return "", ErrUnknownDayCount
}

// DaysBetween returns the number of accrual days from start to end under the
// convention. Actual-day conventions count calendar days; 30/360 applies the
// US end-of-month adjustments.
func DaysBetween(start, end time.Time, dc DayCount) int {
	if !end.After(start) {
		return 0
	}
	if dc == DayCount30360 {
		return days30360(start, end)
	}
	return int(truncateDay(end).Sub(truncateDay(start)).Hours() / 24)
}

// YearFraction returns the fraction of a year from start to end under the
// convention, rounded to rate precision. Returns zero when end <= start.
func YearFraction(start, end time.Time, dc DayCount) (decimal.Decimal, error) {
	if !end.After(start) {
		return decimal.Zero, nil
	}
	switch dc {
	case DayCount30360:
		days := decimal.NewFromInt(int64(days30360(start, end)))
		return RoundRate(days.Div(d360)), nil
	case DayCountACT365:
		days := decimal.NewFromInt(int64(DaysBetween(start, end, dc)))
		return RoundRate(days.Div(d365)), nil
	case DayCountACT360:
		days := decimal.NewFromInt(int64(DaysBetween(start, end, dc)))
		return RoundRate(days.Div(d360)), nil
	case DayCountACTACT:
		return RoundRate(actActISDA(start, end)), nil
	}
	return decimal.Zero, ErrUnknownDayCount
}

func days30360(start, end time.Time) int {
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.Date()

	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 >= 30 {
		d2 = 30
	}

	return 360*(y2-y1) + 30*(int(m2)-int(m1)) + (d2 - d1)
}

// actActISDA splits the interval at year boundaries and divides the days in
// each calendar year by that year's actual length.
func actActISDA(start, end time.Time) decimal.Decimal {
	total := decimal.Zero
	cur := truncateDay(start)
	stop := truncateDay(end)

	for cur.Year() < stop.Year() {
		yearEnd := time.Date(cur.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)
		days := decimal.NewFromInt(int64(yearEnd.Sub(cur).Hours() / 24))
		total = total.Add(days.Div(yearLength(cur.Year())))
		cur = yearEnd
	}

	days := decimal.NewFromInt(int64(stop.Sub(cur).Hours() / 24))
	return total.Add(days.Div(yearLength(cur.Year())))
}

func yearLength(year int) decimal.Decimal {
	if isLeapYear(year) {
		return d366
	}
	return d365
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
