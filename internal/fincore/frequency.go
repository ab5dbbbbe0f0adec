package fincore

import (
	"errors"
	"time"
)

// Frequency identifies a repayment frequency
type Frequency string

const (
	FrequencyWeekly     Frequency = "weekly"
	FrequencyBiweekly   Frequency = "biweekly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiannual Frequency = "semiannual"
	FrequencyAnnual     Frequency = "annual"
)

var ErrUnknownFrequency = errors.New("unknown repayment frequency")

// ParseFrequency validates and normalizes a frequency string
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly,
		FrequencyQuarterly, FrequencySemiannual, FrequencyAnnual:
		return Frequency(s), nil
	}
	return "", ErrUnknownFrequency
}

// PeriodsPerYear returns the number of repayment periods in a year
func (f Frequency) PeriodsPerYear() int {
	switch f {
	case FrequencyWeekly:
		return 52
	case FrequencyBiweekly:
		return 26
	case FrequencyMonthly:
		return 12
	case FrequencyQuarterly:
		return 4
	case FrequencySemiannual:
		return 2
	case FrequencyAnnual:
		return 1
	}
	return 0
}

// monthsPerPeriod is zero for day-based frequencies
func (f Frequency) monthsPerPeriod() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencySemiannual:
		return 6
	case FrequencyAnnual:
		return 12
	}
	return 0
}

func (f Frequency) daysPerPeriod() int {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyBiweekly:
		return 14
	}
	return 0
}

// AddPeriods advances a date by n repayment periods. Month-based frequencies
// clamp to the last day of the target month so a Jan 31 start yields Feb 28
// rather than rolling into March.
func (f Frequency) AddPeriods(d time.Time, n int) time.Time {
	if days := f.daysPerPeriod(); days > 0 {
		return d.AddDate(0, 0, days*n)
	}
	return addMonthsClamped(d, f.monthsPerPeriod()*n)
}

// NextDueDate returns the due date one period after d
func (f Frequency) NextDueDate(d time.Time) time.Time {
	return f.AddPeriods(d, 1)
}

func addMonthsClamped(d time.Time, months int) time.Time {
	y, m, day := d.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, d.Location())
	last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month())
	if day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, d.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
