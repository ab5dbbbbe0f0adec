package fincore

import (
	"errors"
	"time"
)

// BusinessDayMode identifies a due date adjustment rule
type BusinessDayMode string

const (
	BusinessDayNone              BusinessDayMode = "none"
	BusinessDayFollowing         BusinessDayMode = "following"
	BusinessDayPreceding         BusinessDayMode = "preceding"
	BusinessDayModifiedFollowing BusinessDayMode = "modified_following"
	BusinessDayModifiedPreceding BusinessDayMode = "modified_preceding"
)

var ErrUnknownBusinessDayMode = errors.New("unknown business day mode")

// ParseBusinessDayMode validates and normalizes an adjustment mode string
func ParseBusinessDayMode(s string) (BusinessDayMode, error) {
	switch BusinessDayMode(s) {
	case BusinessDayNone, BusinessDayFollowing, BusinessDayPreceding,
		BusinessDayModifiedFollowing, BusinessDayModifiedPreceding:
		return BusinessDayMode(s), nil
	}
	return "", ErrUnknownBusinessDayMode
}

// Calendar holds a holiday set and weekend definition for due date adjustment
type Calendar struct {
	holidays map[string]struct{}
	weekend  map[time.Weekday]struct{}
}

// NewCalendar builds a calendar from holiday dates. Saturday and Sunday are
// weekend days unless weekendDays overrides them.
func NewCalendar(holidays []time.Time, weekendDays ...time.Weekday) *Calendar {
	c := &Calendar{
		holidays: make(map[string]struct{}, len(holidays)),
		weekend:  make(map[time.Weekday]struct{}, 2),
	}
	for _, h := range holidays {
		c.holidays[h.Format("2006-01-02")] = struct{}{}
	}
	if len(weekendDays) == 0 {
		weekendDays = []time.Weekday{time.Saturday, time.Sunday}
	}
	for _, w := range weekendDays {
		c.weekend[w] = struct{}{}
	}
	return c
}

// IsBusinessDay reports whether d is neither a weekend day nor a holiday
func (c *Calendar) IsBusinessDay(d time.Time) bool {
	if _, off := c.weekend[d.Weekday()]; off {
		return false
	}
	_, holiday := c.holidays[d.Format("2006-01-02")]
	return !holiday
}

// Adjust moves d to a business day according to the mode. Modified variants
// reverse direction when the roll would cross a month boundary.
func (c *Calendar) Adjust(d time.Time, mode BusinessDayMode) time.Time {
	if mode == BusinessDayNone || c.IsBusinessDay(d) {
		return d
	}
	switch mode {
	case BusinessDayFollowing:
		return c.roll(d, 1)
	case BusinessDayPreceding:
		return c.roll(d, -1)
	case BusinessDayModifiedFollowing:
		adj := c.roll(d, 1)
		if adj.Month() != d.Month() {
			return c.roll(d, -1)
		}
		return adj
	case BusinessDayModifiedPreceding:
		adj := c.roll(d, -1)
		if adj.Month() != d.Month() {
			return c.roll(d, 1)
		}
		return adj
	}
	return d
}

func (c *Calendar) roll(d time.Time, step int) time.Time {
	for !c.IsBusinessDay(d) {
		d = d.AddDate(0, 0, step)
	}
	return d
}
