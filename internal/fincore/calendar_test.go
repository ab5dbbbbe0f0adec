package fincore

import (
	"testing"
	"time"
)

func TestIsBusinessDay(t *testing.T) {
	cal := NewCalendar([]time.Time{date(2024, 1, 26)})

	if cal.IsBusinessDay(date(2024, 1, 6)) { // Saturday
		t.Error("Saturday should not be a business day")
	}
	if cal.IsBusinessDay(date(2024, 1, 7)) { // Sunday
		t.Error("Sunday should not be a business day")
	}
	if cal.IsBusinessDay(date(2024, 1, 26)) { // holiday
		t.Error("holiday should not be a business day")
	}
	if !cal.IsBusinessDay(date(2024, 1, 8)) { // Monday
		t.Error("Monday should be a business day")
	}
}

func TestAdjustFollowing(t *testing.T) {
	cal := NewCalendar(nil)

	got := cal.Adjust(date(2024, 1, 6), BusinessDayFollowing) // Saturday
	if !got.Equal(date(2024, 1, 8)) {
		t.Errorf("expected Monday 2024-01-08, got %s", got.Format("2006-01-02"))
	}
}

func TestAdjustPreceding(t *testing.T) {
	cal := NewCalendar(nil)

	got := cal.Adjust(date(2024, 1, 7), BusinessDayPreceding) // Sunday
	if !got.Equal(date(2024, 1, 5)) {
		t.Errorf("expected Friday 2024-01-05, got %s", got.Format("2006-01-02"))
	}
}

func TestAdjustModifiedFollowingStaysInMonth(t *testing.T) {
	cal := NewCalendar(nil)

	// 2024-03-30 is a Saturday; following would cross into April
	got := cal.Adjust(date(2024, 3, 30), BusinessDayModifiedFollowing)
	if !got.Equal(date(2024, 3, 29)) {
		t.Errorf("expected 2024-03-29, got %s", got.Format("2006-01-02"))
	}

	// Mid-month Saturday rolls forward as usual
	got = cal.Adjust(date(2024, 3, 9), BusinessDayModifiedFollowing)
	if !got.Equal(date(2024, 3, 11)) {
		t.Errorf("expected 2024-03-11, got %s", got.Format("2006-01-02"))
	}
}

func TestAdjustModifiedPrecedingStaysInMonth(t *testing.T) {
	cal := NewCalendar(nil)

	// 2024-06-01 is a Saturday; preceding would cross into May
	got := cal.Adjust(date(2024, 6, 1), BusinessDayModifiedPreceding)
	if !got.Equal(date(2024, 6, 3)) {
		t.Errorf("expected 2024-06-03, got %s", got.Format("2006-01-02"))
	}
}

func TestAdjustSkipsConsecutiveHolidays(t *testing.T) {
	cal := NewCalendar([]time.Time{date(2024, 1, 8), date(2024, 1, 9)})

	got := cal.Adjust(date(2024, 1, 6), BusinessDayFollowing)
	if !got.Equal(date(2024, 1, 10)) {
		t.Errorf("expected 2024-01-10, got %s", got.Format("2006-01-02"))
	}
}

func TestAdjustNoneLeavesDateAlone(t *testing.T) {
	cal := NewCalendar(nil)

	got := cal.Adjust(date(2024, 1, 6), BusinessDayNone)
	if !got.Equal(date(2024, 1, 6)) {
		t.Errorf("expected unchanged date, got %s", got.Format("2006-01-02"))
	}
}
