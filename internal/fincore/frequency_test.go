package fincore

import (
	"testing"
)

func TestPeriodsPerYear(t *testing.T) {
	tests := []struct {
		freq     Frequency
		expected int
	}{
		{FrequencyWeekly, 52},
		{FrequencyBiweekly, 26},
		{FrequencyMonthly, 12},
		{FrequencyQuarterly, 4},
		{FrequencySemiannual, 2},
		{FrequencyAnnual, 1},
	}
	for _, tt := range tests {
		if got := tt.freq.PeriodsPerYear(); got != tt.expected {
			t.Errorf("%s: expected %d, got %d", tt.freq, tt.expected, got)
		}
	}
}

func TestAddPeriodsClampsToMonthEnd(t *testing.T) {
	// Jan 31 + 1 month lands on Feb 29 in a leap year, not Mar 2
	got := FrequencyMonthly.AddPeriods(date(2024, 1, 31), 1)
	if !got.Equal(date(2024, 2, 29)) {
		t.Errorf("expected 2024-02-29, got %s", got.Format("2006-01-02"))
	}

	got = FrequencyMonthly.AddPeriods(date(2023, 1, 31), 1)
	if !got.Equal(date(2023, 2, 28)) {
		t.Errorf("expected 2023-02-28, got %s", got.Format("2006-01-02"))
	}

	got = FrequencyQuarterly.AddPeriods(date(2024, 1, 31), 1)
	if !got.Equal(date(2024, 4, 30)) {
		t.Errorf("expected 2024-04-30, got %s", got.Format("2006-01-02"))
	}
}

func TestAddPeriodsDayBased(t *testing.T) {
	got := FrequencyWeekly.AddPeriods(date(2024, 1, 1), 3)
	if !got.Equal(date(2024, 1, 22)) {
		t.Errorf("expected 2024-01-22, got %s", got.Format("2006-01-02"))
	}
	got = FrequencyBiweekly.AddPeriods(date(2024, 1, 1), 2)
	if !got.Equal(date(2024, 1, 29)) {
		t.Errorf("expected 2024-01-29, got %s", got.Format("2006-01-02"))
	}
}

func TestAddPeriodsMultipleMonthsKeepsDay(t *testing.T) {
	got := FrequencyMonthly.AddPeriods(date(2024, 1, 15), 13)
	if !got.Equal(date(2025, 2, 15)) {
		t.Errorf("expected 2025-02-15, got %s", got.Format("2006-01-02"))
	}
}

func TestNextDueDate(t *testing.T) {
	got := FrequencySemiannual.NextDueDate(date(2024, 8, 31))
	if !got.Equal(date(2025, 2, 28)) {
		t.Errorf("expected 2025-02-28, got %s", got.Format("2006-01-02"))
	}
}

func TestParseFrequency(t *testing.T) {
	if _, err := ParseFrequency("monthly"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseFrequency("daily"); err != ErrUnknownFrequency {
		t.Errorf("expected ErrUnknownFrequency, got %v", err)
	}
}
