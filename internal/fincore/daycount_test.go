package fincore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYearFraction30360(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		expected string
	}{
		{"half year with month-end starts", date(2024, 1, 31), date(2024, 7, 31), "0.5"},
		{"full year", date(2024, 1, 15), date(2025, 1, 15), "1"},
		{"jan 31 to feb 29", date(2024, 1, 31), date(2024, 2, 29), "0.0805555556"},
		{"single month", date(2024, 3, 1), date(2024, 4, 1), "0.0833333333"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yf, err := YearFraction(tt.start, tt.end, DayCount30360)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			expected := decimal.RequireFromString(tt.expected)
			if !yf.Equal(expected) {
				t.Errorf("expected %s, got %s", expected, yf)
			}
		})
	}
}

func TestYearFractionACT365(t *testing.T) {
	yf, err := YearFraction(date(2024, 1, 1), date(2025, 1, 1), DayCountACT365)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2024 is a leap year: 366 actual days over a 365 denominator
	expected := decimal.NewFromInt(366).Div(decimal.NewFromInt(365)).Round(10)
	if !yf.Equal(expected) {
		t.Errorf("expected %s, got %s", expected, yf)
	}
}

func TestYearFractionACT360(t *testing.T) {
	yf, err := YearFraction(date(2024, 1, 1), date(2024, 4, 1), DayCountACT360)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := decimal.NewFromInt(91).Div(decimal.NewFromInt(360)).Round(10)
	if !yf.Equal(expected) {
		t.Errorf("expected %s, got %s", expected, yf)
	}
}

func TestYearFractionACTACTSplitsAtYearBoundary(t *testing.T) {
	yf, err := YearFraction(date(2023, 7, 1), date(2024, 7, 1), DayCountACTACT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 184 days in 2023 over 365 plus 182 days in 2024 over 366
	expected := decimal.RequireFromString("1.0013773486")
	if !yf.Equal(expected) {
		t.Errorf("expected %s, got %s", expected, yf)
	}
}

func TestYearFractionLeapYearWithinACTACT(t *testing.T) {
	yf, err := YearFraction(date(2024, 1, 1), date(2025, 1, 1), DayCountACTACT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !yf.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected exactly 1, got %s", yf)
	}
}

func TestYearFractionZeroWhenEndNotAfterStart(t *testing.T) {
	for _, dc := range []DayCount{DayCount30360, DayCountACT365, DayCountACT360, DayCountACTACT} {
		yf, err := YearFraction(date(2024, 6, 1), date(2024, 6, 1), dc)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", dc, err)
		}
		if !yf.IsZero() {
			t.Errorf("%s: expected zero, got %s", dc, yf)
		}

		yf, err = YearFraction(date(2024, 6, 2), date(2024, 6, 1), dc)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", dc, err)
		}
		if !yf.IsZero() {
			t.Errorf("%s: expected zero for inverted range, got %s", dc, yf)
		}
	}
}

func TestYearFractionUnknownConvention(t *testing.T) {
	_, err := YearFraction(date(2024, 1, 1), date(2024, 2, 1), DayCount("ACT/252"))
	if err != ErrUnknownDayCount {
		t.Errorf("expected ErrUnknownDayCount, got %v", err)
	}
}

func TestDaysBetween(t *testing.T) {
	if d := DaysBetween(date(2024, 1, 31), date(2024, 7, 31), DayCount30360); d != 180 {
		t.Errorf("30/360: expected 180, got %d", d)
	}
	if d := DaysBetween(date(2024, 2, 1), date(2024, 3, 1), DayCountACT365); d != 29 {
		t.Errorf("ACT/365: expected 29, got %d", d)
	}
	if d := DaysBetween(date(2024, 6, 2), date(2024, 6, 1), DayCountACT360); d != 0 {
		t.Errorf("inverted range: expected 0, got %d", d)
	}
}

func TestParseDayCount(t *testing.T) {
	if _, err := ParseDayCount("ACT/365"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseDayCount("bogus"); err != ErrUnknownDayCount {
		t.Errorf("expected ErrUnknownDayCount, got %v", err)
	}
}
