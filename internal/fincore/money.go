package fincore

import "github.com/shopspring/decimal"

// Precision constants for monetary and rate arithmetic
const (
	MoneyPlaces = 2
	RatePlaces  = 10
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// RoundMoney rounds an amount to cents using half-up rounding
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// RoundRate rounds a rate or year fraction to rate precision
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RatePlaces)
}

// IsZeroMoney reports whether the amount is zero once rounded to cents
func IsZeroMoney(d decimal.Decimal) bool {
	return RoundMoney(d).IsZero()
}
