package fincore

import "github.com/shopspring/decimal"

// EffectiveRate combines a benchmark rate with a spread and clamps the result
// to the optional floor and cap. All values are annual percentages.
func EffectiveRate(benchmark, spread decimal.Decimal, floor, cap *decimal.Decimal) decimal.Decimal {
	rate := benchmark.Add(spread)
	if floor != nil && rate.LessThan(*floor) {
		rate = *floor
	}
	if cap != nil && rate.GreaterThan(*cap) {
		rate = *cap
	}
	return RoundRate(rate)
}
