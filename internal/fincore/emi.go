package fincore

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrincipal = errors.New("principal must be positive")
	ErrInvalidTenure    = errors.New("tenure must be at least one period")
	ErrInvalidRate      = errors.New("interest rate must not be negative")
	ErrEMITooSmall      = errors.New("installment does not cover periodic interest")
)

// PeriodicRate converts an annual percentage rate to a per-period decimal
// rate at full rate precision.
func PeriodicRate(annualRatePct decimal.Decimal, periodsPerYear int) decimal.Decimal {
	if periodsPerYear <= 0 {
		return decimal.Zero
	}
	return annualRatePct.Div(hundred).Div(decimal.NewFromInt(int64(periodsPerYear)))
}

// EMI computes the level installment for an amortizing loan:
//
//	P * r * (1+r)^n / ((1+r)^n - 1)
//
// where r is the periodic rate. A zero rate degenerates to straight-line
// principal. The result is rounded to cents.
func EMI(principal, annualRatePct decimal.Decimal, periods, periodsPerYear int) (decimal.Decimal, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidPrincipal
	}
	if periods < 1 {
		return decimal.Zero, ErrInvalidTenure
	}
	if annualRatePct.IsNegative() {
		return decimal.Zero, ErrInvalidRate
	}

	n := decimal.NewFromInt(int64(periods))
	r := PeriodicRate(annualRatePct, periodsPerYear)
	if r.IsZero() {
		return RoundMoney(principal.Div(n)), nil
	}

	factor := one.Add(r).Pow(n)
	emi := principal.Mul(r).Mul(factor).Div(factor.Sub(one))
	return RoundMoney(emi), nil
}

// RemainingTenure solves for the number of periods needed to amortize a
// balance at the given installment and periodic rate:
//
//	n = ceil( ln(EMI / (EMI - P*r)) / ln(1+r) )
//
// Returns ErrEMITooSmall when the installment cannot cover the periodic
// interest on the balance.
func RemainingTenure(balance, emi, periodicRate decimal.Decimal) (int, error) {
	if balance.LessThanOrEqual(decimal.Zero) {
		return 0, ErrInvalidPrincipal
	}
	if periodicRate.IsZero() {
		n := balance.Div(emi).Ceil()
		return int(n.IntPart()), nil
	}

	interest := balance.Mul(periodicRate)
	if emi.LessThanOrEqual(interest) {
		return 0, ErrEMITooSmall
	}

	num := math.Log(emi.InexactFloat64() / emi.Sub(interest).InexactFloat64())
	den := math.Log(one.Add(periodicRate).InexactFloat64())
	return int(math.Ceil(num / den)), nil
}
