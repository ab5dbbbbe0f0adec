package fincore

import "github.com/shopspring/decimal"

// Component identifies a receivable component in the payment waterfall
type Component string

const (
	ComponentFees      Component = "fees"
	ComponentInterest  Component = "interest"
	ComponentPrincipal Component = "principal"
)

// Dues holds the unpaid amounts per component for one installment
type Dues struct {
	Fees      decimal.Decimal
	Interest  decimal.Decimal
	Principal decimal.Decimal
}

// Component returns the due amount for a single component
func (d Dues) Component(c Component) decimal.Decimal {
	switch c {
	case ComponentFees:
		return d.Fees
	case ComponentInterest:
		return d.Interest
	case ComponentPrincipal:
		return d.Principal
	}
	return decimal.Zero
}

// Allocation is the amount applied to one component of one installment
type Allocation struct {
	Component Component
	Amount    decimal.Decimal
}

// WaterfallPolicy is the component order payments are applied in
type WaterfallPolicy struct {
	Order []Component
}

// DefaultWaterfall applies fees first, then interest, then principal
func DefaultWaterfall() WaterfallPolicy {
	return WaterfallPolicy{Order: []Component{ComponentFees, ComponentInterest, ComponentPrincipal}}
}

// Allocate applies amount against the dues in policy order. It returns the
// per-component allocations (zero-amount components omitted) and whatever is
// left over after all dues are satisfied.
func (p WaterfallPolicy) Allocate(amount decimal.Decimal, due Dues) ([]Allocation, decimal.Decimal) {
	var allocs []Allocation
	remaining := amount

	for _, c := range p.Order {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		owed := due.Component(c)
		if owed.LessThanOrEqual(decimal.Zero) {
			continue
		}
		applied := decimal.Min(remaining, owed)
		allocs = append(allocs, Allocation{Component: c, Amount: applied})
		remaining = remaining.Sub(applied)
	}
	return allocs, remaining
}
