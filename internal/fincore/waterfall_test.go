package fincore

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestWaterfallAllocatePartial(t *testing.T) {
	due := Dues{
		Fees:      decimal.NewFromInt(20),
		Interest:  decimal.NewFromInt(50),
		Principal: decimal.NewFromInt(100),
	}

	allocs, remainder := DefaultWaterfall().Allocate(decimal.NewFromInt(100), due)
	if !remainder.IsZero() {
		t.Errorf("expected zero remainder, got %s", remainder)
	}
	if len(allocs) != 3 {
		t.Fatalf("expected 3 allocations, got %d", len(allocs))
	}
	if allocs[0].Component != ComponentFees || !allocs[0].Amount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("fees allocation wrong: %+v", allocs[0])
	}
	if allocs[1].Component != ComponentInterest || !allocs[1].Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("interest allocation wrong: %+v", allocs[1])
	}
	if allocs[2].Component != ComponentPrincipal || !allocs[2].Amount.Equal(decimal.NewFromInt(30)) {
		t.Errorf("principal allocation wrong: %+v", allocs[2])
	}
}

func TestWaterfallAllocateOverpayment(t *testing.T) {
	due := Dues{
		Fees:      decimal.NewFromInt(20),
		Interest:  decimal.NewFromInt(50),
		Principal: decimal.NewFromInt(100),
	}

	_, remainder := DefaultWaterfall().Allocate(decimal.NewFromInt(300), due)
	if !remainder.Equal(decimal.NewFromInt(130)) {
		t.Errorf("expected remainder 130, got %s", remainder)
	}
}

func TestWaterfallAllocateSkipsZeroDues(t *testing.T) {
	due := Dues{Principal: decimal.NewFromInt(100)}

	allocs, remainder := DefaultWaterfall().Allocate(decimal.NewFromInt(40), due)
	if len(allocs) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(allocs))
	}
	if allocs[0].Component != ComponentPrincipal || !allocs[0].Amount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("principal allocation wrong: %+v", allocs[0])
	}
	if !remainder.IsZero() {
		t.Errorf("expected zero remainder, got %s", remainder)
	}
}

func TestWaterfallCustomOrder(t *testing.T) {
	// Principal-first policy used by some products
	policy := WaterfallPolicy{Order: []Component{ComponentPrincipal, ComponentInterest, ComponentFees}}
	due := Dues{
		Fees:      decimal.NewFromInt(10),
		Interest:  decimal.NewFromInt(10),
		Principal: decimal.NewFromInt(10),
	}

	allocs, _ := policy.Allocate(decimal.NewFromInt(15), due)
	if allocs[0].Component != ComponentPrincipal || !allocs[0].Amount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected principal first, got %+v", allocs[0])
	}
	if allocs[1].Component != ComponentInterest || !allocs[1].Amount.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected interest 5, got %+v", allocs[1])
	}
}
