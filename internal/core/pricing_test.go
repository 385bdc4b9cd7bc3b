package core_test

import (
	"errors"
	"testing"

	"servicebook/internal/core"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testBook is a rate book with a $150/hr default labor price, 1.0/1.3/1.6
// tiers, and a 10% senior discount.
func testBook() core.RateBook {
	return core.RateBook{
		LaborPrice: 15000,
		Tiers: core.TierProfile{
			Good:   dec("1"),
			Better: dec("1.3"),
			Best:   dec("1.6"),
		},
		Discounts: []core.DiscountRule{
			{Kind: core.DiscountSenior, Percent: dec("0.10"), IsActive: true},
		},
	}
}

// testService is 2.0 labor hours plus $25.00 of material: $325.00 base.
func testService() core.MasterService {
	return core.MasterService{
		Code:             "PLB-01-001",
		CategoryCode:     "PLB-01",
		Name:             "Water heater replacement",
		BaseLaborHours:   dec("2.0"),
		BaseMaterialCost: 2500,
		IsActive:         true,
	}
}

func TestPriceOf_BaselineComposition(t *testing.T) {
	tests := []struct {
		name      string
		override  *core.ServiceOverride
		tier      core.Tier
		discounts []core.DiscountKind
		want      core.Cents
	}{
		{
			name: "good tier is labor plus material",
			tier: core.TierGood,
			want: 32500, // 2.0h * $150 + $25.00
		},
		{
			name: "better tier multiplies by 1.3",
			tier: core.TierBetter,
			want: 42250, // $325.00 * 1.3
		},
		{
			name: "best tier multiplies by 1.6",
			tier: core.TierBest,
			want: 52000,
		},
		{
			name:      "senior discount applies after tier",
			tier:      core.TierBetter,
			discounts: []core.DiscountKind{core.DiscountSenior},
			want:      38025, // $422.50 * 0.9
		},
		{
			name: "custom price replaces labor plus material",
			override: &core.ServiceOverride{
				CustomPrice: centsPtr(49900),
				IsActive:    true,
			},
			tier: core.TierGood,
			want: 49900,
		},
		{
			name: "custom hours ignored when custom price set",
			override: &core.ServiceOverride{
				CustomPrice:      centsPtr(49900),
				CustomLaborHours: decPtr("9.0"),
				IsActive:         true,
			},
			tier: core.TierGood,
			want: 49900,
		},
		{
			name: "custom hours replace baseline hours in fallback",
			override: &core.ServiceOverride{
				CustomLaborHours: decPtr("3.0"),
				IsActive:         true,
			},
			tier: core.TierGood,
			want: 47500, // 3.0h * $150 + $25.00
		},
		{
			name: "custom material replaces baseline material",
			override: &core.ServiceOverride{
				CustomMaterialCost: centsPtr(10000),
				IsActive:           true,
			},
			tier: core.TierGood,
			want: 40000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := core.PriceOf(testService(), tt.override, testBook(), dec("1"), tt.tier, tt.discounts)
			if err != nil {
				t.Fatalf("PriceOf failed: %v", err)
			}
			if b.UnitPrice != tt.want {
				t.Errorf("unit price = %d, want %d", b.UnitPrice, tt.want)
			}
		})
	}
}

func TestPriceOf_PercentBeforeFlat(t *testing.T) {
	// Base $325.00, +10% then +$5.00: (325 * 1.10) + 5 = 362.50.
	// Flat-first would give (325 + 5) * 1.10 = 363.00.
	override := &core.ServiceOverride{
		PercentAdjustment: dec("10"),
		FlatAdjustment:    500,
		IsActive:          true,
	}
	b, err := core.PriceOf(testService(), override, testBook(), dec("1"), core.TierGood, nil)
	if err != nil {
		t.Fatalf("PriceOf failed: %v", err)
	}
	if b.UnitPrice != 36250 {
		t.Errorf("unit price = %d, want 36250", b.UnitPrice)
	}
}

func TestPriceOf_TierAfterAdjustmentsBeforeDiscounts(t *testing.T) {
	// (($325.00 + $5.00) * 1.3) * 0.9 = 386.10.
	override := &core.ServiceOverride{
		FlatAdjustment: 500,
		IsActive:       true,
	}
	b, err := core.PriceOf(testService(), override, testBook(), dec("1"), core.TierBetter,
		[]core.DiscountKind{core.DiscountSenior})
	if err != nil {
		t.Fatalf("PriceOf failed: %v", err)
	}
	if b.UnitPrice != 38610 {
		t.Errorf("unit price = %d, want 38610", b.UnitPrice)
	}
}

func TestPriceOf_DiscountsSumAndClamp(t *testing.T) {
	book := testBook()
	book.Discounts = []core.DiscountRule{
		{Kind: core.DiscountSenior, Percent: dec("0.50"), IsActive: true},
		{Kind: core.DiscountMilitary, Percent: dec("0.60"), IsActive: true},
		{Kind: core.DiscountFirstTime, Percent: dec("0.10"), IsActive: false},
	}

	// 0.50 + 0.60 = 1.10, clamped to 0.95: price floor is 5% of tiered.
	b, err := core.PriceOf(testService(), nil, book, dec("1"), core.TierGood,
		[]core.DiscountKind{core.DiscountSenior, core.DiscountMilitary})
	if err != nil {
		t.Fatalf("PriceOf failed: %v", err)
	}
	if !b.DiscountRate.Equal(dec("0.95")) {
		t.Errorf("discount rate = %s, want 0.95", b.DiscountRate)
	}
	if b.UnitPrice != 1625 { // $325.00 * 0.05
		t.Errorf("unit price = %d, want 1625", b.UnitPrice)
	}

	// Inactive rules contribute nothing even when requested.
	b, err = core.PriceOf(testService(), nil, book, dec("1"), core.TierGood,
		[]core.DiscountKind{core.DiscountFirstTime})
	if err != nil {
		t.Fatalf("PriceOf failed: %v", err)
	}
	if !b.DiscountRate.IsZero() {
		t.Errorf("discount rate = %s, want 0", b.DiscountRate)
	}
}

func TestPriceOf_NegativeIntermediateFails(t *testing.T) {
	override := &core.ServiceOverride{
		FlatAdjustment: -40000, // pushes $325.00 below zero
		IsActive:       true,
	}
	_, err := core.PriceOf(testService(), override, testBook(), dec("1"), core.TierGood, nil)
	if !errors.Is(err, core.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestPriceOf_NegativeQuantityFails(t *testing.T) {
	_, err := core.PriceOf(testService(), nil, testBook(), dec("-1"), core.TierGood, nil)
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestPriceOf_LineTotalRoundsHalfEven(t *testing.T) {
	tests := []struct {
		name        string
		customPrice core.Cents
		quantity    string
		want        core.Cents
	}{
		{"half cent rounds to even down", 33, "0.5", 16},   // 16.5 -> 16
		{"half cent rounds to even up", 35, "0.5", 18},     // 17.5 -> 18
		{"exact product needs no rounding", 32500, "1.5", 48750},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			override := &core.ServiceOverride{CustomPrice: centsPtr(tt.customPrice), IsActive: true}
			b, err := core.PriceOf(testService(), override, testBook(), dec(tt.quantity), core.TierGood, nil)
			if err != nil {
				t.Fatalf("PriceOf failed: %v", err)
			}
			if b.LineTotal != tt.want {
				t.Errorf("line total = %d, want %d", b.LineTotal, tt.want)
			}
		})
	}
}

func TestPriceOf_Deterministic(t *testing.T) {
	override := &core.ServiceOverride{
		PercentAdjustment: dec("7.5"),
		FlatAdjustment:    199,
		IsActive:          true,
	}
	first, err := core.PriceOf(testService(), override, testBook(), dec("2.5"), core.TierBest,
		[]core.DiscountKind{core.DiscountSenior})
	if err != nil {
		t.Fatalf("PriceOf failed: %v", err)
	}
	second, err := core.PriceOf(testService(), override, testBook(), dec("2.5"), core.TierBest,
		[]core.DiscountKind{core.DiscountSenior})
	if err != nil {
		t.Fatalf("PriceOf failed: %v", err)
	}
	if first.UnitPrice != second.UnitPrice || first.LineTotal != second.LineTotal ||
		!first.DiscountApplied.Equal(second.DiscountApplied) {
		t.Errorf("identical inputs produced different outputs: %+v vs %+v", first, second)
	}
}

func TestResolveTriple_Ordering(t *testing.T) {
	triple, err := core.ResolveTriple(testService(), nil, testBook())
	if err != nil {
		t.Fatalf("ResolveTriple failed: %v", err)
	}
	if triple.Good != 32500 || triple.Better != 42250 || triple.Best != 52000 {
		t.Errorf("triple = %+v, want 32500/42250/52000", triple)
	}
	if triple.Good > triple.Better || triple.Better > triple.Best {
		t.Errorf("tiers out of order: %+v", triple)
	}
}

func centsPtr(c core.Cents) *core.Cents {
	return &c
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
