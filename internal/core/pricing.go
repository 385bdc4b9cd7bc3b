package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Breakdown is the full computation trace of one priced line. Every field
// before UnitPrice is kept at full precision; rounding happens exactly twice,
// at UnitPrice and at LineTotal, both half-even.
type Breakdown struct {
	LaborComponent    decimal.Decimal `json:"labor_component"`
	MaterialComponent decimal.Decimal `json:"material_component"`
	BaseUnit          decimal.Decimal `json:"base_unit"`
	PercentAdjusted   decimal.Decimal `json:"percent_adjusted"`
	FlatAdjusted      decimal.Decimal `json:"flat_adjusted"`
	TierMultiplied    decimal.Decimal `json:"tier_multiplied"`
	DiscountRate      decimal.Decimal `json:"discount_rate"`
	DiscountApplied   decimal.Decimal `json:"discount_applied"`
	UnitPrice         Cents           `json:"unit_price"`
	LineTotal         Cents           `json:"line_total"`
}

// maxDiscount caps the summed discount fraction so that stacked discounts can
// never drive a price below 5% of the tiered amount.
var maxDiscount = decimal.NewFromFloat(0.95)

var oneHundred = decimal.NewFromInt(100)

// PriceOf computes the effective price of one service for one company. It is
// a pure function: no I/O, and bit-identical outputs for identical inputs.
//
// The composition order is load-bearing:
//
//	1. override.CustomPrice wins over labor+material when non-nil
//	2. CustomLaborHours/CustomMaterialCost replace the baseline only in the
//	   labor+material fallback
//	3. percent adjustment before flat adjustment
//	4. tier multiplier after adjustments, before discounts
//	5. discounts sum, clamp to [0, 0.95], then apply as one factor
//	6. round only at UnitPrice and LineTotal
//	7. any negative intermediate fails with ErrConfiguration
func PriceOf(baseline MasterService, override *ServiceOverride, book RateBook,
	quantity decimal.Decimal, tier Tier, discountKinds []DiscountKind) (*Breakdown, error) {

	if quantity.IsNegative() {
		return nil, fmt.Errorf("quantity must be non-negative: %w", ErrValidation)
	}

	b := &Breakdown{}

	hours := baseline.BaseLaborHours
	material := baseline.BaseMaterialCost
	if override != nil {
		if override.CustomLaborHours != nil {
			hours = *override.CustomLaborHours
		}
		if override.CustomMaterialCost != nil {
			material = *override.CustomMaterialCost
		}
	}

	b.LaborComponent = hours.Mul(book.LaborPrice.Decimal())
	b.MaterialComponent = material.Decimal()

	if override != nil && override.CustomPrice != nil {
		b.BaseUnit = override.CustomPrice.Decimal()
	} else {
		b.BaseUnit = b.LaborComponent.Add(b.MaterialComponent)
	}

	percent := decimal.Zero
	flat := Cents(0)
	if override != nil {
		percent = override.PercentAdjustment
		flat = override.FlatAdjustment
	}

	b.PercentAdjusted = b.BaseUnit.Mul(decimal.NewFromInt(1).Add(percent.Div(oneHundred)))
	b.FlatAdjusted = b.PercentAdjusted.Add(flat.Decimal())

	mult := book.Tiers.Multiplier(tier)
	if mult.IsNegative() {
		return nil, fmt.Errorf("tier multiplier for %s is negative: %w", tier, ErrConfiguration)
	}
	b.TierMultiplied = b.FlatAdjusted.Mul(mult)

	b.DiscountRate = sumDiscounts(book.Discounts, discountKinds)
	b.DiscountApplied = b.TierMultiplied.Mul(decimal.NewFromInt(1).Sub(b.DiscountRate))

	for _, v := range []decimal.Decimal{b.BaseUnit, b.PercentAdjusted, b.FlatAdjusted, b.TierMultiplied, b.DiscountApplied} {
		if v.IsNegative() {
			return nil, fmt.Errorf("service %s computes a negative price: %w", baseline.Code, ErrConfiguration)
		}
	}

	b.UnitPrice = CentsFromDecimal(b.DiscountApplied)
	b.LineTotal = CentsFromDecimal(b.UnitPrice.Decimal().Mul(quantity))

	if b.UnitPrice < 0 || b.LineTotal < 0 {
		return nil, fmt.Errorf("service %s computes a negative price: %w", baseline.Code, ErrConfiguration)
	}
	return b, nil
}

// sumDiscounts adds the active rules matching the requested kinds and clamps
// the total to [0, 0.95]. Discounts are additive, applied as a single factor.
func sumDiscounts(rules []DiscountRule, kinds []DiscountKind) decimal.Decimal {
	sum := decimal.Zero
	for _, kind := range kinds {
		for _, r := range rules {
			if r.Kind == kind && r.IsActive {
				sum = sum.Add(r.Percent)
			}
		}
	}
	if sum.IsNegative() {
		return decimal.Zero
	}
	if sum.GreaterThan(maxDiscount) {
		return maxDiscount
	}
	return sum
}

// ResolveTriple computes the Good/Better/Best unit prices for one service
// with quantity 1 and no discounts. History snapshots and the propagator both
// record triples, so this must stay deterministic.
func ResolveTriple(baseline MasterService, override *ServiceOverride, book RateBook) (PriceTriple, error) {
	var t PriceTriple
	one := decimal.NewFromInt(1)
	for _, tier := range []Tier{TierGood, TierBetter, TierBest} {
		b, err := PriceOf(baseline, override, book, one, tier, nil)
		if err != nil {
			return PriceTriple{}, err
		}
		switch tier {
		case TierGood:
			t.Good = b.UnitPrice
		case TierBetter:
			t.Better = b.UnitPrice
		case TierBest:
			t.Best = b.UnitPrice
		}
	}
	return t, nil
}

// laborDependent reports whether the effective price of a service moves when
// the default labor price changes: no custom absolute price, and a non-zero
// labor-hours component.
func laborDependent(baseline MasterService, override *ServiceOverride) bool {
	if override != nil && override.CustomPrice != nil {
		return false
	}
	hours := baseline.BaseLaborHours
	if override != nil && override.CustomLaborHours != nil {
		hours = *override.CustomLaborHours
	}
	return hours.IsPositive()
}
