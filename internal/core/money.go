package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is a money amount in integer minor units. All stored and returned
// prices are Cents; decimal arithmetic appears only inside the calculator and
// at input boundaries.
type Cents int64

// ParseCents converts a user-supplied decimal string (e.g. "325.00") into
// minor units using half-even rounding.
func ParseCents(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid money amount %q: %w", s, ErrValidation)
	}
	return CentsFromDecimal(d), nil
}

// CentsFromDecimal converts a major-unit decimal to minor units, half-even.
func CentsFromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Shift(2).RoundBank(0).IntPart())
}

// Decimal returns the amount in major units as an exact decimal.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String formats the amount in major units with two decimal places.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}
