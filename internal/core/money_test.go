package core_test

import (
	"errors"
	"testing"

	"servicebook/internal/core"

	"github.com/shopspring/decimal"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in        string
		want      core.Cents
		expectErr bool
	}{
		{in: "325.00", want: 32500},
		{in: "0", want: 0},
		{in: "89", want: 8900},
		{in: "-12.50", want: -1250},
		{in: "0.005", want: 0},  // half-even: 0.5 cents to 0
		{in: "0.015", want: 2},  // half-even: 1.5 cents to 2
		{in: "0.025", want: 2},  // half-even: 2.5 cents to 2
		{in: "36.96875", want: 3697},
		{in: "", expectErr: true},
		{in: "abc", expectErr: true},
		{in: "12.3.4", expectErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := core.ParseCents(tt.in)
			if tt.expectErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCents(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseCents(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestCents_DecimalRoundTrip(t *testing.T) {
	for _, c := range []core.Cents{0, 1, 99, 100, 32500, -1250} {
		if got := core.CentsFromDecimal(c.Decimal()); got != c {
			t.Errorf("round trip of %d gave %d", c, got)
		}
	}
}

func TestCents_String(t *testing.T) {
	tests := []struct {
		in   core.Cents
		want string
	}{
		{32500, "325.00"},
		{5, "0.05"},
		{-1250, "-12.50"},
		{0, "0.00"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("Cents(%d).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCentsFromDecimal_TaxRounding(t *testing.T) {
	// $422.50 taxed at 8.75% is $36.96875; banker's rounding lands on $36.97.
	tax := decimal.RequireFromString("422.50").Mul(decimal.RequireFromString("0.0875"))
	if got := core.CentsFromDecimal(tax); got != 3697 {
		t.Errorf("tax cents = %d, want 3697", got)
	}
}
