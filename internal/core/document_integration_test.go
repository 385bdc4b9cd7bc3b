package core_test

import (
	"context"
	"errors"
	"testing"

	"servicebook/internal/core"

	"github.com/shopspring/decimal"
)

func TestPriceDocument_Totals(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	_, _, rateBook, pricer := newTestServices(pool)
	ctx := context.Background()

	if _, err := rateBook.SetDiscountRule(ctx, "ACME", core.DiscountRule{
		Kind:     core.DiscountSenior,
		Percent:  dec("0.10"),
		IsActive: true,
	}); err != nil {
		t.Fatalf("SetDiscountRule failed: %v", err)
	}

	// Better tier: (2.0h * $150 + $25) * 1.3 = $422.50; 8.75% tax = $36.97.
	doc, err := pricer.PriceDocument(ctx, "ACME", core.PriceDocumentRequest{
		Lines: []core.LineRequest{{ServiceCode: "PLB-01-001", Quantity: decimal.NewFromInt(1)}},
		Tier:  core.TierBetter,
	})
	if err != nil {
		t.Fatalf("PriceDocument failed: %v", err)
	}
	if doc.Subtotal != 42250 {
		t.Errorf("Expected subtotal 42250, got %d", doc.Subtotal)
	}
	if doc.Tax != 3697 {
		t.Errorf("Expected tax 3697, got %d", doc.Tax)
	}
	if doc.Total != 45947 {
		t.Errorf("Expected total 45947, got %d", doc.Total)
	}
	if doc.TaxRateName != "Sales Tax" {
		t.Errorf("Expected default tax rate name 'Sales Tax', got %q", doc.TaxRateName)
	}

	// Same document with the senior discount: $422.50 * 0.90 = $380.25.
	doc, err = pricer.PriceDocument(ctx, "ACME", core.PriceDocumentRequest{
		Lines:     []core.LineRequest{{ServiceCode: "PLB-01-001", Quantity: decimal.NewFromInt(1)}},
		Tier:      core.TierBetter,
		Discounts: []core.DiscountKind{core.DiscountSenior},
	})
	if err != nil {
		t.Fatalf("PriceDocument with discount failed: %v", err)
	}
	if doc.Subtotal != 38025 {
		t.Errorf("Expected discounted subtotal 38025, got %d", doc.Subtotal)
	}
	if doc.Tax != 3327 {
		t.Errorf("Expected tax 3327, got %d", doc.Tax)
	}
}

func TestPriceDocument_MinimumChargeAdjustment(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	_, _, _, pricer := newTestServices(pool)

	// The parts-only kit prices at $50, under the $89 minimum.
	doc, err := pricer.PriceDocument(context.Background(), "ACME", core.PriceDocumentRequest{
		Lines: []core.LineRequest{{ServiceCode: "PLB-01-003", Quantity: decimal.NewFromInt(1)}},
	})
	if err != nil {
		t.Fatalf("PriceDocument failed: %v", err)
	}
	if doc.MinimumAdjustment == nil || *doc.MinimumAdjustment != 3900 {
		t.Fatalf("Expected minimum adjustment 3900, got %+v", doc.MinimumAdjustment)
	}
	if doc.Subtotal != 8900 {
		t.Errorf("Expected subtotal lifted to 8900, got %d", doc.Subtotal)
	}
	if len(doc.Lines) != 2 {
		t.Fatalf("Expected real line plus adjustment line, got %d lines", len(doc.Lines))
	}
	adj := doc.Lines[1]
	if !adj.IsAdjustment || adj.LineTotal != 3900 {
		t.Errorf("Expected adjustment line of 3900, got %+v", adj)
	}
}

func TestPriceDocument_UnknownCodeBecomesLineError(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	_, _, _, pricer := newTestServices(pool)

	doc, err := pricer.PriceDocument(context.Background(), "ACME", core.PriceDocumentRequest{
		Lines: []core.LineRequest{
			{ServiceCode: "PLB-01-001", Quantity: decimal.NewFromInt(1)},
			{ServiceCode: "PLB-01-999", Quantity: decimal.NewFromInt(1)},
		},
	})
	if err != nil {
		t.Fatalf("PriceDocument failed: %v", err)
	}
	if len(doc.Lines) != 1 || doc.Lines[0].ServiceCode != "PLB-01-001" {
		t.Fatalf("Expected the known line to survive, got %+v", doc.Lines)
	}
	if len(doc.LineErrors) != 1 || doc.LineErrors[0].ServiceCode != "PLB-01-999" {
		t.Fatalf("Expected a line error for PLB-01-999, got %+v", doc.LineErrors)
	}
}

func TestPriceDocument_HiddenService(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	_, overrides, _, pricer := newTestServices(pool)
	ctx := context.Background()

	if _, err := overrides.SetOverride(ctx, "ACME", "PLB-01-002", core.OverrideInput{
		IsActive: true,
		IsHidden: true,
	}, "tester"); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}

	// Hidden services become per-line errors by default.
	doc, err := pricer.PriceDocument(ctx, "ACME", core.PriceDocumentRequest{
		Lines: []core.LineRequest{{ServiceCode: "PLB-01-002", Quantity: decimal.NewFromInt(1)}},
	})
	if err != nil {
		t.Fatalf("PriceDocument failed: %v", err)
	}
	if len(doc.Lines) != 0 {
		t.Fatalf("Expected hidden service to produce no lines, got %+v", doc.Lines)
	}
	if len(doc.LineErrors) != 1 || doc.LineErrors[0].ServiceCode != "PLB-01-002" {
		t.Fatalf("Expected a line error for the hidden service, got %+v", doc.LineErrors)
	}

	// Asking for hidden rows prices the service normally: 1.0h * $150 + $15.
	doc, err = pricer.PriceDocument(ctx, "ACME", core.PriceDocumentRequest{
		Lines:         []core.LineRequest{{ServiceCode: "PLB-01-002", Quantity: decimal.NewFromInt(1)}},
		IncludeHidden: true,
	})
	if err != nil {
		t.Fatalf("PriceDocument with include_hidden failed: %v", err)
	}
	if len(doc.LineErrors) != 0 {
		t.Fatalf("Expected no line errors with include_hidden, got %+v", doc.LineErrors)
	}
	if len(doc.Lines) != 1 || doc.Lines[0].LineTotal != 16500 {
		t.Fatalf("Expected the hidden service priced at 16500, got %+v", doc.Lines)
	}
}

func TestPriceDocument_MissingTaxRate(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	_, _, _, pricer := newTestServices(pool)

	_, err := pricer.PriceDocument(context.Background(), "ACME", core.PriceDocumentRequest{
		Lines:       []core.LineRequest{{ServiceCode: "PLB-01-001", Quantity: decimal.NewFromInt(1)}},
		TaxRateName: "Out-of-State",
	})
	if !errors.Is(err, core.ErrTaxRateMissing) {
		t.Errorf("Expected ErrTaxRateMissing for unknown tax rate, got %v", err)
	}
}

func TestAddLaborRate_DefaultStaysUnique(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	_, _, rateBook, _ := newTestServices(pool)
	ctx := context.Background()

	// Named variants never carry the default flag.
	_, err := rateBook.AddLaborRate(ctx, "ACME", core.LaborRate{
		Name: "After Hours", HourlyCost: 9000, HourlyPrice: 22500, IsDefault: true,
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("Expected ErrValidation for default-flagged variant, got %v", err)
	}
	if _, err := rateBook.AddLaborRate(ctx, "ACME", core.LaborRate{
		Name: "After Hours", HourlyCost: 9000, HourlyPrice: 22500,
	}); err != nil {
		t.Fatalf("AddLaborRate failed: %v", err)
	}

	// Promoting a new default demotes the old one.
	if _, err := rateBook.SetDefaultLaborRate(ctx, "ACME", "Weekend", 7000, 17500, "tester"); err != nil {
		t.Fatalf("SetDefaultLaborRate failed: %v", err)
	}

	rates, err := rateBook.ListLaborRates(ctx, "ACME")
	if err != nil {
		t.Fatalf("ListLaborRates failed: %v", err)
	}
	defaults := 0
	for _, r := range rates {
		if r.IsDefault {
			defaults++
			if r.Name != "Weekend" {
				t.Errorf("Expected Weekend to be the default, got %s", r.Name)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("Expected exactly one default rate, got %d", defaults)
	}
	if len(rates) != 3 {
		t.Errorf("Expected 3 labor rates, got %d", len(rates))
	}
}

func TestEstimateLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	_, _, rateBook, pricer := newTestServices(pool)
	estimates := core.NewEstimateService(pool, pricer)
	ctx := context.Background()

	est, err := estimates.CreateEstimate(ctx, "ACME", nil, core.PriceDocumentRequest{
		Lines: []core.LineRequest{{ServiceCode: "PLB-01-001", Quantity: decimal.NewFromInt(1)}},
		Tier:  core.TierBetter,
	})
	if err != nil {
		t.Fatalf("CreateEstimate failed: %v", err)
	}
	if est.Status != core.EstimateDraft {
		t.Fatalf("Expected draft estimate, got %s", est.Status)
	}
	if est.Total != 45947 {
		t.Errorf("Expected estimate total 45947, got %d", est.Total)
	}

	// Draft cannot jump straight to approved.
	if _, err := estimates.TransitionEstimate(ctx, "ACME", est.ID, core.EstimateApproved); !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("Expected ErrInvalidTransition for draft->approved, got %v", err)
	}

	for _, to := range []core.EstimateStatus{core.EstimateSent, core.EstimateApproved} {
		if _, err := estimates.TransitionEstimate(ctx, "ACME", est.ID, to); err != nil {
			t.Fatalf("Transition to %s failed: %v", to, err)
		}
	}

	// A labor-rate change between approval and conversion must not move the
	// frozen lines.
	if _, err := rateBook.SetDefaultLaborRate(ctx, "ACME", "Standard", 6500, 20000, "tester"); err != nil {
		t.Fatalf("SetDefaultLaborRate failed: %v", err)
	}

	inv, err := estimates.ConvertToInvoice(ctx, "ACME", est.ID)
	if err != nil {
		t.Fatalf("ConvertToInvoice failed: %v", err)
	}
	if inv.EstimateID == nil || *inv.EstimateID != est.ID {
		t.Errorf("Expected invoice to reference estimate %d, got %+v", est.ID, inv.EstimateID)
	}
	if inv.Total != 45947 {
		t.Errorf("Expected frozen invoice total 45947, got %d", inv.Total)
	}
	if len(inv.Lines) != 1 || inv.Lines[0].UnitPrice != 42250 {
		t.Fatalf("Expected frozen unit price 42250, got %+v", inv.Lines)
	}

	converted, err := estimates.GetEstimate(ctx, "ACME", est.ID)
	if err != nil {
		t.Fatalf("GetEstimate failed: %v", err)
	}
	if converted.Status != core.EstimateConverted {
		t.Errorf("Expected converted estimate, got %s", converted.Status)
	}
	// A second conversion is refused.
	if _, err := estimates.ConvertToInvoice(ctx, "ACME", est.ID); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition on double conversion, got %v", err)
	}

	for _, to := range []core.InvoiceStatus{core.InvoiceSent, core.InvoicePaid} {
		if _, err := estimates.TransitionInvoice(ctx, "ACME", inv.ID, to); err != nil {
			t.Fatalf("Invoice transition to %s failed: %v", to, err)
		}
	}
	paid, err := estimates.GetInvoice(ctx, "ACME", inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if paid.Status != core.InvoicePaid || paid.PaidAt == nil {
		t.Errorf("Expected paid invoice with paid_at set, got status=%s paid_at=%v", paid.Status, paid.PaidAt)
	}
	// Paid is terminal.
	if _, err := estimates.TransitionInvoice(ctx, "ACME", inv.ID, core.InvoiceVoid); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition for paid->void, got %v", err)
	}
}
