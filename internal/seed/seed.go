package seed

import (
	"context"
	"errors"
	"fmt"

	"servicebook/internal/app"
	"servicebook/internal/core"

	"github.com/shopspring/decimal"
)

const seedActor = "seed"

// Demo populates a demo catalog and one demo tenant so the API has something
// to serve out of the box. Re-running against an already seeded database is
// harmless: code conflicts are skipped, upserts overwrite.
func Demo(ctx context.Context, svc app.ApplicationService) error {
	if err := catalog(ctx, svc); err != nil {
		return err
	}
	return demoTenant(ctx, svc)
}

func catalog(ctx context.Context, svc app.ApplicationService) error {
	categories := []app.CreateCategoryRequest{
		{Code: "PLB-01", Name: "Plumbing", Description: "Residential plumbing services", SortOrder: 1},
		{Code: "ELC-02", Name: "Electrical", Description: "Residential electrical services", SortOrder: 2},
		{Code: "HVA-03", Name: "HVAC", Description: "Heating and cooling services", SortOrder: 3},
	}
	for _, cat := range categories {
		if _, err := svc.CreateCategory(ctx, cat); err != nil && !errors.Is(err, core.ErrCodeConflict) {
			return fmt.Errorf("seed category %s: %w", cat.Code, err)
		}
	}

	subcategories := []app.CreateSubcategoryRequest{
		{Code: "PLB-01-A", CategoryCode: "PLB-01", Name: "Water Heaters", SortOrder: 1},
		{Code: "PLB-01-B", CategoryCode: "PLB-01", Name: "Drains", SortOrder: 2},
		{Code: "ELC-02-A", CategoryCode: "ELC-02", Name: "Panels", SortOrder: 1},
	}
	for _, sub := range subcategories {
		if _, err := svc.CreateSubcategory(ctx, sub); err != nil && !errors.Is(err, core.ErrCodeConflict) {
			return fmt.Errorf("seed subcategory %s: %w", sub.Code, err)
		}
	}

	waterHeaterSub := "PLB-01-A"
	drainSub := "PLB-01-B"
	panelSub := "ELC-02-A"
	services := []app.UpsertServiceRequest{
		{
			Code: "PLB-01-001", CategoryCode: "PLB-01", SubcategoryCode: &waterHeaterSub,
			Name:        "40-gallon gas water heater replacement",
			Description: "Remove and haul away old unit, install new 40-gallon gas water heater",
			BaseLaborHours: decimal.RequireFromString("3.0"), BaseMaterialCost: 65000,
			OriginalSourceCode: strPtr("T811272"),
		},
		{
			Code: "PLB-01-002", CategoryCode: "PLB-01", SubcategoryCode: &drainSub,
			Name:           "Kitchen sink drain clearing",
			BaseLaborHours: decimal.RequireFromString("1.0"), BaseMaterialCost: 1500,
		},
		{
			Code: "PLB-01-003", CategoryCode: "PLB-01",
			Name:           "Annual plumbing inspection",
			BaseLaborHours: decimal.RequireFromString("0.5"), BaseMaterialCost: 0,
		},
		{
			Code: "ELC-02-001", CategoryCode: "ELC-02", SubcategoryCode: &panelSub,
			Name:           "200-amp panel upgrade",
			BaseLaborHours: decimal.RequireFromString("8.0"), BaseMaterialCost: 180000,
		},
		{
			Code: "ELC-02-002", CategoryCode: "ELC-02",
			Name:           "Ceiling fan installation",
			BaseLaborHours: decimal.RequireFromString("1.5"), BaseMaterialCost: 4500,
		},
		{
			Code: "HVA-03-001", CategoryCode: "HVA-03",
			Name:           "Furnace tune-up",
			BaseLaborHours: decimal.RequireFromString("2.0"), BaseMaterialCost: 2500,
		},
	}
	for _, s := range services {
		s.Actor = seedActor
		if _, err := svc.UpsertMasterService(ctx, s); err != nil {
			return fmt.Errorf("seed service %s: %w", s.Code, err)
		}
	}
	return nil
}

func demoTenant(ctx context.Context, svc app.ApplicationService) error {
	_, err := svc.CreateCompany(ctx, app.CreateCompanyRequest{
		Code:                 "ACME",
		Name:                 "Acme Home Services",
		Email:                "office@acme.example",
		Phone:                "555-0100",
		MinimumServiceCharge: 8900,
		DefaultLaborPrice:    15000,
		DefaultLaborCost:     6500,
		DefaultTaxRate:       decimal.RequireFromString("0.0875"),
		Actor:                seedActor,
	})
	if err != nil {
		if errors.Is(err, core.ErrCodeConflict) {
			return nil // tenant already seeded
		}
		return fmt.Errorf("seed company: %w", err)
	}

	if _, err := svc.CreateCustomer(ctx, "ACME", app.CreateCustomerRequest{
		Name:    "Pat Rivera",
		Email:   "pat@example.com",
		Phone:   "555-0142",
		Address: "12 Maple St",
	}); err != nil {
		return fmt.Errorf("seed customer: %w", err)
	}

	if _, err := svc.SetDiscountRule(ctx, "ACME", app.DiscountRuleRequest{
		Kind:    core.DiscountSenior,
		Percent: decimal.RequireFromString("0.10"),
	}); err != nil {
		return fmt.Errorf("seed discount rule: %w", err)
	}

	// One override so the demo tenant shows a deviation from the baseline.
	customPrice := core.Cents(49900)
	if _, err := svc.SetOverride(ctx, "ACME", "PLB-01-002", app.SetOverrideRequest{
		Input: core.OverrideInput{
			CustomPrice: &customPrice,
			IsActive:    true,
		},
		Actor: seedActor,
	}); err != nil {
		return fmt.Errorf("seed override: %w", err)
	}

	return nil
}

func strPtr(s string) *string {
	return &s
}
