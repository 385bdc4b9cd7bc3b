package core_test

import (
	"context"
	"errors"
	"testing"

	"servicebook/internal/core"
)

func TestSetOverride_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	history, overrides, _, _ := newTestServices(pool)
	ctx := context.Background()

	// Set a real deviation.
	ov, err := overrides.SetOverride(ctx, "ACME", "PLB-01-001", core.OverrideInput{
		PercentAdjustment: dec("10"),
		IsActive:          true,
	}, "tester")
	if err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
	if ov == nil {
		t.Fatal("Expected a stored override, got nil")
	}
	if !ov.PercentAdjustment.Equal(dec("10")) {
		t.Errorf("Expected percent adjustment 10, got %s", ov.PercentAdjustment)
	}

	// Write it back to baseline values: the row must disappear.
	ov, err = overrides.SetOverride(ctx, "ACME", "PLB-01-001", core.OverrideInput{
		IsActive: true,
	}, "tester")
	if err != nil {
		t.Fatalf("SetOverride to baseline failed: %v", err)
	}
	if ov != nil {
		t.Errorf("Expected baseline-equal override to normalize to absence, got %+v", ov)
	}
	got, err := overrides.GetOverride(ctx, "ACME", "PLB-01-001")
	if err != nil {
		t.Fatalf("GetOverride failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected no stored row after normalization, got %+v", got)
	}

	// Both writes carry a tenant_edit history entry.
	cause := core.CauseTenantEdit
	entries, err := history.Query(ctx, "ACME", core.HistoryFilter{ServiceCode: "PLB-01-001", Cause: &cause})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 tenant_edit entries, got %d", len(entries))
	}
}

func TestSetOverride_RejectsInvalidInput(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	_, overrides, _, _ := newTestServices(pool)
	ctx := context.Background()

	tests := []struct {
		name  string
		input core.OverrideInput
	}{
		{"percent at -100", core.OverrideInput{PercentAdjustment: dec("-100"), IsActive: true}},
		{"percent below -100", core.OverrideInput{PercentAdjustment: dec("-150"), IsActive: true}},
		{"negative custom price", core.OverrideInput{CustomPrice: centsPtr(-100), IsActive: true}},
		{"negative custom hours", core.OverrideInput{CustomLaborHours: decPtr("-1"), IsActive: true}},
		{"negative custom material", core.OverrideInput{CustomMaterialCost: centsPtr(-1), IsActive: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := overrides.SetOverride(ctx, "ACME", "PLB-01-001", tt.input, "tester")
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestRevertOverride(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	history, overrides, _, _ := newTestServices(pool)
	ctx := context.Background()

	_, err := overrides.SetOverride(ctx, "ACME", "PLB-01-002", core.OverrideInput{
		CustomPrice: centsPtr(49900),
		IsActive:    true,
	}, "tester")
	if err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}

	if err := overrides.Revert(ctx, "ACME", "PLB-01-002", "tester"); err != nil {
		t.Fatalf("Revert failed: %v", err)
	}
	got, err := overrides.GetOverride(ctx, "ACME", "PLB-01-002")
	if err != nil {
		t.Fatalf("GetOverride failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected no stored row after revert, got %+v", got)
	}

	// A second revert has nothing to remove.
	if err := overrides.Revert(ctx, "ACME", "PLB-01-002", "tester"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double revert, got %v", err)
	}

	cause := core.CauseRevert
	entries, err := history.Query(ctx, "ACME", core.HistoryFilter{ServiceCode: "PLB-01-002", Cause: &cause})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 revert entry, got %d", len(entries))
	}
	// After the revert the snapshot is back at baseline: 1.0h * $150 + $15.
	if entries[0].New.Good != 16500 {
		t.Errorf("Expected reverted good price 16500, got %d", entries[0].New.Good)
	}
}

func TestListForTenant_ResolvesAgainstCurrentRates(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	_, overrides, _, _ := newTestServices(pool)
	ctx := context.Background()

	_, err := overrides.SetOverride(ctx, "ACME", "PLB-01-001", core.OverrideInput{
		FlatAdjustment: 5000,
		IsActive:       true,
	}, "tester")
	if err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}

	views, err := overrides.ListForTenant(ctx, "ACME")
	if err != nil {
		t.Fatalf("ListForTenant failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("Expected 1 override view, got %d", len(views))
	}
	v := views[0]
	if v.Master.Code != "PLB-01-001" {
		t.Errorf("Expected master PLB-01-001, got %s", v.Master.Code)
	}
	// 2.0h * $150 + $25 + $50 flat = $375.
	if v.Resolved.Good != 37500 {
		t.Errorf("Expected resolved good 37500, got %d", v.Resolved.Good)
	}
}
