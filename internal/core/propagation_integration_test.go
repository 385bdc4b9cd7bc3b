package core_test

import (
	"context"
	"testing"

	"servicebook/internal/core"
)

func TestSetDefaultLaborRate_PropagatesLaborDependentServices(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	history, overrides, rateBook, _ := newTestServices(pool)
	ctx := context.Background()

	// PLB-01-002 gets a custom absolute price, which detaches it from the
	// labor rate. PLB-01-003 has zero labor hours and was never attached.
	_, err := overrides.SetOverride(ctx, "ACME", "PLB-01-002", core.OverrideInput{
		CustomPrice: centsPtr(49900),
		IsActive:    true,
	}, "tester")
	if err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}

	report, err := rateBook.SetDefaultLaborRate(ctx, "ACME", "Standard", 6500, 18000, "tester")
	if err != nil {
		t.Fatalf("SetDefaultLaborRate failed: %v", err)
	}
	if report.PairsExamined != 1 {
		t.Errorf("Expected 1 labor-dependent pair, got %d", report.PairsExamined)
	}
	if report.EntriesWritten != 1 {
		t.Errorf("Expected 1 history entry written, got %d", report.EntriesWritten)
	}

	cause := core.CauseGlobalRateChange
	entries, err := history.Query(ctx, "ACME", core.HistoryFilter{Cause: &cause})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 global_rate_change entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ServiceCode != "PLB-01-001" {
		t.Errorf("Expected entry for PLB-01-001, got %s", e.ServiceCode)
	}
	// Old: 2.0h * $150 + $25 = $325. New: 2.0h * $180 + $25 = $385.
	if e.Old == nil || e.Old.Good != 32500 {
		t.Errorf("Expected old good snapshot 32500, got %+v", e.Old)
	}
	if e.New.Good != 38500 {
		t.Errorf("Expected new good snapshot 38500, got %d", e.New.Good)
	}
	if e.LaborRate != 18000 {
		t.Errorf("Expected labor rate 18000 on the entry, got %d", e.LaborRate)
	}
	if e.LaborRateDelta == nil || *e.LaborRateDelta != 3000 {
		t.Errorf("Expected labor rate delta 3000, got %+v", e.LaborRateDelta)
	}
}

func TestSetDefaultLaborRate_UnchangedRateIsNoOp(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	history, _, rateBook, _ := newTestServices(pool)
	ctx := context.Background()

	report, err := rateBook.SetDefaultLaborRate(ctx, "ACME", "Standard", 6500, 15000, "tester")
	if err != nil {
		t.Fatalf("SetDefaultLaborRate failed: %v", err)
	}
	if report.PairsExamined != 0 || report.EntriesWritten != 0 {
		t.Errorf("Expected empty report for unchanged rate, got %+v", report)
	}

	entries, err := history.Query(ctx, "ACME", core.HistoryFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no history entries, got %d", len(entries))
	}
}

func TestPropagate_RetryIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	history := core.NewHistoryService(pool)
	propagator := core.NewPropagator(pool, history, 0)
	ctx := context.Background()

	first, err := propagator.Propagate(ctx, "ACME", 15000, 18000, "tester")
	if err != nil {
		t.Fatalf("First sweep failed: %v", err)
	}
	if first.EntriesWritten != 2 {
		t.Errorf("Expected 2 entries on first sweep, got %d", first.EntriesWritten)
	}

	// A retried sweep finds every pair already recorded at the new rate.
	second, err := propagator.Propagate(ctx, "ACME", 15000, 18000, "tester")
	if err != nil {
		t.Fatalf("Retried sweep failed: %v", err)
	}
	if second.EntriesWritten != 0 {
		t.Errorf("Expected no entries on retry, got %d", second.EntriesWritten)
	}
	if second.PairsSkipped != 2 {
		t.Errorf("Expected 2 skipped pairs on retry, got %d", second.PairsSkipped)
	}

	entries, err := history.Query(ctx, "ACME", core.HistoryFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries total after retry, got %d", len(entries))
	}
}
