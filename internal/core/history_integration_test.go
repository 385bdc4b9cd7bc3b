package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"servicebook/internal/core"
)

func TestQueryHistory_Filters(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	history, overrides, rateBook, _ := newTestServices(pool)
	ctx := context.Background()

	if _, err := overrides.SetOverride(ctx, "ACME", "PLB-01-001", core.OverrideInput{
		FlatAdjustment: 2500,
		IsActive:       true,
	}, "tester"); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
	if _, err := rateBook.SetDefaultLaborRate(ctx, "ACME", "Standard", 6500, 16000, "tester"); err != nil {
		t.Fatalf("SetDefaultLaborRate failed: %v", err)
	}

	all, err := history.Query(ctx, "ACME", core.HistoryFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	// One tenant_edit plus one global_rate_change per labor-dependent pair.
	if len(all) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Seq <= all[i-1].Seq {
			t.Errorf("Expected strictly increasing seq, got %d then %d", all[i-1].Seq, all[i].Seq)
		}
	}

	byService, err := history.Query(ctx, "ACME", core.HistoryFilter{ServiceCode: "PLB-01-002"})
	if err != nil {
		t.Fatalf("Query by service failed: %v", err)
	}
	if len(byService) != 1 {
		t.Fatalf("Expected 1 entry for PLB-01-002, got %d", len(byService))
	}
	if byService[0].Cause != core.CauseGlobalRateChange {
		t.Errorf("Expected global_rate_change cause, got %s", byService[0].Cause)
	}

	cause := core.CauseTenantEdit
	edits, err := history.Query(ctx, "ACME", core.HistoryFilter{Cause: &cause})
	if err != nil {
		t.Fatalf("Query by cause failed: %v", err)
	}
	if len(edits) != 1 || edits[0].ServiceCode != "PLB-01-001" {
		t.Fatalf("Expected 1 tenant_edit for PLB-01-001, got %+v", edits)
	}

	future := time.Now().Add(time.Hour)
	none, err := history.Query(ctx, "ACME", core.HistoryFilter{Since: &future})
	if err != nil {
		t.Fatalf("Query by since failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no entries after future cutoff, got %d", len(none))
	}
}

func TestReplayAt(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	history, overrides, _, _ := newTestServices(pool)
	ctx := context.Background()

	// Never-changed service before any entries: synthesize from the baseline
	// and the labor rate in force.
	triple, err := history.ReplayAt(ctx, "ACME", "PLB-01-001", time.Now())
	if err != nil {
		t.Fatalf("ReplayAt on untouched service failed: %v", err)
	}
	if triple.Good != 32500 {
		t.Errorf("Expected synthesized good 32500, got %d", triple.Good)
	}

	beforeEdit := time.Now()
	time.Sleep(10 * time.Millisecond)
	if _, err := overrides.SetOverride(ctx, "ACME", "PLB-01-001", core.OverrideInput{
		FlatAdjustment: 10000,
		IsActive:       true,
	}, "tester"); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}

	// After the edit the latest snapshot wins.
	triple, err = history.ReplayAt(ctx, "ACME", "PLB-01-001", time.Now())
	if err != nil {
		t.Fatalf("ReplayAt after edit failed: %v", err)
	}
	if triple.Good != 42500 {
		t.Errorf("Expected replayed good 42500, got %d", triple.Good)
	}

	// Once the log has entries, an at predating them is refused rather than
	// silently synthesized.
	if _, err := history.ReplayAt(ctx, "ACME", "PLB-01-001", beforeEdit); !errors.Is(err, core.ErrNoHistory) {
		t.Errorf("Expected ErrNoHistory before first entry, got %v", err)
	}
}

func TestReplayAt_BeforeCompanyExists(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	history, _, _, _ := newTestServices(pool)

	at := time.Now().Add(-24 * time.Hour)
	_, err := history.ReplayAt(context.Background(), "ACME", "PLB-01-001", at)
	if !errors.Is(err, core.ErrNoHistory) {
		t.Errorf("Expected ErrNoHistory before any labor rate existed, got %v", err)
	}
}
