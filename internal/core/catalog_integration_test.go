package core_test

import (
	"context"
	"testing"

	"servicebook/internal/core"

	"github.com/shopspring/decimal"
)

func TestUpsertMasterService_DeactivateAndReactivate(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedCompany(t, pool)
	history := core.NewHistoryService(pool)
	catalog := core.NewCatalogService(pool, history)
	pricer := core.NewDocumentPricer(pool)
	ctx := context.Background()

	// Deactivation travels through the upsert; the stored flag comes back.
	svc, err := catalog.UpsertMasterService(ctx, core.MasterService{
		Code:             "PLB-01-002",
		CategoryCode:     "PLB-01",
		Name:             "Drain clearing",
		BaseLaborHours:   dec("1.0"),
		BaseMaterialCost: 1500,
		IsActive:         false,
	}, "tester")
	if err != nil {
		t.Fatalf("UpsertMasterService failed: %v", err)
	}
	if svc.IsActive {
		t.Fatal("Expected the upserted service to be inactive")
	}
	stored, err := catalog.GetByCode(ctx, "PLB-01-002")
	if err != nil {
		t.Fatalf("GetByCode failed: %v", err)
	}
	if stored.IsActive {
		t.Error("Expected the stored row to be inactive")
	}

	// Inactive services are unpriceable; documents report them per line.
	doc, err := pricer.PriceDocument(ctx, "ACME", core.PriceDocumentRequest{
		Lines: []core.LineRequest{{ServiceCode: "PLB-01-002", Quantity: decimal.NewFromInt(1)}},
	})
	if err != nil {
		t.Fatalf("PriceDocument failed: %v", err)
	}
	if len(doc.Lines) != 0 || len(doc.LineErrors) != 1 {
		t.Fatalf("Expected only a line error for the inactive service, got lines=%+v errors=%+v",
			doc.Lines, doc.LineErrors)
	}

	// Reactivation restores pricing.
	svc, err = catalog.UpsertMasterService(ctx, core.MasterService{
		Code:             "PLB-01-002",
		CategoryCode:     "PLB-01",
		Name:             "Drain clearing",
		BaseLaborHours:   dec("1.0"),
		BaseMaterialCost: 1500,
		IsActive:         true,
	}, "tester")
	if err != nil {
		t.Fatalf("Reactivating upsert failed: %v", err)
	}
	if !svc.IsActive {
		t.Fatal("Expected the reactivated service to be active")
	}
	doc, err = pricer.PriceDocument(ctx, "ACME", core.PriceDocumentRequest{
		Lines: []core.LineRequest{{ServiceCode: "PLB-01-002", Quantity: decimal.NewFromInt(1)}},
	})
	if err != nil {
		t.Fatalf("PriceDocument after reactivation failed: %v", err)
	}
	if len(doc.Lines) != 1 || doc.Lines[0].LineTotal != 16500 {
		t.Fatalf("Expected the reactivated service priced at 16500, got %+v", doc.Lines)
	}
}

func TestUpsertMasterService_OriginalSourceCode(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	history := core.NewHistoryService(pool)
	catalog := core.NewCatalogService(pool, history)
	ctx := context.Background()

	src := "T812290"
	svc, err := catalog.UpsertMasterService(ctx, core.MasterService{
		Code:               "PLB-01-004",
		CategoryCode:       "PLB-01",
		Name:               "Imported fixture swap",
		BaseLaborHours:     dec("1.5"),
		BaseMaterialCost:   3000,
		OriginalSourceCode: &src,
		IsActive:           true,
	}, "tester")
	if err != nil {
		t.Fatalf("UpsertMasterService failed: %v", err)
	}
	if svc.OriginalSourceCode == nil || *svc.OriginalSourceCode != src {
		t.Errorf("Expected original source code %q on the result, got %+v", src, svc.OriginalSourceCode)
	}

	stored, err := catalog.GetByCode(ctx, "PLB-01-004")
	if err != nil {
		t.Fatalf("GetByCode failed: %v", err)
	}
	if stored.OriginalSourceCode == nil || *stored.OriginalSourceCode != src {
		t.Errorf("Expected original source code %q stored, got %+v", src, stored.OriginalSourceCode)
	}
}
