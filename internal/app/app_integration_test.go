package app_test

import (
	"context"
	"os"
	"testing"

	"servicebook/internal/app"
	"servicebook/internal/core"
	"servicebook/internal/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

// sweepSampleCount reads the observation count off the sweep histogram.
func sweepSampleCount(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.PropagationSweepDuration.Write(&m); err != nil {
		t.Fatalf("Failed to read sweep duration histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func setupTestApp(t *testing.T) (app.ApplicationService, *pgxpool.Pool) {
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE invoice_lines, invoices, estimate_lines, estimates,
			pricing_history, history_sequences, labor_rate_history,
			tenant_service_overrides, tenant_discount_rules, tenant_tier_profiles,
			tenant_tax_rates, tenant_labor_rates, customers, companies,
			master_services, subcategories, categories CASCADE;
	`)
	if err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}

	history := core.NewHistoryService(pool)
	propagator := core.NewPropagator(pool, history, 0)
	pricer := core.NewDocumentPricer(pool)
	svc := app.NewAppService(
		pool,
		core.NewCompanyService(pool),
		core.NewTaxonomyService(pool),
		core.NewCatalogService(pool, history),
		core.NewOverrideService(pool, history),
		core.NewRateBookService(pool, history, propagator),
		history,
		pricer,
		core.NewEstimateService(pool, pricer),
	)
	return svc, pool
}

func TestSetDefaultLaborRate_RecordsPropagationMetrics(t *testing.T) {
	svc, pool := setupTestApp(t)
	defer pool.Close()
	ctx := context.Background()

	if _, err := svc.CreateCategory(ctx, app.CreateCategoryRequest{Code: "PLB-01", Name: "Plumbing"}); err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if _, err := svc.UpsertMasterService(ctx, app.UpsertServiceRequest{
		Code:             "PLB-01-001",
		CategoryCode:     "PLB-01",
		Name:             "Water heater replacement",
		BaseLaborHours:   decimal.RequireFromString("2.0"),
		BaseMaterialCost: 2500,
		Actor:            "tester",
	}); err != nil {
		t.Fatalf("UpsertMasterService failed: %v", err)
	}
	if _, err := svc.CreateCompany(ctx, app.CreateCompanyRequest{
		Code:              "ACME",
		Name:              "Acme Home Services",
		DefaultLaborPrice: 15000,
		DefaultLaborCost:  6500,
		DefaultTaxRate:    decimal.RequireFromString("0.0875"),
	}); err != nil {
		t.Fatalf("CreateCompany failed: %v", err)
	}

	sweepsBefore := sweepSampleCount(t)
	entriesBefore := testutil.ToFloat64(metrics.PropagationEntriesWritten)

	result, err := svc.SetDefaultLaborRate(ctx, app.SetLaborRateRequest{
		CompanyCode: "ACME",
		Name:        "Standard",
		HourlyCost:  6500,
		HourlyPrice: 18000,
		Actor:       "tester",
	})
	if err != nil {
		t.Fatalf("SetDefaultLaborRate failed: %v", err)
	}
	if result.Incomplete {
		t.Fatal("Expected a complete sweep")
	}
	if result.Report.EntriesWritten != 1 {
		t.Fatalf("Expected 1 entry written, got %d", result.Report.EntriesWritten)
	}

	if got := sweepSampleCount(t); got != sweepsBefore+1 {
		t.Errorf("Expected one new sweep duration observation, sample count went %d -> %d", sweepsBefore, got)
	}
	written := testutil.ToFloat64(metrics.PropagationEntriesWritten) - entriesBefore
	if written != 1 {
		t.Errorf("Expected the entries counter to advance by 1, got %v", written)
	}
}
