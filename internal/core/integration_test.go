package core_test

import (
	"context"
	"os"
	"testing"

	"servicebook/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed the shared master catalog. PLB-01-003 has zero labor
	// hours, so it is deliberately labor-independent.
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE invoice_lines, invoices, estimate_lines, estimates,
			pricing_history, history_sequences, labor_rate_history,
			tenant_service_overrides, tenant_discount_rules, tenant_tier_profiles,
			tenant_tax_rates, tenant_labor_rates, customers, companies,
			master_services, subcategories, categories CASCADE;

		INSERT INTO categories (code, name) VALUES ('PLB-01', 'Plumbing');
		INSERT INTO subcategories (code, category_code, name) VALUES ('PLB-01-A', 'PLB-01', 'Water Heaters');

		INSERT INTO master_services (code, category_code, subcategory_code, name, base_labor_hours, base_material_cost_cents) VALUES
		('PLB-01-001', 'PLB-01', 'PLB-01-A', 'Water heater replacement', 2.0, 2500),
		('PLB-01-002', 'PLB-01', NULL, 'Drain clearing', 1.0, 1500),
		('PLB-01-003', 'PLB-01', NULL, 'Parts-only kit', 0, 5000);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

// seedCompany provisions the ACME test tenant: $150/hr default labor,
// 8.75% default tax, 1.0/1.3/1.6 tiers, $89.00 minimum service charge.
func seedCompany(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	companies := core.NewCompanyService(pool)
	_, err := companies.CreateCompany(context.Background(), core.CompanyInput{
		Code:                 "ACME",
		Name:                 "Acme Home Services",
		MinimumServiceCharge: 8900,
		DefaultLaborPrice:    15000,
		DefaultLaborCost:     6500,
		DefaultTaxRate:       dec("0.0875"),
	}, "test")
	if err != nil {
		t.Fatalf("Failed to seed test company: %v", err)
	}
}

func newTestServices(pool *pgxpool.Pool) (core.HistoryService, core.OverrideService, core.RateBookService, *core.DocumentPricer) {
	history := core.NewHistoryService(pool)
	propagator := core.NewPropagator(pool, history, 0)
	overrides := core.NewOverrideService(pool, history)
	rateBook := core.NewRateBookService(pool, history, propagator)
	pricer := core.NewDocumentPricer(pool)
	return history, overrides, rateBook, pricer
}
