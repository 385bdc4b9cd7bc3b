// seed populates a demo catalog and one demo tenant.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"

	"servicebook/internal/app"
	"servicebook/internal/config"
	"servicebook/internal/core"
	"servicebook/internal/db"
	"servicebook/internal/seed"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer pool.Close()

	history := core.NewHistoryService(pool)
	propagator := core.NewPropagator(pool, history, cfg.PropagationTimeout)
	companies := core.NewCompanyService(pool)
	taxonomy := core.NewTaxonomyService(pool)
	catalog := core.NewCatalogService(pool, history)
	overrides := core.NewOverrideService(pool, history)
	rateBook := core.NewRateBookService(pool, history, propagator)
	pricer := core.NewDocumentPricer(pool)
	estimates := core.NewEstimateService(pool, pricer)

	svc := app.NewAppService(pool, companies, taxonomy, catalog, overrides, rateBook, history, pricer, estimates)

	if err := seed.Demo(ctx, svc); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	log.Println("demo data seeded")
}
