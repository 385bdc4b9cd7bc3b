package main

import (
	"context"
	"net/http"

	webAdapter "servicebook/internal/adapters/web"
	"servicebook/internal/app"
	"servicebook/internal/config"
	"servicebook/internal/core"
	"servicebook/internal/db"
	"servicebook/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "servicebook",
	}); err != nil {
		panic("logger init failed: " + err.Error())
	}
	defer logger.Sync()
	log := logger.Get()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
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
	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigins)

	log.Info("server starting", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
