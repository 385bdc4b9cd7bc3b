// migrate applies the SQL migrations under ./migrations.
//
// Usage:
//
//	go run ./cmd/migrate          # apply all pending migrations
//	go run ./cmd/migrate down     # roll back the most recent migration
package main

import (
	"log"
	"os"

	"servicebook/internal/config"
	"servicebook/internal/migrations"
)

const migrationsDir = "migrations"

func main() {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if len(os.Args) > 1 && os.Args[1] == "down" {
		if err := migrations.Down(cfg.DatabaseURL, migrationsDir); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		log.Println("rolled back one migration")
		return
	}

	if err := migrations.Up(cfg.DatabaseURL, migrationsDir); err != nil {
		log.Fatalf("migrate up: %v", err)
	}
	log.Println("migrations applied")
}
