package migrations

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const pgDialect = "postgres"

// Up runs all pending SQL migrations found in migrationsDir against connStr.
// goose works over database/sql, so this opens its own short-lived connection
// via the pgx stdlib driver rather than sharing the application pool.
func Up(connStr, migrationsDir string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect(pgDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func Down(connStr, migrationsDir string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect(pgDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Down(db, migrationsDir); err != nil {
		return fmt.Errorf("run goose down migration: %w", err)
	}
	return nil
}
