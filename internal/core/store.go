package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the load helpers
// below can run standalone or inside a caller's transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func resolveCompany(ctx context.Context, q querier, companyCode string) (int, error) {
	var companyID int
	err := q.QueryRow(ctx, "SELECT id FROM companies WHERE code = $1", companyCode).Scan(&companyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("company %s: %w", companyCode, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to resolve company: %w", err)
	}
	return companyID, nil
}

// lockCompany resolves a company and takes a row lock on it. Rate-book writes
// are serialized per company through this lock.
func lockCompany(ctx context.Context, tx pgx.Tx, companyCode string) (int, error) {
	var companyID int
	err := tx.QueryRow(ctx, "SELECT id FROM companies WHERE code = $1 FOR UPDATE", companyCode).Scan(&companyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("company %s: %w", companyCode, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to lock company: %w", err)
	}
	return companyID, nil
}

func loadBaseline(ctx context.Context, q querier, serviceCode string) (*MasterService, error) {
	var (
		m             MasterService
		materialCents int64
		priceCents    int64
	)
	err := q.QueryRow(ctx, `
		SELECT code, category_code, subcategory_code, name, description,
		       base_labor_hours, base_material_cost_cents, base_price_cents,
		       original_source_code, is_active, created_at
		FROM master_services WHERE code = $1
	`, serviceCode).Scan(
		&m.Code, &m.CategoryCode, &m.SubcategoryCode, &m.Name, &m.Description,
		&m.BaseLaborHours, &materialCents, &priceCents,
		&m.OriginalSourceCode, &m.IsActive, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("service %s: %w", serviceCode, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch master service %s: %w", serviceCode, err)
	}
	m.BaseMaterialCost = Cents(materialCents)
	m.BasePrice = Cents(priceCents)
	return &m, nil
}

// loadOverride returns the company's override row for a service, or nil when
// no override exists.
func loadOverride(ctx context.Context, q querier, companyID int, serviceCode string) (*ServiceOverride, error) {
	var (
		o           ServiceOverride
		customPrice *int64
		customHours decimal.NullDecimal
		customMat   *int64
		flatCents   int64
	)
	err := q.QueryRow(ctx, `
		SELECT company_id, service_code, custom_price_cents, custom_labor_hours,
		       custom_material_cost_cents, percent_adjustment, flat_adjustment_cents,
		       custom_name, custom_description, is_active, is_hidden, updated_at
		FROM tenant_service_overrides
		WHERE company_id = $1 AND service_code = $2
	`, companyID, serviceCode).Scan(
		&o.CompanyID, &o.ServiceCode, &customPrice, &customHours,
		&customMat, &o.PercentAdjustment, &flatCents,
		&o.CustomName, &o.CustomDescription, &o.IsActive, &o.IsHidden, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch override for %s: %w", serviceCode, err)
	}
	if customPrice != nil {
		c := Cents(*customPrice)
		o.CustomPrice = &c
	}
	if customHours.Valid {
		h := customHours.Decimal
		o.CustomLaborHours = &h
	}
	if customMat != nil {
		c := Cents(*customMat)
		o.CustomMaterialCost = &c
	}
	o.FlatAdjustment = Cents(flatCents)
	return &o, nil
}

// loadRateBook assembles the company's current pricing context: default labor
// price, tier multipliers, and active discount rules. Companies without a tier
// profile price all tiers at 1.0.
func loadRateBook(ctx context.Context, q querier, companyID int) (*RateBook, error) {
	book := &RateBook{}

	var priceCents int64
	err := q.QueryRow(ctx, `
		SELECT hourly_price_cents FROM tenant_labor_rates
		WHERE company_id = $1 AND is_default AND is_active
	`, companyID).Scan(&priceCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("default labor rate for company %d: %w", companyID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch default labor rate: %w", err)
	}
	book.LaborPrice = Cents(priceCents)

	book.Tiers = TierProfile{
		CompanyID: companyID,
		Good:      decimal.NewFromInt(1),
		Better:    decimal.NewFromInt(1),
		Best:      decimal.NewFromInt(1),
	}
	err = q.QueryRow(ctx, `
		SELECT good_multiplier, better_multiplier, best_multiplier
		FROM tenant_tier_profiles WHERE company_id = $1
	`, companyID).Scan(&book.Tiers.Good, &book.Tiers.Better, &book.Tiers.Best)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to fetch tier profile: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT id, company_id, kind, percent, is_active
		FROM tenant_discount_rules
		WHERE company_id = $1 AND is_active
		ORDER BY kind
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query discount rules: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r DiscountRule
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.Kind, &r.Percent, &r.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan discount rule: %w", err)
		}
		book.Discounts = append(book.Discounts, r)
	}
	return book, nil
}
