package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RateBookService manages a company's labor rates, tax rates, tier
// multipliers, and discount rules. All writes serialize per company on the
// company row lock so the single-default invariants hold under concurrency.
type RateBookService interface {
	// SetDefaultLaborRate changes the company's default labor rate and runs
	// the propagation sweep. A no-op change returns an empty report.
	SetDefaultLaborRate(ctx context.Context, companyCode, name string, newCost, newPrice Cents, actor string) (*PropagationReport, error)
	AddLaborRate(ctx context.Context, companyCode string, rate LaborRate) (*LaborRate, error)
	UpdateLaborRate(ctx context.Context, companyCode string, rate LaborRate) error
	DeactivateLaborRate(ctx context.Context, companyCode string, id int) error
	ListLaborRates(ctx context.Context, companyCode string) ([]LaborRate, error)

	SetTaxRate(ctx context.Context, companyCode string, tax TaxRate) (*TaxRate, error)
	ListTaxRates(ctx context.Context, companyCode string) ([]TaxRate, error)

	SetTierMultipliers(ctx context.Context, companyCode string, good, better, best decimal.Decimal, actor string) error
	GetTierProfile(ctx context.Context, companyCode string) (*TierProfile, error)

	SetDiscountRule(ctx context.Context, companyCode string, rule DiscountRule) (*DiscountRule, error)
	ListDiscountRules(ctx context.Context, companyCode string) ([]DiscountRule, error)
}

type rateBookService struct {
	pool       *pgxpool.Pool
	history    HistoryService
	propagator *Propagator
}

func NewRateBookService(pool *pgxpool.Pool, history HistoryService, propagator *Propagator) RateBookService {
	return &rateBookService{pool: pool, history: history, propagator: propagator}
}

func (s *rateBookService) SetDefaultLaborRate(ctx context.Context, companyCode, name string, newCost, newPrice Cents, actor string) (*PropagationReport, error) {
	if newCost < 0 || newPrice < 0 {
		return nil, fmt.Errorf("labor cost and price must be non-negative: %w", ErrValidation)
	}
	if name == "" {
		name = "Standard"
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := lockCompany(ctx, tx, companyCode)
	if err != nil {
		return nil, err
	}

	var oldPrice, oldCost int64
	hadDefault := true
	err = tx.QueryRow(ctx, `
		SELECT hourly_price_cents, hourly_cost_cents FROM tenant_labor_rates
		WHERE company_id = $1 AND is_default
	`, companyID).Scan(&oldPrice, &oldCost)
	if errors.Is(err, pgx.ErrNoRows) {
		hadDefault = false
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch current default labor rate: %w", err)
	}

	if hadDefault && Cents(oldPrice) == newPrice && Cents(oldCost) == newCost {
		return &PropagationReport{}, nil
	}

	if _, err := tx.Exec(ctx,
		"UPDATE tenant_labor_rates SET is_default = FALSE WHERE company_id = $1 AND is_default",
		companyID,
	); err != nil {
		return nil, fmt.Errorf("failed to clear default labor rate: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO tenant_labor_rates (company_id, name, hourly_cost_cents, hourly_price_cents, is_default, is_active)
		VALUES ($1, $2, $3, $4, TRUE, TRUE)
		ON CONFLICT (company_id, name) DO UPDATE SET
			hourly_cost_cents = EXCLUDED.hourly_cost_cents,
			hourly_price_cents = EXCLUDED.hourly_price_cents,
			is_default = TRUE,
			is_active = TRUE
	`, companyID, name, int64(newCost), int64(newPrice)); err != nil {
		return nil, fmt.Errorf("failed to upsert default labor rate: %w", err)
	}

	// The rate book keeps its own history stream so replay can reconstruct
	// the default rate in force at any past instant.
	var oldPricePtr *int64
	if hadDefault {
		oldPricePtr = &oldPrice
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO labor_rate_history (company_id, changed_at, old_price_cents, new_price_cents, actor)
		VALUES ($1, NOW(), $2, $3, $4)
	`, companyID, oldPricePtr, int64(newPrice), actor); err != nil {
		return nil, fmt.Errorf("failed to record labor rate change: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit labor rate change: %w", err)
	}

	if !hadDefault || Cents(oldPrice) == newPrice {
		return &PropagationReport{}, nil
	}
	return s.propagator.Propagate(ctx, companyCode, Cents(oldPrice), newPrice, actor)
}

func (s *rateBookService) AddLaborRate(ctx context.Context, companyCode string, rate LaborRate) (*LaborRate, error) {
	if rate.Name == "" {
		return nil, fmt.Errorf("labor rate name is required: %w", ErrValidation)
	}
	if rate.HourlyCost < 0 || rate.HourlyPrice < 0 {
		return nil, fmt.Errorf("labor cost and price must be non-negative: %w", ErrValidation)
	}
	if rate.IsDefault {
		// The default must travel through SetDefaultLaborRate so its history
		// entry and the propagation sweep happen.
		return nil, fmt.Errorf("named variants cannot claim the default flag: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := lockCompany(ctx, tx, companyCode)
	if err != nil {
		return nil, err
	}
	rate.CompanyID = companyID

	err = tx.QueryRow(ctx, `
		INSERT INTO tenant_labor_rates (company_id, name, hourly_cost_cents, hourly_price_cents, is_default, is_active)
		VALUES ($1, $2, $3, $4, FALSE, TRUE)
		ON CONFLICT (company_id, name) DO NOTHING
		RETURNING id
	`, companyID, rate.Name, int64(rate.HourlyCost), int64(rate.HourlyPrice)).Scan(&rate.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("labor rate %s: %w", rate.Name, ErrCodeConflict)
		}
		return nil, fmt.Errorf("failed to insert labor rate: %w", err)
	}
	rate.IsActive = true

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit labor rate: %w", err)
	}
	return &rate, nil
}

func (s *rateBookService) UpdateLaborRate(ctx context.Context, companyCode string, rate LaborRate) error {
	if rate.HourlyCost < 0 || rate.HourlyPrice < 0 {
		return fmt.Errorf("labor cost and price must be non-negative: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := lockCompany(ctx, tx, companyCode)
	if err != nil {
		return err
	}

	var isDefault bool
	err = tx.QueryRow(ctx,
		"SELECT is_default FROM tenant_labor_rates WHERE company_id = $1 AND id = $2",
		companyID, rate.ID).Scan(&isDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("labor rate %d: %w", rate.ID, ErrNotFound)
		}
		return fmt.Errorf("failed to fetch labor rate: %w", err)
	}
	if isDefault {
		return fmt.Errorf("default labor rate must change via SetDefaultLaborRate: %w", ErrValidation)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE tenant_labor_rates
		SET name = $1, hourly_cost_cents = $2, hourly_price_cents = $3
		WHERE company_id = $4 AND id = $5
	`, rate.Name, int64(rate.HourlyCost), int64(rate.HourlyPrice), companyID, rate.ID); err != nil {
		return fmt.Errorf("failed to update labor rate: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *rateBookService) DeactivateLaborRate(ctx context.Context, companyCode string, id int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := lockCompany(ctx, tx, companyCode)
	if err != nil {
		return err
	}

	var isDefault bool
	err = tx.QueryRow(ctx,
		"SELECT is_default FROM tenant_labor_rates WHERE company_id = $1 AND id = $2",
		companyID, id).Scan(&isDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("labor rate %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to fetch labor rate: %w", err)
	}
	if isDefault {
		return fmt.Errorf("the default labor rate cannot be deactivated: %w", ErrValidation)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE tenant_labor_rates SET is_active = FALSE WHERE company_id = $1 AND id = $2",
		companyID, id); err != nil {
		return fmt.Errorf("failed to deactivate labor rate: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *rateBookService) ListLaborRates(ctx context.Context, companyCode string) ([]LaborRate, error) {
	companyID, err := resolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, name, hourly_cost_cents, hourly_price_cents, is_default, is_active
		FROM tenant_labor_rates
		WHERE company_id = $1
		ORDER BY is_default DESC, name
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query labor rates: %w", err)
	}
	defer rows.Close()

	var rates []LaborRate
	for rows.Next() {
		var (
			r           LaborRate
			cost, price int64
		)
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.Name, &cost, &price, &r.IsDefault, &r.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan labor rate: %w", err)
		}
		r.HourlyCost, r.HourlyPrice = Cents(cost), Cents(price)
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

func (s *rateBookService) SetTaxRate(ctx context.Context, companyCode string, tax TaxRate) (*TaxRate, error) {
	if tax.Name == "" {
		return nil, fmt.Errorf("tax rate name is required: %w", ErrValidation)
	}
	if tax.Rate.IsNegative() || tax.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("tax rate must be a fraction in [0, 1): %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := lockCompany(ctx, tx, companyCode)
	if err != nil {
		return nil, err
	}
	tax.CompanyID = companyID

	if tax.IsDefault {
		if _, err := tx.Exec(ctx,
			"UPDATE tenant_tax_rates SET is_default = FALSE WHERE company_id = $1 AND is_default AND name <> $2",
			companyID, tax.Name); err != nil {
			return nil, fmt.Errorf("failed to clear default tax rate: %w", err)
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO tenant_tax_rates (company_id, name, rate, is_default, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (company_id, name) DO UPDATE SET
			rate = EXCLUDED.rate,
			is_default = EXCLUDED.is_default,
			is_active = TRUE
		RETURNING id
	`, companyID, tax.Name, tax.Rate, tax.IsDefault).Scan(&tax.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert tax rate: %w", err)
	}
	tax.IsActive = true

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit tax rate: %w", err)
	}
	return &tax, nil
}

func (s *rateBookService) ListTaxRates(ctx context.Context, companyCode string) ([]TaxRate, error) {
	companyID, err := resolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, name, rate, is_default, is_active
		FROM tenant_tax_rates
		WHERE company_id = $1
		ORDER BY is_default DESC, name
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax rates: %w", err)
	}
	defer rows.Close()

	var taxes []TaxRate
	for rows.Next() {
		var t TaxRate
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.Name, &t.Rate, &t.IsDefault, &t.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan tax rate: %w", err)
		}
		taxes = append(taxes, t)
	}
	return taxes, rows.Err()
}

func (s *rateBookService) SetTierMultipliers(ctx context.Context, companyCode string, good, better, best decimal.Decimal, actor string) error {
	if good.IsNegative() {
		return fmt.Errorf("tier multipliers must be non-negative: %w", ErrValidation)
	}
	if good.GreaterThan(better) || better.GreaterThan(best) {
		return fmt.Errorf("tier multipliers must satisfy good <= better <= best: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := lockCompany(ctx, tx, companyCode)
	if err != nil {
		return err
	}
	book, err := loadRateBook(ctx, tx, companyID)
	if err != nil {
		return err
	}
	oldBook := *book
	newBook := *book
	newBook.Tiers = TierProfile{CompanyID: companyID, Good: good, Better: better, Best: best}

	if _, err := tx.Exec(ctx, `
		INSERT INTO tenant_tier_profiles (company_id, good_multiplier, better_multiplier, best_multiplier)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (company_id) DO UPDATE SET
			good_multiplier = EXCLUDED.good_multiplier,
			better_multiplier = EXCLUDED.better_multiplier,
			best_multiplier = EXCLUDED.best_multiplier
	`, companyID, good, better, best); err != nil {
		return fmt.Errorf("failed to upsert tier profile: %w", err)
	}

	// Every pair with a recorded snapshot or an override gets a tier_change
	// entry when its triple moves under the new multipliers.
	rows, err := tx.Query(ctx, `
		SELECT service_code FROM pricing_history WHERE company_id = $1
		UNION
		SELECT service_code FROM tenant_service_overrides WHERE company_id = $1
		ORDER BY service_code
	`, companyID)
	if err != nil {
		return fmt.Errorf("failed to enumerate snapshotted services: %w", err)
	}
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan service code: %w", err)
		}
		codes = append(codes, code)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating snapshotted services: %w", err)
	}

	for _, code := range codes {
		baseline, err := loadBaseline(ctx, tx, code)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // snapshot of a since-removed code; nothing to reprice
			}
			return err
		}
		override, err := loadOverride(ctx, tx, companyID, code)
		if err != nil {
			return err
		}
		oldTriple, err := ResolveTriple(*baseline, override, oldBook)
		if err != nil {
			return err
		}
		newTriple, err := ResolveTriple(*baseline, override, newBook)
		if err != nil {
			return err
		}
		if oldTriple == newTriple {
			continue
		}
		entry := HistoryEntry{
			CompanyID:   companyID,
			ServiceCode: code,
			ChangedAt:   time.Now().UTC(),
			Actor:       actor,
			Cause:       CauseTierChange,
			Old:         &oldTriple,
			New:         newTriple,
			LaborRate:   book.LaborPrice,
		}
		if err := s.history.AppendTx(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tier multipliers: %w", err)
	}
	return nil
}

func (s *rateBookService) GetTierProfile(ctx context.Context, companyCode string) (*TierProfile, error) {
	companyID, err := resolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}
	book, err := loadRateBook(ctx, s.pool, companyID)
	if err != nil {
		return nil, err
	}
	profile := book.Tiers
	return &profile, nil
}

func (s *rateBookService) SetDiscountRule(ctx context.Context, companyCode string, rule DiscountRule) (*DiscountRule, error) {
	switch rule.Kind {
	case DiscountSenior, DiscountMilitary, DiscountFirstTime, DiscountCustom:
	default:
		return nil, fmt.Errorf("unknown discount kind %q: %w", rule.Kind, ErrValidation)
	}
	if rule.Percent.IsNegative() || rule.Percent.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("discount percent must be a fraction in [0, 1]: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := lockCompany(ctx, tx, companyCode)
	if err != nil {
		return nil, err
	}
	rule.CompanyID = companyID

	err = tx.QueryRow(ctx, `
		INSERT INTO tenant_discount_rules (company_id, kind, percent, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (company_id, kind) DO UPDATE SET
			percent = EXCLUDED.percent,
			is_active = EXCLUDED.is_active
		RETURNING id
	`, companyID, rule.Kind, rule.Percent, rule.IsActive).Scan(&rule.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert discount rule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit discount rule: %w", err)
	}
	return &rule, nil
}

func (s *rateBookService) ListDiscountRules(ctx context.Context, companyCode string) ([]DiscountRule, error) {
	companyID, err := resolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, kind, percent, is_active
		FROM tenant_discount_rules
		WHERE company_id = $1
		ORDER BY kind
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query discount rules: %w", err)
	}
	defer rows.Close()

	var rules []DiscountRule
	for rows.Next() {
		var r DiscountRule
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.Kind, &r.Percent, &r.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan discount rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}
