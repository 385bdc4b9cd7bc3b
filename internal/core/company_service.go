package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CompanyInput carries the fields needed to provision a tenant. The labor
// price seeds the company's default "Standard" rate; everything else in the
// rate book starts from sensible defaults and is edited afterwards.
type CompanyInput struct {
	Code                 string
	Name                 string
	Email                string
	Phone                string
	MinimumServiceCharge Cents
	DefaultLaborPrice    Cents
	DefaultLaborCost     Cents
	DefaultTaxRate       decimal.Decimal
}

type CustomerInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

type CompanyService interface {
	// CreateCompany provisions a tenant with a complete starter rate book:
	// a default labor rate, a default tax rate, and tier multipliers.
	CreateCompany(ctx context.Context, input CompanyInput, actor string) (*Company, error)
	GetCompany(ctx context.Context, code string) (*Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)

	CreateCustomer(ctx context.Context, companyCode string, input CustomerInput) (*Customer, error)
	ListCustomers(ctx context.Context, companyCode string) ([]Customer, error)
}

type companyService struct {
	pool *pgxpool.Pool
}

func NewCompanyService(pool *pgxpool.Pool) CompanyService {
	return &companyService{pool: pool}
}

// Starter tier multipliers for a new tenant. Good is the base price; better
// and best are conventional trade markups the tenant can change later.
var defaultTierProfile = TierProfile{
	Good:   decimal.NewFromInt(1),
	Better: decimal.RequireFromString("1.3"),
	Best:   decimal.RequireFromString("1.6"),
}

func (s *companyService) CreateCompany(ctx context.Context, input CompanyInput, actor string) (*Company, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" || strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("company code and name are required: %w", ErrValidation)
	}
	if input.DefaultLaborPrice <= 0 {
		return nil, fmt.Errorf("default labor price must be positive: %w", ErrValidation)
	}
	if input.MinimumServiceCharge < 0 || input.DefaultLaborCost < 0 {
		return nil, fmt.Errorf("monetary fields must not be negative: %w", ErrValidation)
	}
	if input.DefaultTaxRate.IsNegative() || input.DefaultTaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("default tax rate must be in [0, 1): %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	company := &Company{
		Code:                 input.Code,
		Name:                 input.Name,
		Email:                input.Email,
		Phone:                input.Phone,
		MinimumServiceCharge: input.MinimumServiceCharge,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO companies (code, name, email, phone, minimum_service_charge_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, company.Code, company.Name, company.Email, company.Phone,
		int64(company.MinimumServiceCharge)).Scan(&company.ID, &company.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("company code %s: %w", input.Code, ErrCodeConflict)
		}
		return nil, fmt.Errorf("failed to insert company: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tenant_labor_rates (company_id, name, hourly_cost_cents, hourly_price_cents, is_default)
		VALUES ($1, 'Standard', $2, $3, TRUE)
	`, company.ID, int64(input.DefaultLaborCost), int64(input.DefaultLaborPrice))
	if err != nil {
		return nil, fmt.Errorf("failed to seed default labor rate: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO labor_rate_history (company_id, old_price_cents, new_price_cents, actor)
		VALUES ($1, NULL, $2, $3)
	`, company.ID, int64(input.DefaultLaborPrice), actor)
	if err != nil {
		return nil, fmt.Errorf("failed to record initial labor rate: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tenant_tax_rates (company_id, name, rate, is_default)
		VALUES ($1, 'Sales Tax', $2, TRUE)
	`, company.ID, input.DefaultTaxRate)
	if err != nil {
		return nil, fmt.Errorf("failed to seed default tax rate: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tenant_tier_profiles (company_id, good_multiplier, better_multiplier, best_multiplier)
		VALUES ($1, $2, $3, $4)
	`, company.ID, defaultTierProfile.Good, defaultTierProfile.Better, defaultTierProfile.Best)
	if err != nil {
		return nil, fmt.Errorf("failed to seed tier profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit company: %w", err)
	}
	return company, nil
}

func (s *companyService) GetCompany(ctx context.Context, code string) (*Company, error) {
	var (
		c         Company
		minCharge int64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, code, name, email, phone, minimum_service_charge_cents, created_at
		FROM companies WHERE code = $1
	`, code).Scan(&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &minCharge, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("company %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch company: %w", err)
	}
	c.MinimumServiceCharge = Cents(minCharge)
	return &c, nil
}

func (s *companyService) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name, email, phone, minimum_service_charge_cents, created_at
		FROM companies ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var (
			c         Company
			minCharge int64
		)
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &minCharge, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		c.MinimumServiceCharge = Cents(minCharge)
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *companyService) CreateCustomer(ctx context.Context, companyCode string, input CustomerInput) (*Customer, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("customer name is required: %w", ErrValidation)
	}
	companyID, err := resolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	customer := &Customer{
		CompanyID: companyID,
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Address:   input.Address,
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO customers (company_id, name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, companyID, customer.Name, customer.Email, customer.Phone, customer.Address,
	).Scan(&customer.ID, &customer.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert customer: %w", err)
	}
	return customer, nil
}

func (s *companyService) ListCustomers(ctx context.Context, companyCode string) ([]Customer, error) {
	companyID, err := resolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, name, email, phone, address, created_at
		FROM customers WHERE company_id = $1 ORDER BY name
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}
