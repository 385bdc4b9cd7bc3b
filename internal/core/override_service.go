package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// OverrideService is the tenant pricing store: one row per (company, service)
// pair, present only while the company actually deviates from the baseline.
type OverrideService interface {
	GetOverride(ctx context.Context, companyCode, serviceCode string) (*ServiceOverride, error)
	// SetOverride upserts the override. Fields equal to the baseline are
	// normalized away; a row that ends up baseline-equal is deleted. Every
	// successful call appends a tenant_edit history entry.
	SetOverride(ctx context.Context, companyCode, serviceCode string, in OverrideInput, actor string) (*ServiceOverride, error)
	// Revert deletes the override and appends a revert history entry.
	Revert(ctx context.Context, companyCode, serviceCode string, actor string) error
	ListForTenant(ctx context.Context, companyCode string) ([]OverrideView, error)
}

type OverrideInput struct {
	CustomPrice        *Cents           `json:"custom_price,omitempty"`
	CustomLaborHours   *decimal.Decimal `json:"custom_labor_hours,omitempty"`
	CustomMaterialCost *Cents           `json:"custom_material_cost,omitempty"`
	PercentAdjustment  decimal.Decimal  `json:"percent_adjustment"`
	FlatAdjustment     Cents            `json:"flat_adjustment"`
	CustomName         *string          `json:"custom_name,omitempty"`
	CustomDescription  *string          `json:"custom_description,omitempty"`
	IsActive           bool             `json:"is_active"`
	IsHidden           bool             `json:"is_hidden"`
}

// OverrideView is an override joined with its master row and the company's
// current resolved prices.
type OverrideView struct {
	Override ServiceOverride `json:"override"`
	Master   MasterService   `json:"master"`
	Resolved PriceTriple     `json:"resolved"`
}

type overrideService struct {
	pool    *pgxpool.Pool
	history HistoryService
}

func NewOverrideService(pool *pgxpool.Pool, history HistoryService) OverrideService {
	return &overrideService{pool: pool, history: history}
}

func (s *overrideService) GetOverride(ctx context.Context, companyCode, serviceCode string) (*ServiceOverride, error) {
	companyID, err := resolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}
	return loadOverride(ctx, s.pool, companyID, serviceCode)
}

func (s *overrideService) SetOverride(ctx context.Context, companyCode, serviceCode string, in OverrideInput, actor string) (*ServiceOverride, error) {
	if err := validateOverrideInput(in); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := resolveCompany(ctx, tx, companyCode)
	if err != nil {
		return nil, err
	}
	baseline, err := loadBaseline(ctx, tx, serviceCode)
	if err != nil {
		return nil, err
	}
	book, err := loadRateBook(ctx, tx, companyID)
	if err != nil {
		return nil, err
	}
	before, err := loadOverride(ctx, tx, companyID, serviceCode)
	if err != nil {
		return nil, err
	}
	oldTriple, err := ResolveTriple(*baseline, before, *book)
	if err != nil {
		return nil, err
	}

	after := normalizeOverride(in, *baseline)
	var stored *ServiceOverride
	if after == nil {
		// Baseline-equal rows are deleted, not stored.
		if _, err := tx.Exec(ctx,
			"DELETE FROM tenant_service_overrides WHERE company_id = $1 AND service_code = $2",
			companyID, serviceCode,
		); err != nil {
			return nil, fmt.Errorf("failed to delete baseline-equal override: %w", err)
		}
	} else {
		after.CompanyID = companyID
		after.ServiceCode = serviceCode
		if err := upsertOverride(ctx, tx, after); err != nil {
			return nil, err
		}
		stored = after
	}

	newTriple, err := ResolveTriple(*baseline, after, *book)
	if err != nil {
		return nil, err
	}

	entry := HistoryEntry{
		CompanyID:   companyID,
		ServiceCode: serviceCode,
		ChangedAt:   time.Now().UTC(),
		Actor:       actor,
		Cause:       CauseTenantEdit,
		Old:         &oldTriple,
		New:         newTriple,
		LaborRate:   book.LaborPrice,
	}
	if err := s.history.AppendTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit override: %w", err)
	}
	return stored, nil
}

func (s *overrideService) Revert(ctx context.Context, companyCode, serviceCode string, actor string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := resolveCompany(ctx, tx, companyCode)
	if err != nil {
		return err
	}
	baseline, err := loadBaseline(ctx, tx, serviceCode)
	if err != nil {
		return err
	}
	before, err := loadOverride(ctx, tx, companyID, serviceCode)
	if err != nil {
		return err
	}
	if before == nil {
		return fmt.Errorf("override for %s: %w", serviceCode, ErrNotFound)
	}
	book, err := loadRateBook(ctx, tx, companyID)
	if err != nil {
		return err
	}
	oldTriple, err := ResolveTriple(*baseline, before, *book)
	if err != nil {
		return err
	}
	newTriple, err := ResolveTriple(*baseline, nil, *book)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		"DELETE FROM tenant_service_overrides WHERE company_id = $1 AND service_code = $2",
		companyID, serviceCode,
	); err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}

	entry := HistoryEntry{
		CompanyID:   companyID,
		ServiceCode: serviceCode,
		ChangedAt:   time.Now().UTC(),
		Actor:       actor,
		Cause:       CauseRevert,
		Old:         &oldTriple,
		New:         newTriple,
		LaborRate:   book.LaborPrice,
	}
	if err := s.history.AppendTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit revert: %w", err)
	}
	return nil
}

func (s *overrideService) ListForTenant(ctx context.Context, companyCode string) ([]OverrideView, error) {
	companyID, err := resolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}
	book, err := loadRateBook(ctx, s.pool, companyID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT service_code FROM tenant_service_overrides
		WHERE company_id = $1
		ORDER BY service_code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan override code: %w", err)
		}
		codes = append(codes, code)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating overrides: %w", err)
	}

	var views []OverrideView
	for _, code := range codes {
		override, err := loadOverride(ctx, s.pool, companyID, code)
		if err != nil {
			return nil, err
		}
		if override == nil {
			continue
		}
		baseline, err := loadBaseline(ctx, s.pool, code)
		if err != nil {
			return nil, err
		}
		triple, err := ResolveTriple(*baseline, override, *book)
		if err != nil {
			return nil, err
		}
		views = append(views, OverrideView{Override: *override, Master: *baseline, Resolved: triple})
	}
	return views, nil
}

func validateOverrideInput(in OverrideInput) error {
	if in.CustomPrice != nil && *in.CustomPrice < 0 {
		return fmt.Errorf("custom price must be non-negative: %w", ErrValidation)
	}
	if in.CustomLaborHours != nil && in.CustomLaborHours.IsNegative() {
		return fmt.Errorf("custom labor hours must be non-negative: %w", ErrValidation)
	}
	if in.CustomMaterialCost != nil && *in.CustomMaterialCost < 0 {
		return fmt.Errorf("custom material cost must be non-negative: %w", ErrValidation)
	}
	if in.PercentAdjustment.LessThanOrEqual(decimal.NewFromInt(-100)) {
		return fmt.Errorf("percent adjustment must be greater than -100: %w", ErrValidation)
	}
	return nil
}

// normalizeOverride drops fields equal to the baseline and returns nil when
// the whole row would be baseline-equal with default flags.
func normalizeOverride(in OverrideInput, baseline MasterService) *ServiceOverride {
	o := &ServiceOverride{
		CustomPrice:        in.CustomPrice,
		CustomLaborHours:   in.CustomLaborHours,
		CustomMaterialCost: in.CustomMaterialCost,
		PercentAdjustment:  in.PercentAdjustment,
		FlatAdjustment:     in.FlatAdjustment,
		CustomName:         in.CustomName,
		CustomDescription:  in.CustomDescription,
		IsActive:           in.IsActive,
		IsHidden:           in.IsHidden,
	}
	if o.CustomLaborHours != nil && o.CustomLaborHours.Equal(baseline.BaseLaborHours) {
		o.CustomLaborHours = nil
	}
	if o.CustomMaterialCost != nil && *o.CustomMaterialCost == baseline.BaseMaterialCost {
		o.CustomMaterialCost = nil
	}
	if o.CustomName != nil && *o.CustomName == baseline.Name {
		o.CustomName = nil
	}
	if o.CustomDescription != nil && *o.CustomDescription == baseline.Description {
		o.CustomDescription = nil
	}

	if o.CustomPrice == nil && o.CustomLaborHours == nil && o.CustomMaterialCost == nil &&
		o.PercentAdjustment.IsZero() && o.FlatAdjustment == 0 &&
		o.CustomName == nil && o.CustomDescription == nil &&
		o.IsActive && !o.IsHidden {
		return nil
	}
	return o
}

func upsertOverride(ctx context.Context, tx pgx.Tx, o *ServiceOverride) error {
	var customPrice, customMat *int64
	if o.CustomPrice != nil {
		v := int64(*o.CustomPrice)
		customPrice = &v
	}
	if o.CustomMaterialCost != nil {
		v := int64(*o.CustomMaterialCost)
		customMat = &v
	}
	var customHours decimal.NullDecimal
	if o.CustomLaborHours != nil {
		customHours = decimal.NullDecimal{Decimal: *o.CustomLaborHours, Valid: true}
	}

	err := tx.QueryRow(ctx, `
		INSERT INTO tenant_service_overrides (company_id, service_code, custom_price_cents,
			custom_labor_hours, custom_material_cost_cents, percent_adjustment,
			flat_adjustment_cents, custom_name, custom_description, is_active, is_hidden, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (company_id, service_code) DO UPDATE SET
			custom_price_cents = EXCLUDED.custom_price_cents,
			custom_labor_hours = EXCLUDED.custom_labor_hours,
			custom_material_cost_cents = EXCLUDED.custom_material_cost_cents,
			percent_adjustment = EXCLUDED.percent_adjustment,
			flat_adjustment_cents = EXCLUDED.flat_adjustment_cents,
			custom_name = EXCLUDED.custom_name,
			custom_description = EXCLUDED.custom_description,
			is_active = EXCLUDED.is_active,
			is_hidden = EXCLUDED.is_hidden,
			updated_at = NOW()
		RETURNING updated_at
	`, o.CompanyID, o.ServiceCode, customPrice, customHours, customMat,
		o.PercentAdjustment, int64(o.FlatAdjustment), o.CustomName, o.CustomDescription,
		o.IsActive, o.IsHidden,
	).Scan(&o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert override: %w", err)
	}
	return nil
}
