package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogService manages the shared master catalog of flat-rate services.
// Master rows are the baseline every company prices from; edits are rare,
// administrator-only, and broadcast to the history of every affected company.
type CatalogService interface {
	UpsertMasterService(ctx context.Context, svc MasterService, actor string) (*MasterService, error)
	GetByCode(ctx context.Context, code string) (*MasterService, error)
	ListByCategory(ctx context.Context, categoryCode string) ([]MasterService, error)
	Search(ctx context.Context, q SearchQuery) ([]MasterService, error)
}

type SearchQuery struct {
	Text         string
	CategoryCode string
	ActiveOnly   bool
	Page         int
	PerPage      int
}

type catalogService struct {
	pool    *pgxpool.Pool
	history HistoryService
}

func NewCatalogService(pool *pgxpool.Pool, history HistoryService) CatalogService {
	return &catalogService{pool: pool, history: history}
}

func (s *catalogService) UpsertMasterService(ctx context.Context, svc MasterService, actor string) (*MasterService, error) {
	if err := validateCode(svc.Code, KindService); err != nil {
		return nil, err
	}
	if svc.Name == "" {
		return nil, fmt.Errorf("service name is required: %w", ErrValidation)
	}
	if svc.BaseLaborHours.IsNegative() || svc.BaseMaterialCost < 0 || svc.BasePrice < 0 {
		return nil, fmt.Errorf("labor hours, material cost and price must be non-negative: %w", ErrValidation)
	}
	if err := validateChildCode(svc.Code, svc.CategoryCode); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var catCode string
	if err := tx.QueryRow(ctx, "SELECT code FROM categories WHERE code = $1", svc.CategoryCode).Scan(&catCode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("category %s: %w", svc.CategoryCode, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch category: %w", err)
	}
	if svc.SubcategoryCode != nil {
		var parent string
		err := tx.QueryRow(ctx, "SELECT category_code FROM subcategories WHERE code = $1", *svc.SubcategoryCode).Scan(&parent)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("subcategory %s: %w", *svc.SubcategoryCode, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to fetch subcategory: %w", err)
		}
		if parent != svc.CategoryCode {
			return nil, fmt.Errorf("subcategory %s belongs to %s, not %s: %w",
				*svc.SubcategoryCode, parent, svc.CategoryCode, ErrValidation)
		}
	}

	old, err := loadBaseline(ctx, tx, svc.Code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if old != nil && old.CategoryCode != svc.CategoryCode {
		// Taxonomy reorganization is deactivate-and-recreate, never reassign,
		// so historical references stay unambiguous.
		return nil, fmt.Errorf("category of service %s: %w", svc.Code, ErrImmutableFieldChange)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO master_services (code, category_code, subcategory_code, name, description,
			base_labor_hours, base_material_cost_cents, base_price_cents, original_source_code, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (code) DO UPDATE SET
			subcategory_code = EXCLUDED.subcategory_code,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			base_labor_hours = EXCLUDED.base_labor_hours,
			base_material_cost_cents = EXCLUDED.base_material_cost_cents,
			base_price_cents = EXCLUDED.base_price_cents,
			original_source_code = EXCLUDED.original_source_code,
			is_active = EXCLUDED.is_active
		RETURNING is_active, created_at
	`, svc.Code, svc.CategoryCode, svc.SubcategoryCode, svc.Name, svc.Description,
		svc.BaseLaborHours, int64(svc.BaseMaterialCost), int64(svc.BasePrice), svc.OriginalSourceCode,
		svc.IsActive,
	).Scan(&svc.IsActive, &svc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert master service: %w", err)
	}

	// Edits to an existing row broadcast a master_edit entry to every company
	// that references this code, so tenant-level audits see catalog drift.
	if old != nil {
		if err := s.broadcastMasterEdit(ctx, tx, *old, svc, actor); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit master service upsert: %w", err)
	}
	return &svc, nil
}

func (s *catalogService) broadcastMasterEdit(ctx context.Context, tx pgx.Tx, old, updated MasterService, actor string) error {
	rows, err := tx.Query(ctx, `
		SELECT company_id FROM tenant_service_overrides WHERE service_code = $1
		UNION
		SELECT e.company_id FROM estimate_lines el JOIN estimates e ON e.id = el.estimate_id WHERE el.service_code = $1
		UNION
		SELECT i.company_id FROM invoice_lines il JOIN invoices i ON i.id = il.invoice_id WHERE il.service_code = $1
		ORDER BY company_id
	`, old.Code)
	if err != nil {
		return fmt.Errorf("failed to enumerate affected companies: %w", err)
	}
	var companyIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan company id: %w", err)
		}
		companyIDs = append(companyIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating affected companies: %w", err)
	}

	for _, companyID := range companyIDs {
		book, err := loadRateBook(ctx, tx, companyID)
		if err != nil {
			return err
		}
		override, err := loadOverride(ctx, tx, companyID, old.Code)
		if err != nil {
			return err
		}
		oldTriple, err := ResolveTriple(old, override, *book)
		if err != nil {
			return err
		}
		newTriple, err := ResolveTriple(updated, override, *book)
		if err != nil {
			return err
		}
		entry := HistoryEntry{
			CompanyID:   companyID,
			ServiceCode: old.Code,
			ChangedAt:   time.Now().UTC(),
			Actor:       actor,
			Cause:       CauseMasterEdit,
			Old:         &oldTriple,
			New:         newTriple,
			LaborRate:   book.LaborPrice,
		}
		if err := s.history.AppendTx(ctx, tx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (s *catalogService) GetByCode(ctx context.Context, code string) (*MasterService, error) {
	return loadBaseline(ctx, s.pool, code)
}

func (s *catalogService) ListByCategory(ctx context.Context, categoryCode string) ([]MasterService, error) {
	return s.Search(ctx, SearchQuery{CategoryCode: categoryCode, ActiveOnly: true})
}

func (s *catalogService) Search(ctx context.Context, q SearchQuery) ([]MasterService, error) {
	query := `
		SELECT m.code, m.category_code, m.subcategory_code, m.name, m.description,
		       m.base_labor_hours, m.base_material_cost_cents, m.base_price_cents,
		       m.original_source_code, m.is_active, m.created_at
		FROM master_services m
		JOIN categories c ON c.code = m.category_code
		WHERE 1=1`
	var args []any
	if q.CategoryCode != "" {
		args = append(args, q.CategoryCode)
		query += fmt.Sprintf(" AND m.category_code = $%d", len(args))
	}
	if q.Text != "" {
		args = append(args, "%"+q.Text+"%")
		query += fmt.Sprintf(" AND (m.name ILIKE $%d OR m.description ILIKE $%d OR m.code ILIKE $%d)",
			len(args), len(args), len(args))
	}
	if q.ActiveOnly {
		query += " AND m.is_active AND c.is_active"
	}
	query += " ORDER BY m.code"
	if q.PerPage > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		args = append(args, q.PerPage)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, (page-1)*q.PerPage)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search master services: %w", err)
	}
	defer rows.Close()

	var services []MasterService
	for rows.Next() {
		var (
			m             MasterService
			materialCents int64
			priceCents    int64
		)
		if err := rows.Scan(&m.Code, &m.CategoryCode, &m.SubcategoryCode, &m.Name, &m.Description,
			&m.BaseLaborHours, &materialCents, &priceCents,
			&m.OriginalSourceCode, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan master service: %w", err)
		}
		m.BaseMaterialCost = Cents(materialCents)
		m.BasePrice = Cents(priceCents)
		services = append(services, m)
	}
	return services, rows.Err()
}
