package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EstimateService persists estimates and invoices built from priced
// documents. Line items are frozen at creation; this service copies and
// transitions them but never reprices them.
type EstimateService interface {
	CreateEstimate(ctx context.Context, companyCode string, customerID *int, req PriceDocumentRequest) (*Estimate, error)
	GetEstimate(ctx context.Context, companyCode string, id int) (*Estimate, error)
	ListEstimates(ctx context.Context, companyCode string, status *EstimateStatus) ([]Estimate, error)
	// TransitionEstimate moves an estimate along its state machine. Invalid
	// moves fail with ErrInvalidTransition.
	TransitionEstimate(ctx context.Context, companyCode string, id int, to EstimateStatus) (*Estimate, error)
	// ConvertToInvoice turns an approved estimate into a draft invoice,
	// copying the frozen lines verbatim, and marks the estimate converted.
	ConvertToInvoice(ctx context.Context, companyCode string, estimateID int) (*Invoice, error)

	GetInvoice(ctx context.Context, companyCode string, id int) (*Invoice, error)
	TransitionInvoice(ctx context.Context, companyCode string, id int, to InvoiceStatus) (*Invoice, error)
}

type estimateService struct {
	pool   *pgxpool.Pool
	pricer *DocumentPricer
}

func NewEstimateService(pool *pgxpool.Pool, pricer *DocumentPricer) EstimateService {
	return &estimateService{pool: pool, pricer: pricer}
}

func (s *estimateService) CreateEstimate(ctx context.Context, companyCode string, customerID *int, req PriceDocumentRequest) (*Estimate, error) {
	priced, err := s.pricer.PriceDocument(ctx, companyCode, req)
	if err != nil {
		return nil, err
	}
	if len(priced.Lines) == 0 {
		return nil, fmt.Errorf("estimate has no priceable lines: %w", ErrValidation)
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
	if customerID != nil {
		var exists int
		err := tx.QueryRow(ctx, "SELECT id FROM customers WHERE id = $1 AND company_id = $2",
			*customerID, companyID).Scan(&exists)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("customer %d: %w", *customerID, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to fetch customer: %w", err)
		}
	}

	tier := req.Tier
	if tier == "" {
		tier = TierGood
	}
	est := &Estimate{
		CompanyID:  companyID,
		CustomerID: customerID,
		Status:     EstimateDraft,
		Tier:       tier,
		Subtotal:   priced.Subtotal,
		Tax:        priced.Tax,
		Total:      priced.Total,
		TaxRate:    priced.TaxRate,
		Lines:      priced.Lines,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO estimates (company_id, customer_id, status, tier, subtotal_cents, tax_cents, total_cents, tax_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, companyID, customerID, est.Status, est.Tier,
		int64(est.Subtotal), int64(est.Tax), int64(est.Total), est.TaxRate,
	).Scan(&est.ID, &est.CreatedAt, &est.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert estimate: %w", err)
	}

	for _, line := range est.Lines {
		if err := insertLine(ctx, tx, "estimate_lines", "estimate_id", est.ID, line); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit estimate: %w", err)
	}
	return est, nil
}

func (s *estimateService) GetEstimate(ctx context.Context, companyCode string, id int) (*Estimate, error) {
	companyID, err := resolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}
	return fetchEstimate(ctx, s.pool, companyID, id)
}

func (s *estimateService) ListEstimates(ctx context.Context, companyCode string, status *EstimateStatus) ([]Estimate, error) {
	companyID, err := resolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, company_id, customer_id, status, tier,
		       subtotal_cents, tax_cents, total_cents, tax_rate, created_at, updated_at
		FROM estimates WHERE company_id = $1`
	args := []any{companyID}
	if status != nil {
		args = append(args, *status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query estimates: %w", err)
	}
	defer rows.Close()

	var estimates []Estimate
	for rows.Next() {
		var (
			e                    Estimate
			subtotal, tax, total int64
		)
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.CustomerID, &e.Status, &e.Tier,
			&subtotal, &tax, &total, &e.TaxRate, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan estimate: %w", err)
		}
		e.Subtotal, e.Tax, e.Total = Cents(subtotal), Cents(tax), Cents(total)
		estimates = append(estimates, e)
	}
	return estimates, rows.Err()
}

func (s *estimateService) TransitionEstimate(ctx context.Context, companyCode string, id int, to EstimateStatus) (*Estimate, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := resolveCompany(ctx, tx, companyCode)
	if err != nil {
		return nil, err
	}

	var from EstimateStatus
	err = tx.QueryRow(ctx,
		"SELECT status FROM estimates WHERE id = $1 AND company_id = $2 FOR UPDATE",
		id, companyID).Scan(&from)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("estimate %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch estimate: %w", err)
	}
	if !CanTransitionEstimate(from, to) {
		return nil, fmt.Errorf("estimate %d: %s -> %s: %w", id, from, to, ErrInvalidTransition)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE estimates SET status = $1, updated_at = NOW() WHERE id = $2",
		to, id); err != nil {
		return nil, fmt.Errorf("failed to update estimate status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit estimate transition: %w", err)
	}
	return fetchEstimate(ctx, s.pool, companyID, id)
}

func (s *estimateService) ConvertToInvoice(ctx context.Context, companyCode string, estimateID int) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := resolveCompany(ctx, tx, companyCode)
	if err != nil {
		return nil, err
	}
	est, err := fetchEstimate(ctx, tx, companyID, estimateID)
	if err != nil {
		return nil, err
	}
	if !CanTransitionEstimate(est.Status, EstimateConverted) {
		return nil, fmt.Errorf("estimate %d: %s -> %s: %w", estimateID, est.Status, EstimateConverted, ErrInvalidTransition)
	}

	inv := &Invoice{
		CompanyID:  companyID,
		CustomerID: est.CustomerID,
		EstimateID: &estimateID,
		Status:     InvoiceDraft,
		Subtotal:   est.Subtotal,
		Tax:        est.Tax,
		Total:      est.Total,
		TaxRate:    est.TaxRate,
		Lines:      est.Lines,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (company_id, customer_id, estimate_id, status, subtotal_cents, tax_cents, total_cents, tax_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, companyID, inv.CustomerID, estimateID, inv.Status,
		int64(inv.Subtotal), int64(inv.Tax), int64(inv.Total), inv.TaxRate,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert invoice: %w", err)
	}

	// Frozen lines copy verbatim; conversion never reprices.
	for _, line := range est.Lines {
		if err := insertLine(ctx, tx, "invoice_lines", "invoice_id", inv.ID, line); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE estimates SET status = $1, updated_at = NOW() WHERE id = $2",
		EstimateConverted, estimateID); err != nil {
		return nil, fmt.Errorf("failed to mark estimate converted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit conversion: %w", err)
	}
	return inv, nil
}

func (s *estimateService) GetInvoice(ctx context.Context, companyCode string, id int) (*Invoice, error) {
	companyID, err := resolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}
	return fetchInvoice(ctx, s.pool, companyID, id)
}

func (s *estimateService) TransitionInvoice(ctx context.Context, companyCode string, id int, to InvoiceStatus) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := resolveCompany(ctx, tx, companyCode)
	if err != nil {
		return nil, err
	}

	var from InvoiceStatus
	err = tx.QueryRow(ctx,
		"SELECT status FROM invoices WHERE id = $1 AND company_id = $2 FOR UPDATE",
		id, companyID).Scan(&from)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch invoice: %w", err)
	}
	if !CanTransitionInvoice(from, to) {
		return nil, fmt.Errorf("invoice %d: %s -> %s: %w", id, from, to, ErrInvalidTransition)
	}

	query := "UPDATE invoices SET status = $1 WHERE id = $2"
	if to == InvoicePaid {
		query = "UPDATE invoices SET status = $1, paid_at = NOW() WHERE id = $2"
	}
	if _, err := tx.Exec(ctx, query, to, id); err != nil {
		return nil, fmt.Errorf("failed to update invoice status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice transition: %w", err)
	}
	return fetchInvoice(ctx, s.pool, companyID, id)
}

func insertLine(ctx context.Context, tx pgx.Tx, table, fk string, docID int, line PricedLine) error {
	breakdown, err := json.Marshal(line.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown snapshot: %w", err)
	}
	_, err = tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s, service_code, name, quantity, unit_price_cents, line_total_cents,
			tier, discount_rate, breakdown, is_adjustment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, table, fk), docID, line.ServiceCode, line.Name, line.Quantity,
		int64(line.UnitPrice), int64(line.LineTotal), line.Tier, line.DiscountRate,
		breakdown, line.IsAdjustment)
	if err != nil {
		return fmt.Errorf("failed to insert %s row: %w", table, err)
	}
	return nil
}

func fetchEstimate(ctx context.Context, q querier, companyID, id int) (*Estimate, error) {
	var (
		e                    Estimate
		subtotal, tax, total int64
	)
	err := q.QueryRow(ctx, `
		SELECT id, company_id, customer_id, status, tier,
		       subtotal_cents, tax_cents, total_cents, tax_rate, created_at, updated_at
		FROM estimates WHERE id = $1 AND company_id = $2
	`, id, companyID).Scan(&e.ID, &e.CompanyID, &e.CustomerID, &e.Status, &e.Tier,
		&subtotal, &tax, &total, &e.TaxRate, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("estimate %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch estimate: %w", err)
	}
	e.Subtotal, e.Tax, e.Total = Cents(subtotal), Cents(tax), Cents(total)

	lines, err := fetchLines(ctx, q, "estimate_lines", "estimate_id", id)
	if err != nil {
		return nil, err
	}
	e.Lines = lines
	return &e, nil
}

func fetchInvoice(ctx context.Context, q querier, companyID, id int) (*Invoice, error) {
	var (
		inv                  Invoice
		subtotal, tax, total int64
	)
	err := q.QueryRow(ctx, `
		SELECT id, company_id, customer_id, estimate_id, status,
		       subtotal_cents, tax_cents, total_cents, tax_rate, created_at, paid_at
		FROM invoices WHERE id = $1 AND company_id = $2
	`, id, companyID).Scan(&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.EstimateID, &inv.Status,
		&subtotal, &tax, &total, &inv.TaxRate, &inv.CreatedAt, &inv.PaidAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch invoice: %w", err)
	}
	inv.Subtotal, inv.Tax, inv.Total = Cents(subtotal), Cents(tax), Cents(total)

	lines, err := fetchLines(ctx, q, "invoice_lines", "invoice_id", id)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return &inv, nil
}

func fetchLines(ctx context.Context, q querier, table, fk string, docID int) ([]PricedLine, error) {
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT service_code, name, quantity, unit_price_cents, line_total_cents,
		       tier, discount_rate, breakdown, is_adjustment
		FROM %s WHERE %s = $1 ORDER BY id
	`, table, fk), docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var lines []PricedLine
	for rows.Next() {
		var (
			line             PricedLine
			unitPrice, total int64
			breakdown        []byte
		)
		if err := rows.Scan(&line.ServiceCode, &line.Name, &line.Quantity, &unitPrice, &total,
			&line.Tier, &line.DiscountRate, &breakdown, &line.IsAdjustment); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		line.UnitPrice, line.LineTotal = Cents(unitPrice), Cents(total)
		if err := json.Unmarshal(breakdown, &line.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal breakdown snapshot: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
