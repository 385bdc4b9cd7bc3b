package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryService is the append-only pricing history log. Entries are never
// updated or deleted; compaction, if any, happens outside this service.
type HistoryService interface {
	// Append inserts one entry in its own transaction.
	Append(ctx context.Context, companyCode string, entry HistoryEntry) error
	// AppendTx inserts one entry within the caller's transaction, allocating
	// the company's next sequence number. Duplicate
	// (company, service, changed_at, cause) entries are rejected.
	AppendTx(ctx context.Context, tx pgx.Tx, entry HistoryEntry) error
	// Query returns entries in chronological order (changed_at, then seq).
	Query(ctx context.Context, companyCode string, filter HistoryFilter) ([]HistoryEntry, error)
	// ReplayAt reconstructs the resolved triple for a pair as of a past
	// instant: the latest entry at-or-before at, or a synthesized baseline
	// when the log has never recorded a change for the pair.
	ReplayAt(ctx context.Context, companyCode, serviceCode string, at time.Time) (*PriceTriple, error)
}

type HistoryFilter struct {
	ServiceCode string
	Since       *time.Time
	Until       *time.Time
	Cause       *ChangeCause
}

type historyService struct {
	pool *pgxpool.Pool
}

func NewHistoryService(pool *pgxpool.Pool) HistoryService {
	return &historyService{pool: pool}
}

func (s *historyService) Append(ctx context.Context, companyCode string, entry HistoryEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := resolveCompany(ctx, tx, companyCode)
	if err != nil {
		return err
	}
	entry.CompanyID = companyID
	if err := s.AppendTx(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *historyService) AppendTx(ctx context.Context, tx pgx.Tx, entry HistoryEntry) error {
	// Allocate the next per-company sequence number under the row lock the
	// upsert takes, so concurrent appends for one company serialize here.
	var seq int64
	err := tx.QueryRow(ctx, `
		INSERT INTO history_sequences (company_id, last_seq)
		VALUES ($1, 1)
		ON CONFLICT (company_id) DO UPDATE SET last_seq = history_sequences.last_seq + 1
		RETURNING last_seq
	`, entry.CompanyID).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to allocate history sequence: %w", err)
	}

	var oldGood, oldBetter, oldBest *int64
	if entry.Old != nil {
		g, b, e := int64(entry.Old.Good), int64(entry.Old.Better), int64(entry.Old.Best)
		oldGood, oldBetter, oldBest = &g, &b, &e
	}
	var delta *int64
	if entry.LaborRateDelta != nil {
		d := int64(*entry.LaborRateDelta)
		delta = &d
	}

	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO pricing_history (company_id, service_code, seq, changed_at, actor, cause,
			old_good_cents, old_better_cents, old_best_cents,
			new_good_cents, new_better_cents, new_best_cents,
			labor_rate_cents, labor_rate_delta_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (company_id, service_code, changed_at, cause) DO NOTHING
		RETURNING id
	`, entry.CompanyID, entry.ServiceCode, seq, entry.ChangedAt, entry.Actor, entry.Cause,
		oldGood, oldBetter, oldBest,
		int64(entry.New.Good), int64(entry.New.Better), int64(entry.New.Best),
		int64(entry.LaborRate), delta,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("duplicate history entry for %s at %s (%s)",
				entry.ServiceCode, entry.ChangedAt.Format(time.RFC3339Nano), entry.Cause)
		}
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

func (s *historyService) Query(ctx context.Context, companyCode string, filter HistoryFilter) ([]HistoryEntry, error) {
	companyID, err := resolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, company_id, service_code, seq, changed_at, actor, cause,
		       old_good_cents, old_better_cents, old_best_cents,
		       new_good_cents, new_better_cents, new_best_cents,
		       labor_rate_cents, labor_rate_delta_cents
		FROM pricing_history
		WHERE company_id = $1`
	args := []any{companyID}
	if filter.ServiceCode != "" {
		args = append(args, filter.ServiceCode)
		query += fmt.Sprintf(" AND service_code = $%d", len(args))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		query += fmt.Sprintf(" AND changed_at >= $%d", len(args))
	}
	if filter.Until != nil {
		args = append(args, *filter.Until)
		query += fmt.Sprintf(" AND changed_at <= $%d", len(args))
	}
	if filter.Cause != nil {
		args = append(args, *filter.Cause)
		query += fmt.Sprintf(" AND cause = $%d", len(args))
	}
	query += " ORDER BY changed_at, seq"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pricing history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		e, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *historyService) ReplayAt(ctx context.Context, companyCode, serviceCode string, at time.Time) (*PriceTriple, error) {
	companyID, err := resolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		SELECT id, company_id, service_code, seq, changed_at, actor, cause,
		       old_good_cents, old_better_cents, old_best_cents,
		       new_good_cents, new_better_cents, new_best_cents,
		       labor_rate_cents, labor_rate_delta_cents
		FROM pricing_history
		WHERE company_id = $1 AND service_code = $2 AND changed_at <= $3
		ORDER BY changed_at DESC, seq DESC
		LIMIT 1
	`, companyID, serviceCode, at)
	entry, err := scanHistoryEntry(row)
	if err == nil {
		t := entry.New
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// No entry at-or-before at. A baseline may be synthesized only if the log
	// has never recorded a change for this pair at all.
	var count int
	if err := s.pool.QueryRow(ctx,
		"SELECT count(*) FROM pricing_history WHERE company_id = $1 AND service_code = $2",
		companyID, serviceCode,
	).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to check history presence: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("replay of %s at %s predates all recorded entries: %w",
			serviceCode, at.Format(time.RFC3339), ErrNoHistory)
	}

	return s.synthesizeBaseline(ctx, companyID, serviceCode, at)
}

// synthesizeBaseline resolves the master baseline against the default labor
// price in force at the requested instant, taken from the rate book's own
// history stream.
func (s *historyService) synthesizeBaseline(ctx context.Context, companyID int, serviceCode string, at time.Time) (*PriceTriple, error) {
	baseline, err := loadBaseline(ctx, s.pool, serviceCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("service %s: %w", serviceCode, ErrNoHistory)
		}
		return nil, err
	}

	var ratePrice int64
	err = s.pool.QueryRow(ctx, `
		SELECT new_price_cents FROM labor_rate_history
		WHERE company_id = $1 AND changed_at <= $2
		ORDER BY changed_at DESC, id DESC
		LIMIT 1
	`, companyID, at).Scan(&ratePrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no labor rate in force at %s: %w", at.Format(time.RFC3339), ErrNoHistory)
		}
		return nil, fmt.Errorf("failed to fetch historical labor rate: %w", err)
	}

	book, err := loadRateBook(ctx, s.pool, companyID)
	if err != nil {
		return nil, err
	}
	book.LaborPrice = Cents(ratePrice)

	triple, err := ResolveTriple(*baseline, nil, *book)
	if err != nil {
		return nil, err
	}
	return &triple, nil
}

func scanHistoryEntry(row pgx.Row) (*HistoryEntry, error) {
	var (
		e                           HistoryEntry
		oldGood, oldBetter, oldBest *int64
		newGood, newBetter, newBest int64
		rate                        int64
		delta                       *int64
	)
	err := row.Scan(&e.ID, &e.CompanyID, &e.ServiceCode, &e.Seq, &e.ChangedAt, &e.Actor, &e.Cause,
		&oldGood, &oldBetter, &oldBest, &newGood, &newBetter, &newBest, &rate, &delta)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan history entry: %w", err)
	}
	if oldGood != nil && oldBetter != nil && oldBest != nil {
		e.Old = &PriceTriple{Good: Cents(*oldGood), Better: Cents(*oldBetter), Best: Cents(*oldBest)}
	}
	e.New = PriceTriple{Good: Cents(newGood), Better: Cents(newBetter), Best: Cents(newBest)}
	e.LaborRate = Cents(rate)
	if delta != nil {
		d := Cents(*delta)
		e.LaborRateDelta = &d
	}
	return &e, nil
}
