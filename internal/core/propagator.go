package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Propagator sweeps a company's labor-dependent services after a default
// labor-rate change and appends a global_rate_change history entry for every
// pair whose resolved triple moved. Stored overrides are never rewritten:
// effective prices are recomputed from the current rate book at read time, so
// a rate change is a metadata operation, not a bulk UPDATE.
type Propagator struct {
	pool    *pgxpool.Pool
	history HistoryService
	timeout time.Duration // per-sweep deadline; zero means no limit
}

func NewPropagator(pool *pgxpool.Pool, history HistoryService, timeout time.Duration) *Propagator {
	return &Propagator{pool: pool, history: history, timeout: timeout}
}

type PropagationReport struct {
	PairsExamined  int `json:"pairs_examined"`
	EntriesWritten int `json:"entries_written"`
	PairsSkipped   int `json:"pairs_skipped"`
}

type sweepPair struct {
	baseline MasterService
	override *ServiceOverride
}

// Propagate walks every labor-dependent (company, service) pair and records
// the old-rate vs new-rate triples. Idempotent: pairs whose latest entry
// already records the new-rate triple are skipped, so a retry after a partial
// failure finishes the remainder without duplicating entries.
//
// Concurrent sweeps for the same company are rejected, not queued: a
// tenant-scoped advisory lock is held for the transaction, and contention
// surfaces as ErrAlreadyInProgress.
func (p *Propagator) Propagate(ctx context.Context, companyCode string, oldPrice, newPrice Cents, actor string) (*PropagationReport, error) {
	report := &PropagationReport{}
	if oldPrice == newPrice {
		return report, nil
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := resolveCompany(ctx, tx, companyCode)
	if err != nil {
		return nil, err
	}

	var locked bool
	err = tx.QueryRow(ctx, "SELECT pg_try_advisory_xact_lock(hashtext($1))",
		fmt.Sprintf("labor-propagation:%d", companyID)).Scan(&locked)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire propagation lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("labor-rate propagation for company %s: %w", companyCode, ErrAlreadyInProgress)
	}

	book, err := loadRateBook(ctx, tx, companyID)
	if err != nil {
		return nil, err
	}

	pairs, err := p.enumerateLaborDependent(ctx, tx, companyID)
	if err != nil {
		return nil, err
	}

	oldBook, newBook := *book, *book
	oldBook.LaborPrice = oldPrice
	newBook.LaborPrice = newPrice
	delta := newPrice - oldPrice

	for _, pair := range pairs {
		// Honor the caller's deadline between pairs: entries already appended
		// are individually valid, so commit partial progress and let the
		// caller retry to finish the sweep.
		if err := ctx.Err(); err != nil {
			if commitErr := tx.Commit(context.WithoutCancel(ctx)); commitErr != nil {
				return report, fmt.Errorf("failed to commit partial propagation: %w", commitErr)
			}
			return report, fmt.Errorf("processed %d of %d pairs: %w",
				report.PairsExamined, len(pairs), ErrPropagationIncomplete)
		}
		report.PairsExamined++

		oldTriple, err := ResolveTriple(pair.baseline, pair.override, oldBook)
		if err != nil {
			return nil, err
		}
		newTriple, err := ResolveTriple(pair.baseline, pair.override, newBook)
		if err != nil {
			return nil, err
		}
		if oldTriple == newTriple {
			report.PairsSkipped++
			continue
		}

		done, err := p.alreadyRecorded(ctx, tx, companyID, pair.baseline.Code, newTriple, newPrice)
		if err != nil {
			return nil, err
		}
		if done {
			report.PairsSkipped++
			continue
		}

		entry := HistoryEntry{
			CompanyID:      companyID,
			ServiceCode:    pair.baseline.Code,
			ChangedAt:      time.Now().UTC(),
			Actor:          actor,
			Cause:          CauseGlobalRateChange,
			Old:            &oldTriple,
			New:            newTriple,
			LaborRate:      newPrice,
			LaborRateDelta: &delta,
		}
		if err := p.history.AppendTx(ctx, tx, entry); err != nil {
			return report, fmt.Errorf("processed %d of %d pairs: %v: %w",
				report.PairsExamined, len(pairs), err, ErrPropagationIncomplete)
		}
		report.EntriesWritten++
	}

	if err := tx.Commit(ctx); err != nil {
		return report, fmt.Errorf("failed to commit propagation: %w", err)
	}
	return report, nil
}

// enumerateLaborDependent returns every active master service, joined with
// the company's override, whose effective price depends on the labor rate:
// no custom absolute price and non-zero effective labor hours.
func (p *Propagator) enumerateLaborDependent(ctx context.Context, tx pgx.Tx, companyID int) ([]sweepPair, error) {
	rows, err := tx.Query(ctx, `
		SELECT m.code
		FROM master_services m
		LEFT JOIN tenant_service_overrides o
		       ON o.company_id = $1 AND o.service_code = m.code
		WHERE m.is_active
		  AND o.custom_price_cents IS NULL
		  AND COALESCE(o.custom_labor_hours, m.base_labor_hours) > 0
		ORDER BY m.code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate labor-dependent services: %w", err)
	}
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan service code: %w", err)
		}
		codes = append(codes, code)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating labor-dependent services: %w", err)
	}

	pairs := make([]sweepPair, 0, len(codes))
	for _, code := range codes {
		baseline, err := loadBaseline(ctx, tx, code)
		if err != nil {
			return nil, err
		}
		override, err := loadOverride(ctx, tx, companyID, code)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, sweepPair{baseline: *baseline, override: override})
	}
	return pairs, nil
}

// alreadyRecorded reports whether the latest history entry for the pair
// already carries the new-rate triple. This is what makes a retried sweep
// skip work a previous partial run committed.
func (p *Propagator) alreadyRecorded(ctx context.Context, tx pgx.Tx, companyID int, serviceCode string, want PriceTriple, rate Cents) (bool, error) {
	var (
		good, better, best, recordedRate int64
		cause                            ChangeCause
	)
	err := tx.QueryRow(ctx, `
		SELECT new_good_cents, new_better_cents, new_best_cents, labor_rate_cents, cause
		FROM pricing_history
		WHERE company_id = $1 AND service_code = $2
		ORDER BY changed_at DESC, seq DESC
		LIMIT 1
	`, companyID, serviceCode).Scan(&good, &better, &best, &recordedRate, &cause)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch latest history entry: %w", err)
	}
	latest := PriceTriple{Good: Cents(good), Better: Cents(better), Best: Cents(best)}
	return cause == CauseGlobalRateChange && latest == want && Cents(recordedRate) == rate, nil
}
