package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LineRequest asks for one service to be priced at a quantity.
type LineRequest struct {
	ServiceCode string          `json:"service_code"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// PricedLine is a frozen line item: unit price and breakdown are captured at
// pricing time and never recomputed. Downstream documents persist these
// verbatim; later catalog or rate changes do not touch them.
type PricedLine struct {
	ServiceCode  string          `json:"service_code"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    Cents           `json:"unit_price_frozen"`
	LineTotal    Cents           `json:"line_total"`
	Tier         Tier            `json:"tier_selected"`
	DiscountRate decimal.Decimal `json:"discount_applied"`
	Breakdown    Breakdown       `json:"breakdown_snapshot"`
	IsAdjustment bool            `json:"is_adjustment,omitempty"`
}

// LineError records a per-line failure without failing the whole document.
type LineError struct {
	ServiceCode string `json:"service_code"`
	Reason      string `json:"reason"`
}

type PriceDocumentRequest struct {
	Lines         []LineRequest  `json:"lines"`
	Tier          Tier           `json:"tier"`
	Discounts     []DiscountKind `json:"discounts,omitempty"`
	TaxRateName   string         `json:"tax_rate,omitempty"` // empty selects the company default
	IncludeHidden bool           `json:"include_hidden,omitempty"`
}

type PricedDocument struct {
	Lines             []PricedLine    `json:"lines"`
	LineErrors        []LineError     `json:"line_errors,omitempty"`
	TaxRateName       string          `json:"tax_rate_name"`
	TaxRate           decimal.Decimal `json:"tax_rate"`
	Subtotal          Cents           `json:"subtotal"`
	Tax               Cents           `json:"tax"`
	Total             Cents           `json:"total"`
	MinimumAdjustment *Cents          `json:"adjustment_to_minimum,omitempty"`
}

// adjustmentCode marks the synthetic minimum-charge line. It is not a catalog
// code; line items hold service codes by weak reference only.
const adjustmentCode = "ADJ-MIN"

// DocumentPricer turns service-code/quantity requests into fully priced,
// frozen line items plus aggregate totals. It owns no document persistence;
// estimates and invoices store what it returns.
type DocumentPricer struct {
	pool *pgxpool.Pool
}

func NewDocumentPricer(pool *pgxpool.Pool) *DocumentPricer {
	return &DocumentPricer{pool: pool}
}

// ResolveService prices a single service for a company with quantity 1.
func (dp *DocumentPricer) ResolveService(ctx context.Context, companyCode, serviceCode string, tier Tier, discounts []DiscountKind, includeHidden bool) (*Breakdown, error) {
	companyID, err := resolveCompany(ctx, dp.pool, companyCode)
	if err != nil {
		return nil, err
	}
	book, err := loadRateBook(ctx, dp.pool, companyID)
	if err != nil {
		return nil, err
	}
	baseline, override, err := dp.resolveLine(ctx, companyID, serviceCode, includeHidden)
	if err != nil {
		return nil, err
	}
	return PriceOf(*baseline, override, *book, decimal.NewFromInt(1), tier, discounts)
}

// PriceDocument prices a whole document. Unknown or hidden services become
// per-line error records rather than failing the call; a missing tax
// selection with no company default fails with ErrTaxRateMissing. Two calls
// with identical inputs against an unchanged rate book return identical
// output.
func (dp *DocumentPricer) PriceDocument(ctx context.Context, companyCode string, req PriceDocumentRequest) (*PricedDocument, error) {
	companyID, err := resolveCompany(ctx, dp.pool, companyCode)
	if err != nil {
		return nil, err
	}
	book, err := loadRateBook(ctx, dp.pool, companyID)
	if err != nil {
		return nil, err
	}

	taxName, taxRate, err := dp.resolveTaxRate(ctx, companyID, req.TaxRateName)
	if err != nil {
		return nil, err
	}

	tier := req.Tier
	if tier == "" {
		tier = TierGood
	}

	doc := &PricedDocument{TaxRateName: taxName, TaxRate: taxRate}
	subtotal := Cents(0)
	for _, line := range req.Lines {
		baseline, override, err := dp.resolveLine(ctx, companyID, line.ServiceCode, req.IncludeHidden)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrHidden) {
				doc.LineErrors = append(doc.LineErrors, LineError{ServiceCode: line.ServiceCode, Reason: err.Error()})
				continue
			}
			return nil, err
		}

		b, err := PriceOf(*baseline, override, *book, line.Quantity, tier, req.Discounts)
		if err != nil {
			return nil, err
		}

		name := baseline.Name
		if override != nil && override.CustomName != nil {
			name = *override.CustomName
		}
		doc.Lines = append(doc.Lines, PricedLine{
			ServiceCode:  line.ServiceCode,
			Name:         name,
			Quantity:     line.Quantity,
			UnitPrice:    b.UnitPrice,
			LineTotal:    b.LineTotal,
			Tier:         tier,
			DiscountRate: b.DiscountRate,
			Breakdown:    *b,
		})
		subtotal += b.LineTotal
	}

	// Minimum-charge rule: lift sub-minimum documents with a synthetic line.
	minCharge, err := dp.minimumServiceCharge(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if len(doc.Lines) > 0 && subtotal < minCharge {
		adj := minCharge - subtotal
		doc.MinimumAdjustment = &adj
		doc.Lines = append(doc.Lines, PricedLine{
			ServiceCode:  adjustmentCode,
			Name:         "Minimum service charge adjustment",
			Quantity:     decimal.NewFromInt(1),
			UnitPrice:    adj,
			LineTotal:    adj,
			Tier:         tier,
			DiscountRate: decimal.Zero,
			IsAdjustment: true,
		})
		subtotal = minCharge
	}

	doc.Subtotal = subtotal
	doc.Tax = CentsFromDecimal(subtotal.Decimal().Mul(taxRate))
	doc.Total = doc.Subtotal + doc.Tax
	return doc, nil
}

// resolveLine loads the baseline and override for one requested code.
// Services hidden or deactivated by the company stay resolvable when the
// caller asks for hidden rows, so they can be unhidden without data loss.
func (dp *DocumentPricer) resolveLine(ctx context.Context, companyID int, serviceCode string, includeHidden bool) (*MasterService, *ServiceOverride, error) {
	baseline, err := loadBaseline(ctx, dp.pool, serviceCode)
	if err != nil {
		return nil, nil, err
	}
	if !baseline.IsActive {
		return nil, nil, fmt.Errorf("service %s is inactive: %w", serviceCode, ErrNotFound)
	}
	override, err := loadOverride(ctx, dp.pool, companyID, serviceCode)
	if err != nil {
		return nil, nil, err
	}
	if override != nil && (override.IsHidden || !override.IsActive) && !includeHidden {
		return nil, nil, fmt.Errorf("service %s: %w", serviceCode, ErrHidden)
	}
	return baseline, override, nil
}

func (dp *DocumentPricer) resolveTaxRate(ctx context.Context, companyID int, name string) (string, decimal.Decimal, error) {
	var (
		query string
		args  []any
	)
	if name != "" {
		query = "SELECT name, rate FROM tenant_tax_rates WHERE company_id = $1 AND name = $2 AND is_active"
		args = []any{companyID, name}
	} else {
		query = "SELECT name, rate FROM tenant_tax_rates WHERE company_id = $1 AND is_default AND is_active"
		args = []any{companyID}
	}

	var (
		resolved string
		rate     decimal.Decimal
	)
	err := dp.pool.QueryRow(ctx, query, args...).Scan(&resolved, &rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", decimal.Zero, fmt.Errorf("company %d: %w", companyID, ErrTaxRateMissing)
		}
		return "", decimal.Zero, fmt.Errorf("failed to resolve tax rate: %w", err)
	}
	return resolved, rate, nil
}

func (dp *DocumentPricer) minimumServiceCharge(ctx context.Context, companyID int) (Cents, error) {
	var cents int64
	err := dp.pool.QueryRow(ctx,
		"SELECT minimum_service_charge_cents FROM companies WHERE id = $1", companyID).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch minimum service charge: %w", err)
	}
	return Cents(cents), nil
}
