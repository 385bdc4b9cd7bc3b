package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier selects one of the three flat-rate presentation levels.
type Tier string

const (
	TierGood   Tier = "good"
	TierBetter Tier = "better"
	TierBest   Tier = "best"
)

// ChangeCause is the closed set of reasons a pricing history entry exists.
type ChangeCause string

const (
	CauseMasterEdit       ChangeCause = "master_edit"
	CauseTenantEdit       ChangeCause = "tenant_edit"
	CauseGlobalRateChange ChangeCause = "global_rate_change"
	CauseTierChange       ChangeCause = "tier_change"
	CauseBulkImport       ChangeCause = "bulk_import"
	CauseRevert           ChangeCause = "revert"
)

// DiscountKind is the closed set of discount rule types.
type DiscountKind string

const (
	DiscountSenior    DiscountKind = "senior"
	DiscountMilitary  DiscountKind = "military"
	DiscountFirstTime DiscountKind = "first_time"
	DiscountCustom    DiscountKind = "custom"
)

type Category struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type Subcategory struct {
	Code         string    `json:"code"`
	CategoryCode string    `json:"category_code"`
	Name         string    `json:"name"`
	SortOrder    int       `json:"sort_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// MasterService is the shared baseline definition of one flat-rate service.
// Tenants never mutate these rows; they override them per company.
type MasterService struct {
	Code               string          `json:"code"`
	CategoryCode       string          `json:"category_code"`
	SubcategoryCode    *string         `json:"subcategory_code,omitempty"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	BaseLaborHours     decimal.Decimal `json:"base_labor_hours"`
	BaseMaterialCost   Cents           `json:"base_material_cost"`
	BasePrice          Cents           `json:"base_price"`
	OriginalSourceCode *string         `json:"original_source_code,omitempty"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
}

type Company struct {
	ID                   int       `json:"id"`
	Code                 string    `json:"code"`
	Name                 string    `json:"name"`
	Email                string    `json:"email"`
	Phone                string    `json:"phone"`
	MinimumServiceCharge Cents     `json:"minimum_service_charge"`
	CreatedAt            time.Time `json:"created_at"`
}

// ServiceOverride holds a company's deviations from a master service. A row
// exists only while at least one field actually deviates; rows that settle
// back to the baseline are deleted, not stored.
type ServiceOverride struct {
	CompanyID          int             `json:"company_id"`
	ServiceCode        string          `json:"service_code"`
	CustomPrice        *Cents          `json:"custom_price,omitempty"`
	CustomLaborHours   *decimal.Decimal `json:"custom_labor_hours,omitempty"`
	CustomMaterialCost *Cents          `json:"custom_material_cost,omitempty"`
	PercentAdjustment  decimal.Decimal `json:"percent_adjustment"`
	FlatAdjustment     Cents           `json:"flat_adjustment"`
	CustomName         *string         `json:"custom_name,omitempty"`
	CustomDescription  *string         `json:"custom_description,omitempty"`
	IsActive           bool            `json:"is_active"`
	IsHidden           bool            `json:"is_hidden"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type LaborRate struct {
	ID          int    `json:"id"`
	CompanyID   int    `json:"company_id"`
	Name        string `json:"name"`
	HourlyCost  Cents  `json:"hourly_cost"`
	HourlyPrice Cents  `json:"hourly_price"`
	IsDefault   bool   `json:"is_default"`
	IsActive    bool   `json:"is_active"`
}

type TaxRate struct {
	ID        int             `json:"id"`
	CompanyID int             `json:"company_id"`
	Name      string          `json:"name"`
	Rate      decimal.Decimal `json:"rate"` // fraction, 0 <= r < 1
	IsDefault bool            `json:"is_default"`
	IsActive  bool            `json:"is_active"`
}

type TierProfile struct {
	CompanyID int             `json:"company_id"`
	Good      decimal.Decimal `json:"good_multiplier"`
	Better    decimal.Decimal `json:"better_multiplier"`
	Best      decimal.Decimal `json:"best_multiplier"`
}

// Multiplier returns the profile's factor for the given tier. Unknown tiers
// fall back to Good.
func (p TierProfile) Multiplier(t Tier) decimal.Decimal {
	switch t {
	case TierBetter:
		return p.Better
	case TierBest:
		return p.Best
	default:
		return p.Good
	}
}

type DiscountRule struct {
	ID        int             `json:"id"`
	CompanyID int             `json:"company_id"`
	Kind      DiscountKind    `json:"kind"`
	Percent   decimal.Decimal `json:"percent"` // fraction, 0 <= p <= 1
	IsActive  bool            `json:"is_active"`
}

// RateBook is the per-company pricing context the calculator consumes: the
// default labor price, tier multipliers, and the discount rules in force.
type RateBook struct {
	LaborPrice Cents
	Tiers      TierProfile
	Discounts  []DiscountRule
}

// PriceTriple is the resolved Good/Better/Best unit price for one service.
type PriceTriple struct {
	Good   Cents `json:"good"`
	Better Cents `json:"better"`
	Best   Cents `json:"best"`
}

// HistoryEntry is one immutable row of the pricing history log. Entries for
// the same (company, service) pair are totally ordered by ChangedAt, with Seq
// breaking sub-millisecond ties.
type HistoryEntry struct {
	ID             int          `json:"id"`
	CompanyID      int          `json:"company_id"`
	ServiceCode    string       `json:"service_code"`
	Seq            int64        `json:"seq"`
	ChangedAt      time.Time    `json:"changed_at"`
	Actor          string       `json:"actor"`
	Cause          ChangeCause  `json:"cause"`
	Old            *PriceTriple `json:"old_snapshot,omitempty"`
	New            PriceTriple  `json:"new_snapshot"`
	LaborRate      Cents        `json:"labor_rate"`
	LaborRateDelta *Cents       `json:"labor_rate_delta,omitempty"`
}

// LaborRateChange is one row of the rate book's own history stream. Replay at
// a past timestamp needs the default labor price in force at that instant,
// which the pricing history alone cannot supply for never-overridden services.
type LaborRateChange struct {
	CompanyID int       `json:"company_id"`
	ChangedAt time.Time `json:"changed_at"`
	OldPrice  *Cents    `json:"old_price,omitempty"`
	NewPrice  Cents     `json:"new_price"`
	Actor     string    `json:"actor"`
}

type Customer struct {
	ID        int       `json:"id"`
	CompanyID int       `json:"company_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}
