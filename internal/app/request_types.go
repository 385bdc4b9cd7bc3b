package app

import (
	"servicebook/internal/core"

	"github.com/shopspring/decimal"
)

// CreateCompanyRequest is the input for provisioning a new tenant.
type CreateCompanyRequest struct {
	Code                 string          `json:"code"`
	Name                 string          `json:"name"`
	Email                string          `json:"email,omitempty"`
	Phone                string          `json:"phone,omitempty"`
	MinimumServiceCharge core.Cents      `json:"minimum_service_charge,omitempty"`
	DefaultLaborPrice    core.Cents      `json:"default_labor_price"`
	DefaultLaborCost     core.Cents      `json:"default_labor_cost,omitempty"`
	DefaultTaxRate       decimal.Decimal `json:"default_tax_rate,omitempty"`
	Actor                string          `json:"-"`
}

// CreateCustomerRequest is the input for adding a customer to a company.
type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// CreateCategoryRequest is the input for adding a catalog category.
type CreateCategoryRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SortOrder   int    `json:"sort_order,omitempty"`
}

// CreateSubcategoryRequest is the input for adding a subcategory.
type CreateSubcategoryRequest struct {
	Code         string `json:"code"`
	CategoryCode string `json:"category_code"`
	Name         string `json:"name"`
	SortOrder    int    `json:"sort_order,omitempty"`
}

// UpsertServiceRequest is the input for creating or updating a master
// catalog service.
type UpsertServiceRequest struct {
	Code               string          `json:"code"`
	CategoryCode       string          `json:"category_code"`
	SubcategoryCode    *string         `json:"subcategory_code,omitempty"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	BaseLaborHours     decimal.Decimal `json:"base_labor_hours"`
	BaseMaterialCost   core.Cents      `json:"base_material_cost"`
	BasePrice          core.Cents      `json:"base_price,omitempty"`
	OriginalSourceCode *string         `json:"original_source_code,omitempty"`
	IsActive           *bool           `json:"is_active,omitempty"` // nil keeps/defaults to active
	Actor              string          `json:"-"`
}

// SearchServicesRequest is the input for catalog search.
type SearchServicesRequest struct {
	Text         string `json:"q,omitempty"`
	CategoryCode string `json:"category,omitempty"`
	ActiveOnly   bool   `json:"active_only,omitempty"`
	Page         int    `json:"page,omitempty"`
	PerPage      int    `json:"per_page,omitempty"`
}

// SetOverrideRequest is the input for upserting a tenant's service override.
type SetOverrideRequest struct {
	Input core.OverrideInput `json:"input"`
	Actor string             `json:"-"`
}

// SetLaborRateRequest is the input for changing a company's default labor rate.
type SetLaborRateRequest struct {
	CompanyCode string     `json:"-"`
	Name        string     `json:"name,omitempty"` // empty targets the "Standard" rate
	HourlyCost  core.Cents `json:"hourly_cost,omitempty"`
	HourlyPrice core.Cents `json:"hourly_price"`
	Actor       string     `json:"-"`
}

// LaborRateRequest is the input for adding or updating a named labor rate.
type LaborRateRequest struct {
	ID          int        `json:"id,omitempty"`
	Name        string     `json:"name"`
	HourlyCost  core.Cents `json:"hourly_cost"`
	HourlyPrice core.Cents `json:"hourly_price"`
}

// TaxRateRequest is the input for upserting a named tax rate.
type TaxRateRequest struct {
	Name      string          `json:"name"`
	Rate      decimal.Decimal `json:"rate"`
	IsDefault bool            `json:"is_default,omitempty"`
}

// SetTiersRequest is the input for setting tier multipliers.
type SetTiersRequest struct {
	CompanyCode string          `json:"-"`
	Good        decimal.Decimal `json:"good"`
	Better      decimal.Decimal `json:"better"`
	Best        decimal.Decimal `json:"best"`
	Actor       string          `json:"-"`
}

// DiscountRuleRequest is the input for upserting a discount rule.
type DiscountRuleRequest struct {
	Kind     core.DiscountKind `json:"kind"`
	Percent  decimal.Decimal   `json:"percent"`
	IsActive *bool             `json:"is_active,omitempty"` // nil defaults to active
}

// ResolvePriceRequest is the input for pricing a single service.
type ResolvePriceRequest struct {
	CompanyCode   string              `json:"-"`
	ServiceCode   string              `json:"-"`
	Tier          core.Tier           `json:"tier,omitempty"`
	Discounts     []core.DiscountKind `json:"discounts,omitempty"`
	IncludeHidden bool                `json:"include_hidden,omitempty"`
}

// CreateEstimateRequest is the input for creating a draft estimate.
type CreateEstimateRequest struct {
	CustomerID *int                      `json:"customer_id,omitempty"`
	Document   core.PriceDocumentRequest `json:"document"`
}
