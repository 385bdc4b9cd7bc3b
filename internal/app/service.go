package app

import (
	"context"
	"time"

	"servicebook/internal/core"
)

// ApplicationService is the single interface all adapters (Web, CLI, seeder)
// call. It decouples presentation from business logic. Implementations must
// contain no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// CreateCompany provisions a tenant with a starter rate book.
	CreateCompany(ctx context.Context, req CreateCompanyRequest) (*CompanyResult, error)

	// GetCompany returns one company by code.
	GetCompany(ctx context.Context, companyCode string) (*CompanyResult, error)

	// ListCompanies returns all companies.
	ListCompanies(ctx context.Context) (*CompanyListResult, error)

	// CreateCustomer adds a customer record to a company.
	CreateCustomer(ctx context.Context, companyCode string, req CreateCustomerRequest) (*CustomerResult, error)

	// ListCustomers returns all customers for a company.
	ListCustomers(ctx context.Context, companyCode string) (*CustomerListResult, error)

	// CreateCategory adds a top-level catalog category.
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*CategoryResult, error)

	// CreateSubcategory adds a subcategory under an existing category.
	CreateSubcategory(ctx context.Context, req CreateSubcategoryRequest) (*SubcategoryResult, error)

	// DeactivateCategory soft-deletes a category; its subcategories and
	// services disappear from listings but stay resolvable by code.
	DeactivateCategory(ctx context.Context, code string) error

	// DeactivateSubcategory soft-deletes a subcategory.
	DeactivateSubcategory(ctx context.Context, code string) error

	// ListCategories returns catalog categories, active only by default.
	ListCategories(ctx context.Context, includeInactive bool) (*CategoryListResult, error)

	// ListSubcategories returns subcategories, optionally scoped to a category.
	ListSubcategories(ctx context.Context, categoryCode string, includeInactive bool) (*SubcategoryListResult, error)

	// UpsertMasterService creates or updates a shared baseline service and
	// broadcasts repricing history to every tenant referencing the code.
	UpsertMasterService(ctx context.Context, req UpsertServiceRequest) (*ServiceResult, error)

	// GetMasterService returns one baseline service by code.
	GetMasterService(ctx context.Context, code string) (*ServiceResult, error)

	// SearchServices searches the master catalog by text and category.
	SearchServices(ctx context.Context, req SearchServicesRequest) (*ServiceListResult, error)

	// GetOverride returns a company's override row for one service, if any.
	GetOverride(ctx context.Context, companyCode, serviceCode string) (*OverrideResult, error)

	// SetOverride upserts a company's deviations from a baseline service.
	SetOverride(ctx context.Context, companyCode, serviceCode string, req SetOverrideRequest) (*OverrideResult, error)

	// RevertOverride deletes an override, returning the service to baseline.
	RevertOverride(ctx context.Context, companyCode, serviceCode, actor string) error

	// ListOverrides returns all of a company's overrides with resolved prices.
	ListOverrides(ctx context.Context, companyCode string) (*OverrideListResult, error)

	// SetDefaultLaborRate changes the company's default labor rate and sweeps
	// labor-dependent prices into the history log.
	SetDefaultLaborRate(ctx context.Context, req SetLaborRateRequest) (*PropagationResult, error)

	// AddLaborRate adds a named non-default labor rate.
	AddLaborRate(ctx context.Context, companyCode string, req LaborRateRequest) (*LaborRateResult, error)

	// ListLaborRates returns a company's labor rates.
	ListLaborRates(ctx context.Context, companyCode string) (*LaborRateListResult, error)

	// SetTaxRate upserts a named tax rate for a company.
	SetTaxRate(ctx context.Context, companyCode string, req TaxRateRequest) (*TaxRateResult, error)

	// ListTaxRates returns a company's tax rates.
	ListTaxRates(ctx context.Context, companyCode string) (*TaxRateListResult, error)

	// SetTierMultipliers sets the company's good/better/best multipliers.
	SetTierMultipliers(ctx context.Context, req SetTiersRequest) error

	// GetTierProfile returns the company's tier multipliers.
	GetTierProfile(ctx context.Context, companyCode string) (*TierProfileResult, error)

	// SetDiscountRule upserts one discount rule for a company.
	SetDiscountRule(ctx context.Context, companyCode string, req DiscountRuleRequest) (*DiscountRuleResult, error)

	// ListDiscountRules returns a company's discount rules.
	ListDiscountRules(ctx context.Context, companyCode string) (*DiscountRuleListResult, error)

	// ResolvePrice prices one service for a company at quantity 1, returning
	// the full calculation breakdown.
	ResolvePrice(ctx context.Context, req ResolvePriceRequest) (*PriceResult, error)

	// PriceDocument prices a set of lines as one document with tax and the
	// minimum-charge adjustment, without persisting anything.
	PriceDocument(ctx context.Context, companyCode string, req core.PriceDocumentRequest) (*DocumentResult, error)

	// QueryHistory returns pricing history entries for a company.
	QueryHistory(ctx context.Context, companyCode string, filter core.HistoryFilter) (*HistoryResult, error)

	// ReplayPrice reconstructs the resolved price triple for a service as of
	// a past instant.
	ReplayPrice(ctx context.Context, companyCode, serviceCode string, at time.Time) (*ReplayResult, error)

	// CreateEstimate prices and persists a draft estimate with frozen lines.
	CreateEstimate(ctx context.Context, companyCode string, req CreateEstimateRequest) (*EstimateResult, error)

	// GetEstimate returns one estimate with its lines.
	GetEstimate(ctx context.Context, companyCode string, id int) (*EstimateResult, error)

	// ListEstimates returns a company's estimates, optionally by status.
	ListEstimates(ctx context.Context, companyCode string, status *core.EstimateStatus) (*EstimateListResult, error)

	// TransitionEstimate moves an estimate along its state machine.
	TransitionEstimate(ctx context.Context, companyCode string, id int, to core.EstimateStatus) (*EstimateResult, error)

	// ConvertToInvoice turns an approved estimate into a draft invoice.
	ConvertToInvoice(ctx context.Context, companyCode string, estimateID int) (*InvoiceResult, error)

	// GetInvoice returns one invoice with its lines.
	GetInvoice(ctx context.Context, companyCode string, id int) (*InvoiceResult, error)

	// TransitionInvoice moves an invoice along its state machine.
	TransitionInvoice(ctx context.Context, companyCode string, id int, to core.InvoiceStatus) (*InvoiceResult, error)
}
