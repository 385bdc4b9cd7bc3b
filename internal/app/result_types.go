package app

import "servicebook/internal/core"

// CompanyResult is returned by company operations.
type CompanyResult struct {
	Company *core.Company `json:"company"`
}

// CompanyListResult is returned by ListCompanies.
type CompanyListResult struct {
	Companies []core.Company `json:"companies"`
}

// CustomerResult is returned by CreateCustomer.
type CustomerResult struct {
	Customer *core.Customer `json:"customer"`
}

// CustomerListResult is returned by ListCustomers.
type CustomerListResult struct {
	Customers []core.Customer `json:"customers"`
}

// CategoryResult is returned by CreateCategory.
type CategoryResult struct {
	Category *core.Category `json:"category"`
}

// CategoryListResult is returned by ListCategories.
type CategoryListResult struct {
	Categories []core.Category `json:"categories"`
}

// SubcategoryResult is returned by CreateSubcategory.
type SubcategoryResult struct {
	Subcategory *core.Subcategory `json:"subcategory"`
}

// SubcategoryListResult is returned by ListSubcategories.
type SubcategoryListResult struct {
	Subcategories []core.Subcategory `json:"subcategories"`
}

// ServiceResult is returned by master service operations.
type ServiceResult struct {
	Service *core.MasterService `json:"service"`
}

// ServiceListResult is returned by SearchServices.
type ServiceListResult struct {
	Services []core.MasterService `json:"services"`
	Page     int                  `json:"page"`
	PerPage  int                  `json:"per_page"`
}

// OverrideResult is returned by override read and write operations. Override
// is nil when the write normalized every field back to the baseline.
type OverrideResult struct {
	Override *core.ServiceOverride `json:"override"`
}

// OverrideListResult is returned by ListOverrides.
type OverrideListResult struct {
	Overrides []core.OverrideView `json:"overrides"`
}

// PropagationResult is returned by SetDefaultLaborRate. Incomplete is set
// when the sweep committed partial progress before its deadline.
type PropagationResult struct {
	Report     *core.PropagationReport `json:"report"`
	Incomplete bool                    `json:"incomplete,omitempty"`
}

// LaborRateResult is returned by AddLaborRate.
type LaborRateResult struct {
	Rate *core.LaborRate `json:"rate"`
}

// LaborRateListResult is returned by ListLaborRates.
type LaborRateListResult struct {
	Rates []core.LaborRate `json:"rates"`
}

// TaxRateResult is returned by SetTaxRate.
type TaxRateResult struct {
	Rate *core.TaxRate `json:"rate"`
}

// TaxRateListResult is returned by ListTaxRates.
type TaxRateListResult struct {
	Rates []core.TaxRate `json:"rates"`
}

// TierProfileResult is returned by GetTierProfile.
type TierProfileResult struct {
	Profile *core.TierProfile `json:"profile"`
}

// DiscountRuleResult is returned by SetDiscountRule.
type DiscountRuleResult struct {
	Rule *core.DiscountRule `json:"rule"`
}

// DiscountRuleListResult is returned by ListDiscountRules.
type DiscountRuleListResult struct {
	Rules []core.DiscountRule `json:"rules"`
}

// PriceResult is returned by ResolvePrice.
type PriceResult struct {
	Breakdown *core.Breakdown `json:"breakdown"`
}

// DocumentResult is returned by PriceDocument.
type DocumentResult struct {
	Document *core.PricedDocument `json:"document"`
}

// HistoryResult is returned by QueryHistory.
type HistoryResult struct {
	Entries []core.HistoryEntry `json:"entries"`
}

// ReplayResult is returned by ReplayPrice.
type ReplayResult struct {
	Triple *core.PriceTriple `json:"triple"`
}

// EstimateResult is returned by estimate operations.
type EstimateResult struct {
	Estimate *core.Estimate `json:"estimate"`
}

// EstimateListResult is returned by ListEstimates.
type EstimateListResult struct {
	Estimates []core.Estimate `json:"estimates"`
}

// InvoiceResult is returned by invoice operations.
type InvoiceResult struct {
	Invoice *core.Invoice `json:"invoice"`
}
