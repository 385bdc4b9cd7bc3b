package app

import (
	"context"
	"errors"
	"time"

	"servicebook/internal/core"
	"servicebook/internal/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
)

type appService struct {
	pool      *pgxpool.Pool
	companies core.CompanyService
	taxonomy  core.TaxonomyService
	catalog   core.CatalogService
	overrides core.OverrideService
	rateBook  core.RateBookService
	history   core.HistoryService
	pricer    *core.DocumentPricer
	estimates core.EstimateService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	pool *pgxpool.Pool,
	companies core.CompanyService,
	taxonomy core.TaxonomyService,
	catalog core.CatalogService,
	overrides core.OverrideService,
	rateBook core.RateBookService,
	history core.HistoryService,
	pricer *core.DocumentPricer,
	estimates core.EstimateService,
) ApplicationService {
	return &appService{
		pool:      pool,
		companies: companies,
		taxonomy:  taxonomy,
		catalog:   catalog,
		overrides: overrides,
		rateBook:  rateBook,
		history:   history,
		pricer:    pricer,
		estimates: estimates,
	}
}

func (s *appService) CreateCompany(ctx context.Context, req CreateCompanyRequest) (*CompanyResult, error) {
	company, err := s.companies.CreateCompany(ctx, core.CompanyInput{
		Code:                 req.Code,
		Name:                 req.Name,
		Email:                req.Email,
		Phone:                req.Phone,
		MinimumServiceCharge: req.MinimumServiceCharge,
		DefaultLaborPrice:    req.DefaultLaborPrice,
		DefaultLaborCost:     req.DefaultLaborCost,
		DefaultTaxRate:       req.DefaultTaxRate,
	}, req.Actor)
	if err != nil {
		return nil, err
	}
	return &CompanyResult{Company: company}, nil
}

func (s *appService) GetCompany(ctx context.Context, companyCode string) (*CompanyResult, error) {
	company, err := s.companies.GetCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return &CompanyResult{Company: company}, nil
}

func (s *appService) ListCompanies(ctx context.Context) (*CompanyListResult, error) {
	companies, err := s.companies.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}
	return &CompanyListResult{Companies: companies}, nil
}

func (s *appService) CreateCustomer(ctx context.Context, companyCode string, req CreateCustomerRequest) (*CustomerResult, error) {
	customer, err := s.companies.CreateCustomer(ctx, companyCode, core.CustomerInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		return nil, err
	}
	return &CustomerResult{Customer: customer}, nil
}

func (s *appService) ListCustomers(ctx context.Context, companyCode string) (*CustomerListResult, error) {
	customers, err := s.companies.ListCustomers(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return &CustomerListResult{Customers: customers}, nil
}

func (s *appService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*CategoryResult, error) {
	cat, err := s.taxonomy.CreateCategory(ctx, core.Category{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		return nil, err
	}
	return &CategoryResult{Category: cat}, nil
}

func (s *appService) CreateSubcategory(ctx context.Context, req CreateSubcategoryRequest) (*SubcategoryResult, error) {
	sub, err := s.taxonomy.CreateSubcategory(ctx, core.Subcategory{
		Code:         req.Code,
		CategoryCode: req.CategoryCode,
		Name:         req.Name,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		return nil, err
	}
	return &SubcategoryResult{Subcategory: sub}, nil
}

func (s *appService) DeactivateCategory(ctx context.Context, code string) error {
	return s.taxonomy.DeactivateCategory(ctx, code)
}

func (s *appService) DeactivateSubcategory(ctx context.Context, code string) error {
	return s.taxonomy.DeactivateSubcategory(ctx, code)
}

func (s *appService) ListCategories(ctx context.Context, includeInactive bool) (*CategoryListResult, error) {
	categories, err := s.taxonomy.ListCategories(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	return &CategoryListResult{Categories: categories}, nil
}

func (s *appService) ListSubcategories(ctx context.Context, categoryCode string, includeInactive bool) (*SubcategoryListResult, error) {
	subs, err := s.taxonomy.ListSubcategories(ctx, categoryCode, includeInactive)
	if err != nil {
		return nil, err
	}
	return &SubcategoryListResult{Subcategories: subs}, nil
}

func (s *appService) UpsertMasterService(ctx context.Context, req UpsertServiceRequest) (*ServiceResult, error) {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	svc, err := s.catalog.UpsertMasterService(ctx, core.MasterService{
		Code:               req.Code,
		CategoryCode:       req.CategoryCode,
		SubcategoryCode:    req.SubcategoryCode,
		Name:               req.Name,
		Description:        req.Description,
		BaseLaborHours:     req.BaseLaborHours,
		BaseMaterialCost:   req.BaseMaterialCost,
		BasePrice:          req.BasePrice,
		OriginalSourceCode: req.OriginalSourceCode,
		IsActive:           active,
	}, req.Actor)
	if err != nil {
		return nil, err
	}
	return &ServiceResult{Service: svc}, nil
}

func (s *appService) GetMasterService(ctx context.Context, code string) (*ServiceResult, error) {
	svc, err := s.catalog.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return &ServiceResult{Service: svc}, nil
}

func (s *appService) SearchServices(ctx context.Context, req SearchServicesRequest) (*ServiceListResult, error) {
	q := core.SearchQuery{
		Text:         req.Text,
		CategoryCode: req.CategoryCode,
		ActiveOnly:   req.ActiveOnly,
		Page:         req.Page,
		PerPage:      req.PerPage,
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 || q.PerPage > 200 {
		q.PerPage = 50
	}
	services, err := s.catalog.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ServiceListResult{Services: services, Page: q.Page, PerPage: q.PerPage}, nil
}

func (s *appService) GetOverride(ctx context.Context, companyCode, serviceCode string) (*OverrideResult, error) {
	override, err := s.overrides.GetOverride(ctx, companyCode, serviceCode)
	if err != nil {
		return nil, err
	}
	return &OverrideResult{Override: override}, nil
}

func (s *appService) SetOverride(ctx context.Context, companyCode, serviceCode string, req SetOverrideRequest) (*OverrideResult, error) {
	override, err := s.overrides.SetOverride(ctx, companyCode, serviceCode, req.Input, req.Actor)
	if err != nil {
		return nil, err
	}
	return &OverrideResult{Override: override}, nil
}

func (s *appService) RevertOverride(ctx context.Context, companyCode, serviceCode, actor string) error {
	return s.overrides.Revert(ctx, companyCode, serviceCode, actor)
}

func (s *appService) ListOverrides(ctx context.Context, companyCode string) (*OverrideListResult, error) {
	views, err := s.overrides.ListForTenant(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return &OverrideListResult{Overrides: views}, nil
}

func (s *appService) SetDefaultLaborRate(ctx context.Context, req SetLaborRateRequest) (*PropagationResult, error) {
	start := time.Now()
	report, err := s.rateBook.SetDefaultLaborRate(ctx, req.CompanyCode, req.Name, req.HourlyCost, req.HourlyPrice, req.Actor)
	metrics.PropagationSweepDuration.Observe(time.Since(start).Seconds())
	if report != nil {
		metrics.PropagationEntriesWritten.Add(float64(report.EntriesWritten))
	}
	if err != nil {
		// Partial progress is a success with a flag, not a failure: the
		// entries written so far are committed and the sweep is resumable.
		if errors.Is(err, core.ErrPropagationIncomplete) {
			return &PropagationResult{Report: report, Incomplete: true}, nil
		}
		return nil, err
	}
	return &PropagationResult{Report: report}, nil
}

func (s *appService) AddLaborRate(ctx context.Context, companyCode string, req LaborRateRequest) (*LaborRateResult, error) {
	rate, err := s.rateBook.AddLaborRate(ctx, companyCode, core.LaborRate{
		Name:        req.Name,
		HourlyCost:  req.HourlyCost,
		HourlyPrice: req.HourlyPrice,
		IsActive:    true,
	})
	if err != nil {
		return nil, err
	}
	return &LaborRateResult{Rate: rate}, nil
}

func (s *appService) ListLaborRates(ctx context.Context, companyCode string) (*LaborRateListResult, error) {
	rates, err := s.rateBook.ListLaborRates(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return &LaborRateListResult{Rates: rates}, nil
}

func (s *appService) SetTaxRate(ctx context.Context, companyCode string, req TaxRateRequest) (*TaxRateResult, error) {
	rate, err := s.rateBook.SetTaxRate(ctx, companyCode, core.TaxRate{
		Name:      req.Name,
		Rate:      req.Rate,
		IsDefault: req.IsDefault,
		IsActive:  true,
	})
	if err != nil {
		return nil, err
	}
	return &TaxRateResult{Rate: rate}, nil
}

func (s *appService) ListTaxRates(ctx context.Context, companyCode string) (*TaxRateListResult, error) {
	rates, err := s.rateBook.ListTaxRates(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return &TaxRateListResult{Rates: rates}, nil
}

func (s *appService) SetTierMultipliers(ctx context.Context, req SetTiersRequest) error {
	return s.rateBook.SetTierMultipliers(ctx, req.CompanyCode, req.Good, req.Better, req.Best, req.Actor)
}

func (s *appService) GetTierProfile(ctx context.Context, companyCode string) (*TierProfileResult, error) {
	profile, err := s.rateBook.GetTierProfile(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return &TierProfileResult{Profile: profile}, nil
}

func (s *appService) SetDiscountRule(ctx context.Context, companyCode string, req DiscountRuleRequest) (*DiscountRuleResult, error) {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	rule, err := s.rateBook.SetDiscountRule(ctx, companyCode, core.DiscountRule{
		Kind:     req.Kind,
		Percent:  req.Percent,
		IsActive: active,
	})
	if err != nil {
		return nil, err
	}
	return &DiscountRuleResult{Rule: rule}, nil
}

func (s *appService) ListDiscountRules(ctx context.Context, companyCode string) (*DiscountRuleListResult, error) {
	rules, err := s.rateBook.ListDiscountRules(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return &DiscountRuleListResult{Rules: rules}, nil
}

func (s *appService) ResolvePrice(ctx context.Context, req ResolvePriceRequest) (*PriceResult, error) {
	tier := req.Tier
	if tier == "" {
		tier = core.TierGood
	}
	breakdown, err := s.pricer.ResolveService(ctx, req.CompanyCode, req.ServiceCode, tier, req.Discounts, req.IncludeHidden)
	if err != nil {
		return nil, err
	}
	return &PriceResult{Breakdown: breakdown}, nil
}

func (s *appService) PriceDocument(ctx context.Context, companyCode string, req core.PriceDocumentRequest) (*DocumentResult, error) {
	doc, err := s.pricer.PriceDocument(ctx, companyCode, req)
	if err != nil {
		return nil, err
	}
	return &DocumentResult{Document: doc}, nil
}

func (s *appService) QueryHistory(ctx context.Context, companyCode string, filter core.HistoryFilter) (*HistoryResult, error) {
	entries, err := s.history.Query(ctx, companyCode, filter)
	if err != nil {
		return nil, err
	}
	return &HistoryResult{Entries: entries}, nil
}

func (s *appService) ReplayPrice(ctx context.Context, companyCode, serviceCode string, at time.Time) (*ReplayResult, error) {
	triple, err := s.history.ReplayAt(ctx, companyCode, serviceCode, at)
	if err != nil {
		return nil, err
	}
	return &ReplayResult{Triple: triple}, nil
}

func (s *appService) CreateEstimate(ctx context.Context, companyCode string, req CreateEstimateRequest) (*EstimateResult, error) {
	estimate, err := s.estimates.CreateEstimate(ctx, companyCode, req.CustomerID, req.Document)
	if err != nil {
		return nil, err
	}
	return &EstimateResult{Estimate: estimate}, nil
}

func (s *appService) GetEstimate(ctx context.Context, companyCode string, id int) (*EstimateResult, error) {
	estimate, err := s.estimates.GetEstimate(ctx, companyCode, id)
	if err != nil {
		return nil, err
	}
	return &EstimateResult{Estimate: estimate}, nil
}

func (s *appService) ListEstimates(ctx context.Context, companyCode string, status *core.EstimateStatus) (*EstimateListResult, error) {
	estimates, err := s.estimates.ListEstimates(ctx, companyCode, status)
	if err != nil {
		return nil, err
	}
	return &EstimateListResult{Estimates: estimates}, nil
}

func (s *appService) TransitionEstimate(ctx context.Context, companyCode string, id int, to core.EstimateStatus) (*EstimateResult, error) {
	estimate, err := s.estimates.TransitionEstimate(ctx, companyCode, id, to)
	if err != nil {
		return nil, err
	}
	return &EstimateResult{Estimate: estimate}, nil
}

func (s *appService) ConvertToInvoice(ctx context.Context, companyCode string, estimateID int) (*InvoiceResult, error) {
	invoice, err := s.estimates.ConvertToInvoice(ctx, companyCode, estimateID)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: invoice}, nil
}

func (s *appService) GetInvoice(ctx context.Context, companyCode string, id int) (*InvoiceResult, error) {
	invoice, err := s.estimates.GetInvoice(ctx, companyCode, id)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: invoice}, nil
}

func (s *appService) TransitionInvoice(ctx context.Context, companyCode string, id int, to core.InvoiceStatus) (*InvoiceResult, error) {
	invoice, err := s.estimates.TransitionInvoice(ctx, companyCode, id, to)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: invoice}, nil
}
