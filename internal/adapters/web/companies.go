package web

import (
	"net/http"

	"servicebook/internal/app"
)

// createCompany handles POST /api/companies.
// Body: { code, name, email?, phone?, minimum_service_charge?, default_labor_price, default_labor_cost?, default_tax_rate? }
func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request) {
	var req app.CreateCompanyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Actor = actor(r)

	result, err := h.svc.CreateCompany(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Company)
}

// getCompany handles GET /api/companies/{code}.
func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetCompany(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Company)
}

// listCompanies handles GET /api/companies.
func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCompanies(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Companies)
}

// createCustomer handles POST /api/companies/{code}/customers.
// Body: { name, email?, phone?, address? }
func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req app.CreateCustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.CreateCustomer(r.Context(), companyCode(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Customer)
}

// listCustomers handles GET /api/companies/{code}/customers.
func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCustomers(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Customers)
}
