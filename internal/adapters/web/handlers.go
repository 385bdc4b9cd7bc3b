package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"servicebook/internal/app"
	"servicebook/internal/core"
	"servicebook/internal/metrics"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc}

	httpMetrics := metrics.NewHTTPMetrics("servicebook")

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))
	r.Use(httpMetrics.Middleware(routePattern))

	r.Get("/api/health", h.health)
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// Tenants
		r.Post("/api/companies", h.createCompany)
		r.Get("/api/companies", h.listCompanies)
		r.Get("/api/companies/{code}", h.getCompany)
		r.Post("/api/companies/{code}/customers", h.createCustomer)
		r.Get("/api/companies/{code}/customers", h.listCustomers)

		// Master catalog
		r.Get("/api/catalog/categories", h.listCategories)
		r.Post("/api/catalog/categories", h.createCategory)
		r.Delete("/api/catalog/categories/{code}", h.deactivateCategory)
		r.Get("/api/catalog/subcategories", h.listSubcategories)
		r.Post("/api/catalog/subcategories", h.createSubcategory)
		r.Delete("/api/catalog/subcategories/{code}", h.deactivateSubcategory)
		r.Post("/api/catalog/services", h.upsertService)
		r.Get("/api/catalog/services/{code}", h.getService)
		r.Get("/api/catalog/services", h.searchServices)

		// Tenant pricing
		r.Get("/api/companies/{code}/services/{svc}/price", h.resolvePrice)
		r.Get("/api/companies/{code}/services/{svc}/override", h.getOverride)
		r.Put("/api/companies/{code}/services/{svc}/override", h.setOverride)
		r.Delete("/api/companies/{code}/services/{svc}/override", h.revertOverride)
		r.Get("/api/companies/{code}/overrides", h.listOverrides)

		// Rate book
		r.Put("/api/companies/{code}/rates/labor/default", h.setDefaultLaborRate)
		r.Post("/api/companies/{code}/rates/labor", h.addLaborRate)
		r.Get("/api/companies/{code}/rates/labor", h.listLaborRates)
		r.Put("/api/companies/{code}/rates/tax", h.setTaxRate)
		r.Get("/api/companies/{code}/rates/tax", h.listTaxRates)
		r.Put("/api/companies/{code}/tiers", h.setTiers)
		r.Get("/api/companies/{code}/tiers", h.getTiers)
		r.Put("/api/companies/{code}/discounts", h.setDiscountRule)
		r.Get("/api/companies/{code}/discounts", h.listDiscountRules)

		// History
		r.Get("/api/companies/{code}/history", h.queryHistory)
		r.Get("/api/companies/{code}/history/replay", h.replayPrice)

		// Documents
		r.Post("/api/companies/{code}/documents/price", h.priceDocument)
		r.Post("/api/companies/{code}/estimates", h.createEstimate)
		r.Get("/api/companies/{code}/estimates", h.listEstimates)
		r.Get("/api/companies/{code}/estimates/{id}", h.getEstimate)
		r.Post("/api/companies/{code}/estimates/{id}/send", h.estimateTransition(core.EstimateSent))
		r.Post("/api/companies/{code}/estimates/{id}/view", h.estimateTransition(core.EstimateViewed))
		r.Post("/api/companies/{code}/estimates/{id}/approve", h.estimateTransition(core.EstimateApproved))
		r.Post("/api/companies/{code}/estimates/{id}/reject", h.estimateTransition(core.EstimateRejected))
		r.Post("/api/companies/{code}/estimates/{id}/expire", h.estimateTransition(core.EstimateExpired))
		r.Post("/api/companies/{code}/estimates/{id}/convert", h.convertEstimate)
		r.Get("/api/companies/{code}/invoices/{id}", h.getInvoice)
		r.Post("/api/companies/{code}/invoices/{id}/send", h.invoiceTransition(core.InvoiceSent))
		r.Post("/api/companies/{code}/invoices/{id}/pay", h.invoiceTransition(core.InvoicePaid))
		r.Post("/api/companies/{code}/invoices/{id}/void", h.invoiceTransition(core.InvoiceVoid))
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// routePattern labels metrics with the chi routing pattern rather than the
// raw URL, keeping label cardinality bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// companyCode extracts the {code} URL parameter.
func companyCode(r *http.Request) string {
	return chi.URLParam(r, "code")
}

// actor extracts the acting user's identity from the X-Actor header.
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "anonymous"
}

// decodeJSON decodes the request body into v and returns false + writes an
// appropriate error response on failure. Returns HTTP 413 when the body
// exceeds the size limit set by RequestBodyLimit middleware; HTTP 400 for all
// other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
