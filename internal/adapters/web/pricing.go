package web

import (
	"net/http"
	"time"

	"servicebook/internal/app"
	"servicebook/internal/core"

	"github.com/go-chi/chi/v5"
)

// resolvePrice handles GET /api/companies/{code}/services/{svc}/price?tier=&discounts=&include_hidden=.
// discounts is a repeatable query parameter.
func (h *Handler) resolvePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var discounts []core.DiscountKind
	for _, d := range q["discounts"] {
		discounts = append(discounts, core.DiscountKind(d))
	}

	result, err := h.svc.ResolvePrice(r.Context(), app.ResolvePriceRequest{
		CompanyCode:   companyCode(r),
		ServiceCode:   chi.URLParam(r, "svc"),
		Tier:          core.Tier(q.Get("tier")),
		Discounts:     discounts,
		IncludeHidden: q.Get("include_hidden") == "true",
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Breakdown)
}

// getOverride handles GET /api/companies/{code}/services/{svc}/override.
func (h *Handler) getOverride(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetOverride(r.Context(), companyCode(r), chi.URLParam(r, "svc"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if result.Override == nil {
		writeError(w, r, "no override for this service", "NOT_FOUND", http.StatusNotFound)
		return
	}
	writeJSON(w, result.Override)
}

// setOverride handles PUT /api/companies/{code}/services/{svc}/override.
// Body is a core.OverrideInput. A body that matches the baseline on every
// field deletes the override; the response then has a null override.
func (h *Handler) setOverride(w http.ResponseWriter, r *http.Request) {
	var input core.OverrideInput
	if !decodeJSON(w, r, &input) {
		return
	}

	result, err := h.svc.SetOverride(r.Context(), companyCode(r), chi.URLParam(r, "svc"), app.SetOverrideRequest{
		Input: input,
		Actor: actor(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// revertOverride handles DELETE /api/companies/{code}/services/{svc}/override.
func (h *Handler) revertOverride(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RevertOverride(r.Context(), companyCode(r), chi.URLParam(r, "svc"), actor(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listOverrides handles GET /api/companies/{code}/overrides.
func (h *Handler) listOverrides(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListOverrides(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Overrides)
}

// setDefaultLaborRate handles PUT /api/companies/{code}/rates/labor/default.
// Body: { name?, hourly_cost?, hourly_price }
func (h *Handler) setDefaultLaborRate(w http.ResponseWriter, r *http.Request) {
	var req app.SetLaborRateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyCode = companyCode(r)
	req.Actor = actor(r)

	result, err := h.svc.SetDefaultLaborRate(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// addLaborRate handles POST /api/companies/{code}/rates/labor.
// Body: { name, hourly_cost, hourly_price }
func (h *Handler) addLaborRate(w http.ResponseWriter, r *http.Request) {
	var req app.LaborRateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.AddLaborRate(r.Context(), companyCode(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Rate)
}

// listLaborRates handles GET /api/companies/{code}/rates/labor.
func (h *Handler) listLaborRates(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListLaborRates(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Rates)
}

// setTaxRate handles PUT /api/companies/{code}/rates/tax.
// Body: { name, rate, is_default? }
func (h *Handler) setTaxRate(w http.ResponseWriter, r *http.Request) {
	var req app.TaxRateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.SetTaxRate(r.Context(), companyCode(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Rate)
}

// listTaxRates handles GET /api/companies/{code}/rates/tax.
func (h *Handler) listTaxRates(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListTaxRates(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Rates)
}

// setTiers handles PUT /api/companies/{code}/tiers.
// Body: { good, better, best }
func (h *Handler) setTiers(w http.ResponseWriter, r *http.Request) {
	var req app.SetTiersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyCode = companyCode(r)
	req.Actor = actor(r)

	if err := h.svc.SetTierMultipliers(r.Context(), req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getTiers handles GET /api/companies/{code}/tiers.
func (h *Handler) getTiers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetTierProfile(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Profile)
}

// setDiscountRule handles PUT /api/companies/{code}/discounts.
// Body: { kind, percent, is_active? }
func (h *Handler) setDiscountRule(w http.ResponseWriter, r *http.Request) {
	var req app.DiscountRuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.SetDiscountRule(r.Context(), companyCode(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Rule)
}

// listDiscountRules handles GET /api/companies/{code}/discounts.
func (h *Handler) listDiscountRules(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListDiscountRules(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Rules)
}

// queryHistory handles GET /api/companies/{code}/history?service=&since=&until=&cause=.
func (h *Handler) queryHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.HistoryFilter{ServiceCode: q.Get("service")}

	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, r, "since must be RFC3339", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		filter.Since = &t
	}
	if s := q.Get("until"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, r, "until must be RFC3339", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		filter.Until = &t
	}
	if c := q.Get("cause"); c != "" {
		cause := core.ChangeCause(c)
		filter.Cause = &cause
	}

	result, err := h.svc.QueryHistory(r.Context(), companyCode(r), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Entries)
}

// replayPrice handles GET /api/companies/{code}/history/replay?service=&at=.
func (h *Handler) replayPrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	service := q.Get("service")
	if service == "" {
		writeError(w, r, "service is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	at, err := time.Parse(time.RFC3339, q.Get("at"))
	if err != nil {
		writeError(w, r, "at must be RFC3339", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.ReplayPrice(r.Context(), companyCode(r), service, at)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Triple)
}
