package web

import (
	"net/http"
	"strconv"

	"servicebook/internal/app"
	"servicebook/internal/core"

	"github.com/go-chi/chi/v5"
)

// priceDocument handles POST /api/companies/{code}/documents/price.
// Body is a core.PriceDocumentRequest. Nothing is persisted; the response is
// the fully priced document with per-line errors for unknown codes.
func (h *Handler) priceDocument(w http.ResponseWriter, r *http.Request) {
	var req core.PriceDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.PriceDocument(r.Context(), companyCode(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Document)
}

// createEstimate handles POST /api/companies/{code}/estimates.
// Body: { customer_id?, document: { lines, tier?, discounts?, tax_rate? } }
func (h *Handler) createEstimate(w http.ResponseWriter, r *http.Request) {
	var req app.CreateEstimateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Document.Lines) == 0 {
		writeError(w, r, "at least one line is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.CreateEstimate(r.Context(), companyCode(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Estimate)
}

// getEstimate handles GET /api/companies/{code}/estimates/{id}.
func (h *Handler) getEstimate(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetEstimate(r.Context(), companyCode(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Estimate)
}

// listEstimates handles GET /api/companies/{code}/estimates?status=.
func (h *Handler) listEstimates(w http.ResponseWriter, r *http.Request) {
	var statusPtr *core.EstimateStatus
	if s := r.URL.Query().Get("status"); s != "" {
		status := core.EstimateStatus(s)
		statusPtr = &status
	}
	result, err := h.svc.ListEstimates(r.Context(), companyCode(r), statusPtr)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Estimates)
}

// estimateTransition returns a handler that moves an estimate to the given
// status, e.g. POST /api/companies/{code}/estimates/{id}/approve.
func (h *Handler) estimateTransition(to core.EstimateStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := documentID(w, r)
		if !ok {
			return
		}
		result, err := h.svc.TransitionEstimate(r.Context(), companyCode(r), id, to)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, result.Estimate)
	}
}

// convertEstimate handles POST /api/companies/{code}/estimates/{id}/convert.
func (h *Handler) convertEstimate(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ConvertToInvoice(r.Context(), companyCode(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Invoice)
}

// getInvoice handles GET /api/companies/{code}/invoices/{id}.
func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetInvoice(r.Context(), companyCode(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Invoice)
}

// invoiceTransition returns a handler that moves an invoice to the given
// status, e.g. POST /api/companies/{code}/invoices/{id}/pay.
func (h *Handler) invoiceTransition(to core.InvoiceStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := documentID(w, r)
		if !ok {
			return
		}
		result, err := h.svc.TransitionInvoice(r.Context(), companyCode(r), id, to)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, result.Invoice)
	}
}

// documentID parses the {id} URL parameter, writing a 400 on failure.
func documentID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		writeError(w, r, "id must be a positive integer", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
