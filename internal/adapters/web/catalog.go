package web

import (
	"net/http"
	"strconv"

	"servicebook/internal/app"

	"github.com/go-chi/chi/v5"
)

// createCategory handles POST /api/catalog/categories.
// Body: { code, name, description?, sort_order? }
func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req app.CreateCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.CreateCategory(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Category)
}

// createSubcategory handles POST /api/catalog/subcategories.
// Body: { code, category_code, name, sort_order? }
func (h *Handler) createSubcategory(w http.ResponseWriter, r *http.Request) {
	var req app.CreateSubcategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.CreateSubcategory(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Subcategory)
}

// deactivateCategory handles DELETE /api/catalog/categories/{code}.
func (h *Handler) deactivateCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeactivateCategory(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// deactivateSubcategory handles DELETE /api/catalog/subcategories/{code}.
func (h *Handler) deactivateSubcategory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeactivateSubcategory(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listCategories handles GET /api/catalog/categories?include_inactive=.
func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	result, err := h.svc.ListCategories(r.Context(), includeInactive)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Categories)
}

// listSubcategories handles GET /api/catalog/subcategories?category=&include_inactive=.
func (h *Handler) listSubcategories(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	result, err := h.svc.ListSubcategories(r.Context(), r.URL.Query().Get("category"), includeInactive)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Subcategories)
}

// upsertService handles POST /api/catalog/services.
// Body: { code, category_code, subcategory_code?, name, description?, base_labor_hours, base_material_cost, base_price?, is_active? }
func (h *Handler) upsertService(w http.ResponseWriter, r *http.Request) {
	var req app.UpsertServiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Actor = actor(r)

	result, err := h.svc.UpsertMasterService(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Service)
}

// getService handles GET /api/catalog/services/{code}.
func (h *Handler) getService(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetMasterService(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Service)
}

// searchServices handles GET /api/catalog/services?category=&q=&page=&per_page=.
func (h *Handler) searchServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	result, err := h.svc.SearchServices(r.Context(), app.SearchServicesRequest{
		Text:         q.Get("q"),
		CategoryCode: q.Get("category"),
		ActiveOnly:   q.Get("include_inactive") != "true",
		Page:         page,
		PerPage:      perPage,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
