package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"servicebook/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONStatus writes a JSON response with an explicit status code.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps core sentinel errors to HTTP responses. Unmatched
// errors become opaque 500s; the detail stays in the server log only.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrHidden):
		writeError(w, r, err.Error(), "HIDDEN", http.StatusNotFound)
	case errors.Is(err, core.ErrNoHistory):
		writeError(w, r, err.Error(), "NO_HISTORY", http.StatusNotFound)
	case errors.Is(err, core.ErrCodeConflict):
		writeError(w, r, err.Error(), "CODE_CONFLICT", http.StatusConflict)
	case errors.Is(err, core.ErrAlreadyInProgress):
		writeError(w, r, err.Error(), "ALREADY_IN_PROGRESS", http.StatusConflict)
	case errors.Is(err, core.ErrInvalidTransition):
		writeError(w, r, err.Error(), "INVALID_TRANSITION", http.StatusConflict)
	case errors.Is(err, core.ErrInvalidCode),
		errors.Is(err, core.ErrInvalidCodeHierarchy),
		errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrImmutableFieldChange):
		writeError(w, r, err.Error(), "VALIDATION", http.StatusUnprocessableEntity)
	case errors.Is(err, core.ErrConfiguration),
		errors.Is(err, core.ErrTaxRateMissing):
		writeError(w, r, err.Error(), "CONFIGURATION", http.StatusUnprocessableEntity)
	default:
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
