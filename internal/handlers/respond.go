package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PaddyOakTree/ai-project-planner/internal/models"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errorStatus maps the engine's error taxonomy to a status code and a
// stable machine-readable code string.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrPermissionDenied):
		return http.StatusForbidden, "permission_denied"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrAlreadyMember):
		return http.StatusConflict, "already_member"
	case errors.Is(err, models.ErrDuplicatePending):
		return http.StatusConflict, "duplicate_pending"
	case errors.Is(err, models.ErrAlreadyResolved):
		return http.StatusConflict, "already_resolved"
	case errors.Is(err, models.ErrExpired):
		return http.StatusGone, "expired"
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	respondWithJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

func respondBadRequest(w http.ResponseWriter, message string) {
	respondWithJSON(w, http.StatusBadRequest, errorBody{Error: message, Code: "invalid_input"})
}
