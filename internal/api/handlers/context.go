package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gatherly/server/internal/api/problem"
	"github.com/gatherly/server/internal/domain/events"
	"github.com/gatherly/server/internal/domain/registrations"
)

const (
	problemNotFound    = "https://gatherly.example.com/problems/not-found"
	problemForbidden   = "https://gatherly.example.com/problems/forbidden"
	problemValidation  = "https://gatherly.example.com/problems/validation-error"
	problemServerError = "https://gatherly.example.com/problems/server-error"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.PathValue(key))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, env string, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problemValidation, "Invalid request body", err, env)
		return false
	}
	return true
}

// writeDomainError maps the shared domain error set onto problem+json.
// Returns false when the error was not one of the known kinds so the
// caller can handle it as a server error.
func writeDomainError(w http.ResponseWriter, r *http.Request, env string, err error) bool {
	switch {
	case errors.Is(err, events.ErrNotFound), errors.Is(err, registrations.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problemNotFound, "Not found", err, env)
	case errors.Is(err, events.ErrForbidden), errors.Is(err, registrations.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, problemForbidden, "Forbidden", err, env)
	default:
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, r *http.Request, env string, fields map[string]string) {
	errs := make(map[string]any, len(fields))
	for field, msg := range fields {
		errs[field] = msg
	}
	problem.Write(w, r, http.StatusUnprocessableEntity, problemValidation,
		"Validation failed", nil, env, problem.WithErrors(errs))
}
