package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gatherly/server/internal/audit"
)

// Audit attaches the audit logger to every request context so domain
// services can record coded entries.
func Audit(logger zerolog.Logger) func(http.Handler) http.Handler {
	auditLogger := audit.NewLogger(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(audit.WithLogger(r.Context(), auditLogger)))
		})
	}
}
