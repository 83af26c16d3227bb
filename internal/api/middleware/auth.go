package middleware

import (
	"errors"
	"net/http"

	"github.com/gatherly/server/internal/api/problem"
	"github.com/gatherly/server/internal/auth"
)

// Authenticate resolves a bearer token into an identity on the request
// context. Requests without a token pass through anonymous; an invalid
// token is rejected so a caller never proceeds with a half-broken
// credential.
func Authenticate(manager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if errors.Is(err, auth.ErrMissingToken) {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := manager.Validate(token)
			if err != nil {
				problem.WriteProblem(w, problem.ProblemDetails{
					Type:   "https://gatherly.example.com/problems/unauthorized",
					Title:  "Invalid token",
					Status: http.StatusUnauthorized,
				})
				return
			}

			identity := auth.Identity{
				UserID:        claims.Subject,
				Email:         claims.Email,
				Name:          claims.Name,
				Role:          string(auth.NormalizeRole(claims.Role)),
				Authenticated: true,
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAuth rejects anonymous requests. Used on routes where the
// handler has no meaningful anonymous behavior.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := auth.IdentityFromContext(r.Context())
		if !identity.Authenticated {
			problem.WriteProblem(w, problem.ProblemDetails{
				Type:   "https://gatherly.example.com/problems/unauthorized",
				Title:  "Authentication required",
				Status: http.StatusUnauthorized,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
