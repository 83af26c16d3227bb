package handlers

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/gatherly/server/internal/api/problem"
	"github.com/gatherly/server/internal/auth"
)

const problemUnauthorized = "https://gatherly.example.com/problems/unauthorized"

// Auth serves the login route.
type Auth struct {
	Users   auth.UserStore
	Manager *auth.JWTManager
	Env     string
}

func NewAuth(users auth.UserStore, manager *auth.JWTManager, env string) *Auth {
	return &Auth{Users: users, Manager: manager, Env: env}
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if !decodeJSON(w, r, h.Env, &input) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		problem.Write(w, r, http.StatusUnauthorized, problemUnauthorized, "Invalid credentials", nil, h.Env)
		return
	}

	user, err := h.Users.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			// Same response as a bad password so the route does not leak
			// which emails exist.
			problem.Write(w, r, http.StatusUnauthorized, problemUnauthorized, "Invalid credentials", nil, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problemServerError, "Failed to log in", err, h.Env)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problemUnauthorized, "Invalid credentials", nil, h.Env)
		return
	}

	token, err := h.Manager.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problemServerError, "Failed to issue token", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token: token,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	})
}
