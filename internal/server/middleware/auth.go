// Package middleware provides HTTP middleware for authentication and authorization.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jonathan/pathway-tracker/internal/permissions"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// principalKey is the context key for the authenticated principal.
const principalKey ContextKey = "principal"

// ErrNoPrincipal is returned when a request carries no authenticated principal.
var ErrNoPrincipal = errors.New("principal not found in request context")

// TokenValidator validates access tokens.
// This allows the middleware to work with any JWT service implementation.
type TokenValidator interface {
	ValidateToken(tokenString string) (UserIDGetter, error)
}

// UserIDGetter extracts the user id from token claims.
type UserIDGetter interface {
	GetUserID() string
}

// PrincipalLoader resolves the current role of a token's user. It returns
// nil when the user no longer exists.
type PrincipalLoader func(ctx context.Context, userID string) (*permissions.Principal, error)

// AuthMiddleware validates the bearer token, loads the user's principal and
// stores it in the request context.
func AuthMiddleware(validator TokenValidator, load PrincipalLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			principal, err := load(r.Context(), claims.GetUserID())
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to load user")
				return
			}
			if principal == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *principal)))
		})
	}
}

// bearerToken extracts the token from a case-insensitive "Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// RequirePermission rejects requests whose principal lacks any of perms.
// It must run after AuthMiddleware.
func RequirePermission(perms ...permissions.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := GetPrincipal(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if err := permissions.Require(p, perms...); err != nil {
				writeError(w, http.StatusForbidden, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p permissions.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal extracts the authenticated principal from the request context.
func GetPrincipal(r *http.Request) (permissions.Principal, error) {
	p, ok := r.Context().Value(principalKey).(permissions.Principal)
	if !ok {
		return permissions.Principal{}, ErrNoPrincipal
	}
	return p, nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
