package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTokenValidator maps fixed token strings to user ids.
type testTokenValidator struct {
	validTokens map[string]string
}

func (v *testTokenValidator) ValidateToken(tokenString string) (UserIDGetter, error) {
	userID, ok := v.validTokens[tokenString]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return testClaims(userID), nil
}

type testClaims string

func (c testClaims) GetUserID() string { return string(c) }

func testLoader(roles map[string]permissions.Role) PrincipalLoader {
	return func(_ context.Context, userID string) (*permissions.Principal, error) {
		if userID == "broken" {
			return nil, errors.New("db down")
		}
		role, ok := roles[userID]
		if !ok {
			return nil, nil
		}
		return &permissions.Principal{UserID: userID, Role: role}, nil
	}
}

func newAuth() func(http.Handler) http.Handler {
	validator := &testTokenValidator{validTokens: map[string]string{
		"admin-token":  "u-admin",
		"vol-token":    "u-vol",
		"ghost-token":  "u-ghost",
		"broken-token": "broken",
	}}
	return AuthMiddleware(validator, testLoader(map[string]permissions.Role{
		"u-admin": permissions.RoleAdmin,
		"u-vol":   permissions.RoleVolunteer,
	}))
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	var got permissions.Principal
	handler := newAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := GetPrincipal(r)
		require.NoError(t, err)
		got = p
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "bearer admin-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, permissions.Principal{UserID: "u-admin", Role: permissions.RoleAdmin}, got)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic admin-token", http.StatusUnauthorized},
		{"extra parts", "Bearer admin-token extra", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"deleted user", "Bearer ghost-token", http.StatusUnauthorized},
		{"loader failure", "Bearer broken-token", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := newAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.False(t, called)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestRequirePermission(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := newAuth()(RequirePermission(permissions.MemberViewAll)(ok))

	tests := []struct {
		token  string
		status int
	}{
		{"admin-token", http.StatusNoContent},
		{"vol-token", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRequirePermission_WithoutAuth(t *testing.T) {
	handler := RequirePermission(permissions.MemberView)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run")
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetPrincipal_Missing(t *testing.T) {
	_, err := GetPrincipal(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoPrincipal)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	p := permissions.Principal{UserID: "u-1", Role: permissions.RoleVolunteer}
	req = req.WithContext(WithPrincipal(req.Context(), p))
	got, err := GetPrincipal(req)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}
