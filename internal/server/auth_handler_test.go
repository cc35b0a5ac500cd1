package server

import (
	"net/http"
	"testing"

	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_Register_Roles(t *testing.T) {
	env := newTestEnv(t, nil)

	first := env.register(t, "Alice Admin", "alice@church.org")
	assert.Equal(t, permissions.RoleSuperAdmin, first.User.Role)
	assert.NotEmpty(t, first.Token)
	assert.NotEmpty(t, first.RefreshToken)

	second := env.register(t, "Val Volunteer", "val@church.org")
	assert.Equal(t, permissions.RoleVolunteer, second.User.Role)
}

func TestAuthHandler_Register_Duplicate(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "Alice Admin", "alice@church.org")

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Other", "email": "ALICE@church.org", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthHandler_Register_ValidationErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name    string
		reqBody any
		field   string
	}{
		{name: "missing name", reqBody: map[string]string{"email": "test@example.com", "password": "password123"}, field: "name"},
		{name: "invalid email", reqBody: map[string]string{"name": "Test User", "email": "invalid-email", "password": "password123"}, field: "email"},
		{name: "missing email", reqBody: map[string]string{"name": "Test User", "password": "password123"}, field: "email"},
		{name: "password too short", reqBody: map[string]string{"name": "Test User", "email": "test@example.com", "password": "short"}, field: "password"},
		{name: "invalid json", reqBody: "invalid json", field: "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/register", "", tt.reqBody)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.field, decode[map[string]any](t, rec)["field"])
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "Alice Admin", "alice@church.org")

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@church.org", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[types.LoginResponse](t, rec)
	assert.Equal(t, "Alice Admin", resp.User.Name)
	assert.NotEmpty(t, resp.Token)
}

func TestAuthHandler_Login_GenericErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "Alice Admin", "alice@church.org")

	wrongPassword := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@church.org", "password": "wrong-password",
	})
	unknownEmail := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@church.org", "password": "password123",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestAuthHandler_PasswordHashNeverReturned(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Alice Admin", "email": "alice@church.org", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	token := decode[types.LoginResponse](t, rec).Token

	for _, body := range []string{
		rec.Body.String(),
		env.do(t, http.MethodGet, "/api/auth/me", token, nil).Body.String(),
		env.do(t, http.MethodGet, "/api/users", token, nil).Body.String(),
	} {
		assert.NotContains(t, body, "$2a$")
		assert.NotContains(t, body, "password")
	}
}

func TestAuthHandler_Me(t *testing.T) {
	env := newTestEnv(t, nil)
	_, token := env.userWithRole(t, "Lee Leader", "lee@church.org", permissions.RoleTeamLeader)

	rec := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[MeResponse](t, rec)
	assert.Equal(t, permissions.RoleTeamLeader, me.User.Role)
	assert.Contains(t, me.Permissions, permissions.MessageAIDraft)
	assert.NotContains(t, me.Permissions, permissions.MemberDelete)
}

func TestAuthHandler_Refresh_Rotates(t *testing.T) {
	env := newTestEnv(t, nil)
	first := env.register(t, "Alice Admin", "alice@church.org")

	rec := env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": first.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := decode[types.LoginResponse](t, rec)
	assert.NotEqual(t, first.RefreshToken, next.RefreshToken)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/auth/me", next.Token, nil).Code)

	// The old refresh token was revoked by the rotation.
	rec = env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_Refresh_RejectsAccessToken(t *testing.T) {
	env := newTestEnv(t, nil)
	first := env.register(t, "Alice Admin", "alice@church.org")

	rec := env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": first.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Refresh tokens are not accepted as bearer tokens either.
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/auth/me", first.RefreshToken, nil).Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	env := newTestEnv(t, nil)
	first := env.register(t, "Alice Admin", "alice@church.org")

	rec := env.do(t, http.MethodPost, "/api/auth/logout", "", map[string]string{"refresh_token": first.RefreshToken})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, decode[map[string]any](t, rec)["error"], "revoked")

	rec = env.do(t, http.MethodPost, "/api/auth/logout", "", map[string]string{"refresh_token": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_UpdatePassword(t *testing.T) {
	env := newTestEnv(t, nil)
	first := env.register(t, "Alice Admin", "alice@church.org")

	tests := []struct {
		name   string
		token  string
		body   map[string]string
		status int
	}{
		{"no token", "", map[string]string{"current_password": "password123", "new_password": "newpassword1"}, http.StatusUnauthorized},
		{"extra auth scheme", "Token " + first.Token, nil, http.StatusUnauthorized},
		{"wrong current", first.Token, map[string]string{"current_password": "nope", "new_password": "newpassword1"}, http.StatusUnauthorized},
		{"too short", first.Token, map[string]string{"current_password": "password123", "new_password": "short"}, http.StatusBadRequest},
		{"success", first.Token, map[string]string{"current_password": "password123", "new_password": "newpassword1"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPut, "/api/auth/password", tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@church.org", "password": "newpassword1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}
