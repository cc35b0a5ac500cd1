package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/server/middleware"
	"github.com/jonathan/pathway-tracker/internal/types"
	"go.uber.org/zap"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	userService *UserService
	jwtService  *JWTService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(userService *UserService, jwtService *JWTService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &AuthHandler{
		userService: userService,
		jwtService:  jwtService,
		validator:   v,
		logger:      logger,
	}
}

// MeResponse describes the caller's account and effective permissions.
type MeResponse struct {
	User        *types.User              `json:"user"`
	Permissions []permissions.Permission `json:"permissions"`
}

// Register handles user registration requests.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	h.issue(w, http.StatusCreated, user)
}

// Login handles user login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.issue(w, http.StatusOK, user)
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked so it cannot be replayed.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req types.RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	claims, err := h.jwtService.ValidateToken(req.RefreshToken, TokenTypeRefresh)
	if err != nil {
		h.fail(w, &ErrInvalidToken{Reason: err.Error()})
		return
	}
	user, err := h.userService.CheckRefresh(r.Context(), claims)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.userService.Revoke(r.Context(), claims); err != nil {
		h.fail(w, err)
		return
	}
	h.issue(w, http.StatusOK, user)
}

// Logout revokes a refresh token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req types.RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	claims, err := h.jwtService.ValidateToken(req.RefreshToken, TokenTypeRefresh)
	if err != nil {
		h.fail(w, &ErrInvalidToken{Reason: err.Error()})
		return
	}
	if err := h.userService.Revoke(r.Context(), claims); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user with their permissions.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := middleware.GetPrincipal(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	user, err := h.userService.GetUser(r.Context(), p.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, MeResponse{User: user, Permissions: permissions.For(user.Role)})
}

// UpdatePassword changes the authenticated user's password.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	p, err := middleware.GetPrincipal(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req types.UpdatePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.userService.UpdatePassword(r.Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

func (h *AuthHandler) issue(w http.ResponseWriter, status int, user *types.User) {
	pair, err := h.jwtService.GenerateTokenPair(user.ID)
	if err != nil {
		h.fail(w, fmt.Errorf("generate tokens: %w", err))
		return
	}
	h.respond(w, status, types.LoginResponse{
		User:         user,
		Token:        pair.Access,
		RefreshToken: pair.Refresh,
	})
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		h.fail(w, &ErrValidation{Field: "body", Message: "invalid request body"})
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.fail(w, extractValidationErrors(err))
		return false
	}
	return true
}

func (h *AuthHandler) fail(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("auth request failed", zap.Error(err))
	}
	h.respond(w, status, errorBody(err, status))
}

func (h *AuthHandler) respond(w http.ResponseWriter, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		h.logger.Warn("encode response", zap.Error(err))
	}
}

// extractValidationErrors converts the first validator failure into an ErrValidation.
func extractValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		msg := ve.Tag()
		if ve.Param() != "" {
			msg += "=" + ve.Param()
		}
		return &ErrValidation{Field: ve.Field(), Message: msg}
	}
	return &ErrValidation{Field: "body", Message: "invalid request"}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

// writeJSON writes data as a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}
