package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-tracker/internal/config"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// UserStore is the persistence the account flows need.
type UserStore interface {
	store.Users
	store.Tokens
}

// UserService provides business logic for user authentication operations
type UserService struct {
	store          UserStore
	passwordConfig *config.PasswordConfig
	now            func() time.Time
}

// NewUserService creates a new UserService with the given dependencies
func NewUserService(st UserStore, passwordConfig *config.PasswordConfig) *UserService {
	return &UserService{
		store:          st,
		passwordConfig: passwordConfig,
		now:            time.Now,
	}
}

// Register creates a new staff account. The first account becomes
// SUPER_ADMIN; later ones start as VOLUNTEER until promoted.
func (s *UserService) Register(ctx context.Context, req *types.CreateUserRequest) (*types.User, error) {
	email := strings.TrimSpace(req.Email)
	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if existing != nil {
		return nil, &ErrEmailAlreadyExists{Email: email}
	}

	passwordHash, err := s.passwordConfig.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	role := permissions.RoleVolunteer
	if count == 0 {
		role = permissions.RoleSuperAdmin
	}

	now := s.now()
	user := &types.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, &ErrEmailAlreadyExists{Email: email}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login authenticates a user and returns user data
func (s *UserService) Login(ctx context.Context, req *types.LoginRequest) (*types.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	// Same error for unknown email and wrong password.
	if user == nil {
		return nil, &ErrInvalidCredentials{}
	}
	if !s.passwordConfig.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}
	return user, nil
}

// GetUser returns the account for userID.
func (s *UserService) GetUser(ctx context.Context, userID string) (*types.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, &ErrUserNotFound{UserID: userID}
	}
	return user, nil
}

// UpdatePassword updates a user's password
func (s *UserService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if !s.passwordConfig.VerifyPassword(currentPassword, user.PasswordHash) {
		return &ErrPasswordMismatch{}
	}

	newPasswordHash, err := s.passwordConfig.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	user.PasswordHash = newPasswordHash
	user.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// CheckRefresh verifies that a refresh token has not been revoked and that
// its user still exists.
func (s *UserService) CheckRefresh(ctx context.Context, claims *Claims) (*types.User, error) {
	revoked, err := s.store.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token: %w", err)
	}
	if revoked {
		return nil, &ErrInvalidToken{Reason: "revoked"}
	}
	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, &ErrInvalidToken{Reason: "unknown user"}
	}
	return user, nil
}

// Revoke blocks a refresh token until it would have expired anyway.
func (s *UserService) Revoke(ctx context.Context, claims *Claims) error {
	expires := s.now()
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := s.store.RevokeToken(ctx, claims.ID, expires); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// LoadPrincipal resolves the current role for userID, or nil when the
// account is gone.
func (s *UserService) LoadPrincipal(ctx context.Context, userID string) (*permissions.Principal, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return &permissions.Principal{UserID: user.ID, Role: user.Role}, nil
}
