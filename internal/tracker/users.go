package tracker

import (
	"context"
	"fmt"

	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// ListUsers returns every staff account.
func (s *Service) ListUsers(ctx context.Context, p permissions.Principal) ([]types.User, error) {
	if err := permissions.Require(p, permissions.UserView); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUserRole changes a user's role. The last SUPER_ADMIN cannot be demoted.
func (s *Service) UpdateUserRole(ctx context.Context, p permissions.Principal, userID string, role permissions.Role) (*types.User, error) {
	if err := permissions.Require(p, permissions.RoleAssign); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, invalid("role", "unknown role %q", role)
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if u == nil {
		return nil, notFound("user", userID)
	}
	if u.Role == role {
		return u, nil
	}

	if u.Role == permissions.RoleSuperAdmin {
		users, err := s.store.ListUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		admins := 0
		for _, other := range users {
			if other.Role == permissions.RoleSuperAdmin {
				admins++
			}
		}
		if admins <= 1 {
			return nil, invalid("role", "cannot demote the last %s", permissions.RoleSuperAdmin)
		}
	}

	u.Role = role
	u.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}
