package permissions

import "fmt"

// Principal is the acting user on whose behalf a command runs.
type Principal struct {
	UserID string
	Role   Role
}

// Can reports whether the principal holds perm.
func (p Principal) Can(perm Permission) bool {
	return HasPermission(p.Role, perm)
}

// ErrUnauthorized is returned when a principal lacks a required permission.
type ErrUnauthorized struct {
	Role       Role
	Permission Permission
}

func (e *ErrUnauthorized) Error() string {
	return fmt.Sprintf("role %s lacks permission %s", e.Role, e.Permission)
}

// Require fails closed: it returns *ErrUnauthorized naming the first missing permission.
func Require(p Principal, perms ...Permission) error {
	for _, perm := range perms {
		if !HasPermission(p.Role, perm) {
			return &ErrUnauthorized{Role: p.Role, Permission: perm}
		}
	}
	return nil
}

// RequireAny succeeds when the principal holds at least one of perms.
func RequireAny(p Principal, perms ...Permission) error {
	if len(perms) == 0 || HasAnyPermission(p.Role, perms...) {
		return nil
	}
	return &ErrUnauthorized{Role: p.Role, Permission: perms[0]}
}
