package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// CreateUser inserts a new staff account.
func (db *DB) CreateUser(ctx context.Context, u *types.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, doc) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.PasswordHash, raw,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (db *DB) scanUser(ctx context.Context, where string, arg any) (*types.User, error) {
	var raw []byte
	var hash string
	err := db.pool.QueryRow(ctx,
		`SELECT doc, password_hash FROM users WHERE `+where, arg,
	).Scan(&raw, &hash)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var u types.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	u.PasswordHash = hash
	return &u, nil
}

// GetUser retrieves a user by ID
func (db *DB) GetUser(ctx context.Context, id string) (*types.User, error) {
	return db.scanUser(ctx, "id = $1", id)
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	if email == "" {
		return nil, nil
	}
	return db.scanUser(ctx, "lower(email) = lower($1)", email)
}

// ListUsers returns every user in creation order.
func (db *DB) ListUsers(ctx context.Context) ([]types.User, error) {
	return listDocs[types.User](ctx, db, tableUsers)
}

// UpdateUser rewrites the user document and password hash.
func (db *DB) UpdateUser(ctx context.Context, u *types.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`UPDATE users SET email = $2, password_hash = $3, doc = $4, updated_at = NOW() WHERE id = $1`,
		u.ID, u.Email, u.PasswordHash, raw,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// CountUsers returns the number of registered users.
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
