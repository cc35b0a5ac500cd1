package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/pathway-tracker/internal/types"
)

// ListForms returns every form.
func (db *DB) ListForms(ctx context.Context) ([]types.Form, error) {
	return listDocs[types.Form](ctx, db, tableForms)
}

// GetForm retrieves a form by ID
func (db *DB) GetForm(ctx context.Context, id string) (*types.Form, error) {
	return getDoc[types.Form](ctx, db, tableForms, id)
}

// SaveForm upserts a form.
func (db *DB) SaveForm(ctx context.Context, f *types.Form) error {
	return putDoc(ctx, db, tableForms, f.ID, f)
}

// DeleteForm removes a form. Its submissions are kept.
func (db *DB) DeleteForm(ctx context.Context, id string) error {
	return deleteDoc(ctx, db, tableForms, id)
}

// SaveSubmission stores a form submission.
func (db *DB) SaveSubmission(ctx context.Context, s *types.Submission) error {
	return putDoc(ctx, db, tableSubmissions, s.ID, s)
}

// ListSubmissions returns a form's submissions, oldest first.
func (db *DB) ListSubmissions(ctx context.Context, formID string) ([]types.Submission, error) {
	return queryDocs[types.Submission](ctx, db, tableSubmissions,
		`SELECT doc FROM form_submissions WHERE doc->>'form_id' = $1 ORDER BY created_at, id`, formID)
}

// ListCourses returns every course.
func (db *DB) ListCourses(ctx context.Context) ([]types.Course, error) {
	return listDocs[types.Course](ctx, db, tableCourses)
}

// GetCourse retrieves a course by ID
func (db *DB) GetCourse(ctx context.Context, id string) (*types.Course, error) {
	return getDoc[types.Course](ctx, db, tableCourses, id)
}

// SaveCourse upserts a course.
func (db *DB) SaveCourse(ctx context.Context, c *types.Course) error {
	return putDoc(ctx, db, tableCourses, c.ID, c)
}

func progressID(userID, courseID string) string {
	return userID + "/" + courseID
}

// GetProgress returns a user's progress in a course.
func (db *DB) GetProgress(ctx context.Context, userID, courseID string) (*types.Progress, error) {
	return getDoc[types.Progress](ctx, db, tableProgress, progressID(userID, courseID))
}

// SaveProgress upserts a progress record.
func (db *DB) SaveProgress(ctx context.Context, p *types.Progress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO course_progress (id, user_id, doc) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,
		progressID(p.UserID, p.CourseID), p.UserID, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// ListProgress returns every progress record of a user.
func (db *DB) ListProgress(ctx context.Context, userID string) ([]types.Progress, error) {
	return queryDocs[types.Progress](ctx, db, tableProgress,
		`SELECT doc FROM course_progress WHERE user_id = $1 ORDER BY created_at, id`, userID)
}

// RevokeToken records a revoked refresh token id and prunes expired entries.
func (db *DB) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < NOW()`); err != nil {
		return fmt.Errorf("failed to prune revoked tokens: %w", err)
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES ($1, $2) ON CONFLICT (jti) DO NOTHING`,
		jti, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether a refresh token id was revoked.
func (db *DB) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)`, jti,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return revoked, nil
}
