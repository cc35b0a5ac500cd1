package db

import (
	"context"
	"fmt"

	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// GetMember retrieves a member by ID
func (db *DB) GetMember(ctx context.Context, id string) (*types.Member, error) {
	return getDoc[types.Member](ctx, db, tableMembers, id)
}

// ListMembers returns members matching the filter. Indexed fields are
// filtered in SQL; tag and search are applied to the decoded records.
func (db *DB) ListMembers(ctx context.Context, f store.MemberFilter) ([]types.Member, error) {
	query := `SELECT doc FROM members WHERE 1=1`
	args := []any{}
	argNum := 1

	for _, c := range []struct {
		field string
		value string
	}{
		{"assigned_to_id", f.AssignedToID},
		{"pathway", string(f.Pathway)},
		{"current_stage_id", f.StageID},
		{"status", string(f.Status)},
	} {
		if c.value == "" {
			continue
		}
		query += fmt.Sprintf(" AND doc->>'%s' = $%d", c.field, argNum)
		args = append(args, c.value)
		argNum++
	}
	query += " ORDER BY created_at, id"

	members, err := queryDocs[types.Member](ctx, db, tableMembers, query, args...)
	if err != nil {
		return nil, err
	}
	out := members[:0]
	for _, m := range members {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// SaveMember upserts a member.
func (db *DB) SaveMember(ctx context.Context, m *types.Member) error {
	return putDoc(ctx, db, tableMembers, m.ID, m)
}

// SaveMembers upserts members in one batch.
func (db *DB) SaveMembers(ctx context.Context, ms []types.Member) error {
	return putDocs(ctx, db, tableMembers, ms, func(m types.Member) string { return m.ID })
}

// DeleteMember removes a member. Tasks referencing it are left in place.
func (db *DB) DeleteMember(ctx context.Context, id string) error {
	return deleteDoc(ctx, db, tableMembers, id)
}

// GetTask retrieves a task by ID
func (db *DB) GetTask(ctx context.Context, id string) (*types.Task, error) {
	return getDoc[types.Task](ctx, db, tableTasks, id)
}

// ListTasks returns tasks matching the filter.
func (db *DB) ListTasks(ctx context.Context, f store.TaskFilter) ([]types.Task, error) {
	query := `SELECT doc FROM tasks WHERE 1=1`
	args := []any{}
	argNum := 1

	if f.MemberID != "" {
		query += fmt.Sprintf(" AND doc->>'member_id' = $%d", argNum)
		args = append(args, f.MemberID)
		argNum++
	}
	if f.AssignedToID != "" {
		query += fmt.Sprintf(" AND doc->>'assigned_to_id' = $%d", argNum)
		args = append(args, f.AssignedToID)
		argNum++
	}
	if f.Completed != nil {
		query += fmt.Sprintf(" AND (doc->>'completed')::boolean = $%d", argNum)
		args = append(args, *f.Completed)
	}
	query += " ORDER BY created_at, id"

	return queryDocs[types.Task](ctx, db, tableTasks, query, args...)
}

// SaveTask upserts a task.
func (db *DB) SaveTask(ctx context.Context, t *types.Task) error {
	return putDoc(ctx, db, tableTasks, t.ID, t)
}

// SaveTasks upserts tasks in one batch.
func (db *DB) SaveTasks(ctx context.Context, ts []types.Task) error {
	return putDocs(ctx, db, tableTasks, ts, func(t types.Task) string { return t.ID })
}

// DeleteTask removes a task.
func (db *DB) DeleteTask(ctx context.Context, id string) error {
	return deleteDoc(ctx, db, tableTasks, id)
}
