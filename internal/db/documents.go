package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func getDoc[T any](ctx context.Context, db *DB, table, id string) (*T, error) {
	var raw []byte
	err := db.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, table), id,
	).Scan(&raw)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s %s: %w", table, id, err)
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", table, id, err)
	}
	return &v, nil
}

func queryDocs[T any](ctx context.Context, db *DB, table, query string, args ...any) ([]T, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", table, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	return out, nil
}

func listDocs[T any](ctx context.Context, db *DB, table string) ([]T, error) {
	return queryDocs[T](ctx, db, table,
		fmt.Sprintf(`SELECT doc FROM %s ORDER BY created_at, id`, table))
}

func upsertSQL(table string) string {
	return fmt.Sprintf(
		`INSERT INTO %s (id, doc) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`, table)
}

func putDoc(ctx context.Context, db *DB, table, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", table, id, err)
	}
	if _, err := db.pool.Exec(ctx, upsertSQL(table), id, raw); err != nil {
		return fmt.Errorf("failed to save %s %s: %w", table, id, err)
	}
	return nil
}

// putDocs upserts a batch in one round trip.
func putDocs[T any](ctx context.Context, db *DB, table string, items []T, idOf func(T) string) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s: %w", table, idOf(item), err)
		}
		batch.Queue(upsertSQL(table), idOf(item), raw)
	}

	br := db.pool.SendBatch(ctx, batch)
	defer br.Close()
	for _, item := range items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to save %s %s: %w", table, idOf(item), err)
		}
	}
	return nil
}

func deleteDoc(ctx context.Context, db *DB, table, id string) error {
	if _, err := db.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", table, id, err)
	}
	return nil
}
