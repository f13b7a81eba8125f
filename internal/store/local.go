package store

import (
	"context"
	_ "embed"
	"fmt"
)

// localStorageSchema creates the reserved key-value table. It is trusted
// SQL and safe to run through ExecuteScript.
//
//go:embed bootstrap.sql
var localStorageSchema string

// Local storage statements.
const (
	selectLocalValue = `SELECT value FROM local_storage WHERE key = ?`
	upsertLocalValue = `INSERT OR REPLACE INTO local_storage (key, value) VALUES (?, ?)`
	deleteLocalValue = `DELETE FROM local_storage WHERE key = ?`
)

// LocalValue looks up a value in the reserved local_storage table.
//
// Returns:
//   - string: The stored value
//   - bool: false when the key is absent (not an error)
//   - error: If the query fails, including when the table does not exist
func (e *executor) LocalValue(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := e.QueryFunc(ctx, selectLocalValue, []any{key}, func(cur *Cursor) error {
		if !cur.Next() {
			return nil
		}
		found = true
		return cur.Scan(&value)
	})
	if err != nil {
		return "", false, fmt.Errorf("reading local value: %w", err)
	}
	return value, found, nil
}

// SetLocalValue stores value under key, replacing any previous value.
func (e *executor) SetLocalValue(ctx context.Context, key, value string) error {
	if err := e.Execute(ctx, upsertLocalValue, key, value); err != nil {
		return fmt.Errorf("writing local value: %w", err)
	}
	return nil
}

// RemoveLocalValue deletes key. Removing an absent key is not an error.
func (e *executor) RemoveLocalValue(ctx context.Context, key string) error {
	if err := e.Execute(ctx, deleteLocalValue, key); err != nil {
		return fmt.Errorf("removing local value: %w", err)
	}
	return nil
}
