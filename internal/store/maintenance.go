package store

import (
	"context"
	"fmt"
)

// Schema catalog queries.
const (
	selectTables = `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		ORDER BY name`

	selectSchemaObjects = `SELECT type, name FROM sqlite_master
		WHERE type IN ('view', 'trigger', 'index') AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		ORDER BY CASE type WHEN 'view' THEN 0 WHEN 'trigger' THEN 1 ELSE 2 END, name`

	countSequenceTable = `SELECT count(*) AS count FROM sqlite_master
		WHERE type = 'table' AND name = 'sqlite_sequence'`
)

// SchemaVersion returns the engine's persisted schema version (PRAGMA user_version).
func (e *executor) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := e.QueryFunc(ctx, "PRAGMA user_version", nil, func(cur *Cursor) error {
		if cur.Next() {
			return cur.Scan(&version)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// SetSchemaVersion stores the schema version used by external migration logic.
func (e *executor) SetSchemaVersion(ctx context.Context, version int) error {
	// PRAGMA values cannot be bound; version is an int so formatting is safe.
	if err := e.Execute(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}
	e.notify(EventSchemaVersionChanged, map[string]any{"version": version})
	return nil
}

// Tables returns the user table names, excluding the engine's sqlite_* tables.
// The result is a snapshot and is never cached.
func (e *executor) Tables(ctx context.Context) ([]string, error) {
	var tables []string
	err := e.QueryFunc(ctx, selectTables, nil, func(cur *Cursor) error {
		for cur.Next() {
			var name string
			if err := cur.Scan(&name); err != nil {
				return err
			}
			tables = append(tables, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return tables, nil
}

// destroyEverything drops every user table, view, trigger and index,
// clears AUTOINCREMENT counters and resets the schema version to 0.
// The caller provides the transaction scope.
func (e *executor) destroyEverything(ctx context.Context) error {
	tables, err := e.Tables(ctx)
	if err != nil {
		return err
	}

	// Views and triggers that reference a table survive DROP TABLE, so they
	// are collected after the tables are gone.
	for _, table := range tables {
		if err := e.Execute(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
			return fmt.Errorf("dropping table %s: %w", table, err)
		}
	}

	type schemaObject struct{ kind, name string }
	var objects []schemaObject
	err = e.QueryFunc(ctx, selectSchemaObjects, nil, func(cur *Cursor) error {
		for cur.Next() {
			var obj schemaObject
			if err := cur.Scan(&obj.kind, &obj.name); err != nil {
				return err
			}
			objects = append(objects, obj)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing schema objects: %w", err)
	}

	for _, obj := range objects {
		stmt := fmt.Sprintf("DROP %s IF EXISTS %s", dropKeyword(obj.kind), quoteIdent(obj.name))
		if err := e.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("dropping %s %s: %w", obj.kind, obj.name, err)
		}
	}

	sequences, err := e.Count(ctx, countSequenceTable)
	if err != nil {
		return err
	}
	if sequences > 0 {
		if err := e.Execute(ctx, "DELETE FROM sqlite_sequence"); err != nil {
			return fmt.Errorf("clearing sequences: %w", err)
		}
	}

	if err := e.Execute(ctx, "PRAGMA user_version = 0"); err != nil {
		return fmt.Errorf("resetting schema version: %w", err)
	}
	return nil
}

func dropKeyword(kind string) string {
	switch kind {
	case "view":
		return "VIEW"
	case "trigger":
		return "TRIGGER"
	default:
		return "INDEX"
	}
}
