package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Executor is the statement surface shared by *Connection and *Tx.
type Executor interface {
	Execute(ctx context.Context, query string, args ...any) error
	ExecuteScript(ctx context.Context, script string) error
	Query(ctx context.Context, query string, args ...any) (*Cursor, error)
	QueryFunc(ctx context.Context, query string, args []any, fn func(*Cursor) error) error
	Count(ctx context.Context, query string, args ...any) (int, error)

	SchemaVersion(ctx context.Context) (int, error)
	SetSchemaVersion(ctx context.Context, version int) error
	Tables(ctx context.Context) ([]string, error)
	DestroyEverything(ctx context.Context) error

	EnsureLocalStorage(ctx context.Context) error
	LocalValue(ctx context.Context, key string) (string, bool, error)
	SetLocalValue(ctx context.Context, key, value string) error
	RemoveLocalValue(ctx context.Context, key string) error
}

var (
	_ Executor = (*Connection)(nil)
	_ Executor = (*Tx)(nil)
)

// querier is implemented by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// executor runs bound statements against a querier and reports them to hooks.
type executor struct {
	q      querier
	name   string
	hooks  Hooks
	logger Logger

	// notify delivers lifecycle events. Connections emit immediately;
	// transactions hold events until commit.
	notify func(kind EventKind, attrs map[string]any)
}

// Execute binds args and runs a statement that returns no rows.
//
// Returns:
//   - error: *BindTypeError before execution, or *ExecError from the engine
func (e *executor) Execute(ctx context.Context, query string, args ...any) (err error) {
	values, err := bindValues(args)
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() { e.hooks.statement(e.name, KindExecute, start, err) }()

	_, err = e.q.ExecContext(ctx, query, values...)
	return execError(query, err)
}

// Query binds args and returns a cursor over the result rows.
// The caller must Close the cursor.
func (e *executor) Query(ctx context.Context, query string, args ...any) (cur *Cursor, err error) {
	values, err := bindValues(args)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { e.hooks.statement(e.name, KindQuery, start, err) }()

	rows, err := e.q.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, execError(query, err)
	}
	cur, err = newCursor(rows)
	if err != nil {
		return nil, execError(query, err)
	}
	return cur, nil
}

// QueryFunc runs a query and hands the cursor to fn, closing it on every
// exit path. Iteration errors are reported after fn returns.
func (e *executor) QueryFunc(ctx context.Context, query string, args []any, fn func(*Cursor) error) error {
	cur, err := e.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer cur.Close() //nolint:errcheck // Close error is superseded by Err below

	if err := fn(cur); err != nil {
		return err
	}
	if err := cur.Err(); err != nil {
		return execError(query, err)
	}
	return nil
}

// Count runs a query expected to return one row with a column named
// "count" (matched case-insensitively) and returns that value.
//
// It returns 0 without error when the result has no rows, has no count
// column, or the count is NULL. Malformed queries still return an error.
func (e *executor) Count(ctx context.Context, query string, args ...any) (n int, err error) {
	values, err := bindValues(args)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	defer func() { e.hooks.statement(e.name, KindCount, start, err) }()

	rows, err := e.q.QueryContext(ctx, query, values...)
	if err != nil {
		return 0, execError(query, err)
	}
	defer rows.Close() //nolint:errcheck // Read-only; Err is checked

	if !rows.Next() {
		return 0, execError(query, rows.Err())
	}

	cols, err := rows.Columns()
	if err != nil {
		return 0, execError(query, err)
	}
	idx := columnIndex(cols, "count")
	if idx < 0 {
		return 0, nil
	}

	var count sql.NullInt64
	dest := make([]any, len(cols))
	for i := range dest {
		dest[i] = new(any)
	}
	dest[idx] = &count
	if err := rows.Scan(dest...); err != nil {
		return 0, execError(query, err)
	}
	if !count.Valid {
		return 0, nil
	}
	return int(count.Int64), nil
}

// runScript executes each statement of a trusted script in order.
// The caller provides the transaction scope.
func (e *executor) runScript(ctx context.Context, script string) (err error) {
	start := time.Now()
	defer func() { e.hooks.statement(e.name, KindScript, start, err) }()

	for i, stmt := range splitScript(script) {
		if _, err := e.q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("script statement %d: %w", i+1, execError(stmt, err))
		}
	}
	return nil
}

// splitScript splits on ';' and drops blank segments.
//
// The split is not grammar-aware: a ';' inside a string literal, identifier
// or comment breaks the statement apart. Only SQL generated by this program
// may be passed here.
func splitScript(script string) []string {
	var stmts []string
	for _, part := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// quoteIdent renders name as a double-quoted SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
