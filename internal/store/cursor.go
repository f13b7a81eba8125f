package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// Cursor is a forward-only, single-pass view over query results.
//
// A Cursor holds an engine connection until it is closed. Callers must
// Close it on every path, including error paths; QueryFunc does this for
// them. A leaked cursor can block schema changes and, on single-connection
// pools, every later statement. Cursors are not safe for concurrent use.
type Cursor struct {
	rows *sql.Rows
	cols []string
}

func newCursor(rows *sql.Rows) (*Cursor, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	return &Cursor{rows: rows, cols: cols}, nil
}

// Next advances to the next row. It returns false when the rows are
// exhausted or an error occurred; check Err afterwards.
func (c *Cursor) Next() bool {
	return c.rows.Next()
}

// Scan copies the current row into dest, as sql.Rows.Scan does.
func (c *Cursor) Scan(dest ...any) error {
	return c.rows.Scan(dest...)
}

// Columns returns the result column names.
func (c *Cursor) Columns() []string {
	return append([]string(nil), c.cols...)
}

// ColumnIndex returns the position of the named column, matched
// case-insensitively, or -1 when the result has no such column.
func (c *Cursor) ColumnIndex(name string) int {
	return columnIndex(c.cols, name)
}

// Values returns the current row as engine values
// (int64, float64, string, []byte or nil).
func (c *Cursor) Values() ([]any, error) {
	values := make([]any, len(c.cols))
	dest := make([]any, len(c.cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := c.rows.Scan(dest...); err != nil {
		return nil, err
	}
	return values, nil
}

// Err returns the error, if any, encountered during iteration.
func (c *Cursor) Err() error {
	return c.rows.Err()
}

// Close releases the cursor. It is safe to call more than once.
func (c *Cursor) Close() error {
	return c.rows.Close()
}

func columnIndex(cols []string, name string) int {
	for i, col := range cols {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}
