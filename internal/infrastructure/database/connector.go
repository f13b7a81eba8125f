package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// connector opens engine connections and applies per-connection pragmas.
//
// database/sql may open several engine connections for one pool, and pragmas
// such as case_sensitive_like and temp_store only affect the connection they
// run on, so every new connection is configured here before use. The key is
// not one of them: it travels in the DSN (see buildDSN) because the driver
// reads the file before Open returns.
type connector struct {
	drv     driver.Driver
	dsn     string
	pragmas []string
}

// Connect implements driver.Connector.
func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.drv.Open(c.dsn)
	if err != nil {
		return nil, err
	}

	execer, ok := conn.(driver.ExecerContext)
	if !ok {
		conn.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, errors.New("engine connection does not support ExecContext")
	}

	for _, pragma := range c.pragmas {
		if _, err := execer.ExecContext(ctx, pragma, nil); err != nil {
			conn.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("applying %s: %w", pragmaName(pragma), err)
		}
	}

	return conn, nil
}

// Driver implements driver.Connector.
func (c *connector) Driver() driver.Driver {
	return c.drv
}

// connectionPragmas returns the statements run on every new engine connection,
// after the driver has keyed it.
func connectionPragmas(wal bool) []string {
	pragmas := []string{
		"PRAGMA case_sensitive_like = OFF",
		"PRAGMA encoding = 'UTF-8'",
		"PRAGMA temp_store = MEMORY",
	}
	if wal {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	return pragmas
}

// pragmaName returns the pragma name without its value.
func pragmaName(stmt string) string {
	name, _, _ := strings.Cut(stmt, "=")
	return strings.TrimSpace(name)
}
