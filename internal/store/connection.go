package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/sealdb/internal/infrastructure/database"
)

// Connection is an open handle to one logical database.
//
// Writes (Execute, ExecuteScript, Transaction and the maintenance writers)
// are serialised by a per-connection writer lock. Reads go straight to the
// engine pool and may run concurrently under WAL.
//
// All public methods are safe for concurrent use.
type Connection struct {
	exec    executor
	db      *database.DB
	writeMu sync.Mutex
	closed  atomic.Bool
}

// ConnOption configures a Connection.
type ConnOption func(*Connection)

// WithLogger sets the connection logger. The default discards everything.
func WithLogger(logger Logger) ConnOption {
	return func(c *Connection) {
		if logger != nil {
			c.exec.logger = logger
		}
	}
}

// WithHooks installs statement and lifecycle callbacks.
func WithHooks(hooks Hooks) ConnOption {
	return func(c *Connection) {
		c.exec.hooks = hooks
	}
}

// newConnection wraps an open engine pool.
func newConnection(name string, db *database.DB, opts ...ConnOption) *Connection {
	c := &Connection{db: db}
	c.exec = executor{
		q:      db,
		name:   name,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.exec.notify = func(kind EventKind, attrs map[string]any) {
		c.exec.hooks.event(name, kind, attrs)
	}
	return c
}

// Name returns the logical database name.
func (c *Connection) Name() string {
	return c.exec.name
}

// IsOpen reports whether the connection has not been closed.
func (c *Connection) IsOpen() bool {
	return !c.closed.Load()
}

// Close waits for the in-flight writer, then closes the engine pool.
// Writers queued behind it fail with ErrClosed. Closing an already closed
// connection is a no-op.
//
// The connection is closed even when the pool reports an error: database/sql
// releases the pool before returning it.
func (c *Connection) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.db.Close(); err != nil {
		c.exec.logger.Error("closing database", "database", c.exec.name, "error", err)
		return err
	}
	c.exec.logger.Info("database closed", "database", c.exec.name)
	c.exec.notify(EventClosed, nil)
	return nil
}

func (c *Connection) checkOpen() error {
	if c.closed.Load() {
		return fmt.Errorf("%w: %s", ErrClosed, c.exec.name)
	}
	return nil
}

// lockWriter takes the writer lock. The open check is repeated under the
// lock because Close marks the connection closed before it waits for the
// lock itself. On success the caller must unlock writeMu.
func (c *Connection) lockWriter() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.writeMu.Lock()
	if err := c.checkOpen(); err != nil {
		c.writeMu.Unlock()
		return err
	}
	return nil
}

// Transaction runs work in a single engine transaction.
//
// The transaction commits only when work returns nil. It rolls back when work
// returns an error, when work panics (the panic is re-raised afterwards), or
// when the commit fails. Lifecycle events raised inside work are delivered
// after a successful commit.
//
// Parameters:
//   - ctx: Context for the transaction; cancellation rolls it back
//   - work: Function issuing statements through the *Tx it receives
//
// Returns:
//   - error: The error from work unchanged, or a begin/commit failure
func (c *Connection) Transaction(ctx context.Context, work func(*Tx) error) (err error) {
	if err := c.lockWriter(); err != nil {
		return err
	}
	defer c.writeMu.Unlock()

	start := time.Now()
	defer func() { c.exec.hooks.statement(c.exec.name, KindTransaction, start, err) }()

	sqlTx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", execError("BEGIN", err))
	}

	tx := newTx(c.exec, sqlTx)
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			c.exec.logger.Error("rolling back transaction", "database", c.exec.name, "error", rbErr)
		}
	}()

	if err := work(tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", execError("COMMIT", err))
	}
	committed = true

	for _, ev := range tx.pending {
		c.exec.hooks.emit(ev)
	}
	return nil
}

// InTransaction runs work in a transaction on conn and returns its result.
// The zero value of T is returned whenever the transaction does not commit.
func InTransaction[T any](ctx context.Context, conn *Connection, work func(*Tx) (T, error)) (T, error) {
	var result T
	err := conn.Transaction(ctx, func(tx *Tx) error {
		v, err := work(tx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Execute binds args and runs a single statement that returns no rows.
func (c *Connection) Execute(ctx context.Context, query string, args ...any) error {
	if err := c.lockWriter(); err != nil {
		return err
	}
	defer c.writeMu.Unlock()
	return c.exec.Execute(ctx, query, args...)
}

// ExecuteScript runs every ';'-separated statement of script in one
// transaction.
//
// The split does not understand SQL: a ';' inside a literal, identifier or
// comment corrupts the script. Pass only SQL generated by this program.
func (c *Connection) ExecuteScript(ctx context.Context, script string) error {
	return c.Transaction(ctx, func(tx *Tx) error {
		return tx.runScript(ctx, script)
	})
}

// Query binds args and returns a cursor over the result. The caller must
// Close the cursor; an open cursor holds an engine connection.
func (c *Connection) Query(ctx context.Context, query string, args ...any) (*Cursor, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return c.exec.Query(ctx, query, args...)
}

// QueryFunc runs a query and passes the cursor to fn, closing it afterwards.
func (c *Connection) QueryFunc(ctx context.Context, query string, args []any, fn func(*Cursor) error) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.exec.QueryFunc(ctx, query, args, fn)
}

// Count returns the "count" column of the first result row, or 0.
func (c *Connection) Count(ctx context.Context, query string, args ...any) (int, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	return c.exec.Count(ctx, query, args...)
}

// SchemaVersion returns the persisted schema version.
func (c *Connection) SchemaVersion(ctx context.Context) (int, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	return c.exec.SchemaVersion(ctx)
}

// SetSchemaVersion stores the schema version.
func (c *Connection) SetSchemaVersion(ctx context.Context, version int) error {
	if err := c.lockWriter(); err != nil {
		return err
	}
	defer c.writeMu.Unlock()
	return c.exec.SetSchemaVersion(ctx, version)
}

// Tables lists user tables.
func (c *Connection) Tables(ctx context.Context) ([]string, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return c.exec.Tables(ctx)
}

// DestroyEverything drops all user tables, views, triggers and indexes,
// clears AUTOINCREMENT counters and resets the schema version to 0, all in
// one transaction. Running it on an empty database succeeds.
func (c *Connection) DestroyEverything(ctx context.Context) error {
	err := c.Transaction(ctx, func(tx *Tx) error {
		if err := tx.destroyEverything(ctx); err != nil {
			return err
		}
		tx.notify(EventDestroyed, nil)
		return nil
	})
	if err != nil {
		return fmt.Errorf("destroying database: %w", err)
	}
	c.exec.logger.Warn("database destroyed", "database", c.exec.name)
	return nil
}

// EnsureLocalStorage creates the local_storage table if it does not exist.
func (c *Connection) EnsureLocalStorage(ctx context.Context) error {
	return c.ExecuteScript(ctx, localStorageSchema)
}

// LocalValue reads key from local_storage.
func (c *Connection) LocalValue(ctx context.Context, key string) (string, bool, error) {
	if err := c.checkOpen(); err != nil {
		return "", false, err
	}
	return c.exec.LocalValue(ctx, key)
}

// SetLocalValue writes key to local_storage.
func (c *Connection) SetLocalValue(ctx context.Context, key, value string) error {
	if err := c.lockWriter(); err != nil {
		return err
	}
	defer c.writeMu.Unlock()
	return c.exec.SetLocalValue(ctx, key, value)
}

// RemoveLocalValue deletes key from local_storage.
func (c *Connection) RemoveLocalValue(ctx context.Context, key string) error {
	if err := c.lockWriter(); err != nil {
		return err
	}
	defer c.writeMu.Unlock()
	return c.exec.RemoveLocalValue(ctx, key)
}

// HealthCheck verifies the engine answers a trivial query.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.db.HealthCheck(ctx)
}

// Optimize runs PRAGMA optimize so the engine can refresh planner statistics.
func (c *Connection) Optimize(ctx context.Context) error {
	if err := c.Execute(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("optimizing database: %w", err)
	}
	return nil
}

// Vacuum rebuilds the database file to reclaim free pages.
// It cannot run inside a transaction.
func (c *Connection) Vacuum(ctx context.Context) error {
	if err := c.Execute(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuuming database: %w", err)
	}
	return nil
}

// Encrypted reports whether the connection was opened with a credential.
func (c *Connection) Encrypted() bool {
	return c.db.Encrypted()
}

// Stats returns engine pool statistics.
func (c *Connection) Stats() sql.DBStats {
	return c.db.Stats()
}
