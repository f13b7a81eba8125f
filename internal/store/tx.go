package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Tx is the scope handed to transaction work. Statements issued through it
// commit together or not at all.
//
// A Tx is only valid inside the work function it was passed to and must not
// be shared between goroutines.
type Tx struct {
	executor
	tx *sql.Tx

	// depth is the number of open savepoints.
	depth int

	// pending holds lifecycle events until the outer transaction commits.
	pending []Event
}

func newTx(e executor, sqlTx *sql.Tx) *Tx {
	t := &Tx{tx: sqlTx}
	t.executor = executor{
		q:      sqlTx,
		name:   e.name,
		hooks:  e.hooks,
		logger: e.logger,
	}
	t.notify = func(kind EventKind, attrs map[string]any) {
		t.pending = append(t.pending, newEvent(t.name, kind, attrs))
	}
	return t
}

// Transaction runs work inside a savepoint. If work returns an error or
// panics, only the statements issued since the savepoint are undone and the
// enclosing transaction stays usable.
func (t *Tx) Transaction(ctx context.Context, work func(*Tx) error) error {
	return t.savepoint(ctx, func() error { return work(t) })
}

// ExecuteScript runs a trusted multi-statement script inside a savepoint.
// See Connection.ExecuteScript for the input restrictions.
func (t *Tx) ExecuteScript(ctx context.Context, script string) error {
	return t.savepoint(ctx, func() error { return t.runScript(ctx, script) })
}

// DestroyEverything resets the database inside a savepoint.
func (t *Tx) DestroyEverything(ctx context.Context) error {
	return t.savepoint(ctx, func() error {
		if err := t.destroyEverything(ctx); err != nil {
			return err
		}
		t.notify(EventDestroyed, nil)
		return nil
	})
}

// EnsureLocalStorage creates the local_storage table if it does not exist.
func (t *Tx) EnsureLocalStorage(ctx context.Context) error {
	return t.ExecuteScript(ctx, localStorageSchema)
}

// savepoint runs fn between SAVEPOINT and RELEASE, rolling back to the
// savepoint on error or panic.
func (t *Tx) savepoint(ctx context.Context, fn func() error) (err error) {
	t.depth++
	defer func() { t.depth-- }()

	name := fmt.Sprintf("sp_%d", t.depth)
	mark := len(t.pending)

	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return execError("SAVEPOINT "+name, err)
	}

	released := false
	defer func() {
		if released {
			return
		}
		t.pending = t.pending[:mark]
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO "+name); rbErr != nil {
			t.logger.Warn("rolling back savepoint", "database", t.name, "savepoint", name, "error", rbErr)
			return
		}
		if _, relErr := t.tx.ExecContext(ctx, "RELEASE "+name); relErr != nil {
			t.logger.Warn("releasing savepoint", "database", t.name, "savepoint", name, "error", relErr)
		}
	}()

	if err := fn(); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, "RELEASE "+name); err != nil {
		return execError("RELEASE "+name, err)
	}
	released = true
	return nil
}
