package store

import (
	"context"
	"errors"
	"sync"

	"github.com/nerrad567/sealdb/internal/infrastructure/database"
)

// OpenFunc opens a new connection for an identity.
// Errors should be *OpenError; other errors are wrapped by the registry.
type OpenFunc func(ctx context.Context, id Identity) (*Connection, error)

// Registry caches open connections by identity.
//
// Lookup-or-create runs under one mutex, so concurrent Acquire calls for the
// same identity open the database once. A cached connection that reports
// closed is replaced on the next Acquire. Failed opens are never cached.
//
// All public methods are thread-safe.
type Registry struct {
	mu     sync.Mutex
	open   OpenFunc
	conns  map[string]*Connection // keyed by Identity.fingerprint
	logger Logger
}

// NewRegistry creates a registry that opens connections with open.
func NewRegistry(open OpenFunc) *Registry {
	return &Registry{
		open:   open,
		conns:  make(map[string]*Connection),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Acquire returns the open connection for id, opening it if needed.
//
// Parameters:
//   - ctx: Context for the open and key verification
//   - id: Database name and credential
//
// Returns:
//   - *Connection: Cached or newly opened connection
//   - error: *OpenError (errors.Is(err, ErrOpen)) if opening fails
func (r *Registry) Acquire(ctx context.Context, id Identity) (*Connection, error) {
	key := id.fingerprint()

	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[key]; ok {
		if conn.IsOpen() {
			return conn, nil
		}
		r.logger.Debug("replacing closed connection", "database", id.Name)
		delete(r.conns, key)
	}

	conn, err := r.open(ctx, id)
	if err != nil {
		r.logger.Error("failed to open database", "database", id.Name, "error", err)
		var openErr *OpenError
		if errors.As(err, &openErr) {
			return nil, err
		}
		return nil, &OpenError{Name: id.Name, Err: err}
	}

	r.conns[key] = conn
	return conn, nil
}

// Close closes and evicts the connection for id. Unknown identities are a no-op.
func (r *Registry) Close(id Identity) error {
	key := id.fingerprint()

	r.mu.Lock()
	conn, ok := r.conns[key]
	delete(r.conns, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return conn.Close()
}

// CloseAll closes every cached connection and empties the registry.
// It returns the joined close errors.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*Connection)
	r.mu.Unlock()

	var errs []error
	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		r.logger.Warn("errors closing databases", "count", len(errs))
	}
	return errors.Join(errs...)
}

// Len returns the number of cached connections, open or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// NewOpener returns the default OpenFunc. It resolves the identity name
// under cfg.Dir, opens and keys the engine pool, and wraps the result in a
// Connection configured with opts.
func NewOpener(cfg database.Config, opts ...ConnOption) OpenFunc {
	return func(ctx context.Context, id Identity) (*Connection, error) {
		loc, err := database.Resolve(cfg.Dir, id.Name)
		if err != nil {
			return nil, &OpenError{Name: id.Name, Err: err}
		}

		db, err := database.Open(ctx, loc, id.Credential, cfg)
		if err != nil {
			return nil, &OpenError{Name: id.Name, Err: err}
		}

		conn := newConnection(id.Name, db, opts...)
		conn.exec.logger.Info("database opened",
			"database", id.Name,
			"in_memory", loc.InMemory,
			"encrypted", db.Encrypted(),
			"engine", database.Engine(),
		)
		conn.exec.notify(EventOpened, map[string]any{
			"in_memory": loc.InMemory,
			"encrypted": db.Encrypted(),
		})
		return conn, nil
	}
}
