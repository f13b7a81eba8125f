package store

import (
	"context"
	"sync"
	"testing"

	"github.com/nerrad567/sealdb/internal/infrastructure/database"
)

func testDBConfig(dir string) database.Config {
	return database.Config{
		Dir:         dir,
		WALMode:     true,
		BusyTimeout: 5,
		MaxReaders:  2,
	}
}

// openTestConn opens a connection through the default opener.
// An empty name opens a private in-memory database.
func openTestConn(t *testing.T, name, credential string, opts ...ConnOption) *Connection {
	t.Helper()

	if name == "" {
		name = ":memory:"
	}
	open := NewOpener(testDBConfig(t.TempDir()), opts...)
	conn, err := open(context.Background(), Identity{Name: name, Credential: credential})
	if err != nil {
		t.Fatalf("failed to open test connection: %v", err)
	}
	t.Cleanup(func() {
		conn.Close() //nolint:errcheck // Test cleanup
	})
	return conn
}

// mustExec runs a statement and fails the test on error.
func mustExec(t *testing.T, e Executor, query string, args ...any) {
	t.Helper()
	if err := e.Execute(context.Background(), query, args...); err != nil {
		t.Fatalf("Execute(%q) error = %v", query, err)
	}
}

// mustCount runs a count query and fails the test on error.
func mustCount(t *testing.T, e Executor, query string, args ...any) int {
	t.Helper()
	n, err := e.Count(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("Count(%q) error = %v", query, err)
	}
	return n
}

// recorder collects hook callbacks.
type recorder struct {
	mu         sync.Mutex
	events     []Event
	statements []StatementStats
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnStatement: func(s StatementStats) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.statements = append(r.statements, s)
		},
		OnEvent: func(ev Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, ev)
		},
	}
}

func (r *recorder) eventKinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func (r *recorder) statementKinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, len(r.statements))
	for i, s := range r.statements {
		kinds[i] = s.Kind
	}
	return kinds
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.statements = nil
}

// testCredential returns a credential when the build can encrypt, so the
// same tests exercise keyed files by default and plain files otherwise.
func testCredential() string {
	if database.EncryptionSupported {
		return "secret123"
	}
	return ""
}
