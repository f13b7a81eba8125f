package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/sealdb/internal/infrastructure/database"
)

// TestSchemaVersion verifies the version round trip.
func TestSchemaVersion(t *testing.T) {
	rec := &recorder{}
	conn := openTestConn(t, "", "", WithHooks(rec.hooks()))
	ctx := context.Background()

	v, err := conn.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if v != 0 {
		t.Errorf("SchemaVersion() on new database = %d, want 0", v)
	}

	if err := conn.SetSchemaVersion(ctx, 17); err != nil {
		t.Fatalf("SetSchemaVersion() error = %v", err)
	}
	if v, _ := conn.SchemaVersion(ctx); v != 17 {
		t.Errorf("SchemaVersion() = %d, want 17", v)
	}

	want := []EventKind{EventOpened, EventSchemaVersionChanged}
	if diff := cmp.Diff(want, rec.eventKinds()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

// TestTables verifies engine tables are excluded.
func TestTables(t *testing.T) {
	conn := openTestConn(t, "", "")
	ctx := context.Background()

	tables, err := conn.Tables(ctx)
	if err != nil {
		t.Fatalf("Tables() error = %v", err)
	}
	if len(tables) != 0 {
		t.Errorf("Tables() on new database = %v, want none", tables)
	}

	mustExec(t, conn, "CREATE TABLE zeta (id INTEGER PRIMARY KEY AUTOINCREMENT)")
	mustExec(t, conn, "CREATE TABLE alpha (v TEXT)")
	mustExec(t, conn, "CREATE VIEW alpha_view AS SELECT v FROM alpha")
	mustExec(t, conn, "INSERT INTO zeta DEFAULT VALUES")

	tables, err = conn.Tables(ctx)
	if err != nil {
		t.Fatalf("Tables() error = %v", err)
	}
	if diff := cmp.Diff([]string{"alpha", "zeta"}, tables); diff != "" {
		t.Errorf("Tables() mismatch (-want +got):\n%s", diff)
	}
}

// TestDestroyEverything verifies a full reset.
func TestDestroyEverything(t *testing.T) {
	rec := &recorder{}
	conn := openTestConn(t, "reset", "", WithHooks(rec.hooks()))
	ctx := context.Background()

	script := `
		CREATE TABLE posts (id INTEGER PRIMARY KEY AUTOINCREMENT, body TEXT);
		CREATE TABLE comments (post_id INTEGER, body TEXT);
		CREATE INDEX comments_post ON comments (post_id);
		CREATE VIEW post_bodies AS SELECT body FROM posts;
		INSERT INTO posts (body) VALUES ('first');
		INSERT INTO comments VALUES (1, 'reply');
	`
	if err := conn.ExecuteScript(ctx, script); err != nil {
		t.Fatalf("ExecuteScript() error = %v", err)
	}
	// Trigger bodies contain ';' and cannot go through ExecuteScript.
	mustExec(t, conn, "CREATE TRIGGER posts_cleanup AFTER DELETE ON posts BEGIN DELETE FROM comments WHERE post_id = old.id; END")
	if err := conn.SetSchemaVersion(ctx, 5); err != nil {
		t.Fatalf("SetSchemaVersion() error = %v", err)
	}
	rec.reset()

	if err := conn.DestroyEverything(ctx); err != nil {
		t.Fatalf("DestroyEverything() error = %v", err)
	}

	tables, err := conn.Tables(ctx)
	if err != nil {
		t.Fatalf("Tables() error = %v", err)
	}
	if len(tables) != 0 {
		t.Errorf("Tables() after destroy = %v, want none", tables)
	}
	if n := mustCount(t, conn, "SELECT count(*) AS count FROM sqlite_master WHERE name NOT LIKE 'sqlite_%'"); n != 0 {
		t.Errorf("schema objects after destroy = %d, want 0", n)
	}
	if v, _ := conn.SchemaVersion(ctx); v != 0 {
		t.Errorf("SchemaVersion() after destroy = %d, want 0", v)
	}
	if diff := cmp.Diff([]EventKind{EventDestroyed}, rec.eventKinds()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	// AUTOINCREMENT restarts after the reset.
	mustExec(t, conn, "CREATE TABLE posts (id INTEGER PRIMARY KEY AUTOINCREMENT, body TEXT)")
	mustExec(t, conn, "INSERT INTO posts (body) VALUES (?)", "again")
	if n := mustCount(t, conn, "SELECT max(id) AS count FROM posts"); n != 1 {
		t.Errorf("first id after reset = %d, want 1", n)
	}

	t.Run("idempotent", func(t *testing.T) {
		if err := conn.DestroyEverything(ctx); err != nil {
			t.Fatalf("first DestroyEverything() error = %v", err)
		}
		if err := conn.DestroyEverything(ctx); err != nil {
			t.Fatalf("second DestroyEverything() error = %v", err)
		}
		tables, err := conn.Tables(ctx)
		if err != nil {
			t.Fatalf("Tables() error = %v", err)
		}
		if len(tables) != 0 {
			t.Errorf("Tables() after repeated destroy = %v, want none", tables)
		}
	})

	t.Run("inside a transaction", func(t *testing.T) {
		mustExec(t, conn, "CREATE TABLE keep (v TEXT)")
		err := conn.Transaction(ctx, func(tx *Tx) error {
			if err := tx.DestroyEverything(ctx); err != nil {
				return err
			}
			return errBoom
		})
		if !errors.Is(err, errBoom) {
			t.Fatalf("Transaction() error = %v, want errBoom", err)
		}
		tables, err := conn.Tables(ctx)
		if err != nil {
			t.Fatalf("Tables() error = %v", err)
		}
		if diff := cmp.Diff([]string{"keep"}, tables); diff != "" {
			t.Errorf("rolled back destroy changed tables (-want +got):\n%s", diff)
		}
	})
}

// TestLocalStorage verifies the reserved key-value table.
func TestLocalStorage(t *testing.T) {
	conn := openTestConn(t, "", "")
	ctx := context.Background()

	if _, _, err := conn.LocalValue(ctx, "k"); !errors.Is(err, ErrExecution) {
		t.Errorf("LocalValue() without table error = %v, want ErrExecution", err)
	}

	if err := conn.EnsureLocalStorage(ctx); err != nil {
		t.Fatalf("EnsureLocalStorage() error = %v", err)
	}
	if err := conn.EnsureLocalStorage(ctx); err != nil {
		t.Fatalf("second EnsureLocalStorage() error = %v", err)
	}

	value, found, err := conn.LocalValue(ctx, "missing")
	if err != nil {
		t.Fatalf("LocalValue() error = %v", err)
	}
	if found || value != "" {
		t.Errorf("LocalValue(missing) = (%q, %v), want (\"\", false)", value, found)
	}

	if err := conn.SetLocalValue(ctx, "last_sync", "1700000000"); err != nil {
		t.Fatalf("SetLocalValue() error = %v", err)
	}
	if err := conn.SetLocalValue(ctx, "last_sync", "1700000100"); err != nil {
		t.Fatalf("SetLocalValue() overwrite error = %v", err)
	}
	value, found, err = conn.LocalValue(ctx, "last_sync")
	if err != nil {
		t.Fatalf("LocalValue() error = %v", err)
	}
	if !found || value != "1700000100" {
		t.Errorf("LocalValue(last_sync) = (%q, %v), want (1700000100, true)", value, found)
	}

	if err := conn.RemoveLocalValue(ctx, "last_sync"); err != nil {
		t.Fatalf("RemoveLocalValue() error = %v", err)
	}
	if err := conn.RemoveLocalValue(ctx, "last_sync"); err != nil {
		t.Errorf("RemoveLocalValue() of absent key error = %v", err)
	}
	if _, found, _ := conn.LocalValue(ctx, "last_sync"); found {
		t.Error("LocalValue() found a removed key")
	}
}

// TestMaintenance verifies health and housekeeping operations.
func TestMaintenance(t *testing.T) {
	conn := openTestConn(t, "housekeeping", "")
	ctx := context.Background()

	mustExec(t, conn, "CREATE TABLE t (v TEXT)")
	if err := conn.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := conn.Optimize(ctx); err != nil {
		t.Errorf("Optimize() error = %v", err)
	}
	if err := conn.Vacuum(ctx); err != nil {
		t.Errorf("Vacuum() error = %v", err)
	}
	if conn.Name() != "housekeeping" {
		t.Errorf("Name() = %q, want housekeeping", conn.Name())
	}
}

// TestNotesScenario opens an encrypted database, writes in a transaction,
// reads back, and checks that the file rejects the wrong credential.
func TestNotesScenario(t *testing.T) {
	credential := "secret123"
	if !database.EncryptionSupported {
		credential = ""
	}

	dir := t.TempDir()
	reg := NewRegistry(NewOpener(testDBConfig(dir)))
	defer reg.CloseAll() //nolint:errcheck // Test cleanup
	ctx := context.Background()
	id := Identity{Name: "notes", Credential: credential}

	conn, err := reg.Acquire(ctx, id)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if conn.Encrypted() != (credential != "") {
		t.Errorf("Encrypted() = %v", conn.Encrypted())
	}

	mustExec(t, conn, "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT, pinned INTEGER)")
	err = conn.Transaction(ctx, func(tx *Tx) error {
		return tx.Execute(ctx, "INSERT INTO notes (body, pinned) VALUES (?, ?)", "hello", true)
	})
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}

	if n := mustCount(t, conn, "SELECT count(*) AS count FROM notes WHERE pinned = ?", true); n != 1 {
		t.Errorf("pinned notes = %d, want 1", n)
	}

	var (
		body   string
		pinned int64
	)
	err = conn.QueryFunc(ctx, "SELECT body, pinned FROM notes", nil, func(cur *Cursor) error {
		if !cur.Next() {
			return errors.New("no rows")
		}
		return cur.Scan(&body, &pinned)
	})
	if err != nil {
		t.Fatalf("QueryFunc() error = %v", err)
	}
	if body != "hello" || pinned != 1 {
		t.Errorf("note = (%q, %d), want (hello, 1)", body, pinned)
	}

	if err := reg.Close(id); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if credential == "" {
		return
	}

	_, err = reg.Acquire(ctx, Identity{Name: "notes", Credential: "wrong"})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("Acquire() with wrong credential error = %v, want ErrOpen", err)
	}
	if !errors.Is(err, database.ErrKeyRejected) {
		t.Errorf("Acquire() error = %v, want ErrKeyRejected", err)
	}

	reopened, err := reg.Acquire(ctx, id)
	if err != nil {
		t.Fatalf("Acquire() reopen error = %v", err)
	}
	if n := mustCount(t, reopened, "SELECT count(*) AS count FROM notes"); n != 1 {
		t.Errorf("notes after reopen = %d, want 1", n)
	}
}
