package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestExecuteRoundTrip verifies bound values read back with their engine types.
func TestExecuteRoundTrip(t *testing.T) {
	conn := openTestConn(t, "", "")
	ctx := context.Background()

	mustExec(t, conn, "CREATE TABLE items (name TEXT, flag INTEGER, score REAL, note TEXT)")
	mustExec(t, conn, "INSERT INTO items VALUES (?, ?, ?, ?)", "alpha", true, 1.5, nil)
	mustExec(t, conn, "INSERT INTO items VALUES (?, ?, ?, ?)", "beta", false, float32(0.25), Text("n"))

	var got [][]any
	err := conn.QueryFunc(ctx, "SELECT name, flag, score, note FROM items ORDER BY name", nil, func(cur *Cursor) error {
		for cur.Next() {
			row, err := cur.Values()
			if err != nil {
				return err
			}
			got = append(got, row)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("QueryFunc() error = %v", err)
	}

	want := [][]any{
		{"alpha", int64(1), 1.5, nil},
		{"beta", int64(0), 0.25, "n"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

// TestExecuteRejectsBadArgs verifies a bad argument never reaches the engine.
func TestExecuteRejectsBadArgs(t *testing.T) {
	conn := openTestConn(t, "", "")
	ctx := context.Background()

	mustExec(t, conn, "CREATE TABLE items (name TEXT, qty)")

	err := conn.Execute(ctx, "INSERT INTO items VALUES (?, ?)", "widget", 3)
	if !errors.Is(err, ErrBindType) {
		t.Fatalf("Execute() error = %v, want ErrBindType", err)
	}
	if errors.Is(err, ErrExecution) {
		t.Error("bind failure reported as execution error")
	}

	if n := mustCount(t, conn, "SELECT count(*) AS count FROM items"); n != 0 {
		t.Errorf("rows after rejected insert = %d, want 0", n)
	}

	if _, err := conn.Query(ctx, "SELECT * FROM items WHERE qty = ?", int32(1)); !errors.Is(err, ErrBindType) {
		t.Errorf("Query() error = %v, want ErrBindType", err)
	}
	if _, err := conn.Count(ctx, "SELECT count(*) AS count FROM items WHERE qty = ?", uint8(1)); !errors.Is(err, ErrBindType) {
		t.Errorf("Count() error = %v, want ErrBindType", err)
	}
}

// TestExecError verifies engine failures carry the statement.
func TestExecError(t *testing.T) {
	conn := openTestConn(t, "", "")
	ctx := context.Background()

	const query = "INSERT INTO missing VALUES (?)"
	err := conn.Execute(ctx, query, "x")
	if !errors.Is(err, ErrExecution) {
		t.Fatalf("Execute() error = %v, want ErrExecution", err)
	}

	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("error %T is not *ExecError", err)
	}
	if execErr.SQL != query {
		t.Errorf("SQL = %q, want %q", execErr.SQL, query)
	}
	if execErr.Err == nil {
		t.Error("engine error not preserved")
	}
}

// TestCount verifies the lenient count contract.
func TestCount(t *testing.T) {
	conn := openTestConn(t, "", "")
	ctx := context.Background()

	mustExec(t, conn, "CREATE TABLE items (name TEXT)")
	for _, name := range []string{"a", "b", "c"} {
		mustExec(t, conn, "INSERT INTO items VALUES (?)", name)
	}

	tests := []struct {
		name  string
		query string
		args  []any
		want  int
	}{
		{name: "count alias", query: "SELECT count(*) AS count FROM items", want: 3},
		{name: "upper case column", query: "SELECT count(*) AS COUNT FROM items", want: 3},
		{name: "with args", query: "SELECT count(*) AS count FROM items WHERE name <> ?", args: []any{"a"}, want: 2},
		{name: "count not first", query: "SELECT 'x' AS label, 7 AS count", want: 7},
		{name: "no rows", query: "SELECT 1 AS count FROM items WHERE 0", want: 0},
		{name: "no count column", query: "SELECT count(*) AS total FROM items", want: 0},
		{name: "null count", query: "SELECT NULL AS count", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := conn.Count(ctx, tt.query, tt.args...)
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}

	t.Run("malformed sql", func(t *testing.T) {
		if _, err := conn.Count(ctx, "SELEC count(*) AS count FROM items"); !errors.Is(err, ErrExecution) {
			t.Errorf("Count() error = %v, want ErrExecution", err)
		}
	})
}

// TestExecuteScript verifies scripts run statement by statement in one transaction.
func TestExecuteScript(t *testing.T) {
	ctx := context.Background()

	t.Run("two statements", func(t *testing.T) {
		conn := openTestConn(t, "", "")

		err := conn.ExecuteScript(ctx, "CREATE TABLE a (x TEXT);\n INSERT INTO a VALUES ('1');")
		if err != nil {
			t.Fatalf("ExecuteScript() error = %v", err)
		}
		if n := mustCount(t, conn, "SELECT count(*) AS count FROM a"); n != 1 {
			t.Errorf("rows = %d, want 1", n)
		}
	})

	t.Run("failure rolls back earlier statements", func(t *testing.T) {
		conn := openTestConn(t, "", "")

		err := conn.ExecuteScript(ctx, "CREATE TABLE a (x TEXT); INSERT INTO nope VALUES (1)")
		if !errors.Is(err, ErrExecution) {
			t.Fatalf("ExecuteScript() error = %v, want ErrExecution", err)
		}

		tables, err := conn.Tables(ctx)
		if err != nil {
			t.Fatalf("Tables() error = %v", err)
		}
		if len(tables) != 0 {
			t.Errorf("Tables() = %v, want none", tables)
		}
	})

	t.Run("empty script", func(t *testing.T) {
		conn := openTestConn(t, "", "")
		if err := conn.ExecuteScript(ctx, " ; ;\n"); err != nil {
			t.Errorf("ExecuteScript() error = %v", err)
		}
	})
}

// TestSplitScript verifies statement splitting.
func TestSplitScript(t *testing.T) {
	got := splitScript("CREATE TABLE a (x);\n\n  INSERT INTO a VALUES (1) ;;  \n")
	want := []string{"CREATE TABLE a (x)", "INSERT INTO a VALUES (1)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("splitScript() mismatch (-want +got):\n%s", diff)
	}
}

// TestQuery verifies cursor access by column name.
func TestQuery(t *testing.T) {
	conn := openTestConn(t, "", "")
	ctx := context.Background()

	mustExec(t, conn, "CREATE TABLE items (Name TEXT, qty REAL)")
	mustExec(t, conn, "INSERT INTO items VALUES (?, ?)", "bolt", 12.0)

	cur, err := conn.Query(ctx, "SELECT Name, qty FROM items")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	defer cur.Close() //nolint:errcheck // Test cleanup

	if diff := cmp.Diff([]string{"Name", "qty"}, cur.Columns()); diff != "" {
		t.Errorf("Columns() mismatch (-want +got):\n%s", diff)
	}
	if idx := cur.ColumnIndex("name"); idx != 0 {
		t.Errorf("ColumnIndex(name) = %d, want 0", idx)
	}
	if idx := cur.ColumnIndex("missing"); idx != -1 {
		t.Errorf("ColumnIndex(missing) = %d, want -1", idx)
	}

	if !cur.Next() {
		t.Fatalf("Next() = false, err = %v", cur.Err())
	}
	var (
		name string
		qty  float64
	)
	if err := cur.Scan(&name, &qty); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if name != "bolt" || qty != 12 {
		t.Errorf("row = (%q, %v), want (bolt, 12)", name, qty)
	}
	if cur.Next() {
		t.Error("Next() = true after last row")
	}
}

// TestConcurrentReaders verifies a second pooled engine connection to an
// on-disk (and, when supported, encrypted) WAL database can read.
func TestConcurrentReaders(t *testing.T) {
	conn := openTestConn(t, "readers", testCredential())
	ctx := context.Background()

	mustExec(t, conn, "CREATE TABLE items (name TEXT)")
	mustExec(t, conn, "INSERT INTO items VALUES (?), (?)", "bolt", "nut")

	// The open cursor holds one engine connection, so Count needs another.
	cur, err := conn.Query(ctx, "SELECT name FROM items")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	defer cur.Close() //nolint:errcheck // Test cleanup
	if !cur.Next() {
		t.Fatalf("Next() = false, err = %v", cur.Err())
	}

	if n := mustCount(t, conn, "SELECT count(*) AS count FROM items"); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
	if got := conn.Stats().OpenConnections; got != 2 {
		t.Errorf("OpenConnections = %d, want 2", got)
	}
}

// TestQueryFuncPropagatesError verifies fn errors are returned unchanged.
func TestQueryFuncPropagatesError(t *testing.T) {
	conn := openTestConn(t, "", "")
	errStop := errors.New("stop")

	err := conn.QueryFunc(context.Background(), "SELECT 1", nil, func(*Cursor) error {
		return errStop
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("QueryFunc() error = %v, want errStop", err)
	}

	// The cursor was closed, so the single in-memory connection is free again.
	if err := conn.Execute(context.Background(), "CREATE TABLE t (x TEXT)"); err != nil {
		t.Errorf("Execute() after QueryFunc error = %v", err)
	}
}
