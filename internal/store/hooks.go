package store

import "time"

// Statement kinds reported in StatementStats.
const (
	KindExecute     = "execute"
	KindQuery       = "query"
	KindCount       = "count"
	KindScript      = "script"
	KindTransaction = "transaction"
)

// StatementStats describes one completed executor operation.
type StatementStats struct {
	// Database is the logical database name (never the credential).
	Database string

	// Kind is one of the Kind* constants.
	Kind string

	// Duration is the wall time spent in the engine.
	Duration time.Duration

	// Err is the operation's error, nil on success.
	Err error
}

// EventKind identifies a connection lifecycle event.
type EventKind string

// Lifecycle events.
const (
	EventOpened               EventKind = "opened"
	EventClosed               EventKind = "closed"
	EventSchemaVersionChanged EventKind = "schema_version_changed"
	EventDestroyed            EventKind = "destroyed"
)

// Event is a connection lifecycle notification.
type Event struct {
	Database string
	Kind     EventKind
	Attrs    map[string]any
	Time     time.Time
}

// Hooks receives notifications about connection activity.
// Callbacks run synchronously on the caller's goroutine and must not block.
// Nil callbacks are skipped.
type Hooks struct {
	OnStatement func(StatementStats)
	OnEvent     func(Event)
}

func (h Hooks) statement(db, kind string, start time.Time, err error) {
	if h.OnStatement == nil {
		return
	}
	h.OnStatement(StatementStats{
		Database: db,
		Kind:     kind,
		Duration: time.Since(start),
		Err:      err,
	})
}

func (h Hooks) event(db string, kind EventKind, attrs map[string]any) {
	h.emit(newEvent(db, kind, attrs))
}

func (h Hooks) emit(ev Event) {
	if h.OnEvent == nil {
		return
	}
	h.OnEvent(ev)
}

func newEvent(db string, kind EventKind, attrs map[string]any) Event {
	return Event{
		Database: db,
		Kind:     kind,
		Attrs:    attrs,
		Time:     time.Now().UTC(),
	}
}
