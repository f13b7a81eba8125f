package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for store operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrOpen indicates a connection could not be opened (bad credential,
	// corrupt file, I/O failure). Open errors are never retried.
	ErrOpen = errors.New("store: open failed")

	// ErrBindType indicates an argument of an unsupported Go type.
	ErrBindType = errors.New("store: unsupported argument type")

	// ErrExecution indicates the engine rejected a statement.
	ErrExecution = errors.New("store: execution failed")

	// ErrClosed indicates an operation on a closed connection.
	ErrClosed = errors.New("store: connection closed")
)

// OpenError describes a failed open for one database.
// The credential is never part of the error.
type OpenError struct {
	// Name is the logical database name.
	Name string

	// Err is the underlying cause.
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("opening database %q: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *OpenError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrOpen.
func (e *OpenError) Is(target error) bool {
	return target == ErrOpen
}

// BindTypeError reports an argument that cannot be bound.
type BindTypeError struct {
	// Index is the 1-based argument position.
	Index int

	// Type is the Go type of the offending argument.
	Type string
}

func (e *BindTypeError) Error() string {
	return fmt.Sprintf("bad query arg type at position %d: %s (want string, bool, float64, float32 or nil)", e.Index, e.Type)
}

// Is reports whether target is ErrBindType.
func (e *BindTypeError) Is(target error) bool {
	return target == ErrBindType
}

// ExecError carries the statement that the engine rejected.
// The engine's own message is passed through unmodified.
type ExecError struct {
	// SQL is the offending statement.
	SQL string

	// Err is the engine error.
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%v (sql=%q)", e.Err, e.SQL)
}

// Unwrap returns the engine error.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrExecution.
func (e *ExecError) Is(target error) bool {
	return target == ErrExecution
}

// execError wraps a non-nil engine error with its statement.
func execError(query string, err error) error {
	if err == nil {
		return nil
	}
	var bindErr *BindTypeError
	if errors.As(err, &bindErr) {
		return err
	}
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return err
	}
	return &ExecError{SQL: query, Err: err}
}
