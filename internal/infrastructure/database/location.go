package database

import (
	"fmt"
	"path/filepath"
	"strings"
)

// memoryName is the conventional name for a private in-memory database.
const memoryName = ":memory:"

// Location is a resolved storage location for one logical database.
type Location struct {
	// Name is the logical database name the location was resolved from.
	Name string

	// Path is the database file path. Empty for in-memory databases.
	Path string

	// InMemory reports whether the database lives only in process memory.
	InMemory bool
}

// Resolve maps a logical database name to a storage location.
//
// Names equal to ":memory:" or containing "mode=memory" resolve to an
// in-memory database. Any other name resolves to "<dir>/<name>.db".
// Names must not contain path separators, parent references, or the URI
// metacharacters '?', '#' and '%', so each name maps to exactly one file.
//
// Parameters:
//   - dir: Directory holding on-disk databases
//   - name: Logical database name
//
// Returns:
//   - Location: The resolved location
//   - error: ErrInvalidName if the name is empty or escapes dir
func Resolve(dir, name string) (Location, error) {
	if name == memoryName || strings.Contains(name, "mode=memory") {
		return Location{Name: name, InMemory: true}, nil
	}

	if strings.TrimSpace(name) == "" {
		return Location{}, fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return Location{}, fmt.Errorf("%w: %q must not contain path separators", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, "?#%") {
		return Location{}, fmt.Errorf("%w: %q must not contain '?', '#' or '%%'", ErrInvalidName, name)
	}

	return Location{
		Name: name,
		Path: filepath.Join(dir, name+".db"),
	}, nil
}

// String returns the path, or ":memory:" for in-memory locations.
func (l Location) String() string {
	if l.InMemory {
		return memoryName
	}
	return l.Path
}
