//go:build sqlite_plain

// Plain SQLite engine using mattn/go-sqlite3.
// This is used when the sqlite_plain build tag is set.
//
// Build with: go build -tags sqlite_plain
// Requires: CGO_ENABLED=1
package database

import (
	"database/sql/driver"

	sqlite3 "github.com/mattn/go-sqlite3" // SQLite driver
)

// EncryptionSupported reports whether this build can open keyed databases.
const EncryptionSupported = false

// engineDriver is the package path of the linked engine, for logging.
const engineDriver = "github.com/mattn/go-sqlite3"

func newDriver() driver.Driver {
	return &sqlite3.SQLiteDriver{}
}
