//go:build !sqlite_plain

package database

import (
	"database/sql/driver"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4" // SQLCipher driver
)

// EncryptionSupported reports whether this build can open keyed databases.
const EncryptionSupported = true

// engineDriver is the package path of the linked engine, for logging.
const engineDriver = "github.com/mutecomm/go-sqlcipher/v4"

func newDriver() driver.Driver {
	return &sqlcipher.SQLiteDriver{}
}
