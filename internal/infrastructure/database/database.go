package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Database configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	// connMaxIdleTime is how long idle on-disk connections are kept open.
	connMaxIdleTime = 30 * time.Minute

	// defaultMaxReaders is the pool size used for WAL databases when unset.
	defaultMaxReaders = 4
)

// DB wraps a sql.DB pool over one engine database.
// It provides key verification, health checks, and proper lifecycle management.
type DB struct {
	*sql.DB
	loc       Location
	encrypted bool
}

// Config contains engine configuration options.
// These map to the database section of config.yaml.
type Config struct {
	// Dir is the directory holding on-disk database files.
	// The directory will be created if it doesn't exist.
	Dir string

	// WALMode enables Write-Ahead Logging for concurrent readers.
	// Ignored for in-memory databases.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	// Prevents "database is locked" errors under contention.
	BusyTimeout int

	// MaxReaders caps the engine connection pool for WAL databases.
	// Zero means the default (4). Non-WAL and in-memory databases always use one.
	MaxReaders int
}

// Open creates a new engine pool for the given location.
//
// It performs the following setup:
//  1. Refuses a credential when the build has no cipher support
//  2. Creates the database directory if it doesn't exist
//  3. Opens the database (creates if not present) through a connector that
//     keys and configures every engine connection
//  4. Sizes the pool for the location (single connection for memory and non-WAL)
//  5. Verifies the key by reading the schema
//  6. Sets appropriate file permissions (0600)
//
// Parameters:
//   - ctx: Context for the verification queries
//   - loc: Resolved storage location
//   - credential: SQLCipher passphrase, empty for an unencrypted database
//   - cfg: Engine configuration
//
// Returns:
//   - *DB: Open database wrapper
//   - error: If the directory, open, or key verification fails
func Open(ctx context.Context, loc Location, credential string, cfg Config) (*DB, error) {
	if credential != "" && !EncryptionSupported {
		return nil, ErrEncryptionUnsupported
	}

	if !loc.InMemory {
		if err := os.MkdirAll(filepath.Dir(loc.Path), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	wal := cfg.WALMode && !loc.InMemory
	c := &connector{
		drv:     newDriver(),
		dsn:     buildDSN(loc, credential, cfg),
		pragmas: connectionPragmas(wal),
	}
	sqlDB := sql.OpenDB(c)
	configurePool(sqlDB, loc, wal, cfg.MaxReaders)

	db := &DB{
		DB:        sqlDB,
		loc:       loc,
		encrypted: credential != "",
	}

	verifyCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := db.verify(verifyCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, err
	}

	if !loc.InMemory {
		_ = os.Chmod(loc.Path, filePermissions) //nolint:errcheck // File exists after verify; failure is not fatal
	}

	return db, nil
}

// buildDSN builds the driver connection string.
// See: https://github.com/mattn/go-sqlite3#connection-string
//
// The driver runs its own pragmas against the file before Open returns, so
// the key has to be applied by the driver itself through _pragma_key, which it
// issues straight after opening. The driver wraps the value in double quotes.
// The DSN holds the credential and must never be logged.
func buildDSN(loc Location, credential string, cfg Config) string {
	target := memoryName
	if !loc.InMemory {
		target = uriPathEscaper.Replace(loc.Path)
	}

	params := url.Values{}
	params.Set("_busy_timeout", strconv.Itoa(cfg.BusyTimeout*msPerSecond))
	params.Set("_txlock", "immediate")
	if credential != "" {
		params.Set("_pragma_key", strings.ReplaceAll(credential, `"`, `""`))
	}
	return "file:" + target + "?" + params.Encode()
}

// uriPathEscaper escapes the characters SQLite treats specially in the path
// of a file: URI, so a directory containing them still names one file.
var uriPathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// configurePool sizes the database/sql pool for the location.
func configurePool(sqlDB *sql.DB, loc Location, wal bool, maxReaders int) {
	if loc.InMemory {
		// Each engine connection to :memory: is a separate database, so the
		// pool must hold exactly one connection and never recycle it.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		return
	}

	conns := 1 // SQLite only supports one writer
	if wal {
		conns = maxReaders
		if conns <= 0 {
			conns = defaultMaxReaders
		}
	}
	sqlDB.SetMaxOpenConns(conns)
	sqlDB.SetMaxIdleConns(conns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

// verify opens the first engine connection and proves the key can read the schema.
func (db *DB) verify(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrKeyRejected, err)
	}

	var tables int
	if err := db.DB.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&tables); err != nil {
		return fmt.Errorf("%w: %w", ErrKeyRejected, err)
	}
	return nil
}

// Close closes the database pool gracefully.
// It should be called when the owning connection is released.
//
// Returns:
//   - error: If closing fails
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Location returns the resolved storage location.
func (db *DB) Location() Location {
	return db.loc
}

// Path returns the filesystem path to the database file (empty for memory).
func (db *DB) Path() string {
	return db.loc.Path
}

// Encrypted reports whether the database was opened with a credential.
func (db *DB) Encrypted() bool {
	return db.encrypted
}

// Engine returns the package path of the linked engine driver.
func Engine() string {
	return engineDriver
}

// HealthCheck verifies the database is accessible and functioning.
// It performs a simple query to ensure the connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (db *DB) HealthCheck(ctx context.Context) error {
	var result int
	err := db.DB.QueryRowContext(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Stats returns database connection pool statistics.
// Useful for monitoring and debugging connection issues.
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// errNoCipher is returned by CipherVersion when the engine has no cipher support.
var errNoCipher = errors.New("no cipher_version reported")

// CipherVersion returns the SQLCipher version string of the linked engine.
//
// Returns:
//   - string: Version such as "4.5.6 community"
//   - error: If the engine does not report a cipher version
func (db *DB) CipherVersion(ctx context.Context) (string, error) {
	var version string
	err := db.DB.QueryRowContext(ctx, "PRAGMA cipher_version").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %w", ErrEncryptionUnsupported, errNoCipher)
	}
	if err != nil {
		return "", fmt.Errorf("reading cipher version: %w", err)
	}
	return version, nil
}
