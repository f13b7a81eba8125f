// Package database provides the embedded SQLCipher/SQLite engine layer for SealDB.
//
// This package manages:
//   - Resolving a logical database name to a storage location (memory or file)
//   - Opening an engine pool with per-connection configuration (LIKE, encoding, temp store)
//   - WAL mode for concurrent readers with a single writer
//   - Key verification so a wrong credential fails at open time
//   - Connection pool sizing and lifecycle management
//
// Security Considerations:
//   - The credential reaches the driver as the _pragma_key DSN parameter, so every
//     engine connection is keyed before the file is first read
//   - Credentials are never logged or included in error messages
//   - Database file permissions are set to 0600 (owner read/write only)
//   - Builds tagged sqlite_plain have no cipher support and refuse credentials
//
// Performance Characteristics:
//   - WAL mode allows concurrent reads during writes
//   - Busy timeout prevents lock contention errors
//   - In-memory databases use exactly one engine connection that never expires
//
// Usage:
//
//	loc, err := database.Resolve(cfg.Dir, "notes")
//	if err != nil {
//	    return err
//	}
//
//	db, err := database.Open(ctx, loc, credential, cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
// Engine Selection:
//
// The default build links github.com/mutecomm/go-sqlcipher/v4 (self-contained
// SQLCipher). Building with -tags sqlite_plain links github.com/mattn/go-sqlite3
// instead, for environments that only need unencrypted files.
package database
