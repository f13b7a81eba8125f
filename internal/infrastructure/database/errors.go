package database

import "errors"

// Sentinel errors for engine operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, database.ErrKeyRejected) {
//	    // Wrong credential or not a database file
//	}
var (
	// ErrInvalidName indicates the logical database name cannot be mapped to a location.
	ErrInvalidName = errors.New("database: invalid database name")

	// ErrEncryptionUnsupported indicates a credential was supplied to a build
	// without cipher support (sqlite_plain).
	ErrEncryptionUnsupported = errors.New("database: engine built without encryption support")

	// ErrKeyRejected indicates the engine could not read the schema after keying.
	// Either the credential is wrong or the file is corrupt / not a database.
	ErrKeyRejected = errors.New("database: key rejected or file is not a database")
)
