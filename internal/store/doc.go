// Package store provides typed, transactional access to SealDB databases.
//
// This package manages:
//   - A connection registry keyed by (name, credential) identity
//   - Strict parameter binding (text, bool as integer, real, null only)
//   - Scoped transactions that commit on success and roll back on every other exit
//   - Statement execution, cursors, trusted script execution, and lenient counts
//   - Maintenance: schema version, local key-value storage, full reset
//
// Security Considerations:
//   - Arguments are always bound, never interpolated into SQL
//   - ExecuteScript splits on ';' without parsing and must only receive
//     SQL generated by this program, never user or external input
//   - Credentials are never logged and are not used as plaintext map keys
//
// Usage:
//
//	reg := store.NewRegistry(store.NewOpener(dbCfg, store.WithLogger(log)))
//	defer reg.CloseAll()
//
//	conn, err := reg.Acquire(ctx, store.Identity{Name: "notes", Credential: secret})
//	if err != nil {
//	    return err
//	}
//
//	err = conn.Transaction(ctx, func(tx *store.Tx) error {
//	    return tx.Execute(ctx, "INSERT INTO notes (body, pinned) VALUES (?, ?)", "hello", true)
//	})
//
// Transactions:
//
// Work passed to Transaction must issue statements through the *Tx it
// receives. Calling the parent Connection from inside the work blocks on the
// connection's writer lock. Nested Tx.Transaction calls use savepoints.
package store
