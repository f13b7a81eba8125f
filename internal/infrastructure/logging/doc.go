// Package logging provides structured logging for SealDB.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output (machine-parsable) or text output (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Size-based file rotation via lumberjack
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr, file
//	  file:
//	    path: "/var/log/sealdb/sealdb.log"
//	    max_size: 100    # megabytes
//	    max_backups: 3
//	    max_age: 28      # days
//	    compress: true
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	defer logger.Close()
//	logger.Info("database opened", "database", "notes")
//
// # Security
//
// Never log database credentials, tokens, or passwords. Log the database
// name and whether it is encrypted instead.
package logging
