// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. It implements every persistence port through a single database connection:
//
//   - ProjectStore: projects and their ingestion status
//   - FileStore: source file records with content hashes
//   - DocumentationStore: append-only generated documentation
//   - VectorIndex: chunk vectors as little-endian float32 blobs, scored in Go
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.codexai/data/codexai.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
