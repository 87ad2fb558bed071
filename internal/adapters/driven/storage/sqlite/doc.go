// Package sqlite provides a SQLite-based implementation of the event history.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It records the outcome of every
// monitoring tick and change event so operators can audit what was detected,
// summarised and reported.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is an .up.sql file applied in order.
//
// # Data Location
//
// By default, the database is stored at ~/.policywatch/data/history.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
