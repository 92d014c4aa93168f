// Package storage provides journal storage backends.
//
// SQLiteStorage persists entries in a SQLite database. Two database/sql
// drivers are supported: "sqlite" (modernc.org/sqlite, pure Go, the default)
// and "sqlite3" (github.com/mattn/go-sqlite3, requires cgo). Both share the
// same schema, so a database written by one can be read by the other.
//
// MemoryStorage keeps entries in memory and is used by tests and by
// processes that only need the journal while they run.
package storage
