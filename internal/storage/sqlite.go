// Package storage keeps odin's local state in SQLite: the import run
// history and, with the sqlite vector backend, the document vectors.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const dbFile = "odin.db"

// Pragmas applied to every connection. WAL is ignored for in-memory
// databases.
const pragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// Store is an open, migrated database.
type Store struct {
	db *sql.DB
}

// Open opens or creates odin.db in dataDir and applies pending migrations.
// ":memory:" opens a private in-memory database.
func Open(dataDir string) (*Store, error) {
	dsn := ":memory:"
	if dataDir != ":memory:" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = "file:" + filepath.Join(dataDir, dbFile)
	}

	db, err := sql.Open("sqlite", dsn+pragmas)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: writers never contend and an in-memory database is
	// not split across connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the connection for components that share the database, such as
// the SQLite vector store.
func (s *Store) DB() *sql.DB {
	return s.db
}
