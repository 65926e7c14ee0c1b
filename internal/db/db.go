package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database, used by tests.
const MemoryPath = ":memory:"

// pragmas are applied to every database before migrating. busy_timeout lets
// the CLI and a running server share the file without SQLITE_BUSY on writes.
var pragmas = []struct {
	stmt, what string
}{
	{"PRAGMA journal_mode = WAL", "setting WAL mode"},
	{"PRAGMA foreign_keys = ON", "enabling foreign keys"},
	{"PRAGMA busy_timeout = 5000", "setting busy timeout"},
}

// OpenDB opens the local state database holding the learner session
// (sessions) and the completed-lesson lists (kv_entries), creating the parent
// directory and migrating the schema as needed.
func OpenDB(path string) (*sql.DB, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == MemoryPath {
		// each connection would otherwise see its own empty database
		database.SetMaxOpenConns(1)
	}

	for _, p := range pragmas {
		if _, err := database.Exec(p.stmt); err != nil {
			database.Close()
			return nil, fmt.Errorf("%s: %w", p.what, err)
		}
	}

	if err := Migrate(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return database, nil
}
