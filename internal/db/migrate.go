package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS kv_entries (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		email           TEXT NOT NULL DEFAULT '',
		organization_id TEXT NOT NULL DEFAULT '',
		access_token    TEXT NOT NULL,
		expires_at      TEXT,
		created_at      TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at)`,

	// role arrived after the first release
	`ALTER TABLE sessions ADD COLUMN role TEXT NOT NULL DEFAULT ''`,
}
