package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/coursetrack/internal/db"
)

// SQLiteKVStore implements KVStore on the kv_entries table.
type SQLiteKVStore struct {
	db db.DBTX
}

// NewSQLiteKVStore creates a new SQLiteKVStore.
func NewSQLiteKVStore(conn db.DBTX) *SQLiteKVStore {
	return &SQLiteKVStore{db: conn}
}

func (s *SQLiteKVStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("kv entry %q: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("reading kv entry: %w", err)
	}
	return value, nil
}

func (s *SQLiteKVStore) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, key, value, nowUTC()); err != nil {
		return fmt.Errorf("writing kv entry: %w", err)
	}
	return nil
}

func (s *SQLiteKVStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting kv entry: %w", err)
	}
	return nil
}

func (s *SQLiteKVStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("pinging sqlite: %w", err)
	}
	return nil
}
