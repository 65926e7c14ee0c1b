package db

import (
	"context"
	"database/sql"
)

// DBTX is what the SQLite repositories query through. The session and
// kv_entries repositories accept it so the same code runs against the pool
// or inside a WithinTx callback.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)
