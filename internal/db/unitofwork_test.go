package db_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/coursetrack/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openUoW(t *testing.T) (*db.SQLiteUnitOfWork, *sql.DB) {
	t.Helper()
	database, err := db.OpenDB(db.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return db.NewSQLiteUnitOfWork(database), database
}

func putEntry(ctx context.Context, tx db.DBTX, key, value string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, '2026-01-01T00:00:00Z')`, key, value)
	return err
}

func entryExists(t *testing.T, database *sql.DB, key string) bool {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM kv_entries WHERE key = ?`, key).Scan(&n))
	return n > 0
}

func TestWithinTx_CommitOnSuccess(t *testing.T) {
	uow, database := openUoW(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		return putEntry(ctx, tx, "completedLessons_c1", `["l1"]`)
	})
	require.NoError(t, err)

	assert.True(t, entryExists(t, database, "completedLessons_c1"))
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	uow, database := openUoW(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := putEntry(ctx, tx, "completedLessons_c2", `[]`); err != nil {
			return err
		}
		return errors.New("deliberate failure")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deliberate failure")

	assert.False(t, entryExists(t, database, "completedLessons_c2"))
}

func TestWithinTx_RollbackOnPanic(t *testing.T) {
	uow, database := openUoW(t)

	assert.Panics(t, func() {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
			_ = putEntry(ctx, tx, "completedLessons_c3", `[]`)
			panic("boom")
		})
	})

	assert.False(t, entryExists(t, database, "completedLessons_c3"))
}

func TestWithinTx_SessionAndProgressRowsRollBackTogether(t *testing.T) {
	uow, database := openUoW(t)
	ctx := context.Background()

	err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, user_id, access_token, created_at) VALUES ('s1', 'u1', 'tok', '2026-01-01T00:00:00Z')`); err != nil {
			return err
		}
		if err := putEntry(ctx, tx, "completedLessons_c4", `["l1"]`); err != nil {
			return err
		}
		// primary key clash on the second write
		return putEntry(ctx, tx, "completedLessons_c4", `["l1","l2"]`)
	})
	require.Error(t, err)

	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n))
	assert.Zero(t, n)
	assert.False(t, entryExists(t, database, "completedLessons_c4"))
}

func TestOpenDB_AppliesPragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "coursetrack.db")
	database, err := db.OpenDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	var mode string
	require.NoError(t, database.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, database.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}
