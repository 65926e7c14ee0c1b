package testutil

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/alexanderramin/coursetrack/internal/db"
)

// FailingExecUoW runs real transactions but fails the first ExecContext whose
// query contains Match, so tests can break e.g. the session insert while the
// preceding delete has already run. Reads pass through.
type FailingExecUoW struct {
	DB    *sql.DB
	Match string
	Err   error
}

func (u *FailingExecUoW) WithinTx(ctx context.Context, fn db.TxFunc) error {
	return db.NewSQLiteUnitOfWork(u.DB).WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, &failingExec{DBTX: tx, match: u.Match, err: u.Err})
	})
}

type failingExec struct {
	db.DBTX
	match string
	err   error

	mu    sync.Mutex
	fired bool
}

func (f *failingExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.mu.Lock()
	hit := !f.fired && strings.Contains(query, f.match)
	if hit {
		f.fired = true
	}
	f.mu.Unlock()
	if hit {
		return nil, f.err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
