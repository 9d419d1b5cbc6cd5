package db

import (
	"context"
	"database/sql"
)

// DBTX is what repositories run their statements against: the pool for
// single-statement reads, or the *sql.Tx handed out by a UnitOfWork.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxFunc is one attempt at a unit of work. It may run more than once when
// the UnitOfWork retries, so it must rebuild its state from tx on each call.
type TxFunc func(ctx context.Context, tx DBTX) error

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)
