package testutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/alexanderramin/foreman/internal/db"
)

// FailOnNthExecUoW injects Err on the FailOn-th write of a unit of work so
// tests can check that multi-row operations (reparenting, transfer approval,
// import) leave nothing behind when a later write fails.
//
// Writes are ExecContext calls counted from 1. When Match is set only
// statements containing it (case-insensitive) are counted, e.g. "inventory"
// to fail the second balance write of an approval. Reads are never counted.
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int32
	Match  string
	Err    error

	// Calls counts the writes seen across every transaction, injected or not.
	Calls atomic.Int32
}

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn db.TxFunc) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	wrapped := &failOnNthExec{DBTX: tx, uow: u, match: strings.ToLower(u.Match)}
	if fnErr := fn(ctx, wrapped); fnErr != nil {
		_ = tx.Rollback()
		return fnErr
	}
	return tx.Commit()
}

type failOnNthExec struct {
	db.DBTX
	uow   *FailOnNthExecUoW
	match string
	count atomic.Int32
}

func (f *failOnNthExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.match == "" || strings.Contains(strings.ToLower(query), f.match) {
		f.uow.Calls.Add(1)
		if f.count.Add(1) == f.uow.FailOn {
			return nil, f.uow.Err
		}
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}

// ConflictOnceUoW runs every unit of work through a retrying
// db.SQLiteUnitOfWork and fails the first attempt of each with Err after fn
// has returned, the way a stale version or a busy database surfaces at the
// end of a transaction. The second attempt commits. Tests use it to check
// that fn rebuilds its results from tx instead of adding to the last try's.
//
// BeforeRetry, when set, runs after the failed attempt has rolled back and
// before the next one begins, so a test can commit a competing write.
type ConflictOnceUoW struct {
	DB          *sql.DB
	Err         error
	BeforeRetry func()

	// Attempts counts fn invocations across every unit of work.
	Attempts atomic.Int32
}

func (u *ConflictOnceUoW) WithinTx(ctx context.Context, fn db.TxFunc) error {
	retrying := db.NewSQLiteUnitOfWork(u.DB, db.WithRetry(2, func(err error) bool {
		if !errors.Is(err, u.Err) {
			return false
		}
		if u.BeforeRetry != nil {
			u.BeforeRetry()
		}
		return true
	}))
	first := true
	return retrying.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		u.Attempts.Add(1)
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if first {
			first = false
			return u.Err
		}
		return nil
	})
}
