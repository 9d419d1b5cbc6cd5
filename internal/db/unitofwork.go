package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// UnitOfWork runs a TxFunc inside one transaction. Everything fn writes is
// committed together or not at all.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// SQLiteUnitOfWork implements UnitOfWork using database/sql transactions.
type SQLiteUnitOfWork struct {
	db        *sql.DB
	attempts  int
	retryable func(error) bool
}

type UnitOfWorkOption func(*SQLiteUnitOfWork)

// WithRetry re-runs a failed unit of work up to attempts times in total while
// retryable reports the failure as transient. Each attempt is a fresh
// transaction, so reads inside fn see what the competing writer committed.
func WithRetry(attempts int, retryable func(error) bool) UnitOfWorkOption {
	return func(u *SQLiteUnitOfWork) {
		if attempts > 0 {
			u.attempts = attempts
		}
		u.retryable = retryable
	}
}

func NewSQLiteUnitOfWork(db *sql.DB, opts ...UnitOfWorkOption) *SQLiteUnitOfWork {
	u := &SQLiteUnitOfWork{db: db, attempts: 1}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *SQLiteUnitOfWork) WithinTx(ctx context.Context, fn TxFunc) error {
	for attempt := 1; ; attempt++ {
		err := u.once(ctx, fn)
		if err == nil || attempt >= u.attempts || u.retryable == nil || !u.retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
}

func (u *SQLiteUnitOfWork) once(ctx context.Context, fn TxFunc) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// IsBusy reports whether err is SQLite giving up on a lock held by another
// connection after the busy timeout.
func IsBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
