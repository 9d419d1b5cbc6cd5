package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
)

// leaseLayout is fixed-width UTC so stored instants compare correctly as text.
const leaseLayout = "2006-01-02T15:04:05.000000000Z"

func leaseTime(t time.Time) string {
	return t.UTC().Format(leaseLayout)
}

// SQLiteLeaseStore implements LeaseStore on the plan_edit_leases table.
// Each operation is a single conditional statement, so it is atomic without
// an enclosing transaction.
type SQLiteLeaseStore struct {
	db db.DBTX
}

var _ TxScopedLeaseStore = (*SQLiteLeaseStore)(nil)

// NewSQLiteLeaseStore creates a new SQLiteLeaseStore.
func NewSQLiteLeaseStore(conn db.DBTX) *SQLiteLeaseStore {
	return &SQLiteLeaseStore{db: conn}
}

// WithTx returns a store bound to tx.
func (s *SQLiteLeaseStore) WithTx(tx db.DBTX) LeaseStore {
	return NewSQLiteLeaseStore(tx)
}

func (s *SQLiteLeaseStore) Acquire(ctx context.Context, planID, actorID string, now time.Time, ttl time.Duration) (*domain.PlanEditLease, error) {
	nowStr := leaseTime(now)
	// The holder's own live lease keeps its acquired_at; anything else
	// (first acquisition or takeover of an expired lease) starts fresh.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO plan_edit_leases (plan_id, holder_id, acquired_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(plan_id) DO UPDATE SET
			acquired_at = CASE
				WHEN plan_edit_leases.holder_id = excluded.holder_id AND plan_edit_leases.expires_at > ?
				THEN plan_edit_leases.acquired_at
				ELSE excluded.acquired_at END,
			holder_id = excluded.holder_id,
			expires_at = excluded.expires_at
		WHERE plan_edit_leases.holder_id = excluded.holder_id OR plan_edit_leases.expires_at <= ?`,
		planID, actorID, nowStr, leaseTime(now.Add(ttl)), nowStr, nowStr)
	if err != nil {
		return nil, fmt.Errorf("acquiring plan lease: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		held, err := s.Get(ctx, planID, now)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", planID, domain.ErrLockHeld)
		}
		return nil, fmt.Errorf("plan %s held by %s until %s: %w",
			planID, held.HolderID, held.ExpiresAt.Format(time.RFC3339), domain.ErrLockHeld)
	}
	return s.Get(ctx, planID, now)
}

func (s *SQLiteLeaseStore) Renew(ctx context.Context, planID, actorID string, now time.Time, ttl time.Duration) (*domain.PlanEditLease, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE plan_edit_leases SET expires_at = ?
		WHERE plan_id = ? AND holder_id = ? AND expires_at > ?`,
		leaseTime(now.Add(ttl)), planID, actorID, leaseTime(now))
	if err != nil {
		return nil, fmt.Errorf("renewing plan lease: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("plan %s, actor %s: %w", planID, actorID, domain.ErrNotHolder)
	}
	return s.Get(ctx, planID, now)
}

func (s *SQLiteLeaseStore) Release(ctx context.Context, planID, actorID string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM plan_edit_leases WHERE plan_id = ? AND holder_id = ? AND expires_at > ?`,
		planID, actorID, leaseTime(now))
	if err != nil {
		return fmt.Errorf("releasing plan lease: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("plan %s, actor %s: %w", planID, actorID, domain.ErrNotHolder)
	}
	return nil
}

func (s *SQLiteLeaseStore) Get(ctx context.Context, planID string, now time.Time) (*domain.PlanEditLease, error) {
	var l domain.PlanEditLease
	var acquired, expires string
	err := s.db.QueryRowContext(ctx,
		`SELECT plan_id, holder_id, acquired_at, expires_at FROM plan_edit_leases
		WHERE plan_id = ? AND expires_at > ?`,
		planID, leaseTime(now)).Scan(&l.PlanID, &l.HolderID, &acquired, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("plan %s: %w", planID, domain.ErrLeaseNotFound)
		}
		return nil, fmt.Errorf("loading plan lease: %w", err)
	}
	if l.AcquiredAt, err = time.Parse(leaseLayout, acquired); err != nil {
		return nil, fmt.Errorf("parsing acquired_at: %w", err)
	}
	if l.ExpiresAt, err = time.Parse(leaseLayout, expires); err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	return &l, nil
}
