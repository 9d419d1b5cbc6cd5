package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
)

// SQLiteCodeSequenceRepo allocates per-kind transfer request numbers
// atomically using the transfer_code_sequences table.
type SQLiteCodeSequenceRepo struct {
	db db.DBTX
}

// NewSQLiteCodeSequenceRepo creates a new SQLiteCodeSequenceRepo.
func NewSQLiteCodeSequenceRepo(conn db.DBTX) *SQLiteCodeSequenceRepo {
	return &SQLiteCodeSequenceRepo{db: conn}
}

// NextSeq returns the next request number for kind. The first call for a
// kind seeds the counter past every request ever stored of that kind.
func (r *SQLiteCodeSequenceRepo) NextSeq(ctx context.Context, kind domain.TransferKind) (int, error) {
	seedQuery := `INSERT OR IGNORE INTO transfer_code_sequences (kind, next_seq)
		SELECT ?, COUNT(*) + 1 FROM transfer_requests WHERE kind = ?`
	if _, err := r.db.ExecContext(ctx, seedQuery, string(kind), string(kind)); err != nil {
		return 0, fmt.Errorf("seeding %s code sequence: %w", kind, err)
	}

	var next int
	allocQuery := `UPDATE transfer_code_sequences
		SET next_seq = next_seq + 1
		WHERE kind = ?
		RETURNING next_seq - 1`
	if err := r.db.QueryRowContext(ctx, allocQuery, string(kind)).Scan(&next); err != nil {
		return 0, fmt.Errorf("allocating next %s code: %w", kind, err)
	}
	return next, nil
}
