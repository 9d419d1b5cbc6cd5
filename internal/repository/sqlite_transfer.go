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

// transferColumns is the canonical SELECT column list for transfer_requests.
const transferColumns = `id, kind, code, request_type, from_project_id, to_project_id,
		from_task_id, to_task_id, priority, status, request_date, requester_id,
		approver_id, decided_at, note, deleted, deleted_at, created_at, updated_at`

// SQLiteTransferRepo implements TransferRepo using a SQLite database.
type SQLiteTransferRepo struct {
	db db.DBTX
}

// NewSQLiteTransferRepo creates a new SQLiteTransferRepo.
func NewSQLiteTransferRepo(conn db.DBTX) *SQLiteTransferRepo {
	return &SQLiteTransferRepo{db: conn}
}

// Create inserts the request and its lines. Callers run it inside a unit of
// work so a failed line leaves no header behind.
func (r *SQLiteTransferRepo) Create(ctx context.Context, t *domain.TransferRequest) error {
	query := `INSERT INTO transfer_requests (` + transferColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		string(t.Kind),
		t.Code,
		t.RequestType,
		emptyToNull(t.FromProjectID),
		t.ToProjectID,
		nullableString(t.FromTaskID),
		nullableString(t.ToTaskID),
		string(t.Priority),
		string(t.Status),
		t.RequestDate.UTC().Format(dateLayout),
		t.RequesterID,
		nullableString(t.ApproverID),
		nullableTimeToString(t.DecidedAt, time.RFC3339),
		t.Note,
		boolToInt(t.Deleted),
		nullableTimeToString(t.DeletedAt, time.RFC3339),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s code %s: %w", t.Kind, t.Code, domain.ErrDuplicateCode)
		}
		return fmt.Errorf("inserting transfer request: %w", err)
	}

	for i := range t.Lines {
		line := &t.Lines[i]
		line.RequestID = t.ID
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO transfer_lines (id, request_id, line_no, resource_type, resource_id, quantity)
			VALUES (?, ?, ?, ?, ?, ?)`,
			line.ID, t.ID, i+1, string(line.Resource.Kind()), line.Resource.ID(), line.Quantity.String())
		if err != nil {
			return fmt.Errorf("inserting transfer line %d: %w", i+1, err)
		}
	}
	return nil
}

func (r *SQLiteTransferRepo) GetByID(ctx context.Context, id string) (*domain.TransferRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transferColumns+` FROM transfer_requests WHERE id = ?`, id)
	t, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transfer request %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if t.Lines, err = r.listLines(ctx, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *SQLiteTransferRepo) CodeInUse(ctx context.Context, kind domain.TransferKind, code string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transfer_requests WHERE kind = ? AND code = ? AND deleted = 0`,
		string(kind), code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking transfer code: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteTransferRepo) List(ctx context.Context, f TransferFilter) ([]*domain.TransferRequest, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_requests WHERE 1 = 1`
	var args []any
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(f.Kind))
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if !f.IncludeDeleted {
		query += ` AND deleted = 0`
	}
	query += ` ORDER BY request_date, created_at, code`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfer requests: %w", err)
	}
	var out []*domain.TransferRequest
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating transfer requests: %w", err)
	}
	rows.Close()

	// Lines are loaded after the cursor closes; a single-connection pool
	// cannot serve a second query while the first is open.
	for _, t := range out {
		if t.Lines, err = r.listLines(ctx, t.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SQLiteTransferRepo) UpdateStatus(ctx context.Context, t *domain.TransferRequest, from domain.TransferStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transfer_requests SET status = ?, approver_id = ?, decided_at = ?, updated_at = ?
		WHERE id = ? AND status = ? AND deleted = 0`,
		string(t.Status),
		nullableString(t.ApproverID),
		nullableTimeToString(t.DecidedAt, time.RFC3339),
		formatTime(t.UpdatedAt),
		t.ID,
		string(from),
	)
	if err != nil {
		return fmt.Errorf("updating transfer status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Transitionf("request %s is no longer %s", t.Code, from)
	}
	return nil
}

func (r *SQLiteTransferRepo) SoftDelete(ctx context.Context, t *domain.TransferRequest) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transfer_requests SET deleted = 1, deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted = 0 AND status <> 'approved'`,
		nullableTimeToString(t.DeletedAt, time.RFC3339), formatTime(t.UpdatedAt), t.ID)
	if err != nil {
		return fmt.Errorf("soft-deleting transfer request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Transitionf("request %s cannot be deleted", t.Code)
	}
	return nil
}

func (r *SQLiteTransferRepo) listLines(ctx context.Context, requestID string) ([]domain.TransferLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, request_id, resource_type, resource_id, quantity
		FROM transfer_lines WHERE request_id = ? ORDER BY line_no`, requestID)
	if err != nil {
		return nil, fmt.Errorf("listing transfer lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.TransferLine
	for rows.Next() {
		var l domain.TransferLine
		var kind, resourceID, quantity string
		if err := rows.Scan(&l.ID, &l.RequestID, &kind, &resourceID, &quantity); err != nil {
			return nil, fmt.Errorf("scanning transfer line: %w", err)
		}
		if l.Resource, err = resourceRef(kind, resourceID); err != nil {
			return nil, err
		}
		if err := parseDecimals(dec("quantity", quantity, &l.Quantity)); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transfer lines: %w", err)
	}
	return lines, nil
}

func scanTransfer(row scanner) (*domain.TransferRequest, error) {
	var t domain.TransferRequest
	var kind, priority, status, requestDate, createdAtStr, updatedAtStr string
	var fromProject, fromTask, toTask, approver, decidedAt, deletedAt sql.NullString
	var deleted int

	err := row.Scan(
		&t.ID, &kind, &t.Code, &t.RequestType, &fromProject, &t.ToProjectID,
		&fromTask, &toTask, &priority, &status, &requestDate, &t.RequesterID,
		&approver, &decidedAt, &t.Note, &deleted, &deletedAt, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning transfer request: %w", err)
	}
	t.Kind = domain.TransferKind(kind)
	t.Priority = domain.TransferPriority(priority)
	t.Status = domain.TransferStatus(status)
	t.FromProjectID = fromProject.String
	t.FromTaskID = stringPtr(fromTask)
	t.ToTaskID = stringPtr(toTask)
	t.ApproverID = stringPtr(approver)
	t.DecidedAt = parseNullableTime(decidedAt, time.RFC3339)
	t.Deleted = intToBool(deleted)
	t.DeletedAt = parseNullableTime(deletedAt, time.RFC3339)
	if t.RequestDate, err = time.Parse(dateLayout, requestDate); err != nil {
		return nil, fmt.Errorf("parsing request_date: %w", err)
	}
	if t.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}
	return &t, nil
}
