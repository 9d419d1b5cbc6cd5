package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
)

const detailLineColumns = `id, plan_item_id, work_code, resource_type, resource_id,
		quantity, unit_price, total, created_at`

// SQLiteDetailLineRepo implements DetailLineRepo using a SQLite database.
type SQLiteDetailLineRepo struct {
	db db.DBTX
}

// NewSQLiteDetailLineRepo creates a new SQLiteDetailLineRepo.
func NewSQLiteDetailLineRepo(conn db.DBTX) *SQLiteDetailLineRepo {
	return &SQLiteDetailLineRepo{db: conn}
}

func (r *SQLiteDetailLineRepo) Create(ctx context.Context, d *domain.DetailLine) error {
	query := `INSERT INTO detail_lines (` + detailLineColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.PlanItemID,
		d.WorkCode,
		string(d.Resource.Kind()),
		d.Resource.ID(),
		d.Quantity.String(),
		d.UnitPrice.String(),
		d.Total.String(),
		formatTime(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting detail line: %w", err)
	}
	return nil
}

func (r *SQLiteDetailLineRepo) GetByID(ctx context.Context, id string) (*domain.DetailLine, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+detailLineColumns+` FROM detail_lines WHERE id = ?`, id)
	d, err := scanDetailLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("detail line %s: %w", id, ErrNotFound)
	}
	return d, err
}

func (r *SQLiteDetailLineRepo) ListByItem(ctx context.Context, planItemID string) ([]*domain.DetailLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+detailLineColumns+` FROM detail_lines WHERE plan_item_id = ? ORDER BY created_at, id`, planItemID)
	if err != nil {
		return nil, fmt.Errorf("listing detail lines: %w", err)
	}
	defer rows.Close()

	var lines []*domain.DetailLine
	for rows.Next() {
		d, err := scanDetailLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating detail lines: %w", err)
	}
	return lines, nil
}

func (r *SQLiteDetailLineRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM detail_lines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting detail line: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("detail line %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanDetailLine(row scanner) (*domain.DetailLine, error) {
	var d domain.DetailLine
	var kind, resourceID, quantity, unitPrice, total, createdAtStr string
	err := row.Scan(&d.ID, &d.PlanItemID, &d.WorkCode, &kind, &resourceID,
		&quantity, &unitPrice, &total, &createdAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning detail line: %w", err)
	}
	if d.Resource, err = resourceRef(kind, resourceID); err != nil {
		return nil, err
	}
	if err := parseDecimals(
		dec("quantity", quantity, &d.Quantity),
		dec("unit_price", unitPrice, &d.UnitPrice),
		dec("total", total, &d.Total),
	); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	return &d, nil
}
