package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
)

// planItemColumns is the canonical SELECT column list for plan_items.
const planItemColumns = `id, plan_id, work_code, idx, parent_index, name, unit,
		quantity, unit_price, total_price, start_date, end_date, relations,
		deleted, deleted_at, created_at, updated_at`

// SQLitePlanItemRepo implements PlanItemRepo using a SQLite database.
type SQLitePlanItemRepo struct {
	db db.DBTX
}

// NewSQLitePlanItemRepo creates a new SQLitePlanItemRepo.
func NewSQLitePlanItemRepo(conn db.DBTX) *SQLitePlanItemRepo {
	return &SQLitePlanItemRepo{db: conn}
}

func (r *SQLitePlanItemRepo) Create(ctx context.Context, it *domain.PlanItem) error {
	query := `INSERT INTO plan_items (` + planItemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		it.ID,
		it.PlanID,
		it.WorkCode,
		it.Index,
		nullableString(it.ParentIndex),
		it.Name,
		it.Unit,
		it.Quantity.String(),
		it.UnitPrice.String(),
		it.TotalPrice.String(),
		nullableTimeToString(it.StartDate, dateLayout),
		nullableTimeToString(it.EndDate, dateLayout),
		it.Relations,
		boolToInt(it.Deleted),
		nullableTimeToString(it.DeletedAt, time.RFC3339),
		formatTime(it.CreatedAt),
		formatTime(it.UpdatedAt),
	)
	if err != nil {
		return planItemWriteError("inserting", it, err)
	}
	return nil
}

func (r *SQLitePlanItemRepo) GetByID(ctx context.Context, id string) (*domain.PlanItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+planItemColumns+` FROM plan_items WHERE id = ?`, id)
	return r.scanOne(row, "plan item "+id)
}

func (r *SQLitePlanItemRepo) GetByWorkCode(ctx context.Context, workCode string) (*domain.PlanItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+planItemColumns+` FROM plan_items WHERE work_code = ? AND deleted = 0`, workCode)
	return r.scanOne(row, "plan item "+workCode)
}

func (r *SQLitePlanItemRepo) GetByIndex(ctx context.Context, planID, index string) (*domain.PlanItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+planItemColumns+` FROM plan_items WHERE plan_id = ? AND idx = ? AND deleted = 0`, planID, index)
	return r.scanOne(row, "plan item at index "+index)
}

// ListByPlan returns a plan's items in dotted-index order.
func (r *SQLitePlanItemRepo) ListByPlan(ctx context.Context, planID string, includeDeleted bool) ([]*domain.PlanItem, error) {
	query := `SELECT ` + planItemColumns + ` FROM plan_items WHERE plan_id = ?`
	if !includeDeleted {
		query += ` AND deleted = 0`
	}
	rows, err := r.db.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("listing plan items: %w", err)
	}
	defer rows.Close()

	var items []*domain.PlanItem
	for rows.Next() {
		it, err := scanPlanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan items: %w", err)
	}
	domain.SortPlanItems(items)
	return items, nil
}

func (r *SQLitePlanItemRepo) CountLiveChildren(ctx context.Context, planID, index string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM plan_items WHERE plan_id = ? AND parent_index = ? AND deleted = 0`,
		planID, index).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting live children: %w", err)
	}
	return n, nil
}

func (r *SQLitePlanItemRepo) Update(ctx context.Context, it *domain.PlanItem) error {
	query := `UPDATE plan_items SET idx = ?, parent_index = ?, name = ?, unit = ?,
		quantity = ?, unit_price = ?, total_price = ?, start_date = ?, end_date = ?,
		relations = ?, updated_at = ?
		WHERE id = ? AND deleted = 0`
	res, err := r.db.ExecContext(ctx, query,
		it.Index,
		nullableString(it.ParentIndex),
		it.Name,
		it.Unit,
		it.Quantity.String(),
		it.UnitPrice.String(),
		it.TotalPrice.String(),
		nullableTimeToString(it.StartDate, dateLayout),
		nullableTimeToString(it.EndDate, dateLayout),
		it.Relations,
		formatTime(it.UpdatedAt),
		it.ID,
	)
	if err != nil {
		return planItemWriteError("updating", it, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("plan item %s: %w", it.WorkCode, ErrNotFound)
	}
	return nil
}

func (r *SQLitePlanItemRepo) ReparentChildren(ctx context.Context, planID, oldIndex, newIndex string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE plan_items SET parent_index = ?, updated_at = ?
		WHERE plan_id = ? AND parent_index = ? AND deleted = 0`,
		newIndex, formatTime(at), planID, oldIndex)
	if err != nil {
		return 0, fmt.Errorf("rewriting child parent indexes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting rewritten children: %w", err)
	}
	return n, nil
}

func (r *SQLitePlanItemRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	ts := formatTime(at)
	res, err := r.db.ExecContext(ctx,
		`UPDATE plan_items SET deleted = 1, deleted_at = ?, updated_at = ? WHERE id = ? AND deleted = 0`,
		ts, ts, id)
	if err != nil {
		return fmt.Errorf("soft-deleting plan item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("plan item %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLitePlanItemRepo) scanOne(row *sql.Row, what string) (*domain.PlanItem, error) {
	it, err := scanPlanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return it, err
}

func scanPlanItem(row scanner) (*domain.PlanItem, error) {
	var it domain.PlanItem
	var parentIndex, startDate, endDate, deletedAt sql.NullString
	var quantity, unitPrice, totalPrice, createdAtStr, updatedAtStr string
	var deleted int

	err := row.Scan(
		&it.ID, &it.PlanID, &it.WorkCode, &it.Index, &parentIndex, &it.Name, &it.Unit,
		&quantity, &unitPrice, &totalPrice, &startDate, &endDate, &it.Relations,
		&deleted, &deletedAt, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning plan item: %w", err)
	}

	if err := parseDecimals(
		dec("quantity", quantity, &it.Quantity),
		dec("unit_price", unitPrice, &it.UnitPrice),
		dec("total_price", totalPrice, &it.TotalPrice),
	); err != nil {
		return nil, err
	}
	it.ParentIndex = stringPtr(parentIndex)
	it.StartDate = parseNullableTime(startDate, dateLayout)
	it.EndDate = parseNullableTime(endDate, dateLayout)
	it.Deleted = intToBool(deleted)
	it.DeletedAt = parseNullableTime(deletedAt, time.RFC3339)
	if it.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if it.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}
	return &it, nil
}

// planItemWriteError maps live-uniqueness violations onto the domain conflicts.
func planItemWriteError(verb string, it *domain.PlanItem, err error) error {
	if isUniqueViolation(err) {
		if strings.Contains(err.Error(), "work_code") {
			return fmt.Errorf("work code %s: %w", it.WorkCode, domain.ErrDuplicateWorkCode)
		}
		return fmt.Errorf("index %s: %w", it.Index, domain.ErrDuplicateIndex)
	}
	return fmt.Errorf("%s plan item: %w", verb, err)
}
