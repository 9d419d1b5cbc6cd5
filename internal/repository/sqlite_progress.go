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

// SQLiteProgressRepo implements ProgressRepo using a SQLite database.
type SQLiteProgressRepo struct {
	db db.DBTX
}

// NewSQLiteProgressRepo creates a new SQLiteProgressRepo.
func NewSQLiteProgressRepo(conn db.DBTX) *SQLiteProgressRepo {
	return &SQLiteProgressRepo{db: conn}
}

const progressColumns = `id, plan_id, project_id, created_at, updated_at`

func (r *SQLiteProgressRepo) Create(ctx context.Context, p *domain.ConstructionProgress) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO construction_progress (`+progressColumns+`) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.PlanID, p.ProjectID, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: progress for plan %s in project %s already exists", domain.ErrConflict, p.PlanID, p.ProjectID)
		}
		return fmt.Errorf("inserting construction progress: %w", err)
	}
	return nil
}

func (r *SQLiteProgressRepo) GetByID(ctx context.Context, id string) (*domain.ConstructionProgress, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+progressColumns+` FROM construction_progress WHERE id = ?`, id)
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("construction progress %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (r *SQLiteProgressRepo) GetByPlanProject(ctx context.Context, planID, projectID string) (*domain.ConstructionProgress, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM construction_progress WHERE plan_id = ? AND project_id = ?`, planID, projectID)
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("progress for plan %s in project %s: %w", planID, projectID, ErrNotFound)
	}
	return p, err
}

func (r *SQLiteProgressRepo) ListByPlan(ctx context.Context, planID string) ([]*domain.ConstructionProgress, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM construction_progress WHERE plan_id = ? ORDER BY created_at, id`, planID)
	if err != nil {
		return nil, fmt.Errorf("listing construction progress: %w", err)
	}
	defer rows.Close()

	var out []*domain.ConstructionProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating construction progress: %w", err)
	}
	return out, nil
}

func (r *SQLiteProgressRepo) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE construction_progress SET updated_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("touching construction progress: %w", err)
	}
	return nil
}

func scanProgress(row scanner) (*domain.ConstructionProgress, error) {
	var p domain.ConstructionProgress
	var createdAtStr, updatedAtStr string
	err := row.Scan(&p.ID, &p.PlanID, &p.ProjectID, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning construction progress: %w", err)
	}
	if p.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}
	return &p, nil
}

// progressItemColumns is the canonical SELECT column list for progress_items.
const progressItemColumns = `id, progress_id, work_code, idx, parent_index, name, unit,
		quantity, unit_price, total_price, progress_percent, status,
		plan_start, plan_end, actual_start, actual_end, used_quantity,
		deleted, deleted_at, created_at, updated_at`

// SQLiteProgressItemRepo implements ProgressItemRepo using a SQLite database.
type SQLiteProgressItemRepo struct {
	db db.DBTX
}

// NewSQLiteProgressItemRepo creates a new SQLiteProgressItemRepo.
func NewSQLiteProgressItemRepo(conn db.DBTX) *SQLiteProgressItemRepo {
	return &SQLiteProgressItemRepo{db: conn}
}

func (r *SQLiteProgressItemRepo) Create(ctx context.Context, it *domain.ProgressItem) error {
	query := `INSERT INTO progress_items (` + progressItemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		it.ID,
		it.ProgressID,
		it.WorkCode,
		it.Index,
		nullableString(it.ParentIndex),
		it.Name,
		it.Unit,
		it.Quantity.String(),
		it.UnitPrice.String(),
		it.TotalPrice.String(),
		it.ProgressPercent.String(),
		string(it.Status),
		nullableTimeToString(it.PlanStart, dateLayout),
		nullableTimeToString(it.PlanEnd, dateLayout),
		nullableTimeToString(it.ActualStart, time.RFC3339),
		nullableTimeToString(it.ActualEnd, time.RFC3339),
		it.UsedQuantity.String(),
		boolToInt(it.Deleted),
		nullableTimeToString(it.DeletedAt, time.RFC3339),
		formatTime(it.CreatedAt),
		formatTime(it.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("progress item %s: %w", it.Index, domain.ErrDuplicateIndex)
		}
		return fmt.Errorf("inserting progress item: %w", err)
	}
	return nil
}

func (r *SQLiteProgressItemRepo) GetByID(ctx context.Context, id string) (*domain.ProgressItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+progressItemColumns+` FROM progress_items WHERE id = ?`, id)
	it, err := scanProgressItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("progress item %s: %w", id, ErrNotFound)
	}
	return it, err
}

// ListByProgress returns a progress overlay's items in dotted-index order.
func (r *SQLiteProgressItemRepo) ListByProgress(ctx context.Context, progressID string, includeDeleted bool) ([]*domain.ProgressItem, error) {
	query := `SELECT ` + progressItemColumns + ` FROM progress_items WHERE progress_id = ?`
	if !includeDeleted {
		query += ` AND deleted = 0`
	}
	rows, err := r.db.QueryContext(ctx, query, progressID)
	if err != nil {
		return nil, fmt.Errorf("listing progress items: %w", err)
	}
	defer rows.Close()

	var items []*domain.ProgressItem
	for rows.Next() {
		it, err := scanProgressItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating progress items: %w", err)
	}
	domain.SortProgressItems(items)
	return items, nil
}

func (r *SQLiteProgressItemRepo) Update(ctx context.Context, it *domain.ProgressItem) error {
	query := `UPDATE progress_items SET idx = ?, parent_index = ?, name = ?, unit = ?,
		quantity = ?, unit_price = ?, total_price = ?, progress_percent = ?, status = ?,
		plan_start = ?, plan_end = ?, actual_start = ?, actual_end = ?, used_quantity = ?,
		updated_at = ?
		WHERE id = ? AND deleted = 0`
	res, err := r.db.ExecContext(ctx, query,
		it.Index,
		nullableString(it.ParentIndex),
		it.Name,
		it.Unit,
		it.Quantity.String(),
		it.UnitPrice.String(),
		it.TotalPrice.String(),
		it.ProgressPercent.String(),
		string(it.Status),
		nullableTimeToString(it.PlanStart, dateLayout),
		nullableTimeToString(it.PlanEnd, dateLayout),
		nullableTimeToString(it.ActualStart, time.RFC3339),
		nullableTimeToString(it.ActualEnd, time.RFC3339),
		it.UsedQuantity.String(),
		formatTime(it.UpdatedAt),
		it.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("progress item %s: %w", it.Index, domain.ErrDuplicateIndex)
		}
		return fmt.Errorf("updating progress item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("progress item %s: %w", it.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteProgressItemRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	ts := formatTime(at)
	res, err := r.db.ExecContext(ctx,
		`UPDATE progress_items SET deleted = 1, deleted_at = ?, updated_at = ? WHERE id = ? AND deleted = 0`,
		ts, ts, id)
	if err != nil {
		return fmt.Errorf("soft-deleting progress item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("progress item %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanProgressItem(row scanner) (*domain.ProgressItem, error) {
	var it domain.ProgressItem
	var parentIndex, planStart, planEnd, actualStart, actualEnd, deletedAt sql.NullString
	var quantity, unitPrice, totalPrice, percent, statusStr, used, createdAtStr, updatedAtStr string
	var deleted int

	err := row.Scan(
		&it.ID, &it.ProgressID, &it.WorkCode, &it.Index, &parentIndex, &it.Name, &it.Unit,
		&quantity, &unitPrice, &totalPrice, &percent, &statusStr,
		&planStart, &planEnd, &actualStart, &actualEnd, &used,
		&deleted, &deletedAt, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning progress item: %w", err)
	}
	if err := parseDecimals(
		dec("quantity", quantity, &it.Quantity),
		dec("unit_price", unitPrice, &it.UnitPrice),
		dec("total_price", totalPrice, &it.TotalPrice),
		dec("progress_percent", percent, &it.ProgressPercent),
		dec("used_quantity", used, &it.UsedQuantity),
	); err != nil {
		return nil, err
	}
	it.Status = domain.ProgressStatus(statusStr)
	it.ParentIndex = stringPtr(parentIndex)
	it.PlanStart = parseNullableTime(planStart, dateLayout)
	it.PlanEnd = parseNullableTime(planEnd, dateLayout)
	it.ActualStart = parseNullableTime(actualStart, time.RFC3339)
	it.ActualEnd = parseNullableTime(actualEnd, time.RFC3339)
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

const progressDetailColumns = `id, progress_item_id, source_detail_id, resource_type, resource_id,
		quantity, unit_price, total, used_quantity, created_at, updated_at`

// SQLiteProgressDetailRepo implements ProgressDetailRepo using a SQLite database.
type SQLiteProgressDetailRepo struct {
	db db.DBTX
}

// NewSQLiteProgressDetailRepo creates a new SQLiteProgressDetailRepo.
func NewSQLiteProgressDetailRepo(conn db.DBTX) *SQLiteProgressDetailRepo {
	return &SQLiteProgressDetailRepo{db: conn}
}

func (r *SQLiteProgressDetailRepo) Create(ctx context.Context, d *domain.ProgressItemDetail) error {
	query := `INSERT INTO progress_item_details (` + progressDetailColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.ProgressItemID,
		d.SourceDetailID,
		string(d.Resource.Kind()),
		d.Resource.ID(),
		d.Quantity.String(),
		d.UnitPrice.String(),
		d.Total.String(),
		d.UsedQuantity.String(),
		formatTime(d.CreatedAt),
		formatTime(d.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting progress item detail: %w", err)
	}
	return nil
}

func (r *SQLiteProgressDetailRepo) GetByID(ctx context.Context, id string) (*domain.ProgressItemDetail, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+progressDetailColumns+` FROM progress_item_details WHERE id = ?`, id)
	d, err := scanProgressDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("progress item detail %s: %w", id, ErrNotFound)
	}
	return d, err
}

func (r *SQLiteProgressDetailRepo) ListByItem(ctx context.Context, progressItemID string) ([]*domain.ProgressItemDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+progressDetailColumns+` FROM progress_item_details WHERE progress_item_id = ? ORDER BY created_at, id`,
		progressItemID)
	if err != nil {
		return nil, fmt.Errorf("listing progress item details: %w", err)
	}
	defer rows.Close()

	var out []*domain.ProgressItemDetail
	for rows.Next() {
		d, err := scanProgressDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating progress item details: %w", err)
	}
	return out, nil
}

func (r *SQLiteProgressDetailRepo) Update(ctx context.Context, d *domain.ProgressItemDetail) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE progress_item_details SET quantity = ?, unit_price = ?, total = ?, used_quantity = ?, updated_at = ?
		WHERE id = ?`,
		d.Quantity.String(), d.UnitPrice.String(), d.Total.String(), d.UsedQuantity.String(),
		formatTime(d.UpdatedAt), d.ID)
	if err != nil {
		return fmt.Errorf("updating progress item detail: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("progress item detail %s: %w", d.ID, ErrNotFound)
	}
	return nil
}

func scanProgressDetail(row scanner) (*domain.ProgressItemDetail, error) {
	var d domain.ProgressItemDetail
	var kind, resourceID, quantity, unitPrice, total, used, createdAtStr, updatedAtStr string
	err := row.Scan(&d.ID, &d.ProgressItemID, &d.SourceDetailID, &kind, &resourceID,
		&quantity, &unitPrice, &total, &used, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning progress item detail: %w", err)
	}
	if d.Resource, err = resourceRef(kind, resourceID); err != nil {
		return nil, err
	}
	if err := parseDecimals(
		dec("quantity", quantity, &d.Quantity),
		dec("unit_price", unitPrice, &d.UnitPrice),
		dec("total", total, &d.Total),
		dec("used_quantity", used, &d.UsedQuantity),
	); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}
	return &d, nil
}
