package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
)

// ErrStaleVersion is returned when an inventory row changed between read and write.
var ErrStaleVersion = fmt.Errorf("%w: inventory row changed since it was read", domain.ErrConflict)

const inventoryColumns = `id, resource_type, resource_id, project_id, quantity, active, version, created_at, updated_at`

// SQLiteInventoryRepo implements InventoryRepo using a SQLite database.
type SQLiteInventoryRepo struct {
	db db.DBTX
}

// NewSQLiteInventoryRepo creates a new SQLiteInventoryRepo.
func NewSQLiteInventoryRepo(conn db.DBTX) *SQLiteInventoryRepo {
	return &SQLiteInventoryRepo{db: conn}
}

// Get returns the row for key. The pool scope matches rows whose project_id is NULL.
func (r *SQLiteInventoryRepo) Get(ctx context.Context, key domain.InventoryKey) (*domain.InventoryRow, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inventoryColumns+` FROM resource_inventory
		WHERE resource_type = ? AND resource_id = ? AND COALESCE(project_id, '') = ?`,
		string(key.Resource.Kind()), key.Resource.ID(), key.ProjectID)
	inv, err := scanInventoryRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("inventory %s: %w", key, ErrNotFound)
	}
	return inv, err
}

// Create inserts row at version 1.
func (r *SQLiteInventoryRepo) Create(ctx context.Context, row *domain.InventoryRow) error {
	row.Version = 1
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO resource_inventory (`+inventoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID,
		string(row.Key.Resource.Kind()),
		row.Key.Resource.ID(),
		emptyToNull(row.Key.ProjectID),
		row.Quantity.String(),
		boolToInt(row.Active),
		row.Version,
		formatTime(row.CreatedAt),
		formatTime(row.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("inventory %s: %w", row.Key, ErrStaleVersion)
		}
		return fmt.Errorf("inserting inventory row: %w", err)
	}
	return nil
}

func (r *SQLiteInventoryRepo) Update(ctx context.Context, row *domain.InventoryRow) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE resource_inventory SET quantity = ?, active = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		row.Quantity.String(), boolToInt(row.Active), formatTime(row.UpdatedAt), row.ID, row.Version)
	if err != nil {
		return fmt.Errorf("updating inventory row: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating inventory row: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("inventory %s at version %d: %w", row.Key, row.Version, ErrStaleVersion)
	}
	row.Version++
	return nil
}

func (r *SQLiteInventoryRepo) List(ctx context.Context, f InventoryFilter) ([]*domain.InventoryRow, error) {
	query := `SELECT ` + inventoryColumns + ` FROM resource_inventory WHERE 1 = 1`
	var args []any
	if f.ProjectID != nil {
		query += ` AND COALESCE(project_id, '') = ?`
		args = append(args, *f.ProjectID)
	}
	if f.ActiveOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY COALESCE(project_id, ''), resource_type, resource_id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	defer rows.Close()

	var out []*domain.InventoryRow
	for rows.Next() {
		inv, err := scanInventoryRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating inventory: %w", err)
	}
	return out, nil
}

func scanInventoryRow(row scanner) (*domain.InventoryRow, error) {
	var inv domain.InventoryRow
	var kind, resourceID, quantity, createdAtStr, updatedAtStr string
	var projectID sql.NullString
	var active int
	err := row.Scan(&inv.ID, &kind, &resourceID, &projectID, &quantity, &active, &inv.Version,
		&createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning inventory row: %w", err)
	}
	ref, err := resourceRef(kind, resourceID)
	if err != nil {
		return nil, err
	}
	inv.Key = domain.InventoryKey{Resource: ref, ProjectID: projectID.String}
	if err := parseDecimals(dec("quantity", quantity, &inv.Quantity)); err != nil {
		return nil, err
	}
	inv.Active = intToBool(active)
	if inv.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if inv.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}
	return &inv, nil
}
