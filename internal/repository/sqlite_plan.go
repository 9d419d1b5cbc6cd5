package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
)

const planColumns = `id, project_id, name, reviewers, created_by, created_at, updated_at`

// SQLitePlanRepo implements PlanRepo using a SQLite database.
type SQLitePlanRepo struct {
	db db.DBTX
}

// NewSQLitePlanRepo creates a new SQLitePlanRepo.
func NewSQLitePlanRepo(conn db.DBTX) *SQLitePlanRepo {
	return &SQLitePlanRepo{db: conn}
}

func (r *SQLitePlanRepo) Create(ctx context.Context, p *domain.ConstructionPlan) error {
	query := `INSERT INTO construction_plans (` + planColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.ProjectID,
		p.Name,
		p.Reviewers,
		p.CreatedBy,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting construction plan: %w", err)
	}
	return nil
}

func (r *SQLitePlanRepo) GetByID(ctx context.Context, id string) (*domain.ConstructionPlan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM construction_plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("construction plan %s: %w", id, ErrNotFound)
	}
	return p, err
}

// ListByProject returns a project's plans, or every plan when projectID is empty.
func (r *SQLitePlanRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.ConstructionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM construction_plans`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing construction plans: %w", err)
	}
	defer rows.Close()

	var plans []*domain.ConstructionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating construction plans: %w", err)
	}
	return plans, nil
}

func (r *SQLitePlanRepo) Update(ctx context.Context, p *domain.ConstructionPlan) error {
	query := `UPDATE construction_plans SET name = ?, reviewers = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, p.Name, p.Reviewers, formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("updating construction plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("construction plan %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

func scanPlan(row scanner) (*domain.ConstructionPlan, error) {
	var p domain.ConstructionPlan
	var createdAtStr, updatedAtStr string
	err := row.Scan(&p.ID, &p.ProjectID, &p.Name, &p.Reviewers, &p.CreatedBy, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning construction plan: %w", err)
	}
	if p.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}
	return &p, nil
}
