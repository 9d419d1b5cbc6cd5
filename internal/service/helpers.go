package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/repository"
	"github.com/google/uuid"
)

// Clock supplies the current instant. A nil Clock reads the wall clock.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func newID() string {
	return uuid.New().String()
}

// newWorkCode returns a fresh work code of the form WC-1a2b3c4d.
func newWorkCode() string {
	return "WC-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// requireProject fails with ErrNotFound unless projectID names a project.
func requireProject(ctx context.Context, conn db.DBTX, projectID string) error {
	if projectID == "" {
		return domain.Validationf("project id is required")
	}
	_, err := repository.NewSQLiteProjectRepo(conn).GetByID(ctx, projectID)
	return err
}

// requireResource fails with ErrNotFound unless ref names a registered resource.
func requireResource(ctx context.Context, conn db.DBTX, ref domain.ResourceRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	_, err := repository.NewSQLiteResourceRepo(conn).Get(ctx, ref)
	return err
}

// livePlanItem loads the live item carrying workCode.
func livePlanItem(ctx context.Context, conn db.DBTX, workCode string) (*domain.PlanItem, error) {
	if workCode == "" {
		return nil, domain.Validationf("work code is required")
	}
	return repository.NewSQLitePlanItemRepo(conn).GetByWorkCode(ctx, workCode)
}

// loadTree assembles the live WBS tree of a plan.
func loadTree(ctx context.Context, conn db.DBTX, planID string) (*domain.WBSTree, error) {
	items, err := repository.NewSQLitePlanItemRepo(conn).ListByPlan(ctx, planID, false)
	if err != nil {
		return nil, err
	}
	tree, err := domain.BuildWBSTree(items)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", planID, err)
	}
	return tree, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func formatValidationErrors(errs []error) error {
	msg := fmt.Sprintf("import validation failed (%d errors):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
}
