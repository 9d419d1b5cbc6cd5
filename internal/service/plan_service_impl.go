package service

import (
	"context"
	"strings"
	"time"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/repository"
)

type planService struct {
	plans    repository.PlanRepo
	uow      db.UnitOfWork
	clock    Clock
	observer UseCaseObserver
}

func NewPlanService(plans repository.PlanRepo, uow db.UnitOfWork, clock Clock, observers ...UseCaseObserver) PlanService {
	return &planService{
		plans:    plans,
		uow:      uow,
		clock:    clock,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *planService) Create(ctx context.Context, actorID, projectID, name string, reviewers []string) (plan *domain.ConstructionPlan, err error) {
	fields := map[string]any{"project_id": projectID, "actor": actorID}
	defer observe(ctx, s.observer, "create-plan", time.Now(), fields, &err)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validationf("plan name is required")
	}
	now := s.clock.now()
	plan = &domain.ConstructionPlan{
		ID:        newID(),
		ProjectID: projectID,
		Name:      name,
		Reviewers: domain.ReviewerApprovals{},
		CreatedBy: actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, r := range reviewers {
		if r = strings.TrimSpace(r); r != "" {
			plan.Reviewers[r] = false
		}
	}
	fields["plan_id"] = plan.ID

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := requireProject(ctx, tx, projectID); err != nil {
			return err
		}
		return repository.NewSQLitePlanRepo(tx).Create(ctx, plan)
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *planService) GetByID(ctx context.Context, id string) (*domain.ConstructionPlan, error) {
	return s.plans.GetByID(ctx, id)
}

func (s *planService) List(ctx context.Context, projectID string) ([]*domain.ConstructionPlan, error) {
	return s.plans.ListByProject(ctx, projectID)
}

// SetApproval toggles reviewerID's own approval entry and nothing else.
func (s *planService) SetApproval(ctx context.Context, planID, reviewerID string, approved bool) (plan *domain.ConstructionPlan, err error) {
	fields := map[string]any{"plan_id": planID, "reviewer": reviewerID, "approved": approved}
	defer observe(ctx, s.observer, "set-plan-approval", time.Now(), fields, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		plans := repository.NewSQLitePlanRepo(tx)
		p, err := plans.GetByID(ctx, planID)
		if err != nil {
			return err
		}
		if err := p.SetApproval(reviewerID, approved, s.clock.now()); err != nil {
			return err
		}
		plan = p
		return plans.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	fields["fully_approved"] = plan.Reviewers.Approved()
	return plan, nil
}
