package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/repository"
)

type ledgerService struct {
	items    repository.PlanItemRepo
	details  repository.DetailLineRepo
	leases   LeaseService
	uow      db.UnitOfWork
	clock    Clock
	observer UseCaseObserver
}

func NewLedgerService(
	items repository.PlanItemRepo,
	details repository.DetailLineRepo,
	leases LeaseService,
	uow db.UnitOfWork,
	clock Clock,
	observers ...UseCaseObserver,
) LedgerService {
	return &ledgerService{
		items:    items,
		details:  details,
		leases:   leases,
		uow:      uow,
		clock:    clock,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *ledgerService) AddDetail(ctx context.Context, actorID, workCode string, in DetailInput) (line *domain.DetailLine, err error) {
	fields := map[string]any{"work_code": workCode, "actor": actorID, "resource": in.Resource.String()}
	defer observe(ctx, s.observer, "add-detail", time.Now(), fields, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		item, err := livePlanItem(ctx, tx, workCode)
		if err != nil {
			return err
		}
		grant, err := s.leases.CheckTx(ctx, tx, item.PlanID, actorID)
		if err != nil {
			return err
		}
		line, err = addDetailTx(ctx, tx, grant, item, in, s.clock.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	fields["line_id"] = line.ID
	return line, nil
}

// addDetailTx appends a line to a live item after checking that the
// referenced resource is registered.
func addDetailTx(ctx context.Context, tx db.DBTX, grant *domain.LeaseGrant, item *domain.PlanItem, in DetailInput, now time.Time) (*domain.DetailLine, error) {
	domain.MustHold(grant, item.PlanID)

	line := &domain.DetailLine{
		ID:         newID(),
		PlanItemID: item.ID,
		WorkCode:   item.WorkCode,
		Resource:   in.Resource,
		Quantity:   in.Quantity,
		UnitPrice:  in.UnitPrice,
		CreatedAt:  now,
	}
	line.Recompute()
	if err := line.Validate(); err != nil {
		return nil, err
	}
	if err := requireResource(ctx, tx, line.Resource); err != nil {
		return nil, err
	}
	if err := repository.NewSQLiteDetailLineRepo(tx).Create(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

func (s *ledgerService) RemoveDetail(ctx context.Context, actorID, lineID string) (err error) {
	fields := map[string]any{"line_id": lineID, "actor": actorID}
	defer observe(ctx, s.observer, "remove-detail", time.Now(), fields, &err)

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		details := repository.NewSQLiteDetailLineRepo(tx)
		line, err := details.GetByID(ctx, lineID)
		if err != nil {
			return err
		}
		item, err := repository.NewSQLitePlanItemRepo(tx).GetByID(ctx, line.PlanItemID)
		if err != nil {
			return err
		}
		fields["work_code"] = item.WorkCode
		grant, err := s.leases.CheckTx(ctx, tx, item.PlanID, actorID)
		if err != nil {
			return err
		}
		domain.MustHold(grant, item.PlanID)
		if item.Deleted {
			return fmt.Errorf("plan item %s: %w", item.WorkCode, domain.ErrNotFound)
		}
		return details.Delete(ctx, lineID)
	})
}

func (s *ledgerService) ListDetails(ctx context.Context, workCode string) ([]*domain.DetailLine, error) {
	item, err := s.items.GetByWorkCode(ctx, workCode)
	if err != nil {
		return nil, err
	}
	return s.details.ListByItem(ctx, item.ID)
}
