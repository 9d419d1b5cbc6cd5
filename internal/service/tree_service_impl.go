package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/repository"
)

type treeService struct {
	items    repository.PlanItemRepo
	leases   LeaseService
	uow      db.UnitOfWork
	clock    Clock
	observer UseCaseObserver
}

func NewTreeService(
	items repository.PlanItemRepo,
	leases LeaseService,
	uow db.UnitOfWork,
	clock Clock,
	observers ...UseCaseObserver,
) TreeService {
	return &treeService{
		items:    items,
		leases:   leases,
		uow:      uow,
		clock:    clock,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *treeService) CreateItem(ctx context.Context, actorID, planID string, in ItemInput) (item *domain.PlanItem, err error) {
	fields := map[string]any{"plan_id": planID, "actor": actorID, "index": in.Index}
	defer observe(ctx, s.observer, "create-item", time.Now(), fields, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		grant, err := s.leases.CheckTx(ctx, tx, planID, actorID)
		if err != nil {
			return err
		}
		item, err = createItemTx(ctx, tx, grant, planID, in, s.clock.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	fields["work_code"] = item.WorkCode
	return item, nil
}

// createItemTx inserts one live item. The parent must already be live in
// the plan, so no insert can close a cycle.
func createItemTx(ctx context.Context, tx db.DBTX, grant *domain.LeaseGrant, planID string, in ItemInput, now time.Time) (*domain.PlanItem, error) {
	domain.MustHold(grant, planID)
	items := repository.NewSQLitePlanItemRepo(tx)

	item := &domain.PlanItem{
		ID:          newID(),
		PlanID:      planID,
		WorkCode:    strings.TrimSpace(in.WorkCode),
		Index:       strings.TrimSpace(in.Index),
		ParentIndex: in.ParentIndex,
		Name:        strings.TrimSpace(in.Name),
		Unit:        strings.TrimSpace(in.Unit),
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Relations:   in.Relations.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if item.WorkCode == "" {
		item.WorkCode = newWorkCode()
	}
	item.Recompute()
	if err := item.Validate(); err != nil {
		return nil, err
	}

	if _, err := repository.NewSQLitePlanRepo(tx).GetByID(ctx, planID); err != nil {
		return nil, err
	}
	if item.ParentIndex != nil {
		if _, err := items.GetByIndex(ctx, planID, *item.ParentIndex); err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("index %s in plan %s: %w", *item.ParentIndex, planID, domain.ErrParentNotFound)
			}
			return nil, err
		}
	}
	if _, err := items.GetByIndex(ctx, planID, item.Index); err == nil {
		return nil, fmt.Errorf("index %s in plan %s: %w", item.Index, planID, domain.ErrDuplicateIndex)
	} else if !isNotFound(err) {
		return nil, err
	}
	if err := items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem applies patch to the live item. A changed index is carried to
// every live child's parent index in the same transaction.
func (s *treeService) UpdateItem(ctx context.Context, actorID, workCode string, patch domain.PlanItemPatch) (item *domain.PlanItem, err error) {
	fields := map[string]any{"work_code": workCode, "actor": actorID}
	defer observe(ctx, s.observer, "update-item", time.Now(), fields, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		items := repository.NewSQLitePlanItemRepo(tx)
		it, err := items.GetByWorkCode(ctx, workCode)
		if err != nil {
			return err
		}
		fields["plan_id"] = it.PlanID
		grant, err := s.leases.CheckTx(ctx, tx, it.PlanID, actorID)
		if err != nil {
			return err
		}
		domain.MustHold(grant, it.PlanID)

		tree, err := loadTree(ctx, tx, it.PlanID)
		if err != nil {
			return err
		}
		oldIndex := it.Index
		patch.Apply(it)
		it.UpdatedAt = s.clock.now()
		if err := it.Validate(); err != nil {
			return err
		}

		if it.Index != oldIndex {
			if _, taken := tree.Get(it.Index); taken {
				return fmt.Errorf("index %s in plan %s: %w", it.Index, it.PlanID, domain.ErrDuplicateIndex)
			}
		}
		if it.ParentIndex != nil {
			parent := *it.ParentIndex
			if parent == oldIndex {
				return domain.Validationf("item %s cannot be its own parent", oldIndex)
			}
			if _, ok := tree.Get(parent); !ok {
				return fmt.Errorf("index %s in plan %s: %w", parent, it.PlanID, domain.ErrParentNotFound)
			}
			if tree.IsAncestor(oldIndex, parent) {
				return domain.Validationf("moving %s under its descendant %s would create a cycle", oldIndex, parent)
			}
		}

		if err := items.Update(ctx, it); err != nil {
			return err
		}
		if it.Index != oldIndex {
			moved, err := items.ReparentChildren(ctx, it.PlanID, oldIndex, it.Index, it.UpdatedAt)
			if err != nil {
				return fmt.Errorf("rewriting children of %s: %w", oldIndex, err)
			}
			fields["children_moved"] = moved
		}

		if _, err := loadTree(ctx, tx, it.PlanID); err != nil {
			return err
		}
		item = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem soft-deletes a leaf, freeing its index and work code.
func (s *treeService) DeleteItem(ctx context.Context, actorID, workCode string) (err error) {
	fields := map[string]any{"work_code": workCode, "actor": actorID}
	defer observe(ctx, s.observer, "delete-item", time.Now(), fields, &err)

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		items := repository.NewSQLitePlanItemRepo(tx)
		it, err := items.GetByWorkCode(ctx, workCode)
		if err != nil {
			return err
		}
		fields["plan_id"] = it.PlanID
		grant, err := s.leases.CheckTx(ctx, tx, it.PlanID, actorID)
		if err != nil {
			return err
		}
		domain.MustHold(grant, it.PlanID)

		n, err := items.CountLiveChildren(ctx, it.PlanID, it.Index)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("item %s has %d live children: %w", it.Index, n, domain.ErrHasLiveChildren)
		}
		return items.SoftDelete(ctx, it.ID, s.clock.now())
	})
}

func (s *treeService) GetItem(ctx context.Context, workCode string) (*domain.PlanItem, error) {
	return s.items.GetByWorkCode(ctx, workCode)
}

func (s *treeService) ListSubtree(ctx context.Context, planID, rootIndex string) ([]*domain.PlanItem, error) {
	tree, err := s.Tree(ctx, planID)
	if err != nil {
		return nil, err
	}
	return tree.Subtree(rootIndex)
}

func (s *treeService) Tree(ctx context.Context, planID string) (*domain.WBSTree, error) {
	items, err := s.items.ListByPlan(ctx, planID, false)
	if err != nil {
		return nil, err
	}
	tree, err := domain.BuildWBSTree(items)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", planID, err)
	}
	return tree, nil
}
