package service

import (
	"context"
	"time"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/repository"
	"github.com/shopspring/decimal"
)

type inventoryService struct {
	inventory repository.InventoryRepo
	uow       db.UnitOfWork
	clock     Clock
	observer  UseCaseObserver
}

func NewInventoryService(inventory repository.InventoryRepo, uow db.UnitOfWork, clock Clock, observers ...UseCaseObserver) InventoryService {
	return &inventoryService{
		inventory: inventory,
		uow:       uow,
		clock:     clock,
		observer:  useCaseObserverOrNoop(observers),
	}
}

// Receive books stock into a balance from outside the system, creating the
// balance on first use.
func (s *inventoryService) Receive(ctx context.Context, actorID string, key domain.InventoryKey, qty decimal.Decimal) (row *domain.InventoryRow, err error) {
	fields := map[string]any{"key": key.String(), "actor": actorID, "quantity": qty.String()}
	defer observe(ctx, s.observer, "receive-inventory", time.Now(), fields, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := requireResource(ctx, tx, key.Resource); err != nil {
			return err
		}
		if key.ProjectID != domain.PoolScope {
			if err := requireProject(ctx, tx, key.ProjectID); err != nil {
				return err
			}
		}
		now := s.clock.now()
		inventory := repository.NewSQLiteInventoryRepo(tx)
		r, err := inventory.Get(ctx, key)
		if isNotFound(err) {
			r = domain.NewInventoryRow(newID(), key, now)
			if err := r.Deposit(qty, now); err != nil {
				return err
			}
			row = r
			return inventory.Create(ctx, r)
		}
		if err != nil {
			return err
		}
		if err := r.Deposit(qty, now); err != nil {
			return err
		}
		row = r
		return inventory.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	fields["balance"] = row.Quantity.String()
	return row, nil
}

func (s *inventoryService) Balance(ctx context.Context, key domain.InventoryKey) (*domain.InventoryRow, error) {
	return s.inventory.Get(ctx, key)
}

func (s *inventoryService) List(ctx context.Context, f repository.InventoryFilter) ([]*domain.InventoryRow, error) {
	return s.inventory.List(ctx, f)
}

func (s *inventoryService) SetActive(ctx context.Context, key domain.InventoryKey, active bool) (row *domain.InventoryRow, err error) {
	fields := map[string]any{"key": key.String(), "active": active}
	defer observe(ctx, s.observer, "set-inventory-active", time.Now(), fields, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		inventory := repository.NewSQLiteInventoryRepo(tx)
		r, err := inventory.Get(ctx, key)
		if err != nil {
			return err
		}
		if err := r.SetActive(active, s.clock.now()); err != nil {
			return err
		}
		row = r
		return inventory.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}
