package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/importer"
)

type importService struct {
	leases   LeaseService
	uow      db.UnitOfWork
	clock    Clock
	observer UseCaseObserver
}

func NewImportService(leases LeaseService, uow db.UnitOfWork, clock Clock, observers ...UseCaseObserver) ImportService {
	return &importService{
		leases:   leases,
		uow:      uow,
		clock:    clock,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *importService) ImportItems(ctx context.Context, actorID, planID, filePath string) (*ImportResult, error) {
	schema, err := importer.LoadImportSchema(filePath)
	if err != nil {
		return nil, fmt.Errorf("loading import file: %w", err)
	}
	return s.ImportItemsFromSchema(ctx, actorID, planID, schema)
}

// ImportItemsFromSchema creates every item and detail line of schema in a
// single transaction. Any failure leaves the plan as it was.
func (s *importService) ImportItemsFromSchema(ctx context.Context, actorID, planID string, schema *importer.ImportSchema) (result *ImportResult, err error) {
	fields := map[string]any{"plan_id": planID, "actor": actorID}
	defer observe(ctx, s.observer, "import-items", time.Now(), fields, &err)

	if _, err := s.leases.Check(ctx, planID, actorID); err != nil {
		return nil, err
	}
	if errs := importer.ValidateImportSchema(schema); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}
	converted, err := importer.Convert(schema)
	if err != nil {
		return nil, fmt.Errorf("converting import schema: %w", err)
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		result = &ImportResult{PlanID: planID}
		grant, err := s.leases.CheckTx(ctx, tx, planID, actorID)
		if err != nil {
			return err
		}
		now := s.clock.now()
		for _, c := range converted {
			src := c.Item
			item, err := createItemTx(ctx, tx, grant, planID, ItemInput{
				Index:       src.Index,
				ParentIndex: src.ParentIndex,
				WorkCode:    src.WorkCode,
				Name:        src.Name,
				Unit:        src.Unit,
				Quantity:    src.Quantity,
				UnitPrice:   src.UnitPrice,
				StartDate:   src.StartDate,
				EndDate:     src.EndDate,
				Relations:   src.Relations,
			}, now)
			if err != nil {
				return fmt.Errorf("creating item %s: %w", src.Index, err)
			}
			result.ItemCount++

			for _, d := range c.Details {
				_, err := addDetailTx(ctx, tx, grant, item, DetailInput{
					Resource:  d.Resource,
					Quantity:  d.Quantity,
					UnitPrice: d.UnitPrice,
				}, now)
				if err != nil {
					return fmt.Errorf("adding %s to item %s: %w", d.Resource, src.Index, err)
				}
				result.DetailCount++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	fields["items"] = result.ItemCount
	fields["details"] = result.DetailCount
	return result, nil
}
