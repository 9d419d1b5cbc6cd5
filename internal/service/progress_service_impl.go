package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/repository"
	"github.com/shopspring/decimal"
)

type progressService struct {
	progress    repository.ProgressRepo
	items       repository.ProgressItemRepo
	details     repository.ProgressDetailRepo
	uow         db.UnitOfWork
	clock       Clock
	requireFull bool
	observer    UseCaseObserver
}

// NewProgressService builds the progress overlay service. With requireFull,
// an item can only enter Completed at 100%.
func NewProgressService(
	progress repository.ProgressRepo,
	items repository.ProgressItemRepo,
	details repository.ProgressDetailRepo,
	uow db.UnitOfWork,
	clock Clock,
	requireFull bool,
	observers ...UseCaseObserver,
) ProgressService {
	return &progressService{
		progress:    progress,
		items:       items,
		details:     details,
		uow:         uow,
		clock:       clock,
		requireFull: requireFull,
		observer:    useCaseObserverOrNoop(observers),
	}
}

// Materialize creates a progress item for every live plan item that has
// none yet. Existing progress rows are never modified.
func (s *progressService) Materialize(ctx context.Context, planID, projectID string) (result *SyncResult, err error) {
	fields := map[string]any{"plan_id": planID, "project_id": projectID}
	defer observe(ctx, s.observer, "materialize-progress", time.Now(), fields, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := repository.NewSQLitePlanRepo(tx).GetByID(ctx, planID); err != nil {
			return err
		}
		if err := requireProject(ctx, tx, projectID); err != nil {
			return err
		}
		now := s.clock.now()
		progressRepo := repository.NewSQLiteProgressRepo(tx)
		p, err := progressRepo.GetByPlanProject(ctx, planID, projectID)
		if isNotFound(err) {
			p = &domain.ConstructionProgress{
				ID: newID(), PlanID: planID, ProjectID: projectID, CreatedAt: now, UpdatedAt: now,
			}
			err = progressRepo.Create(ctx, p)
		}
		if err != nil {
			return err
		}
		result, err = syncProgress(ctx, tx, p, false, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	fields["progress_id"] = result.Progress.ID
	fields["created"] = result.Created
	return result, nil
}

// Resync reconciles every overlay of the plan. Matched items get their
// mirrored fields refreshed, missing items are created, and orphans with no
// recorded work are soft-deleted. Progress fields are never touched.
func (s *progressService) Resync(ctx context.Context, planID string) (results []*SyncResult, err error) {
	fields := map[string]any{"plan_id": planID}
	defer observe(ctx, s.observer, "resync-progress", time.Now(), fields, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		results = nil
		if _, err := repository.NewSQLitePlanRepo(tx).GetByID(ctx, planID); err != nil {
			return err
		}
		overlays, err := repository.NewSQLiteProgressRepo(tx).ListByPlan(ctx, planID)
		if err != nil {
			return err
		}
		now := s.clock.now()
		for _, p := range overlays {
			r, err := syncProgress(ctx, tx, p, true, now)
			if err != nil {
				return fmt.Errorf("resyncing progress %s: %w", p.ID, err)
			}
			results = append(results, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	fields["overlays"] = len(results)
	return results, nil
}

func syncProgress(ctx context.Context, tx db.DBTX, p *domain.ConstructionProgress, mirror bool, now time.Time) (*SyncResult, error) {
	planItems, err := repository.NewSQLitePlanItemRepo(tx).ListByPlan(ctx, p.PlanID, false)
	if err != nil {
		return nil, err
	}
	itemRepo := repository.NewSQLiteProgressItemRepo(tx)
	existing, err := itemRepo.ListByProgress(ctx, p.ID, false)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{Progress: p}
	wanted := make(map[string]*domain.PlanItem, len(planItems))
	for _, src := range planItems {
		wanted[src.WorkCode] = src
	}
	byCode := make(map[string]*domain.ProgressItem, len(existing))
	// occupied maps live progress indices to the work code holding them.
	occupied := make(map[string]string, len(existing))
	for _, it := range existing {
		if _, ok := wanted[it.WorkCode]; !ok && mirror && it.Untouched() {
			if err := itemRepo.SoftDelete(ctx, it.ID, now); err != nil {
				return nil, err
			}
			res.Removed++
			continue
		}
		byCode[it.WorkCode] = it
		occupied[it.Index] = it.WorkCode
	}

	var stale []*domain.ProgressItem
	if mirror {
		for _, it := range byCode {
			if src, ok := wanted[it.WorkCode]; ok && it.MirrorDiffers(src) {
				stale = append(stale, it)
				delete(occupied, it.Index)
			}
		}
		// Park moved items on a unique placeholder first so that swaps
		// within the plan never collide on the live index constraint.
		for _, it := range stale {
			if it.Index == wanted[it.WorkCode].Index {
				continue
			}
			it.Index = "~" + it.ID
			if err := itemRepo.Update(ctx, it); err != nil {
				return nil, err
			}
		}
	}

	for _, src := range planItems {
		if _, matched := byCode[src.WorkCode]; matched && !mirror {
			continue
		}
		if holder, taken := occupied[src.Index]; taken && holder != src.WorkCode {
			return nil, fmt.Errorf("index %s is held by progress item %s with recorded work: %w",
				src.Index, holder, domain.ErrDuplicateIndex)
		}
	}

	for _, it := range stale {
		it.Mirror(wanted[it.WorkCode], now)
		if err := itemRepo.Update(ctx, it); err != nil {
			return nil, err
		}
		res.Updated++
	}

	for _, src := range planItems {
		it, ok := byCode[src.WorkCode]
		if !ok {
			it = domain.NewProgressItemFrom(p.ID, src, newID(), now)
			if err := itemRepo.Create(ctx, it); err != nil {
				return nil, err
			}
			res.Created++
		} else if !mirror {
			continue
		}
		n, err := mirrorDetails(ctx, tx, it, src, now)
		if err != nil {
			return nil, err
		}
		res.DetailsCreated += n
	}

	if res.Created+res.Updated+res.Removed+res.DetailsCreated > 0 {
		if err := repository.NewSQLiteProgressRepo(tx).Touch(ctx, p.ID, now); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// mirrorDetails copies detail lines of src that it does not mirror yet.
func mirrorDetails(ctx context.Context, tx db.DBTX, it *domain.ProgressItem, src *domain.PlanItem, now time.Time) (int, error) {
	lines, err := repository.NewSQLiteDetailLineRepo(tx).ListByItem(ctx, src.ID)
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, nil
	}
	detailRepo := repository.NewSQLiteProgressDetailRepo(tx)
	have, err := detailRepo.ListByItem(ctx, it.ID)
	if err != nil {
		return 0, err
	}
	mirrored := make(map[string]bool, len(have))
	for _, d := range have {
		mirrored[d.SourceDetailID] = true
	}
	created := 0
	for _, line := range lines {
		if mirrored[line.ID] {
			continue
		}
		if err := detailRepo.Create(ctx, domain.NewProgressItemDetailFrom(it.ID, line, newID(), now)); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *progressService) ReportProgress(ctx context.Context, progressItemID string, report domain.ProgressReport) (item *domain.ProgressItem, err error) {
	fields := map[string]any{"progress_item_id": progressItemID}
	if report.Percent != nil {
		fields["percent"] = report.Percent.String()
	}
	if report.Status != nil {
		fields["status"] = string(*report.Status)
	}
	defer observe(ctx, s.observer, "report-progress", time.Now(), fields, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		items := repository.NewSQLiteProgressItemRepo(tx)
		it, err := items.GetByID(ctx, progressItemID)
		if err != nil {
			return err
		}
		if it.Deleted {
			return fmt.Errorf("progress item %s: %w", progressItemID, domain.ErrNotFound)
		}
		now := s.clock.now()
		if err := it.ApplyReport(report, now, s.requireFull); err != nil {
			return err
		}
		if err := items.Update(ctx, it); err != nil {
			return err
		}
		item = it
		return repository.NewSQLiteProgressRepo(tx).Touch(ctx, it.ProgressID, now)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *progressService) ReportDetailUsage(ctx context.Context, detailID string, delta decimal.Decimal) (detail *domain.ProgressItemDetail, err error) {
	fields := map[string]any{"detail_id": detailID, "delta": delta.String()}
	defer observe(ctx, s.observer, "report-detail-usage", time.Now(), fields, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		detailRepo := repository.NewSQLiteProgressDetailRepo(tx)
		d, err := detailRepo.GetByID(ctx, detailID)
		if err != nil {
			return err
		}
		it, err := repository.NewSQLiteProgressItemRepo(tx).GetByID(ctx, d.ProgressItemID)
		if err != nil {
			return err
		}
		if it.Deleted {
			return fmt.Errorf("progress item %s: %w", it.ID, domain.ErrNotFound)
		}
		if it.Status == domain.ProgressCompleted {
			return domain.Transitionf("progress item %s is completed", it.Index)
		}
		if err := d.AddUsage(delta, s.clock.now()); err != nil {
			return err
		}
		detail = d
		return detailRepo.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *progressService) GetProgress(ctx context.Context, planID, projectID string) (*domain.ConstructionProgress, error) {
	return s.progress.GetByPlanProject(ctx, planID, projectID)
}

func (s *progressService) ListItems(ctx context.Context, progressID string) ([]*domain.ProgressItem, error) {
	if _, err := s.progress.GetByID(ctx, progressID); err != nil {
		return nil, err
	}
	return s.items.ListByProgress(ctx, progressID, false)
}

func (s *progressService) ListItemDetails(ctx context.Context, progressItemID string) ([]*domain.ProgressItemDetail, error) {
	return s.details.ListByItem(ctx, progressItemID)
}
