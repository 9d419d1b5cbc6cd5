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

type transferService struct {
	transfers repository.TransferRepo
	uow       db.UnitOfWork
	clock     Clock
	observer  UseCaseObserver
}

func NewTransferService(transfers repository.TransferRepo, uow db.UnitOfWork, clock Clock, observers ...UseCaseObserver) TransferService {
	return &transferService{
		transfers: transfers,
		uow:       uow,
		clock:     clock,
		observer:  useCaseObserverOrNoop(observers),
	}
}

func codePrefix(kind domain.TransferKind) string {
	if kind == domain.TransferMobilization {
		return "MB"
	}
	return "RA"
}

func (s *transferService) Submit(ctx context.Context, actorID string, in TransferInput) (req *domain.TransferRequest, err error) {
	fields := map[string]any{"kind": string(in.Kind), "actor": actorID, "to_project": in.ToProjectID}
	defer observe(ctx, s.observer, "submit-transfer", time.Now(), fields, &err)

	now := s.clock.now()
	req = &domain.TransferRequest{
		ID:            newID(),
		Kind:          in.Kind,
		Code:          strings.TrimSpace(in.Code),
		RequestType:   strings.TrimSpace(in.RequestType),
		FromProjectID: in.FromProjectID,
		ToProjectID:   in.ToProjectID,
		FromTaskID:    in.FromTaskID,
		ToTaskID:      in.ToTaskID,
		Priority:      in.Priority,
		Status:        domain.TransferPending,
		RequestDate:   now,
		RequesterID:   actorID,
		Note:          strings.TrimSpace(in.Note),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.RequestType == "" {
		req.RequestType = domain.DefaultRequestType
	}
	if req.Priority == "" {
		req.Priority = domain.PriorityNormal
	}
	if in.Draft {
		req.Status = domain.TransferDraft
	}
	if in.RequestDate != nil {
		req.RequestDate = in.RequestDate.UTC()
	}
	for _, l := range in.Lines {
		req.Lines = append(req.Lines, domain.TransferLine{
			ID:        newID(),
			RequestID: req.ID,
			Resource:  l.Resource,
			Quantity:  l.Quantity,
		})
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		transfers := repository.NewSQLiteTransferRepo(tx)
		req.Code = strings.TrimSpace(in.Code)
		if req.Code == "" {
			code, err := nextTransferCode(ctx, tx, req.Kind)
			if err != nil {
				return err
			}
			req.Code = code
		}
		if err := req.Validate(); err != nil {
			return err
		}
		inUse, err := transfers.CodeInUse(ctx, req.Kind, req.Code)
		if err != nil {
			return err
		}
		if inUse {
			return fmt.Errorf("%s %s: %w", req.Kind, req.Code, domain.ErrDuplicateCode)
		}

		if req.FromProjectID != "" {
			if err := requireProject(ctx, tx, req.FromProjectID); err != nil {
				return err
			}
		}
		if err := requireProject(ctx, tx, req.ToProjectID); err != nil {
			return err
		}
		for _, l := range req.Lines {
			if err := requireResource(ctx, tx, l.Resource); err != nil {
				return err
			}
		}
		if err := requireTask(ctx, tx, req.FromTaskID, req.FromProjectID); err != nil {
			return err
		}
		if err := requireTask(ctx, tx, req.ToTaskID, req.ToProjectID); err != nil {
			return err
		}
		return transfers.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	fields["request_id"] = req.ID
	fields["code"] = req.Code
	return req, nil
}

// nextTransferCode numbers a request, skipping codes already taken by hand.
func nextTransferCode(ctx context.Context, tx db.DBTX, kind domain.TransferKind) (string, error) {
	if _, err := domain.ParseTransferKind(string(kind)); err != nil {
		return "", err
	}
	seq := repository.NewSQLiteCodeSequenceRepo(tx)
	transfers := repository.NewSQLiteTransferRepo(tx)
	for {
		n, err := seq.NextSeq(ctx, kind)
		if err != nil {
			return "", err
		}
		code := fmt.Sprintf("%s-%04d", codePrefix(kind), n)
		inUse, err := transfers.CodeInUse(ctx, kind, code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
	}
}

// requireTask checks that taskID, when set, names a live progress item
// tracked for projectID.
func requireTask(ctx context.Context, tx db.DBTX, taskID *string, projectID string) error {
	if taskID == nil {
		return nil
	}
	it, err := repository.NewSQLiteProgressItemRepo(tx).GetByID(ctx, *taskID)
	if err != nil {
		return err
	}
	if it.Deleted {
		return fmt.Errorf("task %s: %w", *taskID, domain.ErrNotFound)
	}
	p, err := repository.NewSQLiteProgressRepo(tx).GetByID(ctx, it.ProgressID)
	if err != nil {
		return err
	}
	if p.ProjectID != projectID {
		return domain.Validationf("task %s belongs to project %s, not %s", *taskID, p.ProjectID, projectID)
	}
	return nil
}

func (s *transferService) Promote(ctx context.Context, actorID, requestID string) (req *domain.TransferRequest, err error) {
	fields := map[string]any{"request_id": requestID, "actor": actorID}
	defer observe(ctx, s.observer, "promote-transfer", time.Now(), fields, &err)

	return s.transition(ctx, requestID, func(r *domain.TransferRequest, now time.Time) error {
		if r.RequesterID != actorID {
			return domain.Validationf("only the requester can submit draft %s", r.Code)
		}
		return r.Promote(now)
	})
}

func (s *transferService) Reject(ctx context.Context, requestID, approverID string) (req *domain.TransferRequest, err error) {
	fields := map[string]any{"request_id": requestID, "approver": approverID}
	defer observe(ctx, s.observer, "reject-transfer", time.Now(), fields, &err)

	return s.transition(ctx, requestID, func(r *domain.TransferRequest, now time.Time) error {
		if r.Status != domain.TransferPending {
			return domain.Transitionf("request %s is %s, only pending requests can be rejected", r.Code, r.Status)
		}
		return r.Reject(approverID, now)
	})
}

func (s *transferService) transition(ctx context.Context, requestID string, apply func(*domain.TransferRequest, time.Time) error) (req *domain.TransferRequest, err error) {
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		transfers := repository.NewSQLiteTransferRepo(tx)
		r, err := liveTransfer(ctx, transfers, requestID)
		if err != nil {
			return err
		}
		from := r.Status
		if err := apply(r, s.clock.now()); err != nil {
			return err
		}
		req = r
		return transfers.UpdateStatus(ctx, r, from)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Approve moves every line from its source balance to its destination
// balance and marks the request approved, all in one transaction. Any
// shortfall leaves every balance and the request untouched.
func (s *transferService) Approve(ctx context.Context, requestID, approverID string) (req *domain.TransferRequest, err error) {
	fields := map[string]any{"request_id": requestID, "approver": approverID}
	defer observe(ctx, s.observer, "approve-transfer", time.Now(), fields, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		transfers := repository.NewSQLiteTransferRepo(tx)
		r, err := liveTransfer(ctx, transfers, requestID)
		if err != nil {
			return err
		}
		if r.Status != domain.TransferPending {
			return domain.Transitionf("request %s is %s, only pending requests can be approved", r.Code, r.Status)
		}
		now := s.clock.now()
		from := r.Status
		if err := r.Approve(approverID, now); err != nil {
			return err
		}

		inventory := repository.NewSQLiteInventoryRepo(tx)
		for _, line := range r.Lines {
			if err := moveStock(ctx, inventory, r.SourceKey(line), r.DestinationKey(line), line, now); err != nil {
				return fmt.Errorf("request %s: %w", r.Code, err)
			}
		}
		req = r
		return transfers.UpdateStatus(ctx, r, from)
	})
	if err != nil {
		return nil, err
	}
	fields["code"] = req.Code
	fields["lines"] = len(req.Lines)
	return req, nil
}

func moveStock(ctx context.Context, inventory repository.InventoryRepo, src, dst domain.InventoryKey, line domain.TransferLine, now time.Time) error {
	source, err := inventory.Get(ctx, src)
	if isNotFound(err) {
		return fmt.Errorf("%w: no inventory for %s", domain.ErrInsufficientResource, src)
	}
	if err != nil {
		return err
	}
	if err := source.Withdraw(line.Quantity, now); err != nil {
		return err
	}
	if err := inventory.Update(ctx, source); err != nil {
		return err
	}

	dest, err := inventory.Get(ctx, dst)
	if isNotFound(err) {
		dest = domain.NewInventoryRow(newID(), dst, now)
		if err := dest.Deposit(line.Quantity, now); err != nil {
			return err
		}
		return inventory.Create(ctx, dest)
	}
	if err != nil {
		return err
	}
	if err := dest.Deposit(line.Quantity, now); err != nil {
		return err
	}
	return inventory.Update(ctx, dest)
}

// Delete tombstones a request that never moved stock.
func (s *transferService) Delete(ctx context.Context, actorID, requestID string) (err error) {
	fields := map[string]any{"request_id": requestID, "actor": actorID}
	defer observe(ctx, s.observer, "delete-transfer", time.Now(), fields, &err)

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		transfers := repository.NewSQLiteTransferRepo(tx)
		r, err := liveTransfer(ctx, transfers, requestID)
		if err != nil {
			return err
		}
		if err := r.SoftDelete(s.clock.now()); err != nil {
			return err
		}
		fields["code"] = r.Code
		return transfers.SoftDelete(ctx, r)
	})
}

func (s *transferService) Get(ctx context.Context, requestID string) (*domain.TransferRequest, error) {
	return s.transfers.GetByID(ctx, requestID)
}

func (s *transferService) List(ctx context.Context, f repository.TransferFilter) ([]*domain.TransferRequest, error) {
	return s.transfers.List(ctx, f)
}

func liveTransfer(ctx context.Context, transfers repository.TransferRepo, id string) (*domain.TransferRequest, error) {
	r, err := transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Deleted {
		return nil, fmt.Errorf("transfer request %s: %w", id, domain.ErrNotFound)
	}
	return r, nil
}
