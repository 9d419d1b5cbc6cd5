package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransferRequest moves resource quantities between inventory scopes once
// approved. Allocations draw from another project; mobilizations draw from
// the pool.
type TransferRequest struct {
	ID            string
	Kind          TransferKind
	Code          string
	RequestType   string
	FromProjectID string
	ToProjectID   string
	FromTaskID    *string
	ToTaskID      *string
	Lines         []TransferLine
	Priority      TransferPriority
	Status        TransferStatus
	RequestDate   time.Time
	RequesterID   string
	ApproverID    *string
	DecidedAt     *time.Time
	Note          string
	Deleted       bool
	DeletedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TransferLine is one resource quantity on a request.
type TransferLine struct {
	ID        string
	RequestID string
	Resource  ResourceRef
	Quantity  decimal.Decimal
}

// SourceKey returns the inventory key a line draws from.
func (r *TransferRequest) SourceKey(line TransferLine) InventoryKey {
	if r.Kind == TransferMobilization {
		return InventoryKey{Resource: line.Resource, ProjectID: PoolScope}
	}
	return InventoryKey{Resource: line.Resource, ProjectID: r.FromProjectID}
}

// DestinationKey returns the inventory key a line feeds.
func (r *TransferRequest) DestinationKey(line TransferLine) InventoryKey {
	return InventoryKey{Resource: line.Resource, ProjectID: r.ToProjectID}
}

// Validate checks the request's own fields.
func (r *TransferRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return Validationf("request code is required")
	}
	if r.RequesterID == "" {
		return Validationf("requester is required")
	}
	if r.ToProjectID == "" {
		return Validationf("destination project is required")
	}
	switch r.Kind {
	case TransferAllocation:
		if r.FromProjectID == "" {
			return Validationf("allocation %s needs a source project", r.Code)
		}
		if r.FromProjectID == r.ToProjectID {
			return Validationf("allocation %s has the same source and destination project", r.Code)
		}
	case TransferMobilization:
		if r.FromProjectID != "" {
			return Validationf("mobilization %s draws from the pool and takes no source project", r.Code)
		}
		if r.FromTaskID != nil {
			return Validationf("mobilization %s takes no source task", r.Code)
		}
	default:
		return Validationf("unknown transfer kind %q", r.Kind)
	}
	if r.Status != TransferDraft && r.Status != TransferPending {
		return Transitionf("request %s must start as draft or pending, not %s", r.Code, r.Status)
	}
	if len(r.Lines) == 0 {
		return Validationf("request %s has no lines", r.Code)
	}
	for i, l := range r.Lines {
		if err := l.Resource.Validate(); err != nil {
			return Validationf("line %d: %v", i+1, err)
		}
		if !l.Quantity.IsPositive() {
			return Validationf("line %d: quantity must be positive", i+1)
		}
	}
	return nil
}

// Promote moves a draft to pending.
func (r *TransferRequest) Promote(now time.Time) error {
	if r.Status != TransferDraft {
		return Transitionf("request %s is %s, only drafts can be submitted", r.Code, r.Status)
	}
	r.Status = TransferPending
	r.UpdatedAt = now
	return nil
}

// Approve marks the request approved. The ledger effects are applied by the
// caller in the same transaction.
func (r *TransferRequest) Approve(approverID string, now time.Time) error {
	return r.decide(TransferApproved, approverID, now)
}

// Reject marks the request rejected; it has no ledger effect.
func (r *TransferRequest) Reject(approverID string, now time.Time) error {
	return r.decide(TransferRejected, approverID, now)
}

func (r *TransferRequest) decide(to TransferStatus, approverID string, now time.Time) error {
	if approverID == "" {
		return Validationf("approver is required")
	}
	if r.Status.Terminal() {
		return Transitionf("request %s is already %s", r.Code, r.Status)
	}
	r.Status = to
	r.ApproverID = &approverID
	decided := now
	r.DecidedAt = &decided
	r.UpdatedAt = now
	return nil
}

// SoftDelete tombstones the request and frees its code. Approved requests
// are permanent.
func (r *TransferRequest) SoftDelete(now time.Time) error {
	if r.Status == TransferApproved {
		return Transitionf("request %s is approved and cannot be deleted", r.Code)
	}
	r.Deleted = true
	deleted := now
	r.DeletedAt = &deleted
	r.UpdatedAt = now
	return nil
}
