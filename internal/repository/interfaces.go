package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
)

type ProjectRepo interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
}

type ResourceRepo interface {
	Create(ctx context.Context, r *domain.Resource) error
	Get(ctx context.Context, ref domain.ResourceRef) (*domain.Resource, error)
	List(ctx context.Context, kind domain.ResourceKind) ([]*domain.Resource, error)
}

type PlanRepo interface {
	Create(ctx context.Context, p *domain.ConstructionPlan) error
	GetByID(ctx context.Context, id string) (*domain.ConstructionPlan, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.ConstructionPlan, error)
	Update(ctx context.Context, p *domain.ConstructionPlan) error
}

type PlanItemRepo interface {
	Create(ctx context.Context, it *domain.PlanItem) error
	GetByID(ctx context.Context, id string) (*domain.PlanItem, error)
	// GetByWorkCode returns the live item carrying workCode.
	GetByWorkCode(ctx context.Context, workCode string) (*domain.PlanItem, error)
	// GetByIndex returns the live item at index within a plan.
	GetByIndex(ctx context.Context, planID, index string) (*domain.PlanItem, error)
	ListByPlan(ctx context.Context, planID string, includeDeleted bool) ([]*domain.PlanItem, error)
	CountLiveChildren(ctx context.Context, planID, index string) (int, error)
	Update(ctx context.Context, it *domain.PlanItem) error
	// ReparentChildren rewrites parent_index of every live child of oldIndex.
	ReparentChildren(ctx context.Context, planID, oldIndex, newIndex string, at time.Time) (int64, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type DetailLineRepo interface {
	Create(ctx context.Context, d *domain.DetailLine) error
	GetByID(ctx context.Context, id string) (*domain.DetailLine, error)
	ListByItem(ctx context.Context, planItemID string) ([]*domain.DetailLine, error)
	Delete(ctx context.Context, id string) error
}

type ProgressRepo interface {
	Create(ctx context.Context, p *domain.ConstructionProgress) error
	GetByID(ctx context.Context, id string) (*domain.ConstructionProgress, error)
	GetByPlanProject(ctx context.Context, planID, projectID string) (*domain.ConstructionProgress, error)
	ListByPlan(ctx context.Context, planID string) ([]*domain.ConstructionProgress, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

type ProgressItemRepo interface {
	Create(ctx context.Context, it *domain.ProgressItem) error
	GetByID(ctx context.Context, id string) (*domain.ProgressItem, error)
	ListByProgress(ctx context.Context, progressID string, includeDeleted bool) ([]*domain.ProgressItem, error)
	Update(ctx context.Context, it *domain.ProgressItem) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type ProgressDetailRepo interface {
	Create(ctx context.Context, d *domain.ProgressItemDetail) error
	GetByID(ctx context.Context, id string) (*domain.ProgressItemDetail, error)
	ListByItem(ctx context.Context, progressItemID string) ([]*domain.ProgressItemDetail, error)
	Update(ctx context.Context, d *domain.ProgressItemDetail) error
}

// InventoryFilter narrows an inventory listing. A nil ProjectID lists every
// scope; a pointer to domain.PoolScope lists the pool only.
type InventoryFilter struct {
	ProjectID  *string
	ActiveOnly bool
}

type InventoryRepo interface {
	Get(ctx context.Context, key domain.InventoryKey) (*domain.InventoryRow, error)
	Create(ctx context.Context, row *domain.InventoryRow) error
	// Update writes row if its stored version still equals row.Version and
	// bumps row.Version on success. A stale version fails with ErrStaleVersion.
	Update(ctx context.Context, row *domain.InventoryRow) error
	List(ctx context.Context, f InventoryFilter) ([]*domain.InventoryRow, error)
}

// TransferFilter narrows a transfer listing. Zero values match everything.
type TransferFilter struct {
	Kind           domain.TransferKind
	Status         domain.TransferStatus
	IncludeDeleted bool
}

type TransferRepo interface {
	// Create inserts the request and all of its lines.
	Create(ctx context.Context, r *domain.TransferRequest) error
	GetByID(ctx context.Context, id string) (*domain.TransferRequest, error)
	CodeInUse(ctx context.Context, kind domain.TransferKind, code string) (bool, error)
	List(ctx context.Context, f TransferFilter) ([]*domain.TransferRequest, error)
	// UpdateStatus persists r's status and decision fields if the stored
	// status still equals from.
	UpdateStatus(ctx context.Context, r *domain.TransferRequest, from domain.TransferStatus) error
	SoftDelete(ctx context.Context, r *domain.TransferRequest) error
}

// CodeSequenceRepo numbers transfer requests that arrive without a code.
type CodeSequenceRepo interface {
	NextSeq(ctx context.Context, kind domain.TransferKind) (int, error)
}

// LeaseStore keeps plan edit leases in shared storage. Every call evaluates
// expiry against the supplied now.
type LeaseStore interface {
	// Acquire creates or refreshes actorID's lease. Fails with
	// domain.ErrLockHeld while another actor holds a live lease.
	Acquire(ctx context.Context, planID, actorID string, now time.Time, ttl time.Duration) (*domain.PlanEditLease, error)
	// Renew extends actorID's live lease. Fails with domain.ErrNotHolder otherwise.
	Renew(ctx context.Context, planID, actorID string, now time.Time, ttl time.Duration) (*domain.PlanEditLease, error)
	// Release removes actorID's live lease. Fails with domain.ErrNotHolder otherwise.
	Release(ctx context.Context, planID, actorID string, now time.Time) error
	// Get returns the live lease on planID or domain.ErrLeaseNotFound.
	Get(ctx context.Context, planID string, now time.Time) (*domain.PlanEditLease, error)
}

// TxScopedLeaseStore is a LeaseStore kept in the relational store itself.
// WithTx reads leases through tx, so a holder check made inside a unit of
// work is ordered with the writes it guards.
type TxScopedLeaseStore interface {
	LeaseStore
	WithTx(tx db.DBTX) LeaseStore
}
