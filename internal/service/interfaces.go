package service

import (
	"context"
	"time"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/importer"
	"github.com/alexanderramin/foreman/internal/repository"
	"github.com/shopspring/decimal"
)

// DirectoryService is the local stand-in for the project and resource
// registries that plan items, detail lines and transfers reference.
type DirectoryService interface {
	AddProject(ctx context.Context, name string) (*domain.Project, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]*domain.Project, error)
	ProjectExists(ctx context.Context, id string) (bool, error)
	AddResource(ctx context.Context, ref domain.ResourceRef, name, unit string) (*domain.Resource, error)
	ListResources(ctx context.Context, kind domain.ResourceKind) ([]*domain.Resource, error)
	ResourceExists(ctx context.Context, ref domain.ResourceRef) (bool, error)
}

type PlanService interface {
	Create(ctx context.Context, actorID, projectID, name string, reviewers []string) (*domain.ConstructionPlan, error)
	GetByID(ctx context.Context, id string) (*domain.ConstructionPlan, error)
	List(ctx context.Context, projectID string) ([]*domain.ConstructionPlan, error)
	SetApproval(ctx context.Context, planID, reviewerID string, approved bool) (*domain.ConstructionPlan, error)
}

// LeaseService manages plan edit leases and mints the grants required by
// every tree and ledger write.
type LeaseService interface {
	// Acquire takes or refreshes the lease for ttl; a ttl <= 0 uses the
	// configured time-to-live.
	Acquire(ctx context.Context, planID, actorID string, ttl time.Duration) (*domain.PlanEditLease, error)
	Renew(ctx context.Context, planID, actorID string) (*domain.PlanEditLease, error)
	Release(ctx context.Context, planID, actorID string) error
	Get(ctx context.Context, planID string) (*domain.PlanEditLease, error)
	// Check re-reads the lease and returns a grant if actorID holds it.
	Check(ctx context.Context, planID, actorID string) (*domain.LeaseGrant, error)
	// CheckTx is Check evaluated inside a unit of work. When the lease store
	// lives in the same database the lease is read through tx, so no other
	// actor can take the lease between the check and the commit.
	CheckTx(ctx context.Context, tx db.DBTX, planID, actorID string) (*domain.LeaseGrant, error)
}

// ItemInput carries the caller-supplied fields of a new plan item. An empty
// WorkCode is generated.
type ItemInput struct {
	Index       string
	ParentIndex *string
	WorkCode    string
	Name        string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	StartDate   *time.Time
	EndDate     *time.Time
	Relations   domain.ItemRelations
}

type TreeService interface {
	CreateItem(ctx context.Context, actorID, planID string, in ItemInput) (*domain.PlanItem, error)
	UpdateItem(ctx context.Context, actorID, workCode string, patch domain.PlanItemPatch) (*domain.PlanItem, error)
	DeleteItem(ctx context.Context, actorID, workCode string) error
	GetItem(ctx context.Context, workCode string) (*domain.PlanItem, error)
	// ListSubtree returns rootIndex and its live descendants in dotted order,
	// or the whole plan when rootIndex is empty.
	ListSubtree(ctx context.Context, planID, rootIndex string) ([]*domain.PlanItem, error)
	Tree(ctx context.Context, planID string) (*domain.WBSTree, error)
}

// DetailInput carries the caller-supplied fields of a detail line. The total
// is always computed.
type DetailInput struct {
	Resource  domain.ResourceRef
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

type LedgerService interface {
	AddDetail(ctx context.Context, actorID, workCode string, in DetailInput) (*domain.DetailLine, error)
	RemoveDetail(ctx context.Context, actorID, lineID string) error
	ListDetails(ctx context.Context, workCode string) ([]*domain.DetailLine, error)
}

// SyncResult summarises one Materialize or Resync pass over a progress overlay.
type SyncResult struct {
	Progress       *domain.ConstructionProgress
	Created        int
	Updated        int
	Removed        int
	DetailsCreated int
}

type ProgressService interface {
	Materialize(ctx context.Context, planID, projectID string) (*SyncResult, error)
	// Resync reconciles every progress overlay of the plan with its current tree.
	Resync(ctx context.Context, planID string) ([]*SyncResult, error)
	ReportProgress(ctx context.Context, progressItemID string, report domain.ProgressReport) (*domain.ProgressItem, error)
	ReportDetailUsage(ctx context.Context, detailID string, delta decimal.Decimal) (*domain.ProgressItemDetail, error)
	GetProgress(ctx context.Context, planID, projectID string) (*domain.ConstructionProgress, error)
	ListItems(ctx context.Context, progressID string) ([]*domain.ProgressItem, error)
	ListItemDetails(ctx context.Context, progressItemID string) ([]*domain.ProgressItemDetail, error)
}

// TransferLineInput is one requested resource quantity.
type TransferLineInput struct {
	Resource domain.ResourceRef
	Quantity decimal.Decimal
}

// TransferInput carries a new transfer request. An empty Code is numbered
// automatically; Draft keeps the request out of the approval queue.
type TransferInput struct {
	Kind          domain.TransferKind
	Code          string
	RequestType   string
	FromProjectID string
	ToProjectID   string
	FromTaskID    *string
	ToTaskID      *string
	Lines         []TransferLineInput
	Priority      domain.TransferPriority
	Draft         bool
	RequestDate   *time.Time
	Note          string
}

type TransferService interface {
	Submit(ctx context.Context, actorID string, in TransferInput) (*domain.TransferRequest, error)
	Promote(ctx context.Context, actorID, requestID string) (*domain.TransferRequest, error)
	Approve(ctx context.Context, requestID, approverID string) (*domain.TransferRequest, error)
	Reject(ctx context.Context, requestID, approverID string) (*domain.TransferRequest, error)
	Delete(ctx context.Context, actorID, requestID string) error
	Get(ctx context.Context, requestID string) (*domain.TransferRequest, error)
	List(ctx context.Context, f repository.TransferFilter) ([]*domain.TransferRequest, error)
}

type InventoryService interface {
	Receive(ctx context.Context, actorID string, key domain.InventoryKey, qty decimal.Decimal) (*domain.InventoryRow, error)
	Balance(ctx context.Context, key domain.InventoryKey) (*domain.InventoryRow, error)
	List(ctx context.Context, f repository.InventoryFilter) ([]*domain.InventoryRow, error)
	SetActive(ctx context.Context, key domain.InventoryKey, active bool) (*domain.InventoryRow, error)
}

// ImportResult holds the outcome of a WBS import.
type ImportResult struct {
	PlanID      string
	ItemCount   int
	DetailCount int
}

type ImportService interface {
	ImportItems(ctx context.Context, actorID, planID, filePath string) (*ImportResult, error)
	ImportItemsFromSchema(ctx context.Context, actorID, planID string, schema *importer.ImportSchema) (*ImportResult, error)
}
