package testutil

import (
	"time"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fixtureNow is second-precision so fixtures survive an RFC3339 round trip.
func fixtureNow() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func NewTestProject(name string) *domain.Project {
	return &domain.Project{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: fixtureNow(),
	}
}

func NewTestResource(kind domain.ResourceKind, id, name string) *domain.Resource {
	return &domain.Resource{
		ID:        id,
		Kind:      kind,
		Name:      name,
		Unit:      "unit",
		CreatedAt: fixtureNow(),
	}
}

// Plan options
type PlanOption func(*domain.ConstructionPlan)

func WithReviewers(ids ...string) PlanOption {
	return func(p *domain.ConstructionPlan) {
		p.Reviewers = domain.ReviewerApprovals{}
		for _, id := range ids {
			p.Reviewers[id] = false
		}
	}
}

func NewTestPlan(projectID, name string, opts ...PlanOption) *domain.ConstructionPlan {
	now := fixtureNow()
	p := &domain.ConstructionPlan{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
		Reviewers: domain.ReviewerApprovals{},
		CreatedBy: "planner",
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PlanItem options
type ItemOption func(*domain.PlanItem)

func WithParent(index string) ItemOption {
	return func(it *domain.PlanItem) {
		it.ParentIndex = &index
	}
}

func WithWorkCode(code string) ItemOption {
	return func(it *domain.PlanItem) {
		it.WorkCode = code
	}
}

func WithPricing(quantity, unitPrice string) ItemOption {
	return func(it *domain.PlanItem) {
		it.Quantity = decimal.RequireFromString(quantity)
		it.UnitPrice = decimal.RequireFromString(unitPrice)
	}
}

func WithDates(start, end time.Time) ItemOption {
	return func(it *domain.PlanItem) {
		it.StartDate = &start
		it.EndDate = &end
	}
}

func WithRelations(rel domain.ItemRelations) ItemOption {
	return func(it *domain.PlanItem) {
		it.Relations = rel
	}
}

func NewTestPlanItem(planID, index string, opts ...ItemOption) *domain.PlanItem {
	now := fixtureNow()
	it := &domain.PlanItem{
		ID:        uuid.New().String(),
		PlanID:    planID,
		WorkCode:  "WC-" + uuid.New().String()[:8],
		Index:     index,
		Name:      "Item " + index,
		Unit:      "m3",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.Zero,
		Relations: domain.ItemRelations{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(it)
	}
	it.Recompute()
	return it
}

func NewTestDetailLine(item *domain.PlanItem, ref domain.ResourceRef, quantity, unitPrice string) *domain.DetailLine {
	d := &domain.DetailLine{
		ID:         uuid.New().String(),
		PlanItemID: item.ID,
		WorkCode:   item.WorkCode,
		Resource:   ref,
		Quantity:   decimal.RequireFromString(quantity),
		UnitPrice:  decimal.RequireFromString(unitPrice),
		CreatedAt:  fixtureNow(),
	}
	d.Recompute()
	return d
}

// NewTestInventoryRow returns an active row holding quantity. An empty
// projectID puts the row in the pool.
func NewTestInventoryRow(ref domain.ResourceRef, projectID, quantity string) *domain.InventoryRow {
	row := domain.NewInventoryRow(uuid.New().String(),
		domain.InventoryKey{Resource: ref, ProjectID: projectID}, fixtureNow())
	row.Quantity = decimal.RequireFromString(quantity)
	return row
}

// Transfer options
type TransferOption func(*domain.TransferRequest)

func WithStatus(s domain.TransferStatus) TransferOption {
	return func(t *domain.TransferRequest) {
		t.Status = s
	}
}

func WithLine(ref domain.ResourceRef, quantity string) TransferOption {
	return func(t *domain.TransferRequest) {
		t.Lines = append(t.Lines, domain.TransferLine{
			ID:       uuid.New().String(),
			Resource: ref,
			Quantity: decimal.RequireFromString(quantity),
		})
	}
}

func WithPriority(p domain.TransferPriority) TransferOption {
	return func(t *domain.TransferRequest) {
		t.Priority = p
	}
}

// NewTestAllocation builds a pending allocation from one project to another.
func NewTestAllocation(code, fromProjectID, toProjectID string, opts ...TransferOption) *domain.TransferRequest {
	t := newTestTransfer(domain.TransferAllocation, code, toProjectID)
	t.FromProjectID = fromProjectID
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewTestMobilization builds a pending mobilization from the pool.
func NewTestMobilization(code, toProjectID string, opts ...TransferOption) *domain.TransferRequest {
	t := newTestTransfer(domain.TransferMobilization, code, toProjectID)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func newTestTransfer(kind domain.TransferKind, code, toProjectID string) *domain.TransferRequest {
	now := fixtureNow()
	return &domain.TransferRequest{
		ID:          uuid.New().String(),
		Kind:        kind,
		Code:        code,
		RequestType: domain.DefaultRequestType,
		ToProjectID: toProjectID,
		Priority:    domain.PriorityNormal,
		Status:      domain.TransferPending,
		RequestDate: now.Truncate(24 * time.Hour),
		RequesterID: "requester",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
