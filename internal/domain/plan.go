package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ConstructionPlan is the container for one WBS tree.
type ConstructionPlan struct {
	ID        string
	ProjectID string
	Name      string
	Reviewers ReviewerApprovals
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SetApproval toggles reviewerID's own entry. Reviewers not listed on the
// plan cannot approve it.
func (p *ConstructionPlan) SetApproval(reviewerID string, approved bool, now time.Time) error {
	if _, ok := p.Reviewers[reviewerID]; !ok {
		return Validationf("%q is not a reviewer of plan %s", reviewerID, p.ID)
	}
	p.Reviewers[reviewerID] = approved
	p.UpdatedAt = now
	return nil
}

// PlanItem is one node of a plan's work breakdown structure. Items reference
// their parent by Index, not by ID.
type PlanItem struct {
	ID          string
	PlanID      string
	WorkCode    string
	Index       string
	ParentIndex *string
	Name        string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	StartDate   *time.Time
	EndDate     *time.Time
	Relations   ItemRelations
	Deleted     bool
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Recompute derives TotalPrice from Quantity and UnitPrice. Caller-supplied
// totals are never trusted.
func (p *PlanItem) Recompute() {
	p.TotalPrice = p.Quantity.Mul(p.UnitPrice)
}

// Validate checks the item's own fields. Parent existence and index
// uniqueness are plan-level checks done by the tree.
func (p *PlanItem) Validate() error {
	if p.PlanID == "" {
		return Validationf("plan id is required")
	}
	if err := ValidateIndex(p.Index); err != nil {
		return err
	}
	if p.ParentIndex != nil {
		if err := ValidateIndex(*p.ParentIndex); err != nil {
			return Validationf("parent index: %v", err)
		}
		if *p.ParentIndex == p.Index {
			return Validationf("item %s cannot be its own parent", p.Index)
		}
	}
	if strings.TrimSpace(p.Name) == "" {
		return Validationf("item %s: name is required", p.Index)
	}
	if p.Quantity.IsNegative() {
		return Validationf("item %s: quantity must not be negative", p.Index)
	}
	if p.UnitPrice.IsNegative() {
		return Validationf("item %s: unit price must not be negative", p.Index)
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return Validationf("item %s: end date is before start date", p.Index)
	}
	return nil
}

// PlanItemPatch carries the fields an UpdateItem call may change. Nil fields
// are left as they are.
type PlanItemPatch struct {
	Index       *string
	ParentIndex *string
	ClearParent bool
	Name        *string
	Unit        *string
	Quantity    *decimal.Decimal
	UnitPrice   *decimal.Decimal
	StartDate   *time.Time
	EndDate     *time.Time
	Relations   ItemRelations
}

// Apply copies the patch onto item and recomputes the total.
func (p PlanItemPatch) Apply(item *PlanItem) {
	if p.Index != nil {
		item.Index = *p.Index
	}
	if p.ClearParent {
		item.ParentIndex = nil
	} else if p.ParentIndex != nil {
		parent := *p.ParentIndex
		item.ParentIndex = &parent
	}
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Unit != nil {
		item.Unit = *p.Unit
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.UnitPrice != nil {
		item.UnitPrice = *p.UnitPrice
	}
	if p.StartDate != nil {
		d := *p.StartDate
		item.StartDate = &d
	}
	if p.EndDate != nil {
		d := *p.EndDate
		item.EndDate = &d
	}
	if p.Relations != nil {
		item.Relations = p.Relations.Clone()
	}
	item.Recompute()
}

// DetailLine assigns a quantity of one resource to a plan item.
type DetailLine struct {
	ID         string
	PlanItemID string
	WorkCode   string
	Resource   ResourceRef
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	Total      decimal.Decimal
	CreatedAt  time.Time
}

// Recompute derives Total from Quantity and UnitPrice.
func (d *DetailLine) Recompute() {
	d.Total = d.Quantity.Mul(d.UnitPrice)
}

// Validate checks the line's own fields.
func (d *DetailLine) Validate() error {
	if err := d.Resource.Validate(); err != nil {
		return err
	}
	if !d.Quantity.IsPositive() {
		return Validationf("detail quantity must be positive")
	}
	if d.UnitPrice.IsNegative() {
		return Validationf("detail unit price must not be negative")
	}
	return nil
}
