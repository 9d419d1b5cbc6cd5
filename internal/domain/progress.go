package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ConstructionProgress is the progress overlay of one plan within one project.
type ConstructionProgress struct {
	ID        string
	PlanID    string
	ProjectID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProgressItem mirrors a PlanItem at snapshot time and tracks actual work
// against it. Mirrored fields change only through an explicit resync.
type ProgressItem struct {
	ID              string
	ProgressID      string
	WorkCode        string
	Index           string
	ParentIndex     *string
	Name            string
	Unit            string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
	ProgressPercent decimal.Decimal
	Status          ProgressStatus
	PlanStart       *time.Time
	PlanEnd         *time.Time
	ActualStart     *time.Time
	ActualEnd       *time.Time
	UsedQuantity    decimal.Decimal
	Deleted         bool
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewProgressItemFrom snapshots a plan item into a fresh, not-started
// progress item.
func NewProgressItemFrom(progressID string, src *PlanItem, id string, now time.Time) *ProgressItem {
	p := &ProgressItem{
		ID:              id,
		ProgressID:      progressID,
		Status:          ProgressNotStarted,
		ProgressPercent: decimal.Zero,
		UsedQuantity:    decimal.Zero,
		CreatedAt:       now,
	}
	p.Mirror(src, now)
	return p
}

// Mirror copies the descriptive fields of src onto p. Progress fields
// (percent, status, actual dates, used quantity) are never touched.
func (p *ProgressItem) Mirror(src *PlanItem, now time.Time) {
	p.WorkCode = src.WorkCode
	p.Index = src.Index
	if src.ParentIndex != nil {
		parent := *src.ParentIndex
		p.ParentIndex = &parent
	} else {
		p.ParentIndex = nil
	}
	p.Name = src.Name
	p.Unit = src.Unit
	p.Quantity = src.Quantity
	p.UnitPrice = src.UnitPrice
	p.TotalPrice = src.TotalPrice
	p.PlanStart = copyTime(src.StartDate)
	p.PlanEnd = copyTime(src.EndDate)
	p.UpdatedAt = now
}

// MirrorDiffers reports whether any mirrored field of p is out of date
// with respect to src.
func (p *ProgressItem) MirrorDiffers(src *PlanItem) bool {
	return p.Index != src.Index ||
		!equalStrPtr(p.ParentIndex, src.ParentIndex) ||
		p.Name != src.Name ||
		p.Unit != src.Unit ||
		!p.Quantity.Equal(src.Quantity) ||
		!p.UnitPrice.Equal(src.UnitPrice) ||
		!equalDatePtr(p.PlanStart, src.StartDate) ||
		!equalDatePtr(p.PlanEnd, src.EndDate)
}

// Untouched reports whether no work has been recorded against the item.
func (p *ProgressItem) Untouched() bool {
	return p.Status == ProgressNotStarted && p.UsedQuantity.IsZero() && p.ProgressPercent.IsZero()
}

// ProgressReport is one progress-reporting call. Nil fields are not reported.
type ProgressReport struct {
	Percent           *decimal.Decimal
	Status            *ProgressStatus
	UsedQuantityDelta *decimal.Decimal
}

// ApplyReport validates r against the item's current state and applies it.
// On error the item is left unchanged.
//
// Rules: percent stays within 0..100 and never decreases; status follows
// NotStarted -> InProgress -> (Paused <-> InProgress) -> Completed; a percent
// above zero on a not-started item with no explicit status starts it;
// actual start is stamped on the first move into InProgress and actual end
// on the move into Completed. With requireFull, Completed needs 100%.
func (p *ProgressItem) ApplyReport(r ProgressReport, now time.Time, requireFull bool) error {
	if p.Status == ProgressCompleted {
		return Transitionf("progress item %s is completed", p.Index)
	}

	percent := p.ProgressPercent
	if r.Percent != nil {
		if r.Percent.IsNegative() || r.Percent.GreaterThan(hundred) {
			return Validationf("progress percent %s is outside 0..100", r.Percent)
		}
		if r.Percent.LessThan(p.ProgressPercent) {
			return Transitionf("progress of %s cannot go back from %s%% to %s%%", p.Index, p.ProgressPercent, r.Percent)
		}
		percent = *r.Percent
	}

	status := p.Status
	switch {
	case r.Status != nil:
		status = *r.Status
	case p.Status == ProgressNotStarted && percent.IsPositive():
		status = ProgressInProgress
	}
	if !p.Status.CanTransitionTo(status) {
		return Transitionf("progress item %s cannot move from %s to %s", p.Index, p.Status, status)
	}
	if status == ProgressCompleted && requireFull && !percent.Equal(hundred) {
		return Transitionf("progress item %s cannot complete at %s%%", p.Index, percent)
	}

	used := p.UsedQuantity
	if r.UsedQuantityDelta != nil {
		used = used.Add(*r.UsedQuantityDelta)
		if used.IsNegative() {
			return Validationf("used quantity of %s would become negative", p.Index)
		}
	}

	if status == ProgressInProgress && p.ActualStart == nil {
		start := now
		p.ActualStart = &start
	}
	if status == ProgressCompleted && p.Status != ProgressCompleted {
		end := now
		p.ActualEnd = &end
	}
	p.Status = status
	p.ProgressPercent = percent
	p.UsedQuantity = used
	p.UpdatedAt = now
	return nil
}

// ProgressItemDetail mirrors a DetailLine and counts how much of it was used.
type ProgressItemDetail struct {
	ID             string
	ProgressItemID string
	SourceDetailID string
	Resource       ResourceRef
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	Total          decimal.Decimal
	UsedQuantity   decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewProgressItemDetailFrom snapshots a detail line.
func NewProgressItemDetailFrom(progressItemID string, src *DetailLine, id string, now time.Time) *ProgressItemDetail {
	return &ProgressItemDetail{
		ID:             id,
		ProgressItemID: progressItemID,
		SourceDetailID: src.ID,
		Resource:       src.Resource,
		Quantity:       src.Quantity,
		UnitPrice:      src.UnitPrice,
		Total:          src.Total,
		UsedQuantity:   decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AddUsage adds delta to the used counter; the counter never goes negative.
func (d *ProgressItemDetail) AddUsage(delta decimal.Decimal, now time.Time) error {
	next := d.UsedQuantity.Add(delta)
	if next.IsNegative() {
		return Validationf("used quantity of %s would become negative", d.Resource)
	}
	d.UsedQuantity = next
	d.UpdatedAt = now
	return nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalDatePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format(DateLayout) == b.Format(DateLayout)
}

// DateLayout is the storage and display layout for calendar dates.
const DateLayout = "2006-01-02"
