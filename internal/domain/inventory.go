package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PoolScope is the project scope of the unscoped resource pool.
const PoolScope = ""

// InventoryKey identifies one balance: a resource within a project scope,
// or within the pool when ProjectID is PoolScope.
type InventoryKey struct {
	Resource  ResourceRef
	ProjectID string
}

func (k InventoryKey) String() string {
	if k.ProjectID == PoolScope {
		return fmt.Sprintf("%s@pool", k.Resource)
	}
	return fmt.Sprintf("%s@%s", k.Resource, k.ProjectID)
}

// InventoryRow is the current balance for one key. Quantity never goes
// negative. Version increments on every write and guards concurrent
// read-modify-write cycles.
type InventoryRow struct {
	ID        string
	Key       InventoryKey
	Quantity  decimal.Decimal
	Active    bool
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewInventoryRow returns an empty, active row for key.
func NewInventoryRow(id string, key InventoryKey, now time.Time) *InventoryRow {
	return &InventoryRow{
		ID:        id,
		Key:       key,
		Quantity:  decimal.Zero,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Withdraw removes qty from the row.
func (r *InventoryRow) Withdraw(qty decimal.Decimal, now time.Time) error {
	if !qty.IsPositive() {
		return Validationf("withdrawal quantity must be positive")
	}
	if !r.Active {
		return Validationf("inventory %s is inactive", r.Key)
	}
	if qty.GreaterThan(r.Quantity) {
		return fmt.Errorf("%w: %s has %s, requested %s", ErrInsufficientResource, r.Key, r.Quantity, qty)
	}
	r.Quantity = r.Quantity.Sub(qty)
	r.UpdatedAt = now
	return nil
}

// Deposit adds qty to the row and reactivates it.
func (r *InventoryRow) Deposit(qty decimal.Decimal, now time.Time) error {
	if !qty.IsPositive() {
		return Validationf("deposit quantity must be positive")
	}
	r.Quantity = r.Quantity.Add(qty)
	r.Active = true
	r.UpdatedAt = now
	return nil
}

// SetActive flips the active flag. A row holding stock cannot be deactivated.
func (r *InventoryRow) SetActive(active bool, now time.Time) error {
	if !active && !r.Quantity.IsZero() {
		return Validationf("inventory %s still holds %s", r.Key, r.Quantity)
	}
	r.Active = active
	r.UpdatedAt = now
	return nil
}
