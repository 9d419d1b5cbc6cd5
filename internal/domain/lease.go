package domain

import (
	"fmt"
	"time"
)

// PlanEditLease grants one actor exclusive mutation rights over a plan's
// tree and ledger until ExpiresAt.
type PlanEditLease struct {
	PlanID     string
	HolderID   string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// LiveAt reports whether the lease has not expired at now.
func (l *PlanEditLease) LiveAt(now time.Time) bool {
	return l != nil && now.Before(l.ExpiresAt)
}

// HeldBy reports whether actorID holds a live lease at now.
func (l *PlanEditLease) HeldBy(actorID string, now time.Time) bool {
	return l.LiveAt(now) && l.HolderID == actorID
}

// LeaseGrant is proof that a lease check passed for one plan and actor.
// Write paths of the tree and ledger take a grant and assert it with
// MustHold; it is minted only by the lease service.
type LeaseGrant struct {
	planID  string
	actorID string
	expires time.Time
}

// NewLeaseGrant mints a grant from a verified live lease.
func NewLeaseGrant(l *PlanEditLease) *LeaseGrant {
	return &LeaseGrant{planID: l.PlanID, actorID: l.HolderID, expires: l.ExpiresAt}
}

func (g *LeaseGrant) PlanID() string  { return g.planID }
func (g *LeaseGrant) ActorID() string { return g.actorID }

// MustHold panics unless g is a grant for planID. Reaching a write path
// without a matching grant is a programming defect, not a caller error.
func MustHold(g *LeaseGrant, planID string) {
	if g == nil {
		panic(fmt.Sprintf("plan %s mutated without a lease grant", planID))
	}
	if g.planID != planID {
		panic(fmt.Sprintf("lease grant for plan %s used to mutate plan %s", g.planID, planID))
	}
}
