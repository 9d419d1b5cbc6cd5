package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlanEditLease_ExpiryIsEvaluatedAtCheck(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	lease := &PlanEditLease{PlanID: "p1", HolderID: "a", AcquiredAt: t0, ExpiresAt: t0.Add(15 * time.Minute)}

	assert.True(t, lease.HeldBy("a", t0.Add(time.Minute)))
	assert.False(t, lease.HeldBy("b", t0.Add(time.Minute)))
	assert.False(t, lease.LiveAt(t0.Add(15*time.Minute)), "expiry instant is already expired")
	assert.False(t, lease.HeldBy("a", t0.Add(16*time.Minute)))

	var none *PlanEditLease
	assert.False(t, none.LiveAt(t0))
}

func TestMustHold(t *testing.T) {
	lease := &PlanEditLease{PlanID: "p1", HolderID: "a", ExpiresAt: time.Now().Add(time.Minute)}
	g := NewLeaseGrant(lease)
	assert.Equal(t, "p1", g.PlanID())
	assert.Equal(t, "a", g.ActorID())
	assert.NotPanics(t, func() { MustHold(g, "p1") })
	assert.Panics(t, func() { MustHold(g, "p2") })
	assert.Panics(t, func() { MustHold(nil, "p1") })
}
