package service

import (
	"testing"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_AddDetailAcrossResourceKinds(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	it := e.item(plan.ID, "1", nil)

	refs := []domain.ResourceRef{
		domain.Material("cement"),
		domain.Worker("mason-1"),
		domain.Vehicle("truck-7"),
		domain.Team("crew-a"),
	}
	for _, ref := range refs {
		e.resource(ref)
		line, err := e.ledger.AddDetail(e.ctx, planner, it.WorkCode, DetailInput{
			Resource: ref, Quantity: dec("2"), UnitPrice: dec("12.5"),
		})
		require.NoError(t, err)
		assert.Equal(t, it.ID, line.PlanItemID)
		assert.True(t, dec("25").Equal(line.Total))
	}

	lines, err := e.ledger.ListDetails(e.ctx, it.WorkCode)
	require.NoError(t, err)
	require.Len(t, lines, 4)
	got := make([]domain.ResourceRef, 0, len(lines))
	for _, l := range lines {
		got = append(got, l.Resource)
	}
	assert.ElementsMatch(t, refs, got)
}

func TestLedger_LeaseTakenOverMidCallWritesNothing(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	it := e.item(plan.ID, "1", nil)
	e.resource(domain.Material("cement"))

	e.loseLeaseBeforeNextTx(plan.ID)
	_, err := e.ledger.AddDetail(e.ctx, planner, it.WorkCode, DetailInput{
		Resource: domain.Material("cement"), Quantity: dec("2"), UnitPrice: dec("4"),
	})
	assert.ErrorIs(t, err, domain.ErrNotHolder)

	lines, err := e.ledger.ListDetails(e.ctx, it.WorkCode)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestLedger_AddDetailValidates(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	it := e.item(plan.ID, "1", nil)
	e.resource(domain.Material("sand"))

	_, err := e.ledger.AddDetail(e.ctx, planner, it.WorkCode, DetailInput{Resource: domain.Material("gravel"), Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound, "unregistered resources are rejected")

	_, err = e.ledger.AddDetail(e.ctx, planner, it.WorkCode, DetailInput{Resource: domain.Material("sand"), Quantity: dec("0")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.ledger.AddDetail(e.ctx, planner, it.WorkCode, DetailInput{Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrValidation, "a line must name exactly one resource")

	_, err = e.ledger.AddDetail(e.ctx, planner, "WC-missing", DetailInput{Resource: domain.Material("sand"), Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.ledger.AddDetail(e.ctx, intruder, it.WorkCode, DetailInput{Resource: domain.Material("sand"), Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrNotHolder)

	lines, err := e.ledger.ListDetails(e.ctx, it.WorkCode)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestLedger_RemoveDetail(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	it := e.item(plan.ID, "1", nil)
	e.resource(domain.Vehicle("excavator"))

	line, err := e.ledger.AddDetail(e.ctx, planner, it.WorkCode, DetailInput{Resource: domain.Vehicle("excavator"), Quantity: dec("3")})
	require.NoError(t, err)

	assert.ErrorIs(t, e.ledger.RemoveDetail(e.ctx, intruder, line.ID), domain.ErrNotHolder)
	require.NoError(t, e.ledger.RemoveDetail(e.ctx, planner, line.ID))

	lines, err := e.ledger.ListDetails(e.ctx, it.WorkCode)
	require.NoError(t, err)
	assert.Empty(t, lines)

	assert.ErrorIs(t, e.ledger.RemoveDetail(e.ctx, planner, line.ID), domain.ErrNotFound)
}
