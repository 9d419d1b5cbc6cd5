package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree_CreateAndDottedOrder(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()

	e.item(plan.ID, "2", nil)
	e.item(plan.ID, "1", nil)
	e.item(plan.ID, "1.10", strPtr("1"))
	e.item(plan.ID, "1.2", strPtr("1"))
	e.item(plan.ID, "1.1", strPtr("1"))

	tree, err := e.tree.Tree(e.ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, tree.Len())
	assert.Equal(t, []string{"1.1", "1.2", "1.10"}, indicesOf(tree.Children("1")))

	sub, err := e.tree.ListSubtree(e.ctx, plan.ID, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1.1", "1.2", "1.10"}, indicesOf(sub))
}

func TestTree_CreateComputesTotalAndWorkCode(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()

	it, err := e.tree.CreateItem(e.ctx, planner, plan.ID, ItemInput{
		Index: "1", Name: "Excavation", Unit: "m3",
		Quantity: dec("12.5"), UnitPrice: dec("4"),
	})
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(it.TotalPrice))
	assert.Regexp(t, `^WC-[0-9a-f]{8}$`, it.WorkCode)

	got, err := e.tree.GetItem(e.ctx, it.WorkCode)
	require.NoError(t, err)
	assert.Equal(t, "Excavation", got.Name)
	assert.True(t, dec("50").Equal(got.TotalPrice))
}

func TestTree_CreateRejectsMissingParentAndDuplicates(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	first := e.item(plan.ID, "1", nil)

	_, err := e.tree.CreateItem(e.ctx, planner, plan.ID, ItemInput{Index: "2.1", ParentIndex: strPtr("2"), Name: "Orphan"})
	assert.ErrorIs(t, err, domain.ErrParentNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.tree.CreateItem(e.ctx, planner, plan.ID, ItemInput{Index: "1", Name: "Again"})
	assert.ErrorIs(t, err, domain.ErrDuplicateIndex)

	_, err = e.tree.CreateItem(e.ctx, planner, plan.ID, ItemInput{Index: "3", WorkCode: first.WorkCode, Name: "Copy"})
	assert.ErrorIs(t, err, domain.ErrDuplicateWorkCode)

	_, err = e.tree.CreateItem(e.ctx, planner, plan.ID, ItemInput{Index: "4", Name: "Bad", Quantity: dec("-1")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.tree.CreateItem(e.ctx, planner, plan.ID, ItemInput{Index: "a.b", Name: "Bad index"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTree_WritesRequireTheLease(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	it := e.item(plan.ID, "1", nil)

	_, err := e.tree.CreateItem(e.ctx, intruder, plan.ID, ItemInput{Index: "2", Name: "Sneaky"})
	assert.ErrorIs(t, err, domain.ErrNotHolder)

	name := "Renamed"
	_, err = e.tree.UpdateItem(e.ctx, intruder, it.WorkCode, domain.PlanItemPatch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotHolder)

	assert.ErrorIs(t, e.tree.DeleteItem(e.ctx, intruder, it.WorkCode), domain.ErrNotHolder)

	e.advance(DefaultLeaseTTL + time.Second)
	_, err = e.tree.CreateItem(e.ctx, planner, plan.ID, ItemInput{Index: "2", Name: "Too late"})
	assert.ErrorIs(t, err, domain.ErrNotHolder, "an expired lease grants nothing, not even to its holder")

	items, err := e.items.ListByPlan(e.ctx, plan.ID, true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Item 1", items[0].Name)
}

func TestTree_LeaseTakenOverMidCallWritesNothing(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	it := e.item(plan.ID, "1", nil)

	e.loseLeaseBeforeNextTx(plan.ID)
	_, err := e.tree.CreateItem(e.ctx, planner, plan.ID, ItemInput{Index: "2", Name: "Late"})
	assert.ErrorIs(t, err, domain.ErrNotHolder)

	e.loseLeaseBeforeNextTx(plan.ID)
	name := "Late rename"
	_, err = e.tree.UpdateItem(e.ctx, planner, it.WorkCode, domain.PlanItemPatch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotHolder)

	items, err := e.items.ListByPlan(e.ctx, plan.ID, true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Item 1", items[0].Name)
}

func TestTree_UpdateIndexRewritesChildren(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	parent := e.item(plan.ID, "1", nil)
	e.item(plan.ID, "1.1", strPtr("1"))
	e.item(plan.ID, "1.2", strPtr("1"))
	grandchild := e.item(plan.ID, "1.1.1", strPtr("1.1"))

	newIndex := "3"
	updated, err := e.tree.UpdateItem(e.ctx, planner, parent.WorkCode, domain.PlanItemPatch{Index: &newIndex})
	require.NoError(t, err)
	assert.Equal(t, "3", updated.Index)

	tree, err := e.tree.Tree(e.ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1", "1.2"}, indicesOf(tree.Children("3")))
	assert.Empty(t, tree.Children("1"))

	gc, err := e.tree.GetItem(e.ctx, grandchild.WorkCode)
	require.NoError(t, err)
	require.NotNil(t, gc.ParentIndex)
	assert.Equal(t, "1.1", *gc.ParentIndex, "only direct children follow the renamed item")
}

func TestTree_UpdateFieldsAndTotals(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	it := e.item(plan.ID, "1", nil)

	qty := dec("7")
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	updated, err := e.tree.UpdateItem(e.ctx, planner, it.WorkCode, domain.PlanItemPatch{
		Quantity: &qty, StartDate: &start, EndDate: &end,
		Relations: domain.ItemRelations{"drawing": "A-12"},
	})
	require.NoError(t, err)
	assert.True(t, dec("21").Equal(updated.TotalPrice))

	got, err := e.tree.GetItem(e.ctx, it.WorkCode)
	require.NoError(t, err)
	assert.True(t, dec("21").Equal(got.TotalPrice))
	assert.Equal(t, "A-12", got.Relations["drawing"])
	require.NotNil(t, got.EndDate)
	assert.True(t, end.Equal(*got.EndDate))

	before := end.AddDate(0, -2, 0)
	_, err = e.tree.UpdateItem(e.ctx, planner, it.WorkCode, domain.PlanItemPatch{EndDate: &before})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTree_UpdateRejectsCyclesAndCollisions(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	root := e.item(plan.ID, "1", nil)
	e.item(plan.ID, "1.1", strPtr("1"))
	e.item(plan.ID, "1.1.1", strPtr("1.1"))
	e.item(plan.ID, "2", nil)

	_, err := e.tree.UpdateItem(e.ctx, planner, root.WorkCode, domain.PlanItemPatch{ParentIndex: strPtr("1.1.1")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.tree.UpdateItem(e.ctx, planner, root.WorkCode, domain.PlanItemPatch{ParentIndex: strPtr("1")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.tree.UpdateItem(e.ctx, planner, root.WorkCode, domain.PlanItemPatch{ParentIndex: strPtr("9")})
	assert.ErrorIs(t, err, domain.ErrParentNotFound)

	taken := "2"
	_, err = e.tree.UpdateItem(e.ctx, planner, root.WorkCode, domain.PlanItemPatch{Index: &taken})
	assert.ErrorIs(t, err, domain.ErrDuplicateIndex)

	moved, err := e.tree.UpdateItem(e.ctx, planner, root.WorkCode, domain.PlanItemPatch{ParentIndex: strPtr("2")})
	require.NoError(t, err)
	require.NotNil(t, moved.ParentIndex)
	assert.Equal(t, "2", *moved.ParentIndex)

	cleared, err := e.tree.UpdateItem(e.ctx, planner, root.WorkCode, domain.PlanItemPatch{ClearParent: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.ParentIndex)
}

func TestTree_UpdateRollsBackWhenChildRewriteFails(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	parent := e.item(plan.ID, "1", nil)
	child := e.item(plan.ID, "1.1", strPtr("1"))

	// ExecContext #1 = item update, #2 = children rewrite.
	e.build(&testutil.FailOnNthExecUoW{DB: e.db, FailOn: 2, Err: fmt.Errorf("injected reparent failure")})

	newIndex := "5"
	_, err := e.tree.UpdateItem(e.ctx, planner, parent.WorkCode, domain.PlanItemPatch{Index: &newIndex})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected reparent failure")

	got, err := e.tree.GetItem(e.ctx, parent.WorkCode)
	require.NoError(t, err)
	assert.Equal(t, "1", got.Index, "index should be unchanged after rollback")

	c, err := e.tree.GetItem(e.ctx, child.WorkCode)
	require.NoError(t, err)
	require.NotNil(t, c.ParentIndex)
	assert.Equal(t, "1", *c.ParentIndex)
}

func TestTree_DeleteLeafOnly(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	parent := e.item(plan.ID, "1", nil)
	child := e.item(plan.ID, "1.1", strPtr("1"))

	err := e.tree.DeleteItem(e.ctx, planner, parent.WorkCode)
	assert.ErrorIs(t, err, domain.ErrHasLiveChildren)

	require.NoError(t, e.tree.DeleteItem(e.ctx, planner, child.WorkCode))
	_, err = e.tree.GetItem(e.ctx, child.WorkCode)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The tombstone frees both the index and the work code.
	again, err := e.tree.CreateItem(e.ctx, planner, plan.ID, ItemInput{
		Index: "1.1", ParentIndex: strPtr("1"), WorkCode: child.WorkCode, Name: "Rebuilt",
	})
	require.NoError(t, err)
	assert.NotEqual(t, child.ID, again.ID)

	require.NoError(t, e.tree.DeleteItem(e.ctx, planner, again.WorkCode))
	require.NoError(t, e.tree.DeleteItem(e.ctx, planner, parent.WorkCode))

	all, err := e.items.ListByPlan(e.ctx, plan.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	live, err := e.items.ListByPlan(e.ctx, plan.ID, false)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestTree_ListSubtreeUnknownRoot(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	e.item(plan.ID, "1", nil)

	_, err := e.tree.ListSubtree(e.ctx, plan.ID, "4")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTree_WritePathWithoutGrantPanics(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	other, err := e.plans.Create(e.ctx, planner, plan.ProjectID, "Other", nil)
	require.NoError(t, err)
	_, err = e.leases.Acquire(e.ctx, other.ID, planner, 0)
	require.NoError(t, err)
	grant, err := e.leases.Check(e.ctx, other.ID, planner)
	require.NoError(t, err)

	in := ItemInput{Index: "1", Name: "Unguarded", Quantity: decimal.NewFromInt(1)}
	assert.Panics(t, func() {
		_, _ = createItemTx(e.ctx, e.db, nil, plan.ID, in, e.now)
	})
	assert.Panics(t, func() {
		_, _ = createItemTx(e.ctx, e.db, grant, plan.ID, in, e.now)
	}, "a grant for one plan must not unlock another")
}
