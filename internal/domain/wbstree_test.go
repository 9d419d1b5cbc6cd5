package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(index string, parent ...string) *PlanItem {
	it := &PlanItem{PlanID: "p1", WorkCode: "WC-" + index, Index: index, Name: "Item " + index}
	if len(parent) > 0 {
		it.ParentIndex = &parent[0]
	}
	return it
}

func indicesOf(items []*PlanItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Index
	}
	return out
}

func TestBuildWBSTree_SubtreeOrder(t *testing.T) {
	tree, err := BuildWBSTree([]*PlanItem{
		item("2"),
		item("1.10", "1"),
		item("1"),
		item("1.2", "1"),
		item("1.2.1", "1.2"),
	})
	require.NoError(t, err)

	all, err := tree.Subtree("")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1.2", "1.2.1", "1.10", "2"}, indicesOf(all))

	sub, err := tree.Subtree("1.2")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2", "1.2.1"}, indicesOf(sub))

	_, err = tree.Subtree("9")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBuildWBSTree_SkipsDeleted(t *testing.T) {
	gone := item("1.1", "1")
	gone.Deleted = true
	tree, err := BuildWBSTree([]*PlanItem{item("1"), gone})
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Len())
	assert.False(t, tree.HasChildren("1"))
}

func TestBuildWBSTree_MissingParentIsInvariantViolation(t *testing.T) {
	_, err := BuildWBSTree([]*PlanItem{item("1"), item("2.1", "2")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTreeInvariant))
}

func TestBuildWBSTree_CycleIsInvariantViolation(t *testing.T) {
	_, err := BuildWBSTree([]*PlanItem{item("1"), item("2", "3"), item("3", "2")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTreeInvariant))
}

func TestWBSTree_AncestryAndDepth(t *testing.T) {
	tree, err := BuildWBSTree([]*PlanItem{item("1"), item("1.1", "1"), item("1.1.1", "1.1")})
	require.NoError(t, err)

	assert.True(t, tree.IsAncestor("1", "1.1.1"))
	assert.True(t, tree.IsAncestor("1.1", "1.1.1"))
	assert.False(t, tree.IsAncestor("1.1.1", "1"))
	assert.Equal(t, 2, tree.Depth("1.1.1"))
	assert.Equal(t, 0, tree.Depth("1"))
	assert.Len(t, tree.Children("1"), 1)
}

func TestWBSTree_OutlineFollowsParentLinks(t *testing.T) {
	// "5" hangs under "1", so it is drawn inside 1's branch even though it
	// sorts after "2".
	tree, err := BuildWBSTree([]*PlanItem{
		item("1"),
		item("1.1", "1"),
		item("5", "1"),
		item("2"),
	})
	require.NoError(t, err)

	outline, err := tree.Outline("")
	require.NoError(t, err)
	require.Len(t, outline, 4)

	got := make([]string, len(outline))
	for i, e := range outline {
		got[i] = e.Item.Index
	}
	assert.Equal(t, []string{"1", "1.1", "5", "2"}, got)
	assert.Equal(t, 1, outline[2].Depth)
	assert.True(t, outline[2].IsLast)
	assert.False(t, outline[1].IsLast)
	assert.True(t, outline[3].IsLast)

	sub, err := tree.Outline("1")
	require.NoError(t, err)
	assert.Len(t, sub, 3)
	assert.Equal(t, 0, sub[0].Depth)

	_, err = tree.Outline("9")
	assert.ErrorIs(t, err, ErrNotFound)
}
