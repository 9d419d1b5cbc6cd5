package domain

import (
	"errors"
	"fmt"
)

// ErrTreeInvariant marks a WBS tree whose stored rows break the tree rules
// (a live child whose parent index is gone, two live items sharing an index,
// or a parent cycle). It is not a caller error: it means a defect let bad
// rows reach the store, and it is never silently repaired.
var ErrTreeInvariant = errors.New("wbs tree invariant violated")

// WBSTree is an in-memory view of one plan's live items keyed by index.
// Only flat rows are persisted; the tree is rebuilt per request.
type WBSTree struct {
	byIndex  map[string]*PlanItem
	children map[string][]string
	roots    []string
}

// BuildWBSTree indexes items and checks that every parent reference
// resolves and that every item is reachable from a root.
func BuildWBSTree(items []*PlanItem) (*WBSTree, error) {
	t := &WBSTree{
		byIndex:  make(map[string]*PlanItem, len(items)),
		children: make(map[string][]string),
	}
	for _, it := range items {
		if it.Deleted {
			continue
		}
		if _, dup := t.byIndex[it.Index]; dup {
			return nil, fmt.Errorf("%w: index %s is used by two live items", ErrTreeInvariant, it.Index)
		}
		t.byIndex[it.Index] = it
	}
	for idx, it := range t.byIndex {
		if it.ParentIndex == nil {
			t.roots = append(t.roots, idx)
			continue
		}
		if _, ok := t.byIndex[*it.ParentIndex]; !ok {
			return nil, fmt.Errorf("%w: item %s references missing parent %s", ErrTreeInvariant, idx, *it.ParentIndex)
		}
		t.children[*it.ParentIndex] = append(t.children[*it.ParentIndex], idx)
	}
	SortIndices(t.roots)
	for parent := range t.children {
		SortIndices(t.children[parent])
	}

	reached := 0
	for _, r := range t.roots {
		reached += len(t.collect(r, nil))
	}
	if reached != len(t.byIndex) {
		return nil, fmt.Errorf("%w: %d item(s) unreachable from any root (parent cycle)", ErrTreeInvariant, len(t.byIndex)-reached)
	}
	return t, nil
}

// Get returns the live item at index.
func (t *WBSTree) Get(index string) (*PlanItem, bool) {
	it, ok := t.byIndex[index]
	return it, ok
}

// Len returns the number of live items.
func (t *WBSTree) Len() int { return len(t.byIndex) }

// Children returns the direct children of index in dotted order.
func (t *WBSTree) Children(index string) []*PlanItem {
	out := make([]*PlanItem, 0, len(t.children[index]))
	for _, c := range t.children[index] {
		out = append(out, t.byIndex[c])
	}
	return out
}

// HasChildren reports whether any live item names index as its parent.
func (t *WBSTree) HasChildren(index string) bool {
	return len(t.children[index]) > 0
}

// Subtree returns root and all of its live descendants in dotted order.
// An empty root returns the whole plan.
func (t *WBSTree) Subtree(root string) ([]*PlanItem, error) {
	var out []*PlanItem
	if root == "" {
		for _, r := range t.roots {
			out = t.collect(r, out)
		}
	} else {
		if _, ok := t.byIndex[root]; !ok {
			return nil, fmt.Errorf("item %s: %w", root, ErrNotFound)
		}
		out = t.collect(root, nil)
	}
	SortPlanItems(out)
	return out, nil
}

// IsAncestor reports whether ancestor lies on the parent chain of index.
func (t *WBSTree) IsAncestor(ancestor, index string) bool {
	seen := make(map[string]bool)
	cur, ok := t.byIndex[index]
	for ok && cur.ParentIndex != nil && !seen[cur.Index] {
		seen[cur.Index] = true
		if *cur.ParentIndex == ancestor {
			return true
		}
		cur, ok = t.byIndex[*cur.ParentIndex]
	}
	return false
}

// Depth returns the number of ancestors of index.
func (t *WBSTree) Depth(index string) int {
	depth := 0
	cur, ok := t.byIndex[index]
	for ok && cur.ParentIndex != nil && depth <= len(t.byIndex) {
		depth++
		cur, ok = t.byIndex[*cur.ParentIndex]
	}
	return depth
}

func (t *WBSTree) collect(index string, out []*PlanItem) []*PlanItem {
	out = append(out, t.byIndex[index])
	for _, c := range t.children[index] {
		out = t.collect(c, out)
	}
	return out
}

// OutlineEntry is one item of a depth-first walk, with the depth relative
// to the walk's root and whether it is the last child of its parent.
type OutlineEntry struct {
	Item   *PlanItem
	Depth  int
	IsLast bool
}

// Outline walks root's subtree depth-first, children in dotted order. An
// empty root walks every top-level item.
func (t *WBSTree) Outline(root string) ([]OutlineEntry, error) {
	var out []OutlineEntry
	var walk func(index string, depth int, last bool)
	walk = func(index string, depth int, last bool) {
		out = append(out, OutlineEntry{Item: t.byIndex[index], Depth: depth, IsLast: last})
		kids := t.children[index]
		for i, c := range kids {
			walk(c, depth+1, i == len(kids)-1)
		}
	}
	if root == "" {
		for i, r := range t.roots {
			walk(r, 0, i == len(t.roots)-1)
		}
		return out, nil
	}
	if _, ok := t.byIndex[root]; !ok {
		return nil, fmt.Errorf("item %s: %w", root, ErrNotFound)
	}
	walk(root, 0, true)
	return out, nil
}
