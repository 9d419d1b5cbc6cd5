package domain

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// ValidateIndex checks that s is a dotted path of non-negative integers,
// e.g. "1", "1.2" or "1.2.10".
func ValidateIndex(s string) error {
	if s == "" {
		return Validationf("index is required")
	}
	for _, seg := range strings.Split(s, ".") {
		if seg == "" {
			return Validationf("index %q has an empty segment", s)
		}
		if _, err := strconv.ParseUint(seg, 10, 32); err != nil {
			return Validationf("index %q: segment %q is not a number", s, seg)
		}
	}
	return nil
}

// CompareIndex orders two dotted-path indices segment by segment, comparing
// segments as integers ("1.10" sorts after "1.2"). A path sorts before every
// path it is a prefix of. Non-numeric segments fall back to string order.
func CompareIndex(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(as), len(bs))
}

func compareSegment(a, b string) int {
	an, aErr := strconv.ParseUint(a, 10, 64)
	bn, bErr := strconv.ParseUint(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		return cmp.Compare(an, bn)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// SortIndices sorts a slice of indices in dotted-path order.
func SortIndices(indices []string) {
	slices.SortStableFunc(indices, CompareIndex)
}

// SortPlanItems sorts plan items in dotted-path order of their Index.
func SortPlanItems(items []*PlanItem) {
	slices.SortStableFunc(items, func(a, b *PlanItem) int {
		return CompareIndex(a.Index, b.Index)
	})
}

// SortProgressItems sorts progress items in dotted-path order of their Index.
func SortProgressItems(items []*ProgressItem) {
	slices.SortStableFunc(items, func(a, b *ProgressItem) int {
		return CompareIndex(a.Index, b.Index)
	})
}
