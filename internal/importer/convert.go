package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/shopspring/decimal"
)

// ConvertedItem is one plan item ready for creation together with its
// resource lines. IDs, plan and timestamps are assigned by the caller.
type ConvertedItem struct {
	Item    *domain.PlanItem
	Details []*domain.DetailLine
}

// Convert transforms a validated ImportSchema into plan items ordered so
// that every parent defined in the file comes before its children, in
// dotted order otherwise. Call ValidateImportSchema first; Convert assumes
// the schema is valid.
func Convert(schema *ImportSchema) ([]ConvertedItem, error) {
	byIndex := make(map[string]ConvertedItem, len(schema.Items))
	indices := make([]string, 0, len(schema.Items))

	for _, in := range schema.Items {
		item := &domain.PlanItem{
			Index:     in.Index,
			WorkCode:  strings.TrimSpace(in.WorkCode),
			Name:      strings.TrimSpace(in.Name),
			Unit:      strings.TrimSpace(in.Unit),
			Relations: domain.ItemRelations(in.Relations).Clone(),
		}
		if in.ParentIndex != nil && *in.ParentIndex != "" {
			p := *in.ParentIndex
			item.ParentIndex = &p
		}
		var err error
		if item.Quantity, err = parseAmount(in.Quantity); err != nil {
			return nil, fmt.Errorf("item %s quantity: %w", in.Index, err)
		}
		if item.UnitPrice, err = parseAmount(in.UnitPrice); err != nil {
			return nil, fmt.Errorf("item %s unit_price: %w", in.Index, err)
		}
		item.StartDate = parseOptionalDate(in.StartDate)
		item.EndDate = parseOptionalDate(in.EndDate)
		item.Recompute()

		conv := ConvertedItem{Item: item}
		for _, d := range in.Details {
			ref, err := domain.NewResourceRef(d.Kind, d.ResourceID)
			if err != nil {
				return nil, fmt.Errorf("item %s detail: %w", in.Index, err)
			}
			line := &domain.DetailLine{Resource: ref}
			if line.Quantity, err = parseAmount(d.Quantity); err != nil {
				return nil, fmt.Errorf("item %s detail quantity: %w", in.Index, err)
			}
			if line.UnitPrice, err = parseAmount(d.UnitPrice); err != nil {
				return nil, fmt.Errorf("item %s detail unit_price: %w", in.Index, err)
			}
			line.Recompute()
			conv.Details = append(conv.Details, line)
		}
		byIndex[in.Index] = conv
		indices = append(indices, in.Index)
	}
	domain.SortIndices(indices)

	out := make([]ConvertedItem, 0, len(indices))
	placed := make(map[string]bool, len(indices))
	var place func(index string)
	place = func(index string) {
		if placed[index] {
			return
		}
		placed[index] = true
		conv := byIndex[index]
		if p := conv.Item.ParentIndex; p != nil {
			if _, inFile := byIndex[*p]; inFile {
				place(*p)
			}
		}
		out = append(out, conv)
	}
	for _, index := range indices {
		place(index)
	}
	return out, nil
}

func parseAmount(n Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(string(n))
}

func parseOptionalDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(domain.DateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}
