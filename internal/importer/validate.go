package importer

import (
	"fmt"
	"time"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/shopspring/decimal"
)

// ValidateImportSchema checks the import schema for errors before conversion.
// Returns a slice of all validation errors found.
func ValidateImportSchema(schema *ImportSchema) []error {
	var errs []error
	if len(schema.Items) == 0 {
		return []error{fmt.Errorf("items: at least one item is required")}
	}

	indices := make(map[string]bool)
	codes := make(map[string]bool)
	for i, it := range schema.Items {
		prefix := fmt.Sprintf("items[%d]", i)

		if err := domain.ValidateIndex(it.Index); err != nil {
			errs = append(errs, fmt.Errorf("%s.index: %v", prefix, err))
		} else if indices[it.Index] {
			errs = append(errs, fmt.Errorf("%s.index: duplicate index %q", prefix, it.Index))
		} else {
			indices[it.Index] = true
		}

		if it.WorkCode != "" {
			if codes[it.WorkCode] {
				errs = append(errs, fmt.Errorf("%s.work_code: duplicate work code %q", prefix, it.WorkCode))
			}
			codes[it.WorkCode] = true
		}

		if it.ParentIndex != nil {
			if err := domain.ValidateIndex(*it.ParentIndex); err != nil {
				errs = append(errs, fmt.Errorf("%s.parent_index: %v", prefix, err))
			} else if *it.ParentIndex == it.Index {
				errs = append(errs, fmt.Errorf("%s.parent_index: item %q cannot be its own parent", prefix, it.Index))
			}
		}

		if it.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		errs = append(errs, validateAmount(prefix+".quantity", it.Quantity, false)...)
		errs = append(errs, validateAmount(prefix+".unit_price", it.UnitPrice, false)...)

		start, startErrs := validateOptionalDate(prefix+".start_date", it.StartDate)
		end, endErrs := validateOptionalDate(prefix+".end_date", it.EndDate)
		errs = append(errs, startErrs...)
		errs = append(errs, endErrs...)
		if start != nil && end != nil && end.Before(*start) {
			errs = append(errs, fmt.Errorf("%s.end_date %q is before start_date %q", prefix, *it.EndDate, *it.StartDate))
		}

		for j, d := range it.Details {
			errs = append(errs, validateDetail(fmt.Sprintf("%s.details[%d]", prefix, j), d)...)
		}
	}

	errs = append(errs, detectCycles(schema.Items)...)
	return errs
}

func validateDetail(prefix string, d DetailImport) []error {
	var errs []error
	if d.Kind == "" {
		errs = append(errs, fmt.Errorf("%s.kind is required", prefix))
	} else if !domain.ValidResourceKinds[d.Kind] {
		errs = append(errs, fmt.Errorf("%s.kind: invalid value %q", prefix, d.Kind))
	}
	if d.ResourceID == "" {
		errs = append(errs, fmt.Errorf("%s.resource_id is required", prefix))
	}
	if d.Quantity == "" {
		errs = append(errs, fmt.Errorf("%s.quantity is required", prefix))
	} else {
		errs = append(errs, validateAmount(prefix+".quantity", d.Quantity, true)...)
	}
	errs = append(errs, validateAmount(prefix+".unit_price", d.UnitPrice, false)...)
	return errs
}

func validateAmount(field string, n Number, positive bool) []error {
	if n == "" {
		return nil
	}
	v, err := decimal.NewFromString(string(n))
	if err != nil {
		return []error{fmt.Errorf("%s: invalid number %q", field, string(n))}
	}
	if positive && !v.IsPositive() {
		return []error{fmt.Errorf("%s must be positive", field)}
	}
	if v.IsNegative() {
		return []error{fmt.Errorf("%s must not be negative", field)}
	}
	return nil
}

// detectCycles reports parent chains inside the file that loop back on
// themselves. Parents outside the file end a chain.
func detectCycles(items []ItemImport) []error {
	parent := make(map[string]string)
	for _, it := range items {
		if it.ParentIndex != nil && *it.ParentIndex != it.Index {
			parent[it.Index] = *it.ParentIndex
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var errs []error
	for _, it := range items {
		var path []string
		node := it.Index
		for color[node] == white {
			color[node] = gray
			path = append(path, node)
			next, ok := parent[node]
			if !ok {
				break
			}
			node = next
		}
		if color[node] == gray {
			if _, ok := parent[node]; ok {
				errs = append(errs, fmt.Errorf("circular parent chain involving index %q", node))
			}
		}
		for _, p := range path {
			color[p] = black
		}
	}
	return errs
}

func validateOptionalDate(field string, dateStr *string) (*time.Time, []error) {
	if dateStr == nil || *dateStr == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, *dateStr)
	if err != nil {
		return nil, []error{fmt.Errorf("%s: invalid date format %q (expected YYYY-MM-DD)", field, *dateStr)}
	}
	return &t, nil
}
