package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/foreman/internal/cli/formatter"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// decimalValue is a pflag.Value for exact quantities and prices.
type decimalValue struct{ d *decimal.Decimal }

func newDecimalValue(p *decimal.Decimal) *decimalValue { return &decimalValue{d: p} }

func (v *decimalValue) String() string {
	if v.d == nil {
		return "0"
	}
	return v.d.String()
}

func (v *decimalValue) Set(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	*v.d = d
	return nil
}

func (v *decimalValue) Type() string { return "decimal" }

// dateValue is a pflag.Value for an optional YYYY-MM-DD date. The target
// stays nil until the flag is set.
type dateValue struct{ t **time.Time }

func newDateValue(p **time.Time) *dateValue { return &dateValue{t: p} }

func (v *dateValue) String() string {
	if v.t == nil || *v.t == nil {
		return ""
	}
	return (*v.t).Format(formatter.DateLayout)
}

func (v *dateValue) Set(s string) error {
	d, err := time.ParseInLocation(formatter.DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	*v.t = &d
	return nil
}

func (v *dateValue) Type() string { return "date" }

var (
	_ pflag.Value = (*decimalValue)(nil)
	_ pflag.Value = (*dateValue)(nil)
)

// parseResourceRef reads "kind:id", e.g. material:cement or team:crew-a.
func parseResourceRef(s string) (domain.ResourceRef, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return domain.ResourceRef{}, fmt.Errorf("resource %q: want kind:id (material|worker|vehicle|team)", s)
	}
	return domain.NewResourceRef(strings.ToLower(kind), id)
}

// parseTransferLine reads "kind:id=quantity".
func parseTransferLine(s string) (service.TransferLineInput, error) {
	ref, qty, ok := strings.Cut(s, "=")
	if !ok {
		return service.TransferLineInput{}, fmt.Errorf("line %q: want kind:id=quantity", s)
	}
	r, err := parseResourceRef(ref)
	if err != nil {
		return service.TransferLineInput{}, err
	}
	q, err := decimal.NewFromString(strings.TrimSpace(qty))
	if err != nil {
		return service.TransferLineInput{}, fmt.Errorf("line %q: invalid quantity %q", s, qty)
	}
	return service.TransferLineInput{Resource: r, Quantity: q}, nil
}

// resolveProjectID accepts a project ID, a unique ID prefix, or a project
// name (case-insensitive).
func resolveProjectID(ctx context.Context, app *App, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("project is required")
	}

	projects, err := app.Directory.ListProjects(ctx)
	if err != nil {
		return "", err
	}

	for _, p := range projects {
		if p.ID == input {
			return p.ID, nil
		}
	}
	for _, p := range projects {
		if strings.EqualFold(p.Name, input) {
			return p.ID, nil
		}
	}

	var matches []string
	for _, p := range projects {
		if strings.HasPrefix(p.ID, input) {
			matches = append(matches, p.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("project %q: %w", input, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("project ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}
