package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned (wrapped) when a lookup matches no row.
var ErrNotFound = domain.ErrNotFound

const dateLayout = domain.DateLayout

// parseNullableTime parses a sql.NullString into a *time.Time using the given layout.
// Returns nil if the value is NULL, empty, or fails to parse.
func parseNullableTime(s sql.NullString, layout string) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(layout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// nullableTimeToString converts a *time.Time to a value suitable for SQLite storage.
// Returns nil (SQL NULL) if the pointer is nil, otherwise returns the formatted string.
func nullableTimeToString(t *time.Time, layout string) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(layout)
}

// nullableString converts a *string to a SQL value; nil becomes NULL.
func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// emptyToNull stores the empty string as NULL.
func emptyToNull(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// boolToInt converts a Go bool to an integer (0 or 1) for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// intToBool converts a SQLite integer (0 or 1) to a Go bool.
func intToBool(i int) bool {
	return i != 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(field, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", field, err)
	}
	return t, nil
}

// parseDecimals parses decimal TEXT columns in order into dst.
func parseDecimals(pairs ...decimalColumn) error {
	for _, p := range pairs {
		d, err := decimal.NewFromString(p.raw)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", p.name, err)
		}
		*p.dst = d
	}
	return nil
}

type decimalColumn struct {
	name string
	raw  string
	dst  *decimal.Decimal
}

func dec(name, raw string, dst *decimal.Decimal) decimalColumn {
	return decimalColumn{name: name, raw: raw, dst: dst}
}

// resourceRef rebuilds a tagged reference from its stored (type, id) pair.
func resourceRef(kind, id string) (domain.ResourceRef, error) {
	ref, err := domain.NewResourceRef(kind, id)
	if err != nil {
		return domain.ResourceRef{}, fmt.Errorf("stored resource reference %s:%s: %w", kind, id, err)
	}
	return ref, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
