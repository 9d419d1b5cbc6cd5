package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ReviewerApprovals maps reviewer actor IDs to their approval flag.
//
// Stored as a JSON object. A nil map encodes as "{}"; NULL or an empty
// column decodes to an empty, non-nil map, so a value always round-trips to
// an equal map.
type ReviewerApprovals map[string]bool

// Value implements driver.Valuer.
func (m ReviewerApprovals) Value() (driver.Value, error) {
	return encodeDocMap(m)
}

// Scan implements sql.Scanner.
func (m *ReviewerApprovals) Scan(src any) error {
	out := ReviewerApprovals{}
	if err := decodeDocMap(src, &out); err != nil {
		return fmt.Errorf("decoding reviewer approvals: %w", err)
	}
	*m = out
	return nil
}

// Approved reports whether the plan has at least one reviewer and every
// reviewer has approved.
func (m ReviewerApprovals) Approved() bool {
	if len(m) == 0 {
		return false
	}
	for _, ok := range m {
		if !ok {
			return false
		}
	}
	return true
}

// ItemRelations holds auxiliary string annotations on a plan item.
// Same encoding rules as ReviewerApprovals.
type ItemRelations map[string]string

// Value implements driver.Valuer.
func (m ItemRelations) Value() (driver.Value, error) {
	return encodeDocMap(m)
}

// Scan implements sql.Scanner.
func (m *ItemRelations) Scan(src any) error {
	out := ItemRelations{}
	if err := decodeDocMap(src, &out); err != nil {
		return fmt.Errorf("decoding item relations: %w", err)
	}
	*m = out
	return nil
}

// Clone returns an independent copy; nil clones to an empty map.
func (m ItemRelations) Clone() ItemRelations {
	out := make(ItemRelations, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func encodeDocMap[M ~map[string]V, V any](m M) (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeDocMap(src any, dst any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
