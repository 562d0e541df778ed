// Package schema defines the row model shared by the catalog, redaction,
// and upload layers.
//
// Local tables are dynamically shaped: each row is a mapping from column
// name to a value drawn from a closed union. Keeping the union closed means
// every value that reaches the uploader has a well-defined JSON encoding,
// and catalog/redaction configuration can be checked against it once at
// load time instead of per row.
package schema

import (
	"fmt"
	"sort"
)

// Row is a single local table row: column name to value.
//
// Values are restricted to the closed union:
//
//	string | int64 | int | float64 | bool | nil | []byte
//
// int is an alias for int64 in this union: untyped Go integer literals
// land as int, and every consumer (Row.ID, JSON encoding) treats the two
// identically. The SQLite reader only ever produces int64.
//
// Use ValidateValue (or Validate on the whole row) to enforce the union
// when rows enter the system from an untrusted producer.
type Row map[string]any

// ValidateValue reports whether v belongs to the closed value union.
func ValidateValue(v any) error {
	switch v.(type) {
	case nil, string, int64, int, float64, bool, []byte:
		return nil
	default:
		return fmt.Errorf("unsupported row value type %T", v)
	}
}

// Validate checks every value in the row against the closed union.
func (r Row) Validate() error {
	for field, v := range r {
		if err := ValidateValue(v); err != nil {
			return fmt.Errorf("field %q: %w", field, err)
		}
	}
	return nil
}

// Clone returns a shallow copy of the row. Byte slices are shared;
// callers that mutate []byte values must copy them explicitly.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the row's local integer id, or 0 if the id column is
// missing or not an integer. Local ids drive cursor advancement, so a
// row without one is cursor-neutral.
func (r Row) ID() int64 {
	switch v := r["id"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Fields returns the row's column names in sorted order.
// Useful for deterministic logging and test output.
func (r Row) Fields() []string {
	fields := make([]string, 0, len(r))
	for k := range r {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}
