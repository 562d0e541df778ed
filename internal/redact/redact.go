// Package redact implements the privacy boundary between local analysis
// data and the cloud store.
//
// Every row leaving the machine passes through the engine first. The
// transform is field-level and deterministic: absolute filesystem paths
// are rewritten relative to the project root, secret values are replaced
// with a fixed marker, raw source text is dropped, and binary hashes are
// hex-encoded. Fields and tables without a rule pass through unchanged.
//
// Redaction is idempotent for the path, root_path, secret, and code
// kinds: applying the engine to already-redacted output changes nothing.
package redact

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/sourcepulse/cloudsync/internal/catalog"
	"github.com/sourcepulse/cloudsync/internal/schema"
)

// Kind identifies which transform applies to a field.
type Kind string

const (
	// KindPath strips the project root from an absolute path, leaving a
	// root-relative path. Paths outside the root are left unchanged.
	KindPath Kind = "path"

	// KindRootPath is KindPath for fields that hold the root itself:
	// a path equal to the root becomes "" rather than a bare separator.
	KindRootPath Kind = "root_path"

	// KindSecret replaces any non-nil value with SecretMarker. Nil stays
	// nil so redaction never fabricates the presence of a secret.
	KindSecret Kind = "secret"

	// KindCode drops the value entirely: raw source text never leaves
	// the machine, redacted or otherwise.
	KindCode Kind = "code"

	// KindBlobHex encodes a raw byte buffer as a lowercase hex string.
	KindBlobHex Kind = "blob_hex"
)

// SecretMarker is the fixed replacement for redacted secret values.
const SecretMarker = "[REDACTED]"

// Rules maps local table name to field name to redaction kind.
type Rules map[string]map[string]Kind

// Engine applies a rule set to rows before upload.
type Engine struct {
	rules Rules
}

// NewEngine creates an engine for the given rule set.
//
// The rule set is validated against the replication catalog: every rule
// must name a catalog table and a known kind. This runs once at
// configuration-load time so rule drift is caught before any row flows.
func NewEngine(rules Rules) (*Engine, error) {
	for table, fields := range rules {
		if _, ok := catalog.Lookup(table); !ok {
			return nil, fmt.Errorf("redaction rule for unknown table %q", table)
		}
		if len(fields) == 0 {
			return nil, fmt.Errorf("redaction rule for table %q has no fields", table)
		}
		for field, kind := range fields {
			if strings.TrimSpace(field) == "" {
				return nil, fmt.Errorf("redaction rule for table %q has a blank field name", table)
			}
			switch kind {
			case KindPath, KindRootPath, KindSecret, KindCode, KindBlobHex:
			default:
				return nil, fmt.Errorf("table %q field %q: unknown redaction kind %q", table, field, kind)
			}
		}
	}
	return &Engine{rules: rules}, nil
}

// Default returns an engine loaded with the reference rule set.
func Default() (*Engine, error) {
	return NewEngine(DefaultRules())
}

// RedactPath strips root from the front of path, returning the remainder
// with the leading separator removed. A path that does not start with
// root, including any path outside the project, is returned unchanged.
// An empty path stays empty.
func RedactPath(path, root string) string {
	if path == "" || root == "" {
		return path
	}
	root = trimTrailingSep(root)
	if !strings.HasPrefix(path, root) {
		return path
	}
	rest := path[len(root):]
	if rest == "" {
		return ""
	}
	if !isSep(rest[0]) {
		// Prefix match fell inside a path element ("/root/apple" vs
		// "/root/app"): not actually under the root.
		return path
	}
	return strings.TrimLeft(rest, "/\\")
}

// RedactRootPath is RedactPath for fields that hold the project root
// itself: a path equal to root, with or without a trailing separator,
// becomes "" rather than a bare separator.
func RedactRootPath(path, root string) string {
	if path == "" || root == "" {
		return path
	}
	if trimTrailingSep(path) == trimTrailingSep(root) {
		return ""
	}
	return RedactPath(path, root)
}

// RedactRow applies the table's rules to a copy of row. Fields without a
// rule, and rows for tables without a rule set, pass through unchanged.
// The input row is never mutated.
func (e *Engine) RedactRow(table string, row schema.Row, root string) schema.Row {
	fields, ok := e.rules[table]
	if !ok {
		return row
	}

	out := row.Clone()
	for field, kind := range fields {
		v, present := out[field]
		if !present {
			continue
		}
		switch kind {
		case KindPath:
			if s, ok := v.(string); ok {
				out[field] = RedactPath(s, root)
			}
		case KindRootPath:
			if s, ok := v.(string); ok {
				out[field] = RedactRootPath(s, root)
			}
		case KindSecret:
			if v != nil {
				out[field] = SecretMarker
			}
		case KindCode:
			out[field] = nil
		case KindBlobHex:
			if b, ok := v.([]byte); ok {
				out[field] = hex.EncodeToString(b)
			}
		}
	}
	return out
}

// RedactBatch applies RedactRow to every row.
func (e *Engine) RedactBatch(table string, rows []schema.Row, root string) []schema.Row {
	if len(rows) == 0 {
		return rows
	}
	out := make([]schema.Row, len(rows))
	for i, row := range rows {
		out[i] = e.RedactRow(table, row, root)
	}
	return out
}

// TableNeedsRedaction reports whether the table carries any rule.
func (e *Engine) TableNeedsRedaction(table string) bool {
	_, ok := e.rules[table]
	return ok
}

// RedactedTables returns the sorted names of all tables carrying at
// least one rule. The count always equals the number of entries in the
// rule set; audits rely on that.
func (e *Engine) RedactedTables() []string {
	names := make([]string, 0, len(e.rules))
	for table := range e.rules {
		names = append(names, table)
	}
	sort.Strings(names)
	return names
}

// RulesForTable returns the table's field rules, or nil.
func (e *Engine) RulesForTable(table string) map[string]Kind {
	return e.rules[table]
}

func isSep(c byte) bool {
	return c == '/' || c == '\\'
}

func trimTrailingSep(s string) string {
	return strings.TrimRight(s, "/\\")
}
