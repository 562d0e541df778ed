// Package catalog declares which local tables replicate to the cloud
// store, where they land, and which columns key their upserts.
//
// The catalog is static, process-lifetime configuration. Adding a table
// is a code change here, never a runtime decision. Each definition names
// exactly one source database and a non-empty ordered set of conflict
// columns that the destination uses as its upsert key.
package catalog

import (
	"fmt"
	"strings"
)

// Source identifies which local database a table lives in.
type Source string

const (
	// SourcePrimary is drift.db: static-analysis tables (files, symbols,
	// diagnostics, metrics and friends).
	SourcePrimary Source = "primary"

	// SourceCausal is bridge.db: session and event history tables.
	SourceCausal Source = "causal"

	// SourceSemantic is cortex.db: the semantic memory store. No tables
	// replicate from it today (raw vectors never leave the machine), but
	// the source and its cursor exist for when some do.
	SourceSemantic Source = "semantic"
)

// CloudTablePrefix is prepended to every local table name to form its
// cloud table name.
const CloudTablePrefix = "cloud_"

// Definition maps one local table to its cloud destination.
type Definition struct {
	// LocalTable is the table name in the source database.
	LocalTable string

	// CloudTable is the destination table name, always derived as
	// CloudTablePrefix + LocalTable.
	CloudTable string

	// Source names the local database the table lives in.
	Source Source

	// ConflictColumns is the ordered, non-empty set of columns the
	// destination upserts by. Repeated delivery of a row with the same
	// conflict key is a no-op.
	ConflictColumns []string
}

// CloudTableName derives the cloud table name for a local table.
func CloudTableName(localTable string) string {
	return CloudTablePrefix + localTable
}

// def builds a Definition with the derived cloud name and the default
// conflict key (project_id, id) unless columns are given.
func def(localTable string, source Source, conflictColumns ...string) Definition {
	if len(conflictColumns) == 0 {
		conflictColumns = []string{"project_id", "id"}
	}
	return Definition{
		LocalTable:      localTable,
		CloudTable:      CloudTableName(localTable),
		Source:          source,
		ConflictColumns: conflictColumns,
	}
}

// tables is the full replication catalog: 37 primary tables and 5 causal
// tables. Order is stable and is the order tables are reported in.
var tables = []Definition{
	// Primary (drift.db) — file inventory
	def("files", SourcePrimary, "project_id", "path"),
	def("file_hashes", SourcePrimary),
	def("file_metrics", SourcePrimary),

	// Primary — symbol graph
	def("symbols", SourcePrimary),
	def("symbol_refs", SourcePrimary),
	def("imports", SourcePrimary),
	def("exports", SourcePrimary),
	def("functions", SourcePrimary),
	def("methods", SourcePrimary),
	def("classes", SourcePrimary),
	def("interfaces", SourcePrimary),
	def("enums", SourcePrimary),
	def("constants", SourcePrimary),
	def("type_defs", SourcePrimary),
	def("call_edges", SourcePrimary),

	// Primary — configuration and secrets findings
	def("env_vars", SourcePrimary),
	def("secrets", SourcePrimary),
	def("config_files", SourcePrimary, "project_id", "path"),

	// Primary — dependencies and licensing
	def("dependencies", SourcePrimary),
	def("dep_versions", SourcePrimary),
	def("licenses", SourcePrimary),

	// Primary — diagnostics and tests
	def("diagnostics", SourcePrimary),
	def("lint_results", SourcePrimary),
	def("test_files", SourcePrimary),
	def("test_results", SourcePrimary),
	def("coverage", SourcePrimary),

	// Primary — annotations
	def("todos", SourcePrimary),
	def("fixmes", SourcePrimary),
	def("comments", SourcePrimary),
	def("doc_blocks", SourcePrimary),

	// Primary — health metrics
	def("complexity", SourcePrimary),
	def("duplication", SourcePrimary),
	def("hotspots", SourcePrimary),
	def("churn", SourcePrimary),

	// Primary — repository metadata
	def("owners", SourcePrimary),
	def("branches", SourcePrimary),
	def("commits", SourcePrimary),

	// Causal (bridge.db) — session history
	def("sessions", SourceCausal),
	def("session_events", SourceCausal),
	def("handoffs", SourceCausal),
	def("decisions", SourceCausal),
	def("observations", SourceCausal),
}

// Tables returns the full replication catalog.
//
// The returned slice is a copy; callers may not mutate the catalog.
func Tables() []Definition {
	out := make([]Definition, len(tables))
	copy(out, tables)
	return out
}

// TablesForSource returns the catalog entries for one source database,
// in catalog order.
func TablesForSource(source Source) []Definition {
	var out []Definition
	for _, d := range tables {
		if d.Source == source {
			out = append(out, d)
		}
	}
	return out
}

// Lookup returns the definition for a local table name.
func Lookup(localTable string) (Definition, bool) {
	for _, d := range tables {
		if d.LocalTable == localTable {
			return d, true
		}
	}
	return Definition{}, false
}

// Validate checks catalog consistency: unique local names, the cloud
// name derivation, a known source, and non-empty conflict columns.
//
// This runs once at configuration-load time (sync.NewClient calls it) so
// catalog drift is caught before any row is read.
func Validate() error {
	seen := make(map[string]bool, len(tables))
	for _, d := range tables {
		if d.LocalTable == "" {
			return fmt.Errorf("catalog entry with empty local table name")
		}
		if seen[d.LocalTable] {
			return fmt.Errorf("duplicate catalog entry for table %q", d.LocalTable)
		}
		seen[d.LocalTable] = true

		if d.CloudTable != CloudTableName(d.LocalTable) {
			return fmt.Errorf("table %q: cloud table %q does not match derived name %q",
				d.LocalTable, d.CloudTable, CloudTableName(d.LocalTable))
		}

		switch d.Source {
		case SourcePrimary, SourceCausal, SourceSemantic:
		default:
			return fmt.Errorf("table %q: unknown source database %q", d.LocalTable, d.Source)
		}

		if len(d.ConflictColumns) == 0 {
			return fmt.Errorf("table %q: conflict columns must not be empty", d.LocalTable)
		}
		for _, col := range d.ConflictColumns {
			if strings.TrimSpace(col) == "" {
				return fmt.Errorf("table %q: blank conflict column", d.LocalTable)
			}
		}
	}
	return nil
}
