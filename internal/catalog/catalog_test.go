package catalog

import (
	"strings"
	"testing"
)

func TestCatalogShape(t *testing.T) {
	defs := Tables()
	if len(defs) != 42 {
		t.Errorf("catalog has %d tables, want 42", len(defs))
	}
	if n := len(TablesForSource(SourcePrimary)); n != 37 {
		t.Errorf("primary source has %d tables, want 37", n)
	}
	if n := len(TablesForSource(SourceCausal)); n != 5 {
		t.Errorf("causal source has %d tables, want 5", n)
	}
	if n := len(TablesForSource(SourceSemantic)); n != 0 {
		t.Errorf("semantic source has %d tables, want 0", n)
	}
}

func TestCatalogValidates(t *testing.T) {
	if err := Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestCloudTableDerivation(t *testing.T) {
	if got := CloudTableName("files"); got != "cloud_files" {
		t.Errorf("CloudTableName(files) = %q, want cloud_files", got)
	}
	for _, d := range Tables() {
		if d.CloudTable != CloudTablePrefix+d.LocalTable {
			t.Errorf("table %s: cloud name %q not derived from local name", d.LocalTable, d.CloudTable)
		}
	}
}

func TestConflictColumnsNonEmpty(t *testing.T) {
	for _, d := range Tables() {
		if len(d.ConflictColumns) == 0 {
			t.Errorf("table %s has no conflict columns", d.LocalTable)
		}
		for _, col := range d.ConflictColumns {
			if strings.TrimSpace(col) == "" {
				t.Errorf("table %s has a blank conflict column", d.LocalTable)
			}
		}
	}
}

func TestLookup(t *testing.T) {
	d, ok := Lookup("sessions")
	if !ok {
		t.Fatal("Lookup(sessions) not found")
	}
	if d.Source != SourceCausal {
		t.Errorf("sessions source = %q, want causal", d.Source)
	}

	if _, ok := Lookup("no_such_table"); ok {
		t.Error("Lookup returned a definition for an unknown table")
	}
}

func TestTablesReturnsCopy(t *testing.T) {
	defs := Tables()
	defs[0].LocalTable = "mutated"
	if Tables()[0].LocalTable == "mutated" {
		t.Error("mutating the returned slice changed the catalog")
	}
}
