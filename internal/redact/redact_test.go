package redact

import (
	"testing"

	"github.com/sourcepulse/cloudsync/internal/schema"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := Default()
	if err != nil {
		t.Fatalf("failed to build default engine: %v", err)
	}
	return engine
}

func TestRedactPath(t *testing.T) {
	cases := []struct {
		name string
		path string
		root string
		want string
	}{
		{"inside root", "/root/app/src/a.ts", "/root/app", "src/a.ts"},
		{"root with trailing separator", "/root/app/src/a.ts", "/root/app/", "src/a.ts"},
		{"outside root unchanged", "/etc/passwd", "/root/app", "/etc/passwd"},
		{"sibling prefix not stripped", "/root/apple/a.ts", "/root/app", "/root/apple/a.ts"},
		{"empty path", "", "/root/app", ""},
		{"empty root", "/root/app/a.ts", "", "/root/app/a.ts"},
		{"already relative unchanged", "src/a.ts", "/root/app", "src/a.ts"},
		{"deep nesting", "/root/app/a/b/c/d.go", "/root/app", "a/b/c/d.go"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RedactPath(tc.path, tc.root)
			if got != tc.want {
				t.Errorf("RedactPath(%q, %q) = %q, want %q", tc.path, tc.root, got, tc.want)
			}
		})
	}
}

func TestRedactPathIdempotent(t *testing.T) {
	root := "/root/app"
	once := RedactPath("/root/app/src/a.ts", root)
	twice := RedactPath(once, root)
	if once != twice {
		t.Errorf("RedactPath not idempotent: %q then %q", once, twice)
	}
}

func TestRedactRootPath(t *testing.T) {
	cases := []struct {
		name string
		path string
		root string
		want string
	}{
		{"exactly root", "/root/app", "/root/app", ""},
		{"root with trailing separator", "/root/app/", "/root/app", ""},
		{"root given with trailing separator", "/root/app", "/root/app/", ""},
		{"subdirectory", "/root/app/sub", "/root/app", "sub"},
		{"unrelated path", "/other/dir", "/root/app", "/other/dir"},
		{"empty path", "", "/root/app", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RedactRootPath(tc.path, tc.root)
			if got != tc.want {
				t.Errorf("RedactRootPath(%q, %q) = %q, want %q", tc.path, tc.root, got, tc.want)
			}
		})
	}
}

func TestRedactRowSecret(t *testing.T) {
	engine := newTestEngine(t)

	row := schema.Row{"id": int64(1), "name": "API_KEY", "value": "hunter2", "file_path": "/root/app/.env"}
	got := engine.RedactRow("env_vars", row, "/root/app")

	if got["value"] != SecretMarker {
		t.Errorf("secret value = %v, want marker %q", got["value"], SecretMarker)
	}
	if got["file_path"] != ".env" {
		t.Errorf("file_path = %v, want %q", got["file_path"], ".env")
	}
	if got["name"] != "API_KEY" {
		t.Errorf("unruled field changed: name = %v", got["name"])
	}

	// Nil secrets stay nil: redaction never fabricates a secret.
	row = schema.Row{"id": int64(2), "name": "EMPTY", "value": nil}
	got = engine.RedactRow("env_vars", row, "/root/app")
	if got["value"] != nil {
		t.Errorf("nil secret became %v, want nil", got["value"])
	}
}

func TestRedactRowSecretIdempotent(t *testing.T) {
	engine := newTestEngine(t)

	row := schema.Row{"value": "hunter2"}
	once := engine.RedactRow("env_vars", row, "")
	twice := engine.RedactRow("env_vars", once, "")
	if twice["value"] != SecretMarker {
		t.Errorf("re-redacted secret = %v, want marker", twice["value"])
	}
}

func TestRedactRowCode(t *testing.T) {
	engine := newTestEngine(t)

	row := schema.Row{"id": int64(3), "file_path": "/root/app/main.go", "body": "func main() {}"}
	got := engine.RedactRow("functions", row, "/root/app")
	if got["body"] != nil {
		t.Errorf("code field = %v, want nil", got["body"])
	}

	// Already-nil code stays nil.
	again := engine.RedactRow("functions", got, "/root/app")
	if again["body"] != nil {
		t.Errorf("re-redacted code field = %v, want nil", again["body"])
	}
}

func TestRedactRowBlobHex(t *testing.T) {
	engine := newTestEngine(t)

	row := schema.Row{"id": int64(4), "path": "/root/app/a.go", "content_hash": []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	got := engine.RedactRow("file_hashes", row, "/root/app")
	if got["content_hash"] != "deadbeef" {
		t.Errorf("content_hash = %v, want %q", got["content_hash"], "deadbeef")
	}

	row = schema.Row{"id": int64(5), "path": "/root/app/b.go", "content_hash": nil}
	got = engine.RedactRow("file_hashes", row, "/root/app")
	if got["content_hash"] != nil {
		t.Errorf("nil blob became %v, want nil", got["content_hash"])
	}
}

func TestRedactRowRootPath(t *testing.T) {
	engine := newTestEngine(t)

	row := schema.Row{"id": int64(6), "project_root": "/root/app/"}
	got := engine.RedactRow("sessions", row, "/root/app")
	if got["project_root"] != "" {
		t.Errorf("project_root = %v, want empty string", got["project_root"])
	}
}

func TestRedactRowUnknownTablePassThrough(t *testing.T) {
	engine := newTestEngine(t)

	row := schema.Row{"id": int64(7), "score": 0.93, "file_path": "/root/app/a.go"}
	got := engine.RedactRow("complexity", row, "/root/app")
	if got["file_path"] != "/root/app/a.go" {
		t.Errorf("table without rules was modified: %v", got["file_path"])
	}
}

func TestRedactRowDoesNotMutateInput(t *testing.T) {
	engine := newTestEngine(t)

	row := schema.Row{"value": "hunter2"}
	_ = engine.RedactRow("env_vars", row, "")
	if row["value"] != "hunter2" {
		t.Errorf("input row was mutated: %v", row["value"])
	}
}

func TestRedactBatch(t *testing.T) {
	engine := newTestEngine(t)

	rows := []schema.Row{
		{"id": int64(1), "file_path": "/root/app/a.go"},
		{"id": int64(2), "file_path": "/root/app/b.go"},
	}
	got := engine.RedactBatch("imports", rows, "/root/app")
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0]["file_path"] != "a.go" || got[1]["file_path"] != "b.go" {
		t.Errorf("batch redaction wrong: %v, %v", got[0]["file_path"], got[1]["file_path"])
	}
}

func TestRedactedTablesCountMatchesRules(t *testing.T) {
	engine := newTestEngine(t)

	rules := DefaultRules()
	tables := engine.RedactedTables()
	if len(tables) != len(rules) {
		t.Errorf("RedactedTables() returned %d tables, rule set has %d entries", len(tables), len(rules))
	}
	if len(tables) != 19 {
		t.Errorf("reference rule set covers %d tables, want 19", len(tables))
	}
	for _, table := range tables {
		if !engine.TableNeedsRedaction(table) {
			t.Errorf("table %s listed but TableNeedsRedaction is false", table)
		}
	}
}

func TestDefaultRulesUseAllKinds(t *testing.T) {
	seen := make(map[Kind]bool)
	for _, fields := range DefaultRules() {
		for _, kind := range fields {
			seen[kind] = true
		}
	}
	for _, kind := range []Kind{KindPath, KindRootPath, KindSecret, KindCode, KindBlobHex} {
		if !seen[kind] {
			t.Errorf("reference rule set never uses kind %q", kind)
		}
	}
}

func TestNewEngineRejectsBadRules(t *testing.T) {
	if _, err := NewEngine(Rules{"nonexistent_table": {"f": KindPath}}); err == nil {
		t.Error("expected error for rule on unknown table")
	}
	if _, err := NewEngine(Rules{"files": {"path": Kind("scramble")}}); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := NewEngine(Rules{"files": {}}); err == nil {
		t.Error("expected error for empty field set")
	}
}
