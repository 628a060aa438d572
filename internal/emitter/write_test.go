package emitter

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPlan_SortedByPath(t *testing.T) {
	t.Parallel()
	planned := Plan(map[string][]byte{
		"b/schemas.go":  []byte("package b\n"),
		"a/routes.yaml": []byte("x: 1\n"),
	})
	if len(planned) != 2 {
		t.Fatalf("expected 2 planned files, got %d", len(planned))
	}
	if planned[0].Path != "a/routes.yaml" || planned[1].Path != "b/schemas.go" {
		t.Fatalf("unexpected order: %+v", planned)
	}
	if planned[1].Size != len("package b\n") || planned[1].Mode != 0o644 {
		t.Fatalf("unexpected plan entry: %+v", planned[1])
	}
}

func TestWrite_CreatesDirectories(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	out := filepath.Join(dir, "gen", "validators", "schemas.go")
	if err := Write(map[string][]byte{out: []byte("package validators\n")}, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "package validators\n" {
		t.Fatalf("unexpected content %q", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(out))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWrite_NoForce_ExistingFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	existing := filepath.Join(dir, "schemas.go")
	if err := os.WriteFile(existing, []byte("old"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}
	other := filepath.Join(dir, "routes.yaml")
	err := Write(map[string][]byte{existing: []byte("new"), other: []byte("x")}, false)
	if err == nil {
		t.Fatalf("expected error on existing file without force")
	}
	if _, err := os.Stat(other); !os.IsNotExist(err) {
		t.Fatalf("nothing may be written when the pre-flight check fails")
	}

	if err := Write(map[string][]byte{existing: []byte("new")}, true); err != nil {
		t.Fatalf("write with force: %v", err)
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "new" {
		t.Fatalf("expected overwrite, got %q", data)
	}
}
