package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit_WritesSampleConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	if err := execute("init", "--out", path); err != nil {
		t.Fatalf("init execute: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "oas2validator configuration") || !strings.Contains(s, "# target: go") {
		t.Fatalf("unexpected config contents: %s", s)
	}
}

func TestInit_SampleConfigIsAccepted(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	uncommented := strings.Join([]string{
		"input: ./openapi.yaml",
		"target: zod",
		"namePrefix: Api",
		"noRoutes: false",
		"includeTags: [public,read]",
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(uncommented), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := GenerateConfig{}
	if err := applyGenerateConfigFromFile(&cfg, path); err != nil {
		t.Fatalf("apply config: %v", err)
	}
	if cfg.Target != "zod" || cfg.NamePrefix != "Api" || len(cfg.IncludeTags) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestInit_ExistingWithoutForce(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}

	err := execute("init", "--out", path)
	if err == nil {
		t.Fatalf("expected error for existing file without --force")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %T: %v", err, err)
	}

	if err := execute("init", "--out", path, "--force"); err != nil {
		t.Fatalf("init with --force: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) == "x" {
		t.Fatalf("expected file to be overwritten")
	}
}
