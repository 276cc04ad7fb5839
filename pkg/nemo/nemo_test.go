package nemo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aidan-bailey/nemo/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "program.mg"), `
t(X, Y) :- e(X, Y).
t(X, Z) :- t(X, Y), e(Y, Z).
`)
	writeFile(t, filepath.Join(dir, "edges.csv"), "a,b\nb,c\nc,d\n")
	writeFile(t, filepath.Join(dir, "run.yaml"), `
rules: [program.mg]
imports:
  - predicate: e
    file: edges.csv
    columns: [string, string]
exports:
  - predicate: t
    file: closure.csv
`)

	manifest, err := config.Load(filepath.Join(dir, "run.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	result, err := Run(context.Background(), manifest)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Imports[0].Rows != 3 {
		t.Errorf("imported rows = %d, want 3", result.Imports[0].Rows)
	}

	data, err := os.ReadFile(filepath.Join(dir, "closure.csv"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 6 {
		t.Errorf("closure lines = %d, want 6:\n%s", len(lines), data)
	}
	if lines[0] != "a,b" {
		t.Errorf("first line = %q", lines[0])
	}
}
