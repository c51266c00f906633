package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGraph(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write graph: %v", err)
	}
	return path
}

func TestValidateGraph(t *testing.T) {
	path := writeGraph(t, "plan.yaml", `
goal: Add a health check
tasks:
  - id: db
    executor: codex
    estimate: 10m
  - id: api
    depends_on: [db]
    estimate: 5m
  - id: docs
    depends_on: [db]
`)

	var buf bytes.Buffer
	if err := validateGraph(&buf, path, ""); err != nil {
		t.Fatalf("validateGraph failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"is valid (yaml)",
		"Goal:     Add a health check",
		"Tasks:    3",
		"Width:    2",
		"db [codex] ~10m0s",
		"Critical: db → api (15m0s estimated)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidateGraphGoalOverride(t *testing.T) {
	path := writeGraph(t, "plan.hcl", `
task "only" {
  description = "work toward ${goal}"
}
`)

	var buf bytes.Buffer
	if err := validateGraph(&buf, path, "ship it"); err != nil {
		t.Fatalf("validateGraph failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Goal:     ship it") {
		t.Errorf("goal override not shown:\n%s", buf.String())
	}
}

func TestValidateGraphRejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "cycle",
			file: "cycle.yaml",
			content: `
tasks:
  - id: a
    depends_on: [b]
  - id: b
    depends_on: [a]
`,
		},
		{
			name: "unknown dependency",
			file: "missing.yaml",
			content: `
tasks:
  - id: a
    depends_on: [ghost]
`,
		},
		{name: "unknown format", file: "plan.json", content: "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeGraph(t, tt.file, tt.content)
			var buf bytes.Buffer
			if err := validateGraph(&buf, path, ""); err == nil {
				t.Errorf("expected validation error, output:\n%s", buf.String())
			}
			if !strings.HasPrefix(buf.String(), "✗") {
				t.Errorf("expected failure marker, got %q", buf.String())
			}
		})
	}
}
