package graphfile

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/swarm/internal/graph"
	"github.com/ShayCichocki/swarm/pkg/models"
)

const sampleYAML = `
id: release-42
goal: Add a health check
tasks:
  - id: db
    name: Create schema
    executor: codex
    priority: 2
    estimate: 10m
  - id: api
    name: Add endpoint
    description: Wire the handler
    depends_on: [db]
  - id: docs
    depends_on: [db, api]
    executor: CLAUDE
`

const sampleHCL = `
id   = "release-42"
goal = "Add a health check"

task "db" {
  name     = "Create schema"
  executor = "codex"
  priority = 2
  estimate = "10m"
}

task "api" {
  name        = "Add endpoint"
  description = "${upper(goal)} for ${env.SERVICE}"
  depends_on  = ["db"]
}

task "docs" {
  depends_on = ["db", "api"]
  executor   = "claude"
}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func checkSample(t *testing.T, doc *Document) {
	t.Helper()
	g := doc.Graph

	if g.ID != "release-42" {
		t.Errorf("expected graph ID release-42, got %q", g.ID)
	}
	if len(g.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(g.Nodes))
	}

	db := g.Node("db")
	if db.ExecutorPreference != models.PreferCodex || db.Priority != 2 || db.EstimatedDuration != 10*time.Minute {
		t.Errorf("unexpected db node %+v", db)
	}
	if db.Status != models.TaskStatusPending {
		t.Errorf("expected pending status, got %q", db.Status)
	}
	if api := g.Node("api"); api.ExecutorPreference != models.PreferAny {
		t.Errorf("expected missing executor to mean any, got %q", api.ExecutorPreference)
	}
	docs := g.Node("docs")
	if docs.Name != "docs" {
		t.Errorf("expected name to default to ID, got %q", docs.Name)
	}
	if docs.ExecutorPreference != models.PreferClaude {
		t.Errorf("expected claude preference, got %q", docs.ExecutorPreference)
	}

	wantEdges := []models.Edge{{From: "db", To: "api"}, {From: "db", To: "docs"}, {From: "api", To: "docs"}}
	if !reflect.DeepEqual(g.Edges, wantEdges) {
		t.Errorf("edges = %v, want %v", g.Edges, wantEdges)
	}

	if _, err := graph.Build(g); err != nil {
		t.Errorf("loaded graph should build: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	doc, err := Load(writeFile(t, "graph.yaml", sampleYAML), Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Format != FormatYAML {
		t.Errorf("expected yaml format, got %q", doc.Format)
	}
	if doc.Goal != "Add a health check" {
		t.Errorf("unexpected goal %q", doc.Goal)
	}
	if doc.Graph.Node("api").Description != "Wire the handler" {
		t.Errorf("unexpected description %q", doc.Graph.Node("api").Description)
	}
	checkSample(t, doc)
}

func TestLoadHCL(t *testing.T) {
	doc, err := Load(writeFile(t, "graph.hcl", sampleHCL), Options{Env: map[string]string{"SERVICE": "billing"}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Format != FormatHCL {
		t.Errorf("expected hcl format, got %q", doc.Format)
	}
	if got := doc.Graph.Node("api").Description; got != "ADD A HEALTH CHECK for billing" {
		t.Errorf("unexpected evaluated description %q", got)
	}
	checkSample(t, doc)
}

func TestGoalOverride(t *testing.T) {
	hclDoc, err := ParseHCL([]byte(sampleHCL), "graph.hcl", Options{Goal: "ship it", Env: map[string]string{"SERVICE": "x"}})
	if err != nil {
		t.Fatalf("ParseHCL failed: %v", err)
	}
	if hclDoc.Goal != "ship it" {
		t.Errorf("expected overridden goal, got %q", hclDoc.Goal)
	}
	if got := hclDoc.Graph.Node("api").Description; got != "SHIP IT for x" {
		t.Errorf("expected task to see the overridden goal, got %q", got)
	}

	yamlDoc, err := ParseYAML([]byte(sampleYAML), "graph.yaml", Options{Goal: "ship it"})
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}
	if yamlDoc.Goal != "ship it" {
		t.Errorf("expected overridden goal, got %q", yamlDoc.Goal)
	}
}

func TestGeneratedGraphID(t *testing.T) {
	doc, err := ParseYAML([]byte("tasks:\n  - id: a\n"), "g.yaml", Options{})
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}
	if doc.Graph.ID == "" {
		t.Error("expected a generated graph ID")
	}
}

func TestEmptyYAML(t *testing.T) {
	doc, err := ParseYAML(nil, "empty.yaml", Options{})
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}
	if len(doc.Graph.Nodes) != 0 {
		t.Errorf("expected no nodes, got %d", len(doc.Graph.Nodes))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		content string
		want    string
	}{
		{"yaml unknown field", FormatYAML, "tasks:\n  - id: a\n    retries: 3\n", "retries"},
		{"yaml missing id", FormatYAML, "tasks:\n  - name: a\n", "missing id"},
		{"yaml bad executor", FormatYAML, "tasks:\n  - id: a\n    executor: gpt\n", "invalid executor"},
		{"yaml bad estimate", FormatYAML, "tasks:\n  - id: a\n    estimate: soon\n", "invalid estimate"},
		{"yaml negative estimate", FormatYAML, "tasks:\n  - id: a\n    estimate: -1m\n", "negative"},
		{"yaml syntax", FormatYAML, "tasks: [", "parse YAML"},
		{"hcl syntax", FormatHCL, "task \"a\" {", "parse HCL"},
		{"hcl unknown attribute", FormatHCL, "task \"a\" {\n  retries = 3\n}\n", "decode HCL"},
		{"hcl unknown env", FormatHCL, "task \"a\" {\n  name = env.NOPE\n}\n", "decode HCL"},
		{"hcl bad executor", FormatHCL, "task \"a\" {\n  executor = \"gpt\"\n}\n", "invalid executor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.format == FormatHCL {
				_, err = ParseHCL([]byte(tt.content), "g.hcl", Options{Env: map[string]string{}})
			} else {
				_, err = ParseYAML([]byte(tt.content), "g.yaml", Options{})
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"g.yaml", FormatYAML},
		{"g.YML", FormatYAML},
		{"dir/g.hcl", FormatHCL},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.path)
		if err != nil || got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, %v; want %q", tt.path, got, err, tt.want)
		}
	}

	if _, err := DetectFormat("g.json"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), Options{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCycleSurvivesLoading(t *testing.T) {
	doc, err := ParseYAML([]byte("tasks:\n  - id: a\n    depends_on: [b]\n  - id: b\n    depends_on: [a]\n"), "g.yaml", Options{})
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}
	if _, err := graph.Build(doc.Graph); !errors.Is(err, graph.ErrCycleDetected) {
		t.Errorf("expected cycle to be caught by graph.Build, got %v", err)
	}
}
