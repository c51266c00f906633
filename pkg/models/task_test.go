package models

import (
	"testing"
	"time"
)

func TestTaskStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   bool
	}{
		{"pending is valid", TaskStatusPending, true},
		{"ready is valid", TaskStatusReady, true},
		{"running is valid", TaskStatusRunning, true},
		{"completed is valid", TaskStatusCompleted, true},
		{"failed is valid", TaskStatusFailed, true},
		{"cancelled is valid", TaskStatusCancelled, true},
		{"empty string is invalid", TaskStatus(""), false},
		{"unknown status is invalid", TaskStatus("done"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestTaskStatus_Terminal(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskStatusPending, false},
		{TaskStatusReady, false},
		{TaskStatusRunning, false},
		{TaskStatusCompleted, true},
		{TaskStatusFailed, true},
		{TaskStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTaskNode_CloneIsDeep(t *testing.T) {
	started := time.Now()
	orig := &TaskNode{
		ID:           "a",
		Dependencies: []string{"b"},
		StartedAt:    &started,
	}

	c := orig.Clone()
	c.Dependencies[0] = "z"
	*c.StartedAt = started.Add(time.Hour)

	if orig.Dependencies[0] != "b" {
		t.Errorf("clone shares Dependencies slice with original")
	}
	if !orig.StartedAt.Equal(started) {
		t.Errorf("clone shares StartedAt with original")
	}

	var nilNode *TaskNode
	if nilNode.Clone() != nil {
		t.Errorf("Clone of nil node should be nil")
	}
}

func TestGraph_CloneAndNode(t *testing.T) {
	g := &Graph{
		ID: "g1",
		Nodes: []*TaskNode{
			{ID: "a", Status: TaskStatusReady},
			{ID: "b", Dependencies: []string{"a"}, Status: TaskStatusPending},
		},
	}
	g.DeriveEdges()

	c := g.Clone()
	c.Node("a").Status = TaskStatusCompleted

	if g.Node("a").Status != TaskStatusReady {
		t.Errorf("mutating the clone changed the original")
	}
	if g.Node("missing") != nil {
		t.Errorf("Node(missing) should be nil")
	}
	if len(c.Edges) != 1 || c.Edges[0] != (Edge{From: "a", To: "b"}) {
		t.Errorf("Edges = %v, want [{a b}]", c.Edges)
	}
}

func TestGraph_DeriveEdges(t *testing.T) {
	g := &Graph{
		Nodes: []*TaskNode{
			{ID: "a"},
			{ID: "b", Dependencies: []string{"a"}},
			{ID: "c", Dependencies: []string{"a", "b"}},
		},
		Edges: []Edge{{From: "stale", To: "x"}},
	}

	g.DeriveEdges()

	want := []Edge{{"a", "b"}, {"a", "c"}, {"b", "c"}}
	if len(g.Edges) != len(want) {
		t.Fatalf("got %d edges, want %d", len(g.Edges), len(want))
	}
	for i := range want {
		if g.Edges[i] != want[i] {
			t.Errorf("edge %d = %v, want %v", i, g.Edges[i], want[i])
		}
	}
}

func TestProgress_Finished(t *testing.T) {
	p := Progress{Total: 5, Completed: 2, Failed: 1, Cancelled: 1, Running: 1}
	if got := p.Finished(); got != 4 {
		t.Errorf("Finished() = %d, want 4", got)
	}
}
