// Package graph provides the immutable dependency graph used for task scheduling.
package graph

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/swarm/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrInconsistentEdges indicates the explicit edge list disagrees with node dependency lists.
var ErrInconsistentEdges = errors.New("edges inconsistent with task dependencies")

// CycleError reports the first cycle found during validation.
// Path follows dependency edges and repeats its first element at the end.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycleDetected, strings.Join(e.Path, " -> "))
}

// Is makes errors.Is(err, ErrCycleDetected) match a *CycleError.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// DependencyGraph is a validated, read-only index over a models.Graph.
// Tasks are nodes, and edges represent "blocked by" relationships.
type DependencyGraph struct {
	// source is the graph the index was built from.
	source *models.Graph
	// order holds task IDs in planner insertion order.
	order []string
	// nodes maps task ID to the task itself.
	nodes map[string]*models.TaskNode
	// deps maps task ID to IDs of tasks it depends on.
	deps map[string][]string
	// dependents maps task ID to IDs of tasks that depend on it.
	dependents map[string][]string
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// Build indexes g and validates it. Returns an error if a task ID is duplicated,
// a dependency references an unknown task, the edge list is inconsistent, or a
// cycle exists. A graph that fails Build must never be scheduled.
func Build(g *models.Graph) (*DependencyGraph, error) {
	if g == nil {
		return nil, errors.New("nil graph")
	}

	dg := &DependencyGraph{
		source:     g,
		order:      make([]string, 0, len(g.Nodes)),
		nodes:      make(map[string]*models.TaskNode, len(g.Nodes)),
		deps:       make(map[string][]string, len(g.Nodes)),
		dependents: make(map[string][]string, len(g.Nodes)),
		debugLog:   func(format string, args ...interface{}) {},
	}

	// First pass: register all tasks as nodes.
	for _, n := range g.Nodes {
		if n == nil || n.ID == "" {
			return nil, errors.New("task with empty ID")
		}
		if _, exists := dg.nodes[n.ID]; exists {
			return nil, fmt.Errorf("duplicate task ID %s", n.ID)
		}
		dg.nodes[n.ID] = n
		dg.order = append(dg.order, n.ID)
	}

	// Second pass: build both indexes from dependency lists.
	for _, n := range g.Nodes {
		seen := make(map[string]bool, len(n.Dependencies))
		for _, depID := range n.Dependencies {
			if _, exists := dg.nodes[depID]; !exists {
				return nil, fmt.Errorf("task %s depends on unknown task %s", n.ID, depID)
			}
			if seen[depID] {
				continue
			}
			seen[depID] = true
			dg.deps[n.ID] = append(dg.deps[n.ID], depID)
			dg.dependents[depID] = append(dg.dependents[depID], n.ID)
		}
	}

	if err := dg.checkEdges(g.Edges); err != nil {
		return nil, err
	}

	if err := dg.Validate(); err != nil {
		return nil, err
	}

	return dg, nil
}

// checkEdges verifies an explicit edge list matches the dependency lists exactly.
// An empty edge list is accepted; producers may omit it.
func (g *DependencyGraph) checkEdges(edges []models.Edge) error {
	if len(edges) == 0 {
		return nil
	}

	listed := make(map[models.Edge]bool, len(edges))
	for _, e := range edges {
		deps, ok := g.deps[e.To]
		if !ok || !contains(deps, e.From) {
			return fmt.Errorf("%w: edge %s -> %s has no matching dependency", ErrInconsistentEdges, e.From, e.To)
		}
		listed[e] = true
	}
	for _, id := range g.order {
		for _, dep := range g.deps[id] {
			if !listed[models.Edge{From: dep, To: id}] {
				return fmt.Errorf("%w: dependency %s of %s has no edge", ErrInconsistentEdges, dep, id)
			}
		}
	}
	return nil
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Validate returns a *CycleError if the graph contains a circular dependency.
// Uses an iterative depth-first search with a visited set and an in-progress
// set, so deep graphs cannot exhaust the goroutine stack.
func (g *DependencyGraph) Validate() error {
	const (
		white = iota // unvisited
		gray         // on the current DFS path
		black        // fully explored
	)

	type frame struct {
		id   string
		next int
	}

	color := make(map[string]int, len(g.order))
	for _, root := range g.order {
		if color[root] != white {
			continue
		}

		stack := []frame{{id: root}}
		path := []string{root}
		color[root] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.deps[top.id]

			if top.next >= len(deps) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				path = path[:len(path)-1]
				continue
			}

			depID := deps[top.next]
			top.next++

			switch color[depID] {
			case gray:
				// Back edge: the cycle runs from depID's position on the path.
				start := indexOf(path, depID)
				cycle := append(append([]string(nil), path[start:]...), depID)
				g.debugLog("[graph.Validate] cycle detected: %v", cycle)
				return &CycleError{Path: cycle}
			case white:
				color[depID] = gray
				stack = append(stack, frame{id: depID})
				path = append(path, depID)
			}
		}
	}

	return nil
}

// TopologicalOrder returns task IDs so that every task comes after all of its
// dependencies. Ties follow insertion order. Used for derived computations only;
// dispatch order is priority driven.
func (g *DependencyGraph) TopologicalOrder() []string {
	visited := make(map[string]bool, len(g.order))
	result := make([]string, 0, len(g.order))

	type frame struct {
		id   string
		next int
	}

	for _, root := range g.order {
		if visited[root] {
			continue
		}
		visited[root] = true
		stack := []frame{{id: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.deps[top.id]
			if top.next < len(deps) {
				depID := deps[top.next]
				top.next++
				if !visited[depID] {
					visited[depID] = true
					stack = append(stack, frame{id: depID})
				}
				continue
			}

			// All dependencies emitted; emit this node.
			result = append(result, top.id)
			stack = stack[:len(stack)-1]
		}
	}

	return result
}

// Depths returns, per task, the longest path length from any task with no
// dependencies. Root tasks have depth 0.
func (g *DependencyGraph) Depths() map[string]int {
	depth := make(map[string]int, len(g.order))
	for _, id := range g.TopologicalOrder() {
		d := 0
		for _, dep := range g.deps[id] {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[id] = d
	}
	return depth
}

// Width returns the largest number of tasks sharing the same depth.
// This is the most parallelism the graph can ever use.
func (g *DependencyGraph) Width() int {
	perLevel := make(map[int]int)
	width := 0
	for _, d := range g.Depths() {
		perLevel[d]++
		if perLevel[d] > width {
			width = perLevel[d]
		}
	}
	return width
}

// CriticalPath returns the duration-weighted longest path through the graph and
// its total estimated duration. Used for reporting and estimation only.
func (g *DependencyGraph) CriticalPath() ([]string, time.Duration) {
	order := g.TopologicalOrder()
	if len(order) == 0 {
		return nil, 0
	}

	dist := make(map[string]time.Duration, len(order))
	pred := make(map[string]string, len(order))

	for _, id := range order {
		var best time.Duration
		bestPred := ""
		for _, dep := range g.deps[id] {
			if bestPred == "" || dist[dep] > best {
				best = dist[dep]
				bestPred = dep
			}
		}
		dist[id] = best + g.nodes[id].EstimatedDuration
		if bestPred != "" {
			pred[id] = bestPred
		}
	}

	end := order[0]
	for _, id := range order[1:] {
		if dist[id] > dist[end] {
			end = id
		}
	}

	var path []string
	for id := end; id != ""; id = pred[id] {
		path = append(path, id)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return path, dist[end]
}

// Source returns the graph the index was built from.
func (g *DependencyGraph) Source() *models.Graph {
	return g.source
}

// Node returns the task for a given ID, or nil if not found.
func (g *DependencyGraph) Node(id string) *models.TaskNode {
	return g.nodes[id]
}

// IDs returns task IDs in insertion order.
func (g *DependencyGraph) IDs() []string {
	return append([]string(nil), g.order...)
}

// Nodes returns the tasks in insertion order.
func (g *DependencyGraph) Nodes() []*models.TaskNode {
	nodes := make([]*models.TaskNode, len(g.order))
	for i, id := range g.order {
		nodes[i] = g.nodes[id]
	}
	return nodes
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	return len(g.order)
}

// Dependencies returns the IDs of tasks that the given task depends on.
func (g *DependencyGraph) Dependencies(id string) []string {
	return g.deps[id]
}

// Dependents returns the IDs of tasks that directly depend on the given task.
func (g *DependencyGraph) Dependents(id string) []string {
	return g.dependents[id]
}

func contains(ids []string, id string) bool {
	return indexOf(ids, id) >= 0
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
