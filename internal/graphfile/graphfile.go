// Package graphfile loads task graphs from YAML and HCL files.
//
// Both formats describe the same thing: an optional graph ID and goal, and a
// list of tasks with dependencies. Structural checks (unknown dependencies,
// cycles) are left to graph.Build.
package graphfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/swarm/pkg/models"
)

// Format identifies a graph file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// ErrUnknownFormat is returned for files whose extension is not recognised.
var ErrUnknownFormat = errors.New("unknown graph file format")

// Options control how a graph file is evaluated.
type Options struct {
	// Goal overrides the file's goal and is exposed to HCL as the goal variable.
	Goal string
	// Env is exposed to HCL as the env object. Nil uses the process environment.
	Env map[string]string
}

// Document is a loaded graph file.
type Document struct {
	Path   string
	Format Format
	Goal   string
	Graph  *models.Graph
}

// taskSpec is the format-independent shape of one task entry.
type taskSpec struct {
	ID          string
	Name        string
	Description string
	DependsOn   []string
	Executor    string
	Priority    int
	Estimate    string
}

// DetectFormat picks the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("%w: %s (expected .yaml, .yml or .hcl)", ErrUnknownFormat, path)
	}
}

// Load reads and parses the graph file at path.
func Load(path string, opts Options) (*Document, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph file: %w", err)
	}

	var doc *Document
	switch format {
	case FormatHCL:
		doc, err = ParseHCL(data, path, opts)
	default:
		doc, err = ParseYAML(data, path, opts)
	}
	if err != nil {
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// buildGraph converts task entries into a graph with derived edges.
func buildGraph(id string, specs []taskSpec) (*models.Graph, error) {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()
	g := &models.Graph{ID: id, CreatedAt: now, UpdatedAt: now}

	for i, s := range specs {
		node, err := s.node()
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
		g.Nodes = append(g.Nodes, node)
	}
	g.DeriveEdges()
	return g, nil
}

func (s taskSpec) node() (*models.TaskNode, error) {
	id := strings.TrimSpace(s.ID)
	if id == "" {
		return nil, errors.New("missing id")
	}

	pref := models.ExecutorPreference(strings.ToLower(strings.TrimSpace(s.Executor)))
	if pref == "" {
		pref = models.PreferAny
	}
	if !pref.Valid() {
		return nil, fmt.Errorf("%s: invalid executor %q (expected claude, codex or any)", id, s.Executor)
	}

	var estimate time.Duration
	if s.Estimate != "" {
		d, err := time.ParseDuration(s.Estimate)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid estimate %q: %w", id, s.Estimate, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("%s: estimate must not be negative", id)
		}
		estimate = d
	}

	name := s.Name
	if name == "" {
		name = id
	}

	return &models.TaskNode{
		ID:                 id,
		Name:               name,
		Description:        s.Description,
		Dependencies:       append([]string(nil), s.DependsOn...),
		ExecutorPreference: pref,
		Priority:           s.Priority,
		EstimatedDuration:  estimate,
		Status:             models.TaskStatusPending,
	}, nil
}

func pickGoal(opts Options, fromFile string) string {
	if opts.Goal != "" {
		return opts.Goal
	}
	return fromFile
}
