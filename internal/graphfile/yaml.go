package graphfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// yamlFile is the YAML document layout.
type yamlFile struct {
	ID    string     `yaml:"id"`
	Goal  string     `yaml:"goal"`
	Tasks []yamlTask `yaml:"tasks"`
}

type yamlTask struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	DependsOn   []string `yaml:"depends_on"`
	Executor    string   `yaml:"executor"`
	Priority    int      `yaml:"priority"`
	Estimate    string   `yaml:"estimate"`
}

// ParseYAML parses a YAML graph document. Unknown fields are rejected.
func ParseYAML(data []byte, filename string, opts Options) (*Document, error) {
	var f yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", filename, err)
	}

	specs := make([]taskSpec, len(f.Tasks))
	for i, t := range f.Tasks {
		specs[i] = taskSpec(t)
	}

	g, err := buildGraph(f.ID, specs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return &Document{
		Path:   filename,
		Format: FormatYAML,
		Goal:   pickGoal(opts, f.Goal),
		Graph:  g,
	}, nil
}
