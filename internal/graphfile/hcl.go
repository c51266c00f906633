package graphfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// hclHeader holds the top-level attributes. Task blocks are decoded in a
// second pass so they can reference the resolved goal.
type hclHeader struct {
	ID     string   `hcl:"id,optional"`
	Goal   string   `hcl:"goal,optional"`
	Remain hcl.Body `hcl:",remain"`
}

type hclTasks struct {
	Tasks []*hclTask `hcl:"task,block"`
}

type hclTask struct {
	ID          string   `hcl:"id,label"`
	Name        string   `hcl:"name,optional"`
	Description string   `hcl:"description,optional"`
	DependsOn   []string `hcl:"depends_on,optional"`
	Executor    string   `hcl:"executor,optional"`
	Priority    int      `hcl:"priority,optional"`
	Estimate    string   `hcl:"estimate,optional"`
}

// ParseHCL parses an HCL graph document:
//
//	goal = "Add a health check"
//
//	task "api" {
//	  name        = "Add endpoint"
//	  description = "Implement ${goal} in ${env.SERVICE}"
//	  depends_on  = ["db"]
//	  executor    = "codex"
//	  estimate    = "10m"
//	}
//
// Expressions may use env, goal and a few string functions.
func ParseHCL(data []byte, filename string, opts Options) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	ctx := evalContext(opts.Env)

	var header hclHeader
	if diags := gohcl.DecodeBody(file.Body, ctx, &header); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	goal := pickGoal(opts, header.Goal)
	ctx.Variables["goal"] = cty.StringVal(goal)

	var body hclTasks
	if diags := gohcl.DecodeBody(header.Remain, ctx, &body); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	specs := make([]taskSpec, len(body.Tasks))
	for i, t := range body.Tasks {
		specs[i] = taskSpec(*t)
	}

	g, err := buildGraph(header.ID, specs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return &Document{
		Path:   filename,
		Format: FormatHCL,
		Goal:   goal,
		Graph:  g,
	}, nil
}

// evalContext exposes env and the string helpers. goal is added after the header is read.
func evalContext(env map[string]string) *hcl.EvalContext {
	if env == nil {
		env = processEnv()
	}
	vals := make(map[string]cty.Value, len(env))
	for k, v := range env {
		vals[k] = cty.StringVal(v)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env":  cty.ObjectVal(vals),
			"goal": cty.StringVal(""),
		},
		Functions: map[string]function.Function{
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"trim":   stdlib.TrimSpaceFunc,
			"join":   stdlib.JoinFunc,
			"format": stdlib.FormatFunc,
		},
	}
}

func processEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}
