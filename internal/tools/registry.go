package tools

import (
	"context"
	"fmt"
	"sort"
)

type Tool interface {
	Name() string
	Execute(ctx context.Context, inputs map[string]any) (output any, logs string, err error)
}

type Registry struct {
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// NewGoalRegistry returns a registry holding the goal coaching tools.
func NewGoalRegistry() *Registry {
	r := NewRegistry()
	r.Register(&GoalTemplatesTool{})
	r.Register(&GoalCategoriesTool{})
	r.Register(&GoalScopeTool{})
	return r
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names lists registered tools in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run executes a registered tool by name.
func (r *Registry) Run(ctx context.Context, name string, inputs map[string]any) (any, string, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, "", fmt.Errorf("unknown tool: %s", name)
	}
	return t.Execute(ctx, inputs)
}

func stringInput(inputs map[string]any, key string) string {
	s, _ := inputs[key].(string)
	return s
}

func intInput(inputs map[string]any, key string, def int) int {
	switch v := inputs[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}
