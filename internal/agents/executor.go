package agents

import (
	"context"

	"github.com/example/goalbot/internal/models"
	"github.com/example/goalbot/internal/tools"
)

// ToolRunner runs registry tools on behalf of a stage and records each call
// on the audit trail.
type ToolRunner struct {
	Registry *tools.Registry
}

// Run executes name with inputs. A nil runner or registry is treated as an
// unavailable tool.
func (r *ToolRunner) Run(ctx context.Context, audit *models.Audit, stage, name string, inputs map[string]any) (any, bool) {
	if r == nil || r.Registry == nil {
		return nil, false
	}
	output, logs, err := r.Registry.Run(ctx, name, inputs)
	call := models.ToolCall{Stage: stage, Name: name, OK: err == nil, Details: map[string]any{"inputs": inputs}}
	if logs != "" {
		call.Details["logs"] = logs
	}
	if err != nil {
		call.Error = err.Error()
		audit.Call(call)
		return nil, false
	}
	audit.Call(call)
	return output, true
}
