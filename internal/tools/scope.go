package tools

import (
	"context"
	"fmt"
	"strings"
)

// ScopeReport is the output of the goal_scope tool.
type ScopeReport struct {
	TimeframeDays int    `json:"timeframe_days"`
	Broad         bool   `json:"broad"`
	Note          string `json:"note"`
}

// GoalScopeTool checks whether a goal reads as more than one objective.
// Inputs:
// - goal: string (required)
// - timeframe_days: number (default 30)
type GoalScopeTool struct{}

func (t *GoalScopeTool) Name() string { return "goal_scope" }

func (t *GoalScopeTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	goal := strings.TrimSpace(stringInput(inputs, "goal"))
	if goal == "" {
		return nil, "", fmt.Errorf("missing goal")
	}
	days := intInput(inputs, "timeframe_days", 30)
	if days <= 0 {
		return nil, "", fmt.Errorf("timeframe_days must be positive, got %d", days)
	}
	rep := ScopeReport{TimeframeDays: days}
	lower := " " + strings.ToLower(goal) + " "
	joins := strings.Count(lower, " and ") + strings.Count(lower, ", ") + strings.Count(lower, " also ")
	if joins >= 2 {
		rep.Broad = true
		rep.Note = fmt.Sprintf("The goal combines several objectives; pick one to focus on for %d days.", days)
	} else {
		rep.Note = fmt.Sprintf("The goal reads as a single objective that fits %d days.", days)
	}
	return rep, fmt.Sprintf("joins=%d", joins), nil
}
