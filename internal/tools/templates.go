package tools

import (
	"context"
	"strings"
)

const defaultTemplate = "Focus on specific, measurable outcomes with daily actions"

var goalTemplates = map[string]string{
	"fitness":       "SMART fitness goals include: specific metrics, progressive overload, recovery days",
	"learning":      "Effective learning goals: daily practice, spaced repetition, practical projects",
	"career":        "Career goals: skill building, networking milestones, tangible deliverables",
	"creativity":    "Creative goals: daily creation habit, milestone projects, feedback loops",
	"wellness":      "Wellness goals: small daily rituals, consistent timing, tracking how you feel",
	"financial":     "Financial goals: a concrete number, a weekly review, automating one habit",
	"relationships": "Relationship goals: scheduled time together, one specific behavior to practice, regular reflection",
}

// GoalTemplatesTool returns best practices for a goal category.
// Inputs:
// - category: string
type GoalTemplatesTool struct{}

func (t *GoalTemplatesTool) Name() string { return "goal_templates" }

func (t *GoalTemplatesTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	category := strings.ToLower(strings.TrimSpace(stringInput(inputs, "category")))
	if tmpl, ok := goalTemplates[category]; ok {
		return tmpl, "category=" + category, nil
	}
	return defaultTemplate, "category=default", nil
}
