package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoalRegistry(t *testing.T) {
	r := NewGoalRegistry()
	assert.Equal(t, []string{"goal_categories", "goal_scope", "goal_templates"}, r.Names())

	_, _, err := r.Run(context.Background(), "http_get", nil)
	require.Error(t, err)
}

func TestGoalTemplates(t *testing.T) {
	r := NewGoalRegistry()
	out, logs, err := r.Run(context.Background(), "goal_templates", map[string]any{"category": "Fitness"})
	require.NoError(t, err)
	assert.Contains(t, out, "progressive overload")
	assert.Equal(t, "category=fitness", logs)

	out, _, err = r.Run(context.Background(), "goal_templates", map[string]any{"category": "general"})
	require.NoError(t, err)
	assert.Equal(t, defaultTemplate, out)
}

func TestSuggestCategories(t *testing.T) {
	assert.Equal(t, []string{"wellness"}, SuggestCategories("I want to meditate daily"))
	assert.Equal(t, []string{"fitness", "learning"}, SuggestCategories("Walk more and read a book"))
	assert.Equal(t, []string{"fitness", "learning", "career"}, SuggestCategories("be better"))
}

func TestGoalScope(t *testing.T) {
	tool := &GoalScopeTool{}
	out, _, err := tool.Execute(context.Background(), map[string]any{"goal": "Walk 20 minutes daily"})
	require.NoError(t, err)
	rep := out.(ScopeReport)
	assert.False(t, rep.Broad)
	assert.Equal(t, 30, rep.TimeframeDays)

	out, _, err = tool.Execute(context.Background(), map[string]any{
		"goal":           "Run, lift weights and cook and learn Spanish",
		"timeframe_days": float64(14),
	})
	require.NoError(t, err)
	rep = out.(ScopeReport)
	assert.True(t, rep.Broad)
	assert.Contains(t, rep.Note, "14 days")

	_, _, err = tool.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
}
