package agents

import (
	"github.com/example/goalbot/internal/consistency"
	"github.com/example/goalbot/internal/models"
)

// Verifier checks a generated plan against the goal it was made for.
type Verifier interface {
	Validate(originalGoal, refinedGoal string, tasks []models.DailyTask, milestones map[string]string) consistency.Report
}

var _ Verifier = (*consistency.Validator)(nil)
