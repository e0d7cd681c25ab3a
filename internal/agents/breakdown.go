package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/example/goalbot/internal/models"
	"github.com/example/goalbot/internal/providers/llm"
	"github.com/example/goalbot/internal/tracing"
)

const (
	fallbackCriteria = "Complete today's focused work"
	fallbackTime     = "30-60 min"
	toolValidate     = "validate_plan"
	toolRevise       = "revise_plan"
)

type planPayload struct {
	DailyTasks []models.DailyTask `json:"daily_tasks"`
	Milestones map[string]string  `json:"milestones"`
}

// FallbackPlan is the synthetic 30-day plan used when no usable plan could
// be generated.
func FallbackPlan(goal string) ([]models.DailyTask, map[string]string) {
	tasks := make([]models.DailyTask, 0, models.TotalDays)
	for day := 1; day <= models.TotalDays; day++ {
		tasks = append(tasks, models.DailyTask{
			Day:             day,
			Task:            fmt.Sprintf("Day %d: Work toward %s", day, goal),
			SuccessCriteria: fallbackCriteria,
			EstimatedTime:   fallbackTime,
		})
	}
	milestones := map[string]string{
		"day_7":  fmt.Sprintf("Week 1 (Foundation): Establish baseline for %s", goal),
		"day_14": "Week 2 (Development): Build consistency and momentum",
		"day_21": "Week 3 (Advancement): Push beyond initial level",
		"day_30": fmt.Sprintf("Week 4 (Achievement): %s", goal),
	}
	return tasks, milestones
}

type Breakdowner struct {
	Client   llm.Client
	Verifier Verifier
	Tools    *ToolRunner
	Logger   *zap.Logger
}

func NewBreakdowner(client llm.Client, verifier Verifier, runner *ToolRunner, logger *zap.Logger) *Breakdowner {
	return &Breakdowner{Client: client, Verifier: verifier, Tools: runner, Logger: nopIfNil(logger)}
}

// Breakdown builds the 30-day plan for the refined goal (or the original one
// when refinement has not run). An invalid plan gets exactly one corrective
// generation; its result replaces the first plan only if it parses.
func (b *Breakdowner) Breakdown(ctx context.Context, st models.GoalState) (models.BreakdownUpdate, error) {
	if st.Unsafe() {
		return models.BreakdownUpdate{}, ErrUnsafeGoal
	}
	goal := st.PlanningGoal()
	category := st.GoalCategory
	if category == "" {
		category = models.CategoryGeneral
	}
	tracing.Stage(ctx, StageBreakdown, goal)
	tracing.Annotate(ctx, tracing.KeyCategory.String(string(category)))

	var up models.BreakdownUpdate
	template := "Focus on specific, measurable outcomes with daily actions"
	if out, ok := b.Tools.Run(ctx, &up.Audit, StageBreakdown, "goal_templates", map[string]any{"category": string(category)}); ok {
		if s, ok := out.(string); ok {
			template = s
		}
	}

	prompt := breakdownPrompt(goal, category, template)
	raw, ok, err := generate(ctx, b.Client, b.Logger, &up.Audit, StageBreakdown, 1, prompt)
	if err != nil {
		return models.BreakdownUpdate{}, err
	}
	tasks, milestones, parsed := parsePlan(raw, ok, goal)
	if !parsed {
		b.Logger.Warn("using fallback plan", zap.Int64("goal_id", st.GoalID))
		tasks, milestones = FallbackPlan(goal)
	}

	if b.Verifier == nil {
		up.DailyTasks, up.Milestones = tasks, milestones
		return up, nil
	}
	report := b.Verifier.Validate(st.OriginalGoal, goal, tasks, milestones)
	up.Audit.Call(models.ToolCall{
		Stage:   StageBreakdown,
		Name:    toolValidate,
		OK:      report.Valid,
		Details: map[string]any{"warnings": report.Messages()},
	})
	if !report.Valid {
		up.Retried = true
		b.Logger.Info("plan failed validation, retrying once",
			zap.Int64("goal_id", st.GoalID), zap.Strings("warnings", report.Messages()))
		tracing.Annotate(ctx, tracing.KeyRetry.Bool(true))
		tracing.Event(ctx, "breakdown.retry")

		raw, ok, err := generate(ctx, b.Client, b.Logger, &up.Audit, StageBreakdown, 2, retryPrompt(prompt, st.OriginalGoal, goal, report))
		if err != nil {
			return models.BreakdownUpdate{}, err
		}
		if retryTasks, retryMilestones, parsed := parsePlan(raw, ok, goal); parsed {
			after := b.Verifier.Validate(st.OriginalGoal, goal, retryTasks, retryMilestones)
			up.Audit.Call(models.ToolCall{
				Stage:   StageBreakdown,
				Name:    toolRevise,
				Attempt: 2,
				OK:      true,
				Details: map[string]any{
					"milestone_diff": milestoneDiff(milestones, retryMilestones),
					"still_invalid":  !after.Valid,
				},
			})
			tasks, milestones = retryTasks, retryMilestones
		} else {
			up.Audit.Call(models.ToolCall{
				Stage:   StageBreakdown,
				Name:    toolRevise,
				Attempt: 2,
				Error:   "retry output unusable, keeping first plan",
			})
		}
	}
	up.DailyTasks, up.Milestones = tasks, milestones
	return up, nil
}

// parsePlan decodes a plan and normalises it to exactly days 1..30 and the
// four milestone keys. Holes are filled from the synthetic plan; a plan with
// no usable task at all counts as unparseable.
func parsePlan(raw string, ok bool, goal string) ([]models.DailyTask, map[string]string, bool) {
	if !ok {
		return nil, nil, false
	}
	p, decoded := DecodeObject(raw, planPayload{})
	if !decoded {
		return nil, nil, false
	}
	byDay := make(map[int]models.DailyTask, models.TotalDays)
	for _, t := range p.DailyTasks {
		t.Task = strings.TrimSpace(t.Task)
		if t.Day < 1 || t.Day > models.TotalDays || t.Task == "" {
			continue
		}
		if _, dup := byDay[t.Day]; dup {
			continue
		}
		byDay[t.Day] = t
	}
	if len(byDay) == 0 {
		return nil, nil, false
	}

	fbTasks, fbMilestones := FallbackPlan(goal)
	tasks := make([]models.DailyTask, 0, models.TotalDays)
	for day := 1; day <= models.TotalDays; day++ {
		t, ok := byDay[day]
		if !ok {
			tasks = append(tasks, fbTasks[day-1])
			continue
		}
		t.SuccessCriteria = strings.TrimSpace(t.SuccessCriteria)
		if t.SuccessCriteria == "" {
			t.SuccessCriteria = fallbackCriteria
		}
		t.EstimatedTime = strings.TrimSpace(t.EstimatedTime)
		if t.EstimatedTime == "" {
			t.EstimatedTime = fallbackTime
		}
		tasks = append(tasks, t)
	}

	milestones := make(map[string]string, len(models.MilestoneKeys))
	for _, key := range models.MilestoneKeys {
		if v := strings.TrimSpace(p.Milestones[key]); v != "" {
			milestones[key] = v
		} else {
			milestones[key] = fbMilestones[key]
		}
	}
	return tasks, milestones, true
}

func milestoneDiff(before, after map[string]string) string {
	lines := func(m map[string]string) []string {
		out := make([]string, 0, len(models.MilestoneKeys))
		for _, k := range models.MilestoneKeys {
			out = append(out, k+": "+m[k]+"\n")
		}
		return out
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lines(before),
		B:        lines(after),
		FromFile: "milestones.first",
		ToFile:   "milestones.retry",
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return diff
}
