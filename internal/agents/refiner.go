package agents

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/example/goalbot/internal/models"
	"github.com/example/goalbot/internal/providers/llm"
	"github.com/example/goalbot/internal/safety"
	"github.com/example/goalbot/internal/tools"
	"github.com/example/goalbot/internal/tracing"
)

const acceptedReasoning = "Goal accepted as stated"

type refinement struct {
	RefinedGoal  *string `json:"refined_goal"`
	Category     string  `json:"category"`
	IsAchievable *bool   `json:"is_achievable"`
	Reasoning    string  `json:"reasoning"`
}

// FallbackRefinement is used when generation fails or cannot be parsed.
func FallbackRefinement(originalGoal string) models.RefineUpdate {
	goal := originalGoal
	return models.RefineUpdate{
		RefinedGoal:  &goal,
		Category:     models.CategoryGeneral,
		IsAchievable: true,
		Reasoning:    acceptedReasoning,
	}
}

type Refiner struct {
	Client llm.Client
	Tools  *ToolRunner
	Logger *zap.Logger
}

func NewRefiner(client llm.Client, runner *ToolRunner, logger *zap.Logger) *Refiner {
	return &Refiner{Client: client, Tools: runner, Logger: nopIfNil(logger)}
}

// Refine turns the original goal and clarification answers into a SMART
// 30-day goal. Goals matching an unsafe pattern are declined without a
// generation call.
func (r *Refiner) Refine(ctx context.Context, st models.GoalState) (models.RefineUpdate, error) {
	tracing.Stage(ctx, StageRefine, st.OriginalGoal)

	if v := safety.CheckGoal(st.OriginalGoal); v.Triggered {
		r.Logger.Info("unsafe goal declined", zap.Int64("goal_id", st.GoalID), zap.String("match", v.Match))
		tracing.Annotate(ctx, tracing.KeyUnsafe.Bool(true))
		up := models.RefineUpdate{
			RefinedGoal:  nil,
			Category:     models.CategoryUnsafe,
			IsAchievable: false,
			Reasoning:    v.Message,
		}
		up.Audit.Message(StageRefine, "Safety concern detected: "+v.Message)
		return up, nil
	}

	var audit models.Audit
	categories := []string{string(models.CategoryGeneral)}
	if out, ok := r.Tools.Run(ctx, &audit, StageRefine, "goal_categories", map[string]any{"goal": st.OriginalGoal}); ok {
		if cs, ok := out.([]string); ok {
			categories = cs
		}
	}
	scopeNote := "not checked"
	if out, ok := r.Tools.Run(ctx, &audit, StageRefine, "goal_scope", map[string]any{"goal": st.OriginalGoal, "timeframe_days": models.TotalDays}); ok {
		if rep, ok := out.(tools.ScopeReport); ok {
			scopeNote = rep.Note
		}
	}

	prompt := refinePrompt(st.OriginalGoal, answersDigest(st.ClarificationQuestions, st.ClarificationAnswers), categories, scopeNote)
	raw, ok, err := generate(ctx, r.Client, r.Logger, &audit, StageRefine, 1, prompt)
	if err != nil {
		return models.RefineUpdate{}, err
	}

	up := FallbackRefinement(st.OriginalGoal)
	if ok {
		if parsed, decoded := DecodeObject(raw, refinement{}); decoded {
			up = fromRefinement(parsed, st.OriginalGoal)
		} else {
			r.Logger.Warn("using fallback refinement", zap.Int64("goal_id", st.GoalID))
		}
	}
	up.Audit = audit
	return up, nil
}

// fromRefinement fills blanks with the fallback values and maps unknown
// categories to general.
func fromRefinement(p refinement, originalGoal string) models.RefineUpdate {
	up := FallbackRefinement(originalGoal)
	if p.RefinedGoal != nil {
		if g := strings.TrimSpace(*p.RefinedGoal); g != "" {
			up.RefinedGoal = &g
		}
	}
	cat := models.Category(strings.ToLower(strings.TrimSpace(p.Category)))
	if cat.Known() {
		up.Category = cat
	}
	if p.IsAchievable != nil {
		up.IsAchievable = *p.IsAchievable
	}
	if s := strings.TrimSpace(p.Reasoning); s != "" {
		up.Reasoning = s
	}
	if up.Category == models.CategoryUnsafe {
		// the model declined the goal itself
		up.RefinedGoal = nil
		up.IsAchievable = false
	}
	return up
}
