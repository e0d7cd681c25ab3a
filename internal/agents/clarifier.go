package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/goalbot/internal/models"
	"github.com/example/goalbot/internal/providers/llm"
	"github.com/example/goalbot/internal/safety"
	"github.com/example/goalbot/internal/tracing"
)

const maxQuestions = 3

// FallbackQuestions are asked when generation fails or cannot be parsed.
func FallbackQuestions() []models.Question {
	return []models.Question{
		{ID: "q1", Question: "Tell me more about your current situation with this goal. Where are you starting from?", Hint: "Be specific about where you are now"},
		{ID: "q2", Question: "What would success look like for you specifically in 30 days?", Hint: "Describe the concrete outcome you want"},
		{ID: "q3", Question: "What obstacles or constraints should we account for in your plan?", Hint: "Time, resources, current habits, etc."},
	}
}

type Clarifier struct {
	Client llm.Client
	Logger *zap.Logger
}

func NewClarifier(client llm.Client, logger *zap.Logger) *Clarifier {
	return &Clarifier{Client: client, Logger: nopIfNil(logger)}
}

// Clarify produces three clarifying questions for the original goal, or the
// crisis message in the question envelope when the goal contains crisis
// language.
func (c *Clarifier) Clarify(ctx context.Context, st models.GoalState) (models.ClarifyUpdate, error) {
	var up models.ClarifyUpdate
	tracing.Stage(ctx, StageClarify, st.OriginalGoal)

	if v := safety.CheckCrisis(st.OriginalGoal); v.Triggered {
		c.Logger.Info("crisis language in goal, skipping generation", zap.Int64("goal_id", st.GoalID), zap.String("match", v.Match))
		tracing.Annotate(ctx, tracing.KeyCrisis.Bool(true))
		up.Crisis = true
		up.Questions = []models.Question{safety.CrisisQuestion()}
		up.Audit.Message(StageClarify, "Crisis intervention triggered")
		return up, nil
	}

	raw, ok, err := generate(ctx, c.Client, c.Logger, &up.Audit, StageClarify, 1, clarifyPrompt(st.OriginalGoal))
	if err != nil {
		return models.ClarifyUpdate{}, err
	}
	var questions []models.Question
	if ok {
		parsed, decoded := DecodeArray[models.Question](raw, nil)
		if decoded {
			questions = normalizeQuestions(parsed)
		}
	}
	if len(questions) == 0 {
		c.Logger.Warn("using fallback clarification questions", zap.Int64("goal_id", st.GoalID))
		questions = FallbackQuestions()
	}
	up.Questions = questions
	return up, nil
}

// normalizeQuestions keeps at most three questions with text and fills
// missing ids by position.
func normalizeQuestions(in []models.Question) []models.Question {
	out := make([]models.Question, 0, maxQuestions)
	seen := map[string]bool{}
	for _, q := range in {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" {
			continue
		}
		q.ID = strings.TrimSpace(q.ID)
		q.Hint = strings.TrimSpace(q.Hint)
		if q.ID == "" || seen[q.ID] || q.ID == safety.CrisisQuestionID {
			q.ID = fmt.Sprintf("q%d", len(out)+1)
		}
		seen[q.ID] = true
		out = append(out, q)
		if len(out) == maxQuestions {
			break
		}
	}
	return out
}
