// Package agents holds the four pipeline stages. Each stage builds a prompt
// from the current state, calls the generation client at most once (twice for
// a breakdown retry) and returns a partial update. Model output is never
// trusted: every stage has a deterministic fallback.
package agents

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/example/goalbot/internal/models"
	"github.com/example/goalbot/internal/providers/llm"
)

const (
	StageClarify   = "clarify"
	StageRefine    = "refine"
	StageBreakdown = "breakdown"
	StageCheckIn   = "check_in"
)

// ErrUnsafeGoal is returned when breakdown is asked to plan a goal that
// refinement rejected.
var ErrUnsafeGoal = errors.New("goal was flagged unsafe and cannot be planned")

const toolGenerate = "generate_text"

// generate makes one generation call and records it on the audit trail.
// Only a failure of ctx itself is returned as an error; anything else is
// reported as ok == false so the stage can fall back.
func generate(ctx context.Context, client llm.Client, logger *zap.Logger, audit *models.Audit, stage string, attempt int, prompt string) (string, bool, error) {
	raw, err := client.GenerateText(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, ctxErr
		}
		logger.Debug("generation failed", zap.String("stage", stage), zap.Int("attempt", attempt), zap.Error(err))
		audit.Call(models.ToolCall{Stage: stage, Name: toolGenerate, Attempt: attempt, Error: err.Error()})
		audit.Message(stage, "generation failed: "+err.Error())
		return "", false, nil
	}
	audit.Call(models.ToolCall{Stage: stage, Name: toolGenerate, Attempt: attempt, OK: true})
	audit.Message(stage, raw)
	return raw, strings.TrimSpace(raw) != "", nil
}

func nopIfNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
