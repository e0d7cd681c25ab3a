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

// Adjustment attached when the day was missed or confidence is low.
var lowMomentumAdjustment = models.PlanAdjustment{
	Suggestion:        "Consider breaking tomorrow's task into smaller steps",
	RecommendedAction: "Reduce scope or add more support",
}

type CheckInInput struct {
	Goal            string
	Day             int
	Task            models.DailyTask
	TaskCompleted   bool
	UserResponse    string
	Obstacles       *string
	ConfidenceLevel int
	// Recent holds up to five earlier check-ins in any order.
	Recent []models.CheckIn
}

type CheckInResult struct {
	Feedback       string                 `json:"feedback"`
	CrisisDetected bool                   `json:"crisis_detected"`
	AdjustedPlan   *models.PlanAdjustment `json:"adjusted_plan"`
	Assessment     models.Assessment      `json:"agent_assessment"`
	Audit          models.Audit           `json:"-"`
}

type CheckInCoach struct {
	Client llm.Client
	Logger *zap.Logger
}

func NewCheckInCoach(client llm.Client, logger *zap.Logger) *CheckInCoach {
	return &CheckInCoach{Client: client, Logger: nopIfNil(logger)}
}

// CheckIn produces feedback for one day of the plan. Plan adjustment and
// assessment are rule based; only the feedback text is generated.
func (c *CheckInCoach) CheckIn(ctx context.Context, in CheckInInput) (CheckInResult, error) {
	tracing.Stage(ctx, StageCheckIn, in.Goal)
	tracing.Annotate(ctx,
		tracing.KeyDay.Int(in.Day),
		tracing.KeyCompleted.Bool(in.TaskCompleted),
		tracing.KeyConfident.Int(in.ConfidenceLevel),
	)

	obstacles := ""
	if in.Obstacles != nil {
		obstacles = *in.Obstacles
	}
	if v := safety.CheckCheckIn(in.UserResponse, obstacles); v.Triggered {
		c.Logger.Info("crisis language in check-in, skipping generation", zap.Int("day", in.Day), zap.String("match", v.Match))
		tracing.Annotate(ctx, tracing.KeyCrisis.Bool(true))
		res := CheckInResult{
			Feedback:       safety.CrisisMessage,
			CrisisDetected: true,
			Assessment:     models.Assessment{Momentum: models.MomentumCrisis, InterventionNeeded: true},
		}
		res.Audit.Message(StageCheckIn, "Crisis intervention triggered")
		return res, nil
	}

	var res CheckInResult
	raw, ok, err := generate(ctx, c.Client, c.Logger, &res.Audit, StageCheckIn, 1, checkInPrompt(in))
	if err != nil {
		return CheckInResult{}, err
	}
	if ok {
		res.Feedback = strings.TrimSpace(raw)
	} else {
		c.Logger.Warn("using fallback check-in feedback", zap.Int("day", in.Day))
		res.Feedback = FallbackFeedback(in.Day, in.TaskCompleted)
	}
	res.AdjustedPlan = AdjustPlan(in.TaskCompleted, in.ConfidenceLevel)
	res.Assessment = Assess(in.TaskCompleted, in.ConfidenceLevel)
	return res, nil
}

// AdjustPlan returns the fixed adjustment when the task was missed or
// confidence is 2 or lower, and nil otherwise.
func AdjustPlan(completed bool, confidence int) *models.PlanAdjustment {
	if completed && confidence > 2 {
		return nil
	}
	adj := lowMomentumAdjustment
	return &adj
}

func Assess(completed bool, confidence int) models.Assessment {
	momentum := models.MomentumNeedsSupport
	if completed && confidence >= 4 {
		momentum = models.MomentumStrong
	}
	return models.Assessment{Momentum: momentum, InterventionNeeded: confidence <= 2}
}

// FallbackFeedback is used when feedback could not be generated.
func FallbackFeedback(day int, completed bool) string {
	if completed {
		return fmt.Sprintf("You completed day %d of %d. Keep tomorrow's task at the same size and note what made today work.", day, models.TotalDays)
	}
	return fmt.Sprintf("You missed day %d of %d. Look at what got in the way and decide what needs to change before tomorrow's task.", day, models.TotalDays)
}
