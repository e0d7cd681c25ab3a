package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/goalbot/internal/consistency"
	"github.com/example/goalbot/internal/models"
	"github.com/example/goalbot/internal/providers/llm/llmtest"
	"github.com/example/goalbot/internal/safety"
	"github.com/example/goalbot/internal/tools"
)

func planJSON(task string, days int, milestones map[string]string) string {
	tasks := make([]models.DailyTask, 0, days)
	for d := 1; d <= days; d++ {
		tasks = append(tasks, models.DailyTask{Day: d, Task: fmt.Sprintf("%s (day %d)", task, d), SuccessCriteria: "done", EstimatedTime: "20 min"})
	}
	if milestones == nil {
		milestones = map[string]string{
			"day_7":  "Week 1 (Foundation): baseline",
			"day_14": "Week 2 (Development): consistency",
			"day_21": "Week 3 (Advancement): longer sessions",
			"day_30": "Week 4 (Achievement): goal reached",
		}
	}
	b, _ := json.Marshal(map[string]any{"daily_tasks": tasks, "milestones": milestones})
	return "```json\n" + string(b) + "\n```"
}

func assertPlanShape(t *testing.T, tasks []models.DailyTask, milestones map[string]string) {
	t.Helper()
	require.Len(t, tasks, models.TotalDays)
	for i, task := range tasks {
		assert.Equal(t, i+1, task.Day)
		assert.NotEmpty(t, task.Task)
	}
	require.Len(t, milestones, 4)
	for _, k := range models.MilestoneKeys {
		assert.NotEmpty(t, milestones[k], k)
	}
}

func newBreakdowner(client *llmtest.Scripted) *Breakdowner {
	return NewBreakdowner(client, consistency.NewValidator(consistency.DefaultRules()), &ToolRunner{Registry: tools.NewGoalRegistry()}, nil)
}

// Clarification

func TestClarifyCrisisShortCircuits(t *testing.T) {
	client := llmtest.Texts("should not be used")
	up, err := NewClarifier(client, nil).Clarify(context.Background(), models.GoalState{OriginalGoal: "Honestly I want to die"})
	require.NoError(t, err)

	assert.True(t, up.Crisis)
	require.Len(t, up.Questions, 1)
	assert.Equal(t, "crisis", up.Questions[0].ID)
	assert.Contains(t, up.Questions[0].Question, "988")
	assert.Equal(t, 0, client.Calls())
	assert.Empty(t, up.Audit.ToolCalls)
}

func TestClarifyParsesQuestions(t *testing.T) {
	client := llmtest.Texts("Here are my questions:\n```json\n" + `[
		{"id": "q1", "question": "How often do you walk now?", "hint": "days per week"},
		{"question": "Where would you walk?"},
		{"id": "q3", "question": "  "},
		{"id": "q1", "question": "What time of day suits you?"},
		{"id": "q5", "question": "One too many?"}
	]` + "\n```")
	up, err := NewClarifier(client, nil).Clarify(context.Background(), models.GoalState{OriginalGoal: "walk more"})
	require.NoError(t, err)

	want := []models.Question{
		{ID: "q1", Question: "How often do you walk now?", Hint: "days per week"},
		{ID: "q2", Question: "Where would you walk?"},
		{ID: "q3", Question: "What time of day suits you?"},
	}
	if diff := cmp.Diff(want, up.Questions); diff != "" {
		t.Fatalf("questions (-want +got):\n%s", diff)
	}
	assert.Contains(t, client.Prompts()[0], `"walk more"`)
	require.Len(t, up.Audit.Messages, 1)
	assert.Equal(t, StageClarify, up.Audit.Messages[0].Stage)
}

func TestClarifyFallsBack(t *testing.T) {
	for name, client := range map[string]*llmtest.Scripted{
		"prose":     llmtest.Texts("I would love to help you with that!"),
		"truncated": llmtest.Texts("```json\n[{\"id\": \"q1\", \"question\": \"Wh"),
		"object":    llmtest.Texts(`{"questions": []}`),
		"empty":     llmtest.Texts("[]"),
		"error":     llmtest.New(llmtest.Response{Err: errors.New("upstream down")}),
	} {
		t.Run(name, func(t *testing.T) {
			up, err := NewClarifier(client, nil).Clarify(context.Background(), models.GoalState{OriginalGoal: "learn guitar"})
			require.NoError(t, err)
			if diff := cmp.Diff(FallbackQuestions(), up.Questions); diff != "" {
				t.Fatalf("fallback (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClarifyPropagatesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClarifier(llmtest.Texts("[]"), nil).Clarify(ctx, models.GoalState{OriginalGoal: "learn guitar"})
	require.ErrorIs(t, err, context.Canceled)
}

// Refinement

func TestRefineUnsafeGoalSkipsGeneration(t *testing.T) {
	client := llmtest.Texts("unused")
	up, err := NewRefiner(client, nil, nil).Refine(context.Background(), models.GoalState{OriginalGoal: "Lose 40 pounds this month"})
	require.NoError(t, err)

	assert.Nil(t, up.RefinedGoal)
	assert.Equal(t, models.CategoryUnsafe, up.Category)
	assert.False(t, up.IsAchievable)
	assert.True(t, strings.HasPrefix(up.Reasoning, "Rapid weight loss"))
	assert.Equal(t, 0, client.Calls())
}

func TestRefineParsesAndRecordsTools(t *testing.T) {
	client := llmtest.Texts(`{"refined_goal": "Walk 30 minutes on 25 of the next 30 days", "category": "Fitness", "is_achievable": true, "reasoning": "Daily walking is realistic."}`)
	runner := &ToolRunner{Registry: tools.NewGoalRegistry()}
	st := models.GoalState{
		OriginalGoal:           "walk more",
		ClarificationQuestions: []models.Question{{ID: "q1", Question: "How active are you?"}},
		ClarificationAnswers:   map[string]string{"q2": "after work", "q1": "mostly sitting"},
	}
	up, err := NewRefiner(client, runner, nil).Refine(context.Background(), st)
	require.NoError(t, err)

	require.NotNil(t, up.RefinedGoal)
	assert.Equal(t, "Walk 30 minutes on 25 of the next 30 days", *up.RefinedGoal)
	assert.Equal(t, models.CategoryFitness, up.Category)
	assert.True(t, up.IsAchievable)

	prompt := client.Prompts()[0]
	assert.Contains(t, prompt, "Q: How active are you?\nA: mostly sitting\nQ: q2\nA: after work")
	assert.Contains(t, prompt, "Likely categories: fitness")

	var names []string
	for _, c := range up.Audit.ToolCalls {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"goal_categories", "goal_scope", "generate_text"}, names)
}

func TestRefineFallbackAndNormalisation(t *testing.T) {
	up, err := NewRefiner(llmtest.Texts("Sounds great, let's do it!"), nil, nil).Refine(context.Background(), models.GoalState{OriginalGoal: "learn Spanish"})
	require.NoError(t, err)
	want := FallbackRefinement("learn Spanish")
	assert.Equal(t, *want.RefinedGoal, *up.RefinedGoal)
	assert.Equal(t, models.CategoryGeneral, up.Category)
	assert.True(t, up.IsAchievable)
	assert.Equal(t, "Goal accepted as stated", up.Reasoning)

	up, err = NewRefiner(llmtest.Texts(`{"refined_goal": "", "category": "cardio", "is_achievable": false}`), nil, nil).
		Refine(context.Background(), models.GoalState{OriginalGoal: "learn Spanish"})
	require.NoError(t, err)
	assert.Equal(t, "learn Spanish", *up.RefinedGoal)
	assert.Equal(t, models.CategoryGeneral, up.Category)
	assert.False(t, up.IsAchievable)
}

// Breakdown

func TestBreakdownRefusesUnsafeGoal(t *testing.T) {
	client := llmtest.Texts(planJSON("x", 30, nil))
	_, err := newBreakdowner(client).Breakdown(context.Background(), models.GoalState{OriginalGoal: "sleep 3 hours", GoalCategory: models.CategoryUnsafe})
	require.ErrorIs(t, err, ErrUnsafeGoal)
	assert.Equal(t, 0, client.Calls())
}

func TestBreakdownNormalisesPartialPlan(t *testing.T) {
	raw := `{"daily_tasks": [
		{"day": 2, "task": "Read 10 pages"},
		{"day": 1, "task": "Pick a book", "success_criteria": "book chosen", "estimated_time": "15 min"},
		{"day": 2, "task": "duplicate"},
		{"day": 31, "task": "out of range"}
	], "milestones": {"day_7": "Week 1 (Foundation): 70 pages", "day_99": "extra"}}`
	client := llmtest.Texts(raw)
	refined := "Read 20 pages a day"
	up, err := newBreakdowner(client).Breakdown(context.Background(), models.GoalState{OriginalGoal: "read more", RefinedGoal: &refined})
	require.NoError(t, err)

	assertPlanShape(t, up.DailyTasks, up.Milestones)
	assert.Equal(t, "Pick a book", up.DailyTasks[0].Task)
	assert.Equal(t, "Read 10 pages", up.DailyTasks[1].Task)
	assert.Equal(t, fallbackCriteria, up.DailyTasks[1].SuccessCriteria)
	assert.Equal(t, "Day 3: Work toward Read 20 pages a day", up.DailyTasks[2].Task)
	assert.Equal(t, "Week 1 (Foundation): 70 pages", up.Milestones["day_7"])
	assert.NotContains(t, up.Milestones, "day_99")
	assert.False(t, up.Retried)
	assert.Equal(t, 1, client.Calls())
}

func TestBreakdownFallbackPlan(t *testing.T) {
	for _, raw := range []string{"no plan today", `{"daily_tasks": [], "milestones": {}}`, "[1,2,3]"} {
		client := llmtest.Texts(raw)
		up, err := newBreakdowner(client).Breakdown(context.Background(), models.GoalState{OriginalGoal: "learn guitar"})
		require.NoError(t, err)

		wantTasks, wantMilestones := FallbackPlan("learn guitar")
		if diff := cmp.Diff(wantTasks, up.DailyTasks); diff != "" {
			t.Fatalf("%q: tasks (-want +got):\n%s", raw, diff)
		}
		assert.Equal(t, wantMilestones, up.Milestones)
		assert.False(t, up.Retried)
	}
}

func TestBreakdownRetriesExactlyOnce(t *testing.T) {
	client := llmtest.Texts(
		planJSON("Go to the gym", 30, nil),
		planJSON("Hit the gym for lifting", 30, nil),
		planJSON("never requested", 30, nil),
	)
	up, err := newBreakdowner(client).Breakdown(context.Background(), models.GoalState{OriginalGoal: "walk every day"})
	require.NoError(t, err)

	assert.True(t, up.Retried)
	assert.Equal(t, 2, client.Calls())
	assertPlanShape(t, up.DailyTasks, up.Milestones)
	// the retry parsed, so it replaces the first plan even though it is still invalid
	assert.Contains(t, up.DailyTasks[0].Task, "lifting")

	retry := client.Prompts()[1]
	assert.True(t, strings.HasPrefix(retry, "VALIDATION FAILED:\nGoal mentions 'walk' but tasks include 'gym'\n"))
	assert.Contains(t, retry, "The goal is about walk: do NOT include gym.")
	assert.Contains(t, retry, client.Prompts()[0])

	var revise *models.ToolCall
	for i := range up.Audit.ToolCalls {
		if up.Audit.ToolCalls[i].Name == toolRevise {
			revise = &up.Audit.ToolCalls[i]
		}
	}
	require.NotNil(t, revise)
	assert.Equal(t, true, revise.Details["still_invalid"])
}

func TestBreakdownRetryParseFailureKeepsFirstPlan(t *testing.T) {
	client := llmtest.Texts(planJSON("Walk to the gym", 30, nil), "sorry, I cannot")
	up, err := newBreakdowner(client).Breakdown(context.Background(), models.GoalState{OriginalGoal: "walk every day"})
	require.NoError(t, err)

	assert.True(t, up.Retried)
	assert.Equal(t, 2, client.Calls())
	assert.Equal(t, "Walk to the gym (day 1)", up.DailyTasks[0].Task)
}

func TestBreakdownRetryReplacesRepetitiveMilestones(t *testing.T) {
	same := "Practice scales for twenty minutes each day"
	first := planJSON("Practice scales", 30, map[string]string{"day_7": same, "day_14": same, "day_21": same, "day_30": same})
	client := llmtest.Texts(first, planJSON("Practice chords", 30, nil))
	up, err := newBreakdowner(client).Breakdown(context.Background(), models.GoalState{OriginalGoal: "learn guitar"})
	require.NoError(t, err)

	assert.True(t, up.Retried)
	assert.Equal(t, "Week 2 (Development): consistency", up.Milestones["day_14"])
	assert.Contains(t, client.Prompts()[1], "distinctly different")

	for _, c := range up.Audit.ToolCalls {
		if c.Name == toolRevise {
			assert.Contains(t, c.Details["milestone_diff"], "+day_14: Week 2 (Development): consistency")
		}
	}
}

// Check-in

func TestCheckInCrisis(t *testing.T) {
	client := llmtest.Texts("unused")
	obstacles := "there is no point"
	res, err := NewCheckInCoach(client, nil).CheckIn(context.Background(), CheckInInput{
		Goal: "walk daily", Day: 3, UserResponse: "I did not go out today", Obstacles: &obstacles, ConfidenceLevel: 1,
	})
	require.NoError(t, err)

	assert.True(t, res.CrisisDetected)
	assert.Equal(t, safety.CrisisMessage, res.Feedback)
	assert.Nil(t, res.AdjustedPlan)
	assert.Equal(t, models.Assessment{Momentum: models.MomentumCrisis, InterventionNeeded: true}, res.Assessment)
	assert.Equal(t, 0, client.Calls())
}

func TestCheckInRules(t *testing.T) {
	cases := []struct {
		completed  bool
		confidence int
		adjusted   bool
		momentum   string
		intervene  bool
	}{
		{true, 5, false, models.MomentumStrong, false},
		{true, 4, false, models.MomentumStrong, false},
		{true, 3, false, models.MomentumNeedsSupport, false},
		{true, 2, true, models.MomentumNeedsSupport, true},
		{false, 5, true, models.MomentumNeedsSupport, false},
		{false, 1, true, models.MomentumNeedsSupport, true},
	}
	for _, c := range cases {
		client := llmtest.Texts("  You completed today's walk.  ")
		res, err := NewCheckInCoach(client, nil).CheckIn(context.Background(), CheckInInput{
			Goal: "walk daily", Day: 4, TaskCompleted: c.completed, UserResponse: "Walked around the park", ConfidenceLevel: c.confidence,
		})
		require.NoError(t, err)
		assert.Equal(t, "You completed today's walk.", res.Feedback)
		assert.Equal(t, c.adjusted, res.AdjustedPlan != nil, "%+v", c)
		assert.Equal(t, c.momentum, res.Assessment.Momentum, "%+v", c)
		assert.Equal(t, c.intervene, res.Assessment.InterventionNeeded, "%+v", c)
	}
}

func TestCheckInFallbackFeedbackAndDigest(t *testing.T) {
	client := llmtest.New(llmtest.Response{Err: errors.New("timeout")})
	recent := []models.CheckIn{
		{DayNumber: 6, TaskCompleted: true, ConfidenceLevel: 4},
		{DayNumber: 1, ConfidenceLevel: 2},
		{DayNumber: 5, TaskCompleted: true, ConfidenceLevel: 3},
		{DayNumber: 2, TaskCompleted: true, ConfidenceLevel: 3},
		{DayNumber: 4, ConfidenceLevel: 2},
		{DayNumber: 3, TaskCompleted: true, ConfidenceLevel: 5},
	}
	res, err := NewCheckInCoach(client, nil).CheckIn(context.Background(), CheckInInput{
		Goal: "walk daily", Day: 7, Task: models.DailyTask{Day: 7, Task: "Walk 20 minutes"},
		UserResponse: "Skipped it, long day at work", ConfidenceLevel: 3, Recent: recent,
	})
	require.NoError(t, err)
	assert.Equal(t, FallbackFeedback(7, false), res.Feedback)
	require.NotNil(t, res.AdjustedPlan)
	assert.Equal(t, "Reduce scope or add more support", res.AdjustedPlan.RecommendedAction)

	prompt := client.Prompts()[0]
	assert.Contains(t, prompt, "TODAY'S TASK: Walk 20 minutes")
	assert.Contains(t, prompt, "Recent progress:\nDay 2: Completed (confidence: 3/5)\nDay 3: Completed (confidence: 5/5)\nDay 4: Missed (confidence: 2/5)\nDay 5: Completed (confidence: 3/5)\nDay 6: Completed (confidence: 4/5)\n")
	assert.NotContains(t, prompt, "Day 1:")
}

func TestRefineWithoutToolsUsesGeneralCategory(t *testing.T) {
	client := llmtest.Texts(`{"refined_goal": "Meditate 10 minutes daily", "category": "wellness"}`)
	up, err := NewRefiner(client, nil, nil).Refine(context.Background(), models.GoalState{OriginalGoal: "I want to meditate daily"})
	require.NoError(t, err)

	prompt := client.Prompts()[0]
	assert.Contains(t, prompt, "Likely categories: general\n")
	assert.NotContains(t, prompt, "Likely categories: wellness")
	require.Len(t, up.Audit.ToolCalls, 1)
	assert.Equal(t, "generate_text", up.Audit.ToolCalls[0].Name)
}
