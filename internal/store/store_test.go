package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/goalbot/internal/models"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "goalbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newGoal(session, text string) *models.Goal {
	return &models.Goal{SessionID: session, OriginalGoal: text, Status: models.StatusClarifying}
}

func TestGoalRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	g := newGoal("s1", "I want to meditate daily")
	g.ClarificationQuestions = []models.Question{{ID: "q1", Question: "How long?", Hint: "minutes"}}
	require.NoError(t, s.CreateGoal(ctx, g))
	require.NotZero(t, g.ID)

	refined := "Meditate 10 minutes daily"
	achievable := true
	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	g.RefinedGoal = &refined
	g.IsAchievable = &achievable
	g.GoalCategory = models.CategoryWellness
	g.ClarificationAnswers = map[string]string{"q1": "10 min"}
	g.DailyTasks = []models.DailyTask{{Day: 1, Task: "Sit for five minutes", SuccessCriteria: "done", EstimatedTime: "5 min"}}
	g.Milestones = map[string]string{"day_7": "a week of practice"}
	g.Status = models.StatusActive
	g.StartedAt = &started
	require.NoError(t, s.UpdateGoal(ctx, g))

	got, err := s.GetGoal(ctx, "s1", g.ID)
	require.NoError(t, err)
	g.CreatedAt = g.CreatedAt.UTC()
	if diff := cmp.Diff(g, got); diff != "" {
		t.Fatalf("goal mismatch (-want +got):\n%s", diff)
	}
}

func TestGoalsAreSessionScoped(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	g := newGoal("owner", "learn to play guitar")
	require.NoError(t, s.CreateGoal(ctx, g))

	_, err := s.GetGoal(ctx, "someone-else", g.ID)
	require.ErrorIs(t, err, ErrNotFound)

	other := *g
	other.SessionID = "someone-else"
	require.ErrorIs(t, s.UpdateGoal(ctx, &other), ErrNotFound)

	goals, err := s.ListGoals(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestListGoalsNewestFirst(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"first goal text", "second goal text", "third goal text"} {
		g := newGoal("s", text)
		g.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.CreateGoal(ctx, g))
	}

	goals, err := s.ListGoals(ctx, "s")
	require.NoError(t, err)
	require.Len(t, goals, 3)
	assert.Equal(t, "third goal text", goals[0].OriginalGoal)
	assert.Equal(t, "first goal text", goals[2].OriginalGoal)
}

func TestAddCheckInAdvancesGoal(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	g := newGoal("s", "walk every day")
	g.Status = models.StatusActive
	require.NoError(t, s.CreateGoal(ctx, g))

	obstacles := "rain"
	for day := 1; day <= 3; day++ {
		g.CurrentDay = day
		ci := &models.CheckIn{
			DayNumber:       day,
			TaskCompleted:   day != 2,
			UserResponse:    "Walked around the park",
			ConfidenceLevel: day + 1,
			AgentFeedback:   "Nice work",
		}
		if day == 2 {
			ci.Obstacles = &obstacles
			ci.AdjustedPlan = &models.PlanAdjustment{Suggestion: "smaller steps", RecommendedAction: "reduce scope"}
		}
		require.NoError(t, s.AddCheckIn(ctx, g, ci))
		assert.NotZero(t, ci.ID)
	}

	got, err := s.GetGoal(ctx, "s", g.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.CurrentDay)

	all, err := s.CheckIns(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].DayNumber)
	require.NotNil(t, all[1].Obstacles)
	assert.Equal(t, "rain", *all[1].Obstacles)
	assert.Equal(t, "reduce scope", all[1].AdjustedPlan.RecommendedAction)
	assert.Nil(t, all[0].AdjustedPlan)

	recent, err := s.RecentCheckIns(ctx, g.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].DayNumber)

	n, err := s.CountCheckIns(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAddCheckInRejectsDuplicateDay(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	g := newGoal("s", "walk every day")
	g.Status = models.StatusActive
	require.NoError(t, s.CreateGoal(ctx, g))

	g.CurrentDay = 1
	require.NoError(t, s.AddCheckIn(ctx, g, &models.CheckIn{DayNumber: 1, UserResponse: "did it today", ConfidenceLevel: 3}))

	g.CurrentDay = 5
	err := s.AddCheckIn(ctx, g, &models.CheckIn{DayNumber: 1, UserResponse: "did it again", ConfidenceLevel: 3})
	require.ErrorIs(t, err, ErrDuplicateCheckIn)

	// the goal update rolled back with the insert
	got, err := s.GetGoal(ctx, "s", g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentDay)
}
