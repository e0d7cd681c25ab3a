// Package progress summarises a goal's check-ins.
package progress

import (
	"math"
	"sort"

	"github.com/example/goalbot/internal/models"
)

type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendSteady  Trend = "steady"
)

type Recommendation string

const (
	RecommendIncrease Recommendation = "increase_challenge"
	RecommendMaintain Recommendation = "maintain"
	RecommendReduce   Recommendation = "reduce_scope"
)

// trendWindow is how many recent check-ins are compared against the ones
// before them.
const trendWindow = 3

type Milestone struct {
	Day         int    `json:"day"`
	Description string `json:"description"`
}

type Summary struct {
	GoalID          int64          `json:"goal_id"`
	CurrentDay      int            `json:"current_day"`
	TotalDays       int            `json:"total_days"`
	TasksCompleted  int            `json:"tasks_completed"`
	TasksRemaining  int            `json:"tasks_remaining"`
	CompletionRate  float64        `json:"completion_rate"`
	CheckInStreak   int            `json:"check_in_streak"`
	Status          models.Status  `json:"status"`
	NextMilestone   *Milestone     `json:"next_milestone"`
	ConfidenceTrend Trend          `json:"confidence_trend"`
	Recommendation  Recommendation `json:"recommendation"`
}

// Summarize builds the progress summary for g from its check-ins, in any
// order.
func Summarize(g *models.Goal, checkIns []models.CheckIn) Summary {
	sorted := append([]models.CheckIn(nil), checkIns...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DayNumber < sorted[j].DayNumber })

	completed := 0
	for _, ci := range sorted {
		if ci.TaskCompleted {
			completed++
		}
	}

	s := Summary{
		GoalID:         g.ID,
		CurrentDay:     g.CurrentDay,
		TotalDays:      models.TotalDays,
		TasksCompleted: completed,
		TasksRemaining: max(models.TotalDays-g.CurrentDay, 0),
		CheckInStreak:  streak(sorted),
		Status:         g.Status,
		NextMilestone:  nextMilestone(g),
	}
	if g.CurrentDay > 0 {
		s.CompletionRate = round1(float64(completed) / float64(g.CurrentDay) * 100)
	}
	s.ConfidenceTrend = confidenceTrend(sorted)
	s.Recommendation = Recommend(s.CompletionRate, s.ConfidenceTrend, g.CurrentDay)
	return s
}

// Recommend suggests how the rest of the plan should change. Nothing is
// recommended beyond maintain until a few days have been checked in.
func Recommend(rate float64, trend Trend, day int) Recommendation {
	if day < trendWindow {
		return RecommendMaintain
	}
	switch {
	case rate < 50, rate < 70 && trend == TrendFalling:
		return RecommendReduce
	case rate >= 85 && trend != TrendFalling:
		return RecommendIncrease
	default:
		return RecommendMaintain
	}
}

// streak counts completed days walking back from the latest check-in.
func streak(sorted []models.CheckIn) int {
	n := 0
	for i := len(sorted) - 1; i >= 0; i-- {
		if !sorted[i].TaskCompleted {
			break
		}
		n++
	}
	return n
}

func nextMilestone(g *models.Goal) *Milestone {
	if len(g.Milestones) == 0 {
		return nil
	}
	for _, key := range models.MilestoneKeys {
		day := models.MilestoneDays[key]
		if g.CurrentDay < day {
			return &Milestone{Day: day, Description: g.Milestones[key]}
		}
	}
	return nil
}

func confidenceTrend(sorted []models.CheckIn) Trend {
	if len(sorted) < 2*trendWindow {
		return TrendSteady
	}
	latest := meanConfidence(sorted[len(sorted)-trendWindow:])
	previous := meanConfidence(sorted[len(sorted)-2*trendWindow : len(sorted)-trendWindow])
	switch {
	case latest-previous >= 0.5:
		return TrendRising
	case previous-latest >= 0.5:
		return TrendFalling
	default:
		return TrendSteady
	}
}

func meanConfidence(cs []models.CheckIn) float64 {
	sum := 0
	for _, c := range cs {
		sum += c.ConfidenceLevel
	}
	return float64(sum) / float64(len(cs))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
