package models

import (
	"time"
)

// TotalDays is the length of every plan.
const TotalDays = 30

type Status string

const (
	StatusClarifying Status = "clarifying"
	StatusRefining   Status = "refining"
	StatusActive     Status = "active"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

// CanTransition reports whether a goal may move from s to next. Progress is
// monotonic; clarifying may jump straight to active when breakdown runs
// without a refinement pass, and any open goal may be abandoned.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusClarifying:
		return next == StatusRefining || next == StatusActive || next == StatusAbandoned
	case StatusRefining:
		return next == StatusActive || next == StatusAbandoned
	case StatusActive:
		return next == StatusCompleted || next == StatusAbandoned
	default:
		return false
	}
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

type Category string

const (
	CategoryFitness       Category = "fitness"
	CategoryLearning      Category = "learning"
	CategoryCareer        Category = "career"
	CategoryCreativity    Category = "creativity"
	CategoryWellness      Category = "wellness"
	CategoryFinancial     Category = "financial"
	CategoryRelationships Category = "relationships"
	CategoryGeneral       Category = "general"
	CategoryUnsafe        Category = "unsafe"
)

var knownCategories = map[Category]bool{
	CategoryFitness:       true,
	CategoryLearning:      true,
	CategoryCareer:        true,
	CategoryCreativity:    true,
	CategoryWellness:      true,
	CategoryFinancial:     true,
	CategoryRelationships: true,
	CategoryGeneral:       true,
	CategoryUnsafe:        true,
}

// Known reports whether c is one of the fixed category labels.
func (c Category) Known() bool { return knownCategories[c] }

type Question struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Hint     string `json:"hint"`
}

type DailyTask struct {
	Day             int    `json:"day"`
	Task            string `json:"task"`
	SuccessCriteria string `json:"success_criteria"`
	EstimatedTime   string `json:"estimated_time"`
}

// Milestone keys, in plan order.
var MilestoneKeys = []string{"day_7", "day_14", "day_21", "day_30"}

// MilestoneDays maps each milestone key to its plan day.
var MilestoneDays = map[string]int{"day_7": 7, "day_14": 14, "day_21": 21, "day_30": 30}

type PlanAdjustment struct {
	Suggestion        string `json:"suggestion"`
	RecommendedAction string `json:"recommended_action"`
}

type Assessment struct {
	Momentum           string `json:"momentum"`
	InterventionNeeded bool   `json:"intervention_needed"`
}

const (
	MomentumStrong       = "strong"
	MomentumNeedsSupport = "needs_support"
	MomentumCrisis       = "crisis_intervention_needed"
)

// Message is one entry of the audit trail: the raw text a stage produced.
type Message struct {
	Stage   string `json:"stage"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolCall records one generation or tool invocation made during a run.
type ToolCall struct {
	Stage   string         `json:"stage"`
	Name    string         `json:"name"`
	Attempt int            `json:"attempt,omitempty"`
	OK      bool           `json:"ok"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type Goal struct {
	ID                     int64             `json:"id"`
	SessionID              string            `json:"session_id"`
	OriginalGoal           string            `json:"original_goal"`
	RefinedGoal            *string           `json:"refined_goal"`
	GoalCategory           Category          `json:"goal_category,omitempty"`
	ClarificationQuestions []Question        `json:"clarification_questions,omitempty"`
	ClarificationAnswers   map[string]string `json:"clarification_answers,omitempty"`
	IsAchievable           *bool             `json:"is_achievable,omitempty"`
	RefinementReasoning    string            `json:"refinement_reasoning,omitempty"`
	DailyTasks             []DailyTask       `json:"daily_tasks,omitempty"`
	Milestones             map[string]string `json:"milestones,omitempty"`
	CurrentDay             int               `json:"current_day"`
	Status                 Status            `json:"status"`
	CreatedAt              time.Time         `json:"created_at"`
	StartedAt              *time.Time        `json:"started_at,omitempty"`
	CompletedAt            *time.Time        `json:"completed_at,omitempty"`
}

// State builds a fresh pipeline snapshot from the persisted goal.
func (g *Goal) State() GoalState {
	st := GoalState{
		GoalID:                 g.ID,
		OriginalGoal:           g.OriginalGoal,
		ClarificationQuestions: append([]Question(nil), g.ClarificationQuestions...),
		ClarificationAnswers:   copyStrings(g.ClarificationAnswers),
		GoalCategory:           g.GoalCategory,
		RefinementReasoning:    g.RefinementReasoning,
		DailyTasks:             append([]DailyTask(nil), g.DailyTasks...),
		Milestones:             copyStrings(g.Milestones),
	}
	if g.RefinedGoal != nil {
		v := *g.RefinedGoal
		st.RefinedGoal = &v
	}
	if g.IsAchievable != nil {
		v := *g.IsAchievable
		st.IsAchievable = &v
	}
	return st
}

// Absorb copies the pipeline-produced fields of st back onto the goal.
func (g *Goal) Absorb(st GoalState) {
	g.ClarificationQuestions = st.ClarificationQuestions
	g.ClarificationAnswers = st.ClarificationAnswers
	g.RefinedGoal = st.RefinedGoal
	g.GoalCategory = st.GoalCategory
	g.IsAchievable = st.IsAchievable
	g.RefinementReasoning = st.RefinementReasoning
	g.DailyTasks = st.DailyTasks
	g.Milestones = st.Milestones
}

// GoalText is the best available statement of the goal.
func (g *Goal) GoalText() string {
	if g.RefinedGoal != nil && *g.RefinedGoal != "" {
		return *g.RefinedGoal
	}
	return g.OriginalGoal
}

// TaskForDay returns the planned task for day, or a zero task.
func (g *Goal) TaskForDay(day int) DailyTask {
	for _, t := range g.DailyTasks {
		if t.Day == day {
			return t
		}
	}
	return DailyTask{Day: day}
}

type CheckIn struct {
	ID              int64           `json:"id"`
	GoalID          int64           `json:"goal_id"`
	DayNumber       int             `json:"day_number"`
	TaskCompleted   bool            `json:"task_completed"`
	UserResponse    string          `json:"user_response"`
	Obstacles       *string         `json:"obstacles"`
	ConfidenceLevel int             `json:"confidence_level"`
	AgentFeedback   string          `json:"agent_feedback"`
	AdjustedPlan    *PlanAdjustment `json:"adjusted_plan"`
	CheckedInAt     time.Time       `json:"checked_in_at"`
}

func copyStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
