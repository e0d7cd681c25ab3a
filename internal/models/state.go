package models

// GoalState is the record threaded through the pipeline. Every field is
// optional until the stage that produces it has run.
type GoalState struct {
	GoalID int64 `json:"goal_id,omitempty"`

	OriginalGoal string `json:"original_goal"`

	ClarificationQuestions []Question        `json:"clarification_questions,omitempty"`
	ClarificationAnswers   map[string]string `json:"clarification_answers,omitempty"`

	// RefinedGoal is nil when refinement declined the goal.
	RefinedGoal         *string  `json:"refined_goal"`
	GoalCategory        Category `json:"goal_category,omitempty"`
	IsAchievable        *bool    `json:"is_achievable,omitempty"`
	RefinementReasoning string   `json:"refinement_reasoning,omitempty"`

	DailyTasks []DailyTask       `json:"daily_tasks,omitempty"`
	Milestones map[string]string `json:"milestones,omitempty"`

	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Messages  []Message  `json:"messages,omitempty"`
}

// PlanningGoal is the goal text breakdown plans against.
func (s GoalState) PlanningGoal() string {
	if s.RefinedGoal != nil && *s.RefinedGoal != "" {
		return *s.RefinedGoal
	}
	return s.OriginalGoal
}

// Unsafe reports whether refinement rejected the goal on safety grounds.
func (s GoalState) Unsafe() bool { return s.GoalCategory == CategoryUnsafe }

// Audit is the trail a stage appends to the state.
type Audit struct {
	Messages  []Message
	ToolCalls []ToolCall
}

func (a *Audit) Message(stage, content string) {
	a.Messages = append(a.Messages, Message{Stage: stage, Role: "assistant", Content: content})
}

func (a *Audit) Call(c ToolCall) {
	a.ToolCalls = append(a.ToolCalls, c)
}

type ClarifyUpdate struct {
	Questions []Question
	Crisis    bool
	Audit     Audit
}

type RefineUpdate struct {
	RefinedGoal  *string
	Category     Category
	IsAchievable bool
	Reasoning    string
	Audit        Audit
}

type BreakdownUpdate struct {
	DailyTasks []DailyTask
	Milestones map[string]string
	Retried    bool
	Audit      Audit
}

func (s *GoalState) appendAudit(a Audit) {
	s.Messages = append(s.Messages, a.Messages...)
	s.ToolCalls = append(s.ToolCalls, a.ToolCalls...)
}

func (s *GoalState) ApplyClarify(u ClarifyUpdate) {
	s.ClarificationQuestions = u.Questions
	s.appendAudit(u.Audit)
}

func (s *GoalState) ApplyRefine(u RefineUpdate) {
	s.RefinedGoal = u.RefinedGoal
	s.GoalCategory = u.Category
	achievable := u.IsAchievable
	s.IsAchievable = &achievable
	s.RefinementReasoning = u.Reasoning
	s.appendAudit(u.Audit)
}

func (s *GoalState) ApplyBreakdown(u BreakdownUpdate) {
	s.DailyTasks = u.DailyTasks
	s.Milestones = u.Milestones
	s.appendAudit(u.Audit)
}
