package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MockClient is used when no real provider is configured. It recognises the
// stage from the prompt and answers with a well-formed canned payload.
type MockClient struct{}

func (m *MockClient) Describe() (string, string) { return "mock", "" }

var quotedGoal = regexp.MustCompile(`(?m)^(?:ORIGINAL|REFINED|USER'S) GOAL: "(.*)"$`)

func (m *MockClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p := strings.ToLower(prompt)
	goal := "your goal"
	if match := quotedGoal.FindStringSubmatch(prompt); match != nil {
		goal = match[1]
	}
	switch {
	case strings.Contains(p, "clarifying questions"):
		return mockQuestions, nil
	case strings.Contains(p, "30-day action plan"):
		return mockPlan(goal), nil
	case strings.Contains(p, "smart goal"):
		b, _ := json.Marshal(map[string]any{
			"refined_goal":  fmt.Sprintf("%s, for at least 10 minutes on 25 of the next 30 days", strings.TrimSuffix(goal, ".")),
			"category":      "general",
			"is_achievable": true,
			"reasoning":     "A fixed daily minimum with a little slack keeps the goal realistic.",
		})
		return string(b), nil
	case strings.Contains(p, "daily check-in"):
		return "You checked in today. You are moving through the 30-day plan one day at a time. Keep tomorrow's task small and specific.", nil
	}
	return "", fmt.Errorf("mock: unrecognised prompt")
}

const mockQuestions = `[
  {"id": "q1", "question": "Where are you starting from with this today?", "hint": "Your current routine"},
  {"id": "q2", "question": "What would a good result look like after 30 days?", "hint": "Something you can check"},
  {"id": "q3", "question": "How much time can you set aside on a typical day?", "hint": "Minutes per day"}
]`

func mockPlan(goal string) string {
	type task struct {
		Day             int    `json:"day"`
		Task            string `json:"task"`
		SuccessCriteria string `json:"success_criteria"`
		EstimatedTime   string `json:"estimated_time"`
	}
	phases := []string{"Set up", "Repeat", "Extend", "Consolidate"}
	tasks := make([]task, 0, 30)
	for day := 1; day <= 30; day++ {
		week := (day - 1) / 7
		if week > 3 {
			week = 3
		}
		tasks = append(tasks, task{
			Day:             day,
			Task:            fmt.Sprintf("%s: spend %d focused minutes on today's step", phases[week], 10+5*week),
			SuccessCriteria: "Step finished and noted in your log",
			EstimatedTime:   fmt.Sprintf("%d min", 10+5*week),
		})
	}
	b, _ := json.Marshal(map[string]any{
		"daily_tasks": tasks,
		"milestones": map[string]string{
			"day_7":  "Week 1 (Foundation): a baseline routine in place",
			"day_14": "Week 2 (Development): the routine held on most days",
			"day_21": "Week 3 (Advancement): longer sessions with less effort",
			"day_30": "Week 4 (Achievement): " + goal,
		},
	})
	return string(b)
}
