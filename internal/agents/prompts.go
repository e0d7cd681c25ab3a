package agents

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/goalbot/internal/consistency"
	"github.com/example/goalbot/internal/models"
)

func clarifyPrompt(goal string) string {
	return fmt.Sprintf(`You are a life coach helping someone clarify a personal goal.
Be warm but professional, curious but focused, and judgment-free.

USER'S GOAL: %q

Write exactly 3 clarifying questions about THIS goal. Do not use generic templates:
read what the user actually said and probe their starting point, what success
would look like for them, and the constraints they live with.

For example, "I want to exercise more" calls for questions about how active they
are today and whether they want gentle daily walks or structured workouts, while
"I want to improve my relationships" calls for asking which relationship and what
"improved" would look like.

Style: direct, conversational, no exclamation points, no emojis or slang.

Output ONLY a JSON array, no prose:
[
  {"id": "q1", "question": "...", "hint": "short hint"},
  {"id": "q2", "question": "...", "hint": "short hint"},
  {"id": "q3", "question": "...", "hint": "short hint"}
]`, goal)
}

func refinePrompt(goal string, answers string, categories []string, scopeNote string) string {
	if answers == "" {
		answers = "(no answers given)"
	}
	return fmt.Sprintf(`You are a practical mentor turning a goal into something achievable in 30 days.

ORIGINAL GOAL: %q

CLARIFICATION:
%s

Likely categories: %s
Scope check: %s

Rewrite it as a SMART goal for a 30 day sprint: specific, measurable, achievable for
an adult with a job and family (30-60 minutes a day), relevant to their motivation,
and bound to 30 days.

Keep the activity the user named. If they said walking, the goal is about walking,
not "exercise" or "cardio and strength". If they said reading, it is about reading,
not "learning". If the goal touches health, diet or mental health, suggest they
check with a professional; never give medical advice. If the goal is too ambitious,
scope it down plainly. Address the user as "you". No cliches, no exclamation points.

Output ONLY a JSON object:
{
  "refined_goal": "the SMART 30-day goal",
  "category": "fitness|learning|career|creativity|wellness|financial|relationships",
  "is_achievable": true,
  "reasoning": "one or two sentences on why it was refined this way"
}`, goal, answers, strings.Join(categories, ", "), scopeNote)
}

func breakdownPrompt(goal string, category models.Category, template string) string {
	return fmt.Sprintf(`You are a mentor with project management experience building a 30-day action plan.

REFINED GOAL: %q
CATEGORY: %s
CATEGORY PRACTICES: %s

Produce:
1. Four weekly milestones that build on each other:
   - Week 1 Foundation: establish a baseline and the first habit
   - Week 2 Development: build consistency and capacity
   - Week 3 Advancement: add challenge or complexity
   - Week 4 Achievement: reach the goal
   Each week must be clearly different from the one before. "Exercise 3 times" four
   weeks in a row is repetition, not progression.
2. A task for every day 1 through 30 with a measurable success criterion and a time
   estimate (30-60 minutes is typical).

Tasks are one sentence, start with an action verb and carry no motivational language.

Output ONLY a JSON object:
{
  "daily_tasks": [
    {"day": 1, "task": "...", "success_criteria": "...", "estimated_time": "30 min"},
    ... one entry per day up to day 30
  ],
  "milestones": {
    "day_7": "Week 1 (Foundation): ...",
    "day_14": "Week 2 (Development): ...",
    "day_21": "Week 3 (Advancement): ...",
    "day_30": "Week 4 (Achievement): %s"
  }
}`, goal, category, template, goal)
}

// retryPrompt quotes the validator warnings verbatim, turns each into an
// explicit instruction and repeats the original request.
func retryPrompt(original string, originalGoal, refinedGoal string, rep consistency.Report) string {
	var b strings.Builder
	b.WriteString("VALIDATION FAILED:\n")
	for _, msg := range rep.Messages() {
		b.WriteString(msg)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nThe plan you created does not match the user's goal.\n\nORIGINAL GOAL: %q\nREFINED GOAL: %q\n\nYou MUST:\n", originalGoal, refinedGoal)
	b.WriteString("- Create tasks that relate directly to the stated goal.\n")

	conflicts := map[string][]string{}
	var keywords []string
	repetitive := false
	for _, w := range rep.Warnings {
		switch w.Type {
		case consistency.WarnActivityMismatch:
			if _, ok := conflicts[w.Keyword]; !ok {
				keywords = append(keywords, w.Keyword)
			}
			conflicts[w.Keyword] = append(conflicts[w.Keyword], w.Conflict)
		case consistency.WarnRepetitiveMilestones:
			repetitive = true
		}
	}
	for _, kw := range keywords {
		fmt.Fprintf(&b, "- The goal is about %s: do NOT include %s.\n", kw, strings.Join(conflicts[kw], ", "))
	}
	if repetitive {
		b.WriteString("- Make each week's milestone distinctly different from the previous week. Do not repeat milestones.\n")
	}
	b.WriteString("\nGenerate a corrected plan following the original instructions:\n\n")
	b.WriteString(original)
	return b.String()
}

func checkInPrompt(in CheckInInput) string {
	completed := "No"
	if in.TaskCompleted {
		completed = "Yes"
	}
	obstacles := "None mentioned"
	if in.Obstacles != nil && strings.TrimSpace(*in.Obstacles) != "" {
		obstacles = strings.TrimSpace(*in.Obstacles)
	}
	task := in.Task.Task
	if task == "" {
		task = "N/A"
	}
	return fmt.Sprintf(`You are a mentor running a daily check-in on a 30-day goal.
Be consistent, constructive and focused on accountability. Stay positive without
toxic positivity.

GOAL: %s
DAY: %d/%d
TODAY'S TASK: %s

CHECK-IN:
- Task completed: %s
- What they said: %s
- Obstacles: %s
- Confidence for tomorrow: %d/5

%s
Reply in under 150 words with one sentence acknowledging today's result, one
sentence placing it in the 30-day plan, and one or two sentences of specific
guidance for tomorrow. Say "You completed" or "You missed" rather than praise or
disappointment. If they are struggling, ask what needs to change. No exclamation
points, emojis, slang or cliches. Plain text only.`,
		in.Goal, in.Day, models.TotalDays, task, completed, strings.TrimSpace(in.UserResponse), obstacles, in.ConfidenceLevel, historyDigest(in.Recent))
}

const maxHistory = 5

// historyDigest summarises up to the five most recent check-ins by day.
func historyDigest(recent []models.CheckIn) string {
	if len(recent) == 0 {
		return ""
	}
	sorted := append([]models.CheckIn(nil), recent...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DayNumber < sorted[j].DayNumber })
	if len(sorted) > maxHistory {
		sorted = sorted[len(sorted)-maxHistory:]
	}
	var b strings.Builder
	b.WriteString("Recent progress:\n")
	for _, ci := range sorted {
		status := "Missed"
		if ci.TaskCompleted {
			status = "Completed"
		}
		fmt.Fprintf(&b, "Day %d: %s (confidence: %d/5)\n", ci.DayNumber, status, ci.ConfidenceLevel)
	}
	return b.String()
}

// answersDigest renders answers in question id order, with the question text
// when it is known.
func answersDigest(questions []models.Question, answers map[string]string) string {
	if len(answers) == 0 {
		return ""
	}
	text := make(map[string]string, len(questions))
	for _, q := range questions {
		text[q.ID] = q.Question
	}
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var b strings.Builder
	for _, id := range ids {
		q := text[id]
		if q == "" {
			q = id
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", q, strings.TrimSpace(answers[id]))
	}
	return strings.TrimRight(b.String(), "\n")
}
