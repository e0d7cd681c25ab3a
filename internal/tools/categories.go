package tools

import (
	"context"
	"strings"
)

// Suggested categories in the order they are offered.
var categoryOrder = []string{"fitness", "learning", "career", "creativity", "relationships", "wellness", "financial"}

var categoryKeywords = map[string][]string{
	"fitness":       {"walk", "run", "gym", "exercise", "workout", "swim", "yoga", "stretch", "lift"},
	"learning":      {"learn", "read", "study", "course", "language", "practice"},
	"career":        {"job", "career", "promotion", "resume", "network", "interview"},
	"creativity":    {"write", "draw", "paint", "music", "guitar", "piano", "create"},
	"relationships": {"friend", "family", "partner", "relationship", "parent", "call"},
	"wellness":      {"meditat", "sleep", "mindful", "journal", "stress", "healthier"},
	"financial":     {"save", "budget", "money", "debt", "invest", "spend"},
}

// GoalCategoriesTool suggests up to three categories for a goal.
// Inputs:
// - goal: string
type GoalCategoriesTool struct{}

func (t *GoalCategoriesTool) Name() string { return "goal_categories" }

func (t *GoalCategoriesTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	return SuggestCategories(stringInput(inputs, "goal")), "", nil
}

// SuggestCategories ranks categories by keyword hits in goal. With no hits
// the first three categories are offered.
func SuggestCategories(goal string) []string {
	lower := strings.ToLower(goal)
	var out []string
	for _, cat := range categoryOrder {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lower, kw) {
				out = append(out, cat)
				break
			}
		}
		if len(out) == 3 {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, categoryOrder[:3]...)
	}
	return out
}
