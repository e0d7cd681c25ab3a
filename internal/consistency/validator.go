// Package consistency cross-checks a generated plan against the goal it was
// generated for.
package consistency

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/goalbot/internal/models"
)

const (
	WarnActivityMismatch     = "activity_mismatch"
	WarnRepetitiveMilestones = "repetitive_milestones"
)

type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	// Keyword and Conflict are set for activity mismatches.
	Keyword  string `json:"keyword,omitempty"`
	Conflict string `json:"conflict,omitempty"`
}

type Report struct {
	Valid    bool      `json:"valid"`
	Warnings []Warning `json:"warnings"`
}

// Messages returns the warning messages in order.
func (r Report) Messages() []string {
	out := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		out = append(out, w.Message)
	}
	return out
}

type Validator struct {
	rules Rules
}

func NewValidator(rules Rules) *Validator {
	return &Validator{rules: rules}
}

// Rules exposes the table the validator checks against.
func (v *Validator) Rules() Rules { return v.rules }

// Validate checks tasks and milestones against the original goal. The refined
// goal is accepted for symmetry with the breakdown inputs; the keyword table
// only looks at what the user actually wrote.
func (v *Validator) Validate(originalGoal, refinedGoal string, tasks []models.DailyTask, milestones map[string]string) Report {
	var warnings []Warning

	goal := strings.ToLower(originalGoal)
	parts := make([]string, 0, len(tasks))
	for _, t := range tasks {
		parts = append(parts, strings.ToLower(t.Task))
	}
	taskText := strings.Join(parts, " ")

	for _, rule := range v.rules.ActivityRules {
		if !strings.Contains(goal, rule.Keyword) {
			continue
		}
		for _, bad := range rule.Incompatible {
			if strings.Contains(taskText, bad) {
				warnings = append(warnings, Warning{
					Type:     WarnActivityMismatch,
					Message:  fmt.Sprintf("Goal mentions '%s' but tasks include '%s'", rule.Keyword, bad),
					Keyword:  rule.Keyword,
					Conflict: bad,
				})
			}
		}
	}

	seen := map[string]bool{}
	for _, key := range milestoneOrder(milestones) {
		start := prefix(strings.ToLower(milestones[key]), v.rules.Repetition.PrefixLength)
		if seen[start] {
			warnings = append(warnings, Warning{
				Type:    WarnRepetitiveMilestones,
				Message: "Weekly milestones appear repetitive",
			})
			break
		}
		seen[start] = true
	}

	return Report{Valid: len(warnings) == 0, Warnings: warnings}
}

// milestoneOrder yields the fixed keys first, in day order, then any others.
func milestoneOrder(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for _, k := range models.MilestoneKeys {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == len(m) {
		return keys
	}
	var extra []string
	for k := range m {
		if _, fixed := models.MilestoneDays[k]; !fixed {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
