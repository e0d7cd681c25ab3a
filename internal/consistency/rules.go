package consistency

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// ActivityRule flags plans for a goal mentioning Keyword that include any
// of the Incompatible activities.
type ActivityRule struct {
	Keyword      string   `yaml:"keyword"`
	Incompatible []string `yaml:"incompatible"`
}

type RepetitionRule struct {
	PrefixLength int `yaml:"prefix_length"`
}

type Rules struct {
	ActivityRules []ActivityRule `yaml:"activity_rules"`
	Repetition    RepetitionRule `yaml:"repetition"`
}

// DefaultRules returns the built-in rule table.
func DefaultRules() Rules {
	r, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("consistency: built-in rules: %v", err))
	}
	return r
}

// LoadRules reads a rule file. An empty path yields the built-in rules.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(b)
}

// ParseRules decodes and normalises a YAML rule document.
func ParseRules(b []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules: %w", err)
	}
	for i, ar := range r.ActivityRules {
		kw := strings.ToLower(strings.TrimSpace(ar.Keyword))
		if kw == "" {
			return Rules{}, fmt.Errorf("activity rule %d: empty keyword", i)
		}
		r.ActivityRules[i].Keyword = kw
		for j, w := range ar.Incompatible {
			r.ActivityRules[i].Incompatible[j] = strings.ToLower(strings.TrimSpace(w))
		}
	}
	if r.Repetition.PrefixLength <= 0 {
		r.Repetition.PrefixLength = 30
	}
	return r, nil
}

// Incompatible returns the activities that conflict with keyword.
func (r Rules) Incompatible(keyword string) []string {
	for _, ar := range r.ActivityRules {
		if ar.Keyword == keyword {
			return ar.Incompatible
		}
	}
	return nil
}
