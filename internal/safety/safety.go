// Package safety scans user-authored text for crisis language and unsafe
// goals before any generation call is made.
package safety

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/example/goalbot/internal/models"
)

// CrisisMessage is returned verbatim whenever crisis language is detected.
const CrisisMessage = "I'm concerned about what you've shared. Please reach out to a trained crisis counselor who can provide immediate support. You can call or text 988 (available 24/7) or visit https://988lifeline.org/. Your safety is the priority."

// CrisisQuestionID identifies the crisis entry in the question envelope.
const CrisisQuestionID = "crisis"

var crisisKeywords = []string{
	"suicide",
	"kill myself",
	"want to die",
	"end it all",
	"self harm",
	"hurt myself",
	"no reason to live",
}

// Check-in responses are free conversation, so they also catch a broader phrase.
var checkInKeywords = append(append([]string(nil), crisisKeywords...), "no point")

type goalPattern struct {
	re         *regexp.Regexp
	suggestion string
}

var goalPatterns = []goalPattern{
	{regexp.MustCompile(`lose.*\d{2,}.*pounds?`), "Rapid weight loss can be harmful. Would you be open to a goal of developing sustainable healthy habits?"},
	{regexp.MustCompile(`stop.*sleep|no.*sleep|sleep.*\d hour`), "Sleep is essential for health. What if we focused on optimizing your waking hours instead?"},
	{regexp.MustCompile(`extreme|dangerous|risky`), "This goal may pose health risks. Let me suggest a safer alternative."},
}

type Kind string

const (
	KindNone   Kind = ""
	KindCrisis Kind = "crisis"
	KindUnsafe Kind = "unsafe_goal"
)

// Verdict is the outcome of a scan. Message is the crisis hotline text or
// the suggestion attached to the unsafe pattern that matched.
type Verdict struct {
	Triggered bool
	Kind      Kind
	Message   string
	Match     string
}

// CheckCrisis scans goal text for crisis language.
func CheckCrisis(text string) Verdict {
	return matchKeywords(scanForms(text), crisisKeywords)
}

// CheckCheckIn scans a check-in response together with its obstacles.
func CheckCheckIn(response string, obstacles string) Verdict {
	return matchKeywords(scanForms(response+" "+obstacles), checkInKeywords)
}

// CheckGoal applies the unsafe-goal patterns in order; the first match wins.
func CheckGoal(text string) Verdict {
	forms := scanForms(text)
	for _, p := range goalPatterns {
		for _, norm := range forms {
			if m := p.re.FindString(norm); m != "" {
				return Verdict{Triggered: true, Kind: KindUnsafe, Message: p.suggestion, Match: m}
			}
		}
	}
	return Verdict{}
}

// CrisisQuestion wraps the hotline message in the clarification question
// envelope so callers can render it like any other question.
func CrisisQuestion() models.Question {
	return models.Question{ID: CrisisQuestionID, Question: CrisisMessage, Hint: ""}
}

func matchKeywords(forms []string, keywords []string) Verdict {
	for _, kw := range keywords {
		for _, norm := range forms {
			if strings.Contains(norm, kw) {
				return Verdict{Triggered: true, Kind: KindCrisis, Message: CrisisMessage, Match: kw}
			}
		}
	}
	return Verdict{}
}

// scanForms returns the texts a check runs against: the plain text and, when
// it looks like markup, its text content as well. Markup parsing can swallow
// input ("x<y" opens a tag), so a match in either form counts.
func scanForms(text string) []string {
	plain := collapse(text)
	if !strings.ContainsAny(text, "<&") {
		return []string{plain}
	}
	if stripped := Normalize(text); stripped != plain {
		return []string{plain, stripped}
	}
	return []string{plain}
}

// Normalize lower-cases text, reduces any HTML markup to its text content
// and collapses whitespace, so "<b>want</b> to die" still matches.
func Normalize(text string) string {
	if strings.ContainsAny(text, "<&") {
		text = textContent(text)
	}
	return collapse(text)
}

func collapse(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func textContent(s string) string {
	node, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "br", "p", "div", "li":
				b.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return b.String()
}
