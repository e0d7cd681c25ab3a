// Package llmtest provides a scripted generation client for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrExhausted is returned when a Scripted client runs out of responses.
var ErrExhausted = errors.New("llmtest: no scripted response left")

// Response is one scripted reply. Delay blocks until it elapses or the
// context is done.
type Response struct {
	Text  string
	Err   error
	Delay time.Duration
}

// Scripted replays responses in order and records every prompt it sees.
type Scripted struct {
	mu        sync.Mutex
	responses []Response
	prompts   []string
}

func New(responses ...Response) *Scripted {
	return &Scripted{responses: responses}
}

// Texts scripts plain successful replies.
func Texts(texts ...string) *Scripted {
	rs := make([]Response, 0, len(texts))
	for _, t := range texts {
		rs = append(rs, Response{Text: t})
	}
	return New(rs...)
}

func (s *Scripted) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	if len(s.responses) == 0 {
		s.mu.Unlock()
		return "", ErrExhausted
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	s.mu.Unlock()

	if r.Delay > 0 {
		timer := time.NewTimer(r.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return r.Text, r.Err
}

// Calls reports how many generation calls were made.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// Prompts returns a copy of the prompts seen so far.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

func (s *Scripted) Describe() (string, string) { return "scripted", "" }
