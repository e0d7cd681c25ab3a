package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/example/goalbot/internal/providers/llm"
)

// ErrBudgetExhausted is returned by a run's client once the run has used up
// its generation calls.
var ErrBudgetExhausted = errors.New("generation budget exhausted")

// budgetClient caps the number of generation calls in one run and bounds
// each call with a timeout. One is created per run.
type budgetClient struct {
	inner   llm.Client
	limit   int32
	timeout time.Duration
	used    atomic.Int32
}

func newBudgetClient(inner llm.Client, limit int, timeout time.Duration) *budgetClient {
	return &budgetClient{inner: inner, limit: int32(limit), timeout: timeout}
}

func (b *budgetClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if b.used.Add(1) > b.limit {
		b.used.Add(-1)
		return "", ErrBudgetExhausted
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	return b.inner.GenerateText(ctx, prompt)
}

// Calls reports how many generation calls were let through.
func (b *budgetClient) Calls() int { return int(b.used.Load()) }
