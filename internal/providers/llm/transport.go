package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultHTTPTimeout = 45 * time.Second
	maxAttempts        = 3
)

// transport posts JSON to a provider and retries timeouts, 408, 429 and 5xx
// with exponential backoff.
type transport struct {
	name    string
	client  *http.Client
	logger  *zap.Logger
	backoff func(attempt int) time.Duration
}

func newTransport(name string, timeout time.Duration, logger *zap.Logger) *transport {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &transport{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named(name),
		backoff: backoff,
	}
}

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider string
	Code     int
	Body     map[string]any
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %v", e.Provider, e.Code, e.Body)
}

func (t *transport) postJSON(ctx context.Context, url string, headers map[string]string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", t.name, err)
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, t.backoff(attempt-1)); err != nil {
				return err
			}
		}
		retry, err := t.do(ctx, url, headers, b, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
		t.logger.Warn("retrying provider request", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return lastErr
}

func (t *transport) do(ctx context.Context, url string, headers map[string]string, body []byte, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return isTimeout(err), err
	}
	defer res.Body.Close()
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return false, fmt.Errorf("%s: decode response: %w", t.name, err)
		}
		return false, nil
	}
	var eresp map[string]any
	_ = json.NewDecoder(res.Body).Decode(&eresp)
	statusErr := &StatusError{Provider: t.name, Code: res.StatusCode, Body: eresp}
	return retryable(res.StatusCode), statusErr
}

func retryable(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	if errors.As(err, &te) {
		return te.Timeout()
	}
	return false
}

func backoff(i int) time.Duration {
	return time.Duration(500*(1<<i)) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
