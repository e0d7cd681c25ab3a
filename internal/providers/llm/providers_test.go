package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/goalbot/internal/config"
)

func noBackoff(int) time.Duration { return 0 }

func TestOpenAIGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)
		assert.Equal(t, "hello", body.Messages[0].Content)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hi there"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", "gpt-test", srv.URL, time.Second, nil)
	out, err := c.GenerateText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

func TestTransportRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"busy"}`))
			return
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer srv.Close()

	c := NewAnthropic("key", "claude-test", srv.URL, time.Second, nil)
	c.t.backoff = noBackoff
	out, err := c.GenerateText(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), hits.Load())
}

func TestTransportDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	c := NewGeminiHTTP("key", "gemini-test", srv.URL, time.Second, nil)
	c.t.backoff = noBackoff
	_, err := c.GenerateText(context.Background(), "p")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGeminiHTTPRequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"gem"}]}}]}`))
	}))
	defer srv.Close()

	out, err := NewGeminiHTTP("k", "gemini-test", srv.URL, time.Second, nil).GenerateText(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "gem", out)
}

func TestTransportStopsOnCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewOpenAI("k", "m", srv.URL, time.Second, nil)
	c.t.backoff = func(int) time.Duration {
		cancel()
		return time.Minute
	}
	_, err := c.GenerateText(ctx, "p")
	require.ErrorIs(t, err, context.Canceled)
}

func TestFactory(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, config.LLMConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, c)

	c, err = New(ctx, config.LLMConfig{Provider: "anthropic", AnthropicKey: "a"}, nil)
	require.NoError(t, err)
	provider, model := Describe(c)
	assert.Equal(t, "anthropic", provider)
	assert.Equal(t, defaultAnthropicModel, model)

	// provider without credentials falls through to key detection
	c, err = New(ctx, config.LLMConfig{Provider: "openai", GoogleKey: "g", Model: "gemini-pro"}, nil)
	require.NoError(t, err)
	provider, model = Describe(c)
	assert.Equal(t, "gemini", provider)
	assert.Equal(t, "gemini-pro", model)
}

func TestMockClientAnswersEveryStage(t *testing.T) {
	m := &MockClient{}
	ctx := context.Background()

	out, err := m.GenerateText(ctx, "Write exactly 3 clarifying questions about THIS goal.")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "["))

	out, err = m.GenerateText(ctx, "ORIGINAL GOAL: \"read more\"\nRewrite it as a SMART goal")
	require.NoError(t, err)
	assert.Contains(t, out, "read more, for at least 10 minutes")

	out, err = m.GenerateText(ctx, "building a 30-day action plan.\n\nREFINED GOAL: \"read more\"")
	require.NoError(t, err)
	var plan struct {
		DailyTasks []map[string]any   `json:"daily_tasks"`
		Milestones map[string]string `json:"milestones"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Len(t, plan.DailyTasks, 30)
	assert.Equal(t, "Week 4 (Achievement): read more", plan.Milestones["day_30"])

	_, err = m.GenerateText(ctx, "unrelated")
	require.Error(t, err)
}
