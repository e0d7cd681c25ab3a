package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultAnthropicURL = "https://api.anthropic.com/v1/messages"

type AnthropicClient struct {
	APIKey string
	Model  string
	URL    string

	t *transport
}

func NewAnthropic(apiKey, model, url string, timeout time.Duration, logger *zap.Logger) *AnthropicClient {
	if url == "" {
		url = defaultAnthropicURL
	}
	return &AnthropicClient{
		APIKey: apiKey,
		Model:  model,
		URL:    url,
		t:      newTransport("anthropic", timeout, logger),
	}
}

func (c *AnthropicClient) Describe() (string, string) { return "anthropic", c.Model }

func (c *AnthropicClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":      c.Model,
		"max_tokens": 2048,
		"messages": []map[string]any{{
			"role":    "user",
			"content": []map[string]string{{"type": "text", "text": prompt}},
		}},
	}
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	headers := map[string]string{
		"x-api-key":         c.APIKey,
		"anthropic-version": "2023-06-01",
	}
	if err := c.t.postJSON(ctx, c.URL, headers, body, &resp); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, part := range resp.Content {
		if part.Type == "" || part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("anthropic: no content")
	}
	return b.String(), nil
}
