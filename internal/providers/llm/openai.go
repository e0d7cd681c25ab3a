package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const defaultOpenAIBase = "https://api.openai.com"

type OpenAIClient struct {
	APIKey  string
	Model   string
	BaseURL string

	t *transport
}

func NewOpenAI(apiKey, model, baseURL string, timeout time.Duration, logger *zap.Logger) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBase
	}
	return &OpenAIClient{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: baseURL,
		t:       newTransport("openai", timeout, logger),
	}
}

func (c *OpenAIClient) Describe() (string, string) { return "openai", c.Model }

func (c *OpenAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	// Chat Completions for broad compatibility with OpenAI-style gateways.
	body := map[string]any{
		"model":       c.Model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": 0.3,
	}
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + c.APIKey}
	if err := c.t.postJSON(ctx, c.BaseURL+"/v1/chat/completions", headers, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
