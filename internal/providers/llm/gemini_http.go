package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const defaultGeminiBase = "https://generativelanguage.googleapis.com/v1beta"

// GeminiHTTPClient calls the Gemini REST API directly.
type GeminiHTTPClient struct {
	APIKey  string
	Model   string
	BaseURL string

	t *transport
}

func NewGeminiHTTP(apiKey, model, baseURL string, timeout time.Duration, logger *zap.Logger) *GeminiHTTPClient {
	if baseURL == "" {
		baseURL = defaultGeminiBase
	}
	return &GeminiHTTPClient{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: baseURL,
		t:       newTransport("gemini", timeout, logger),
	}
}

func (c *GeminiHTTPClient) Describe() (string, string) { return "gemini", c.Model }

func (c *GeminiHTTPClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.BaseURL, url.PathEscape(c.Model), url.QueryEscape(c.APIKey))
	body := map[string]any{
		"contents": []map[string]any{{
			"role":  "user",
			"parts": []map[string]string{{"text": prompt}},
		}},
	}
	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := c.t.postJSON(ctx, endpoint, nil, body, &out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
