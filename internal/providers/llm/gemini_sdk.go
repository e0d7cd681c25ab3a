package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiSDKClient talks to Gemini through the official Go SDK.
type GeminiSDKClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

func NewGeminiSDK(ctx context.Context, apiKey, model string) (*GeminiSDKClient, error) {
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini sdk: %w", err)
	}
	m := c.GenerativeModel(model)
	m.SetTemperature(0.3)
	return &GeminiSDKClient{client: c, model: m, name: model}, nil
}

func (g *GeminiSDKClient) Describe() (string, string) { return "gemini-sdk", g.name }

func (g *GeminiSDKClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	txt := firstText(resp)
	if txt == "" {
		return "", errors.New("gemini sdk: no candidates")
	}
	return txt, nil
}

func (g *GeminiSDKClient) Close() error { return g.client.Close() }

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}
