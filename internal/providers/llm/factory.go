package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/goalbot/internal/config"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-3-5-sonnet-latest"
	defaultGeminiModel    = "gemini-1.5-flash"
)

// New returns a Client for the configured provider.
// Supported providers:
// - openai:     OPENAI_API_KEY, optional OPENAI_API_BASE
// - anthropic:  ANTHROPIC_API_KEY, optional ANTHROPIC_API_URL
// - gemini:     GOOGLE_API_KEY over REST, optional GEMINI_API_URL
// - gemini-sdk: GOOGLE_API_KEY through the Go SDK
// - mock:       canned responses, no network
//
// With no provider named the first available API key wins. If nothing is
// configured, returns a MockClient.
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIKey != "" {
			return NewOpenAI(cfg.OpenAIKey, modelOr(cfg.Model, defaultOpenAIModel), cfg.OpenAIBase, cfg.HTTPTimeout, logger), nil
		}
	case "anthropic":
		if cfg.AnthropicKey != "" {
			return NewAnthropic(cfg.AnthropicKey, modelOr(cfg.Model, defaultAnthropicModel), cfg.AnthropicURL, cfg.HTTPTimeout, logger), nil
		}
	case "gemini":
		if cfg.GoogleKey != "" {
			return NewGeminiHTTP(cfg.GoogleKey, modelOr(cfg.Model, defaultGeminiModel), cfg.GeminiURL, cfg.HTTPTimeout, logger), nil
		}
	case "gemini-sdk":
		if cfg.GoogleKey != "" {
			return NewGeminiSDK(ctx, cfg.GoogleKey, modelOr(cfg.Model, defaultGeminiModel))
		}
	case "mock":
		return &MockClient{}, nil
	}
	if cfg.Provider != "" {
		logger.Warn("llm provider configured without credentials, auto-detecting", zap.String("provider", cfg.Provider))
	}

	switch {
	case cfg.OpenAIKey != "":
		return NewOpenAI(cfg.OpenAIKey, modelOr(cfg.Model, defaultOpenAIModel), cfg.OpenAIBase, cfg.HTTPTimeout, logger), nil
	case cfg.AnthropicKey != "":
		return NewAnthropic(cfg.AnthropicKey, modelOr(cfg.Model, defaultAnthropicModel), cfg.AnthropicURL, cfg.HTTPTimeout, logger), nil
	case cfg.GoogleKey != "":
		return NewGeminiHTTP(cfg.GoogleKey, modelOr(cfg.Model, defaultGeminiModel), cfg.GeminiURL, cfg.HTTPTimeout, logger), nil
	}
	return &MockClient{}, nil
}

func modelOr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
