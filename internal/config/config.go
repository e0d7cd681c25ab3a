package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAddr            = ":8080"
	defaultDBPath          = "data/goalbot.db"
	defaultGenerateTimeout = 45 * time.Second
	defaultHTTPTimeout     = 45 * time.Second
	defaultStepBudget      = 4
)

// Config holds server and pipeline settings.
type Config struct {
	Addr     string
	DBPath   string
	LogLevel string

	LLM LLMConfig

	// GenerateTimeout bounds each generation call made by a stage.
	GenerateTimeout time.Duration
	// StepBudget caps generation calls per pipeline run.
	StepBudget int
	// RulesPath optionally replaces the built-in consistency rules.
	RulesPath string
}

// LLMConfig selects and configures the text generation provider.
type LLMConfig struct {
	Provider     string
	Model        string
	OpenAIKey    string
	OpenAIBase   string
	AnthropicKey string
	AnthropicURL string
	GoogleKey    string
	GeminiURL    string
	HTTPTimeout  time.Duration
}

// Load reads an optional .env file (or the given files) and then the
// process environment. Missing env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:      defaultAddr,
		DBPath:    getWithDefault("GOALBOT_DB", defaultDBPath),
		LogLevel:  strings.ToLower(getWithDefault("LOG_LEVEL", "info")),
		RulesPath: strings.TrimSpace(os.Getenv("CONSISTENCY_RULES")),
		LLM: LLMConfig{
			Provider:     strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER"))),
			Model:        strings.TrimSpace(os.Getenv("LLM_MODEL")),
			OpenAIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			OpenAIBase:   strings.TrimRight(strings.TrimSpace(os.Getenv("OPENAI_API_BASE")), "/"),
			AnthropicKey: strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
			AnthropicURL: strings.TrimSpace(os.Getenv("ANTHROPIC_API_URL")),
			GoogleKey:    strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
			GeminiURL:    strings.TrimRight(strings.TrimSpace(os.Getenv("GEMINI_API_URL")), "/"),
		},
	}
	if v := strings.TrimSpace(os.Getenv("ADDR")); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.Addr = ":" + v
	}

	var err error
	if cfg.LLM.HTTPTimeout, err = millisFromEnv("LLM_HTTP_TIMEOUT_MS", defaultHTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.GenerateTimeout, err = millisFromEnv("GENERATE_TIMEOUT_MS", defaultGenerateTimeout); err != nil {
		return nil, err
	}
	cfg.StepBudget = defaultStepBudget
	if v := strings.TrimSpace(os.Getenv("PIPELINE_STEP_BUDGET")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("PIPELINE_STEP_BUDGET: %w", err)
		}
		cfg.StepBudget = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.StepBudget <= 0 {
		return fmt.Errorf("step budget must be positive, got %d", c.StepBudget)
	}
	if c.GenerateTimeout <= 0 {
		return fmt.Errorf("generate timeout must be positive, got %s", c.GenerateTimeout)
	}
	if c.LLM.HTTPTimeout <= 0 {
		return fmt.Errorf("llm http timeout must be positive, got %s", c.LLM.HTTPTimeout)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("database path is required")
	}
	return nil
}

func getWithDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func millisFromEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
