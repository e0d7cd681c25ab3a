package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "ADDR", "GOALBOT_DB", "LLM_PROVIDER", "GENERATE_TIMEOUT_MS", "LLM_HTTP_TIMEOUT_MS", "PIPELINE_STEP_BUDGET"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "data/goalbot.db", cfg.DBPath)
	assert.Equal(t, 4, cfg.StepBudget)
	assert.Equal(t, 45*time.Second, cfg.GenerateTimeout)
	assert.Equal(t, 45*time.Second, cfg.LLM.HTTPTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", " OpenAI ")
	t.Setenv("OPENAI_API_BASE", "http://localhost:1234/")
	t.Setenv("GENERATE_TIMEOUT_MS", "1500")
	t.Setenv("PIPELINE_STEP_BUDGET", "2")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "http://localhost:1234", cfg.LLM.OpenAIBase)
	assert.Equal(t, 1500*time.Millisecond, cfg.GenerateTimeout)
	assert.Equal(t, 2, cfg.StepBudget)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("PIPELINE_STEP_BUDGET", "0")
	_, err := FromEnv()
	require.Error(t, err)

	t.Setenv("PIPELINE_STEP_BUDGET", "")
	t.Setenv("GENERATE_TIMEOUT_MS", "soon")
	_, err = FromEnv()
	require.Error(t, err)
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GOALBOT_TEST_DB=from-file.db\n"), 0o644))
	t.Setenv("GOALBOT_DB", "")
	t.Cleanup(func() { os.Unsetenv("GOALBOT_TEST_DB") })

	_, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", os.Getenv("GOALBOT_TEST_DB"))
}

func TestLoadIgnoresMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
}
