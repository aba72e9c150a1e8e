package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "data/messages.csv", cfg.Paths.InputCSV)
	assert.Equal(t, "data/conversations.json", cfg.Paths.Store)
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.Gemini.Model)
	assert.Equal(t, 8192, cfg.AI.Gemini.MaxTokens)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.CallTimeout)
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	assert.NoError(t, Validate(cfg))
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supportloop.toml")
	content := `
[paths]
input_csv = "custom/messages.csv"

[ai.gemini]
api_key = "test-key"
temperature = 0.4

[pipeline]
call_timeout = "30s"
evaluate = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "custom/messages.csv", cfg.Paths.InputCSV)
	assert.Equal(t, "data/conversations.json", cfg.Paths.Store, "unset keys keep defaults")
	assert.Equal(t, "test-key", cfg.AI.Gemini.APIKey)
	assert.InDelta(t, 0.4, cfg.AI.Gemini.Temperature, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.CallTimeout)
	assert.True(t, cfg.Pipeline.Evaluate)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SUPPORTLOOP_AI__GEMINI__API_KEY", "env-key")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.AI.Gemini.APIKey)
}

func TestInitConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supportloop.toml")
	require.NoError(t, InitConfig(path))

	// A second init must not clobber the existing file.
	assert.Error(t, InitConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.NoError(t, Validate(cfg))
	assert.Equal(t, "your-gemini-api-key", cfg.AI.Gemini.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	cfg.Paths.InputCSV = ""
	assert.Error(t, Validate(cfg))

	cfg, _ = LoadConfig("")
	cfg.AI.Gemini.Temperature = 3.5
	assert.Error(t, Validate(cfg))

	cfg, _ = LoadConfig("")
	cfg.Pipeline.MaxRetries = -1
	assert.Error(t, Validate(cfg))
}
