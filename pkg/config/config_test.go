package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-solli/llmflows/pkg/llm"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(envLookup(map[string]string{EnvAPIKey: "sk-test"}))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAIKey)
	assert.Equal(t, llm.DefaultModel, cfg.Model)
	assert.Equal(t, llm.DefaultOpenAIBaseURL, cfg.BaseURL)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Zero(t, cfg.Timeout)
	assert.Empty(t, cfg.TracePath)
	assert.Empty(t, cfg.PushgatewayURL)
}

func TestLoadFrom_MissingKey(t *testing.T) {
	for name, env := range map[string]map[string]string{
		"unset": {},
		"blank": {EnvAPIKey: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(envLookup(env))

			var cfgErr *llm.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
			assert.True(t, errors.Is(err, llm.ErrMissingCredential))
			assert.Contains(t, err.Error(), EnvAPIKey)
		})
	}
}

func TestLoadFrom_EnvironmentOverrides(t *testing.T) {
	cfg, err := LoadFrom(envLookup(map[string]string{
		EnvAPIKey:      "sk-test",
		EnvModel:       "gpt-4o-mini",
		EnvBaseURL:     "http://localhost:11434/v1/",
		EnvTimeout:     "45s",
		EnvLogLevel:    "debug",
		EnvTracePath:   "/tmp/traces.db",
		EnvPushgateway: "http://pushgateway:9091",
	}))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "http://localhost:11434/v1", cfg.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/traces.db", cfg.TracePath)
	assert.Equal(t, "http://pushgateway:9091", cfg.PushgatewayURL)
}

func TestLoadFrom_InvalidTimeout(t *testing.T) {
	_, err := LoadFrom(envLookup(map[string]string{EnvAPIKey: "sk-test", EnvTimeout: "soon"}))

	var cfgErr *llm.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestLoadFrom_InvalidBaseURL(t *testing.T) {
	_, err := LoadFrom(envLookup(map[string]string{EnvAPIKey: "sk-test", EnvBaseURL: "not a url"}))

	var cfgErr *llm.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestLoadFrom_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llmflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model: gpt-4o-mini
base_url: https://proxy.example.com/v1
timeout: 30s
log_level: info
trace_path: traces.jsonl
`), 0o644))

	cfg, err := LoadFrom(envLookup(map[string]string{
		EnvAPIKey:     "sk-test",
		EnvConfigFile: path,
		EnvLogLevel:   "error",
	}))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "https://proxy.example.com/v1", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "error", cfg.LogLevel, "environment overrides the file")
	assert.Equal(t, "traces.jsonl", cfg.TracePath)
}

func TestLoadFrom_ConfigFileCannotSupplyKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llmflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openai_key: sk-from-file\n"), 0o644))

	_, err := LoadFrom(envLookup(map[string]string{EnvConfigFile: path}))

	var cfgErr *llm.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoadFrom_EmptyConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := LoadFrom(envLookup(map[string]string{EnvAPIKey: "sk-test", EnvConfigFile: path}))
	require.NoError(t, err)
	assert.Equal(t, llm.DefaultModel, cfg.Model)
}

func TestLoadFrom_MissingConfigFile(t *testing.T) {
	_, err := LoadFrom(envLookup(map[string]string{
		EnvAPIKey:     "sk-test",
		EnvConfigFile: filepath.Join(t.TempDir(), "missing.yaml"),
	}))

	var cfgErr *llm.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
