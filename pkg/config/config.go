// Package config resolves workflow configuration once at process start
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dan-solli/llmflows/pkg/llm"
	"github.com/dan-solli/llmflows/pkg/logging"
)

// Environment variables read by Load
const (
	EnvAPIKey      = "OPENAI_API_KEY"
	EnvModel       = "OPENAI_MODEL"
	EnvBaseURL     = "OPENAI_BASE_URL"
	EnvTimeout     = "OPENAI_TIMEOUT"
	EnvLogLevel    = "LOG_LEVEL"
	EnvConfigFile  = "LLMFLOWS_CONFIG"
	EnvTracePath   = "LLMFLOWS_TRACE_PATH"
	EnvPushgateway = "LLMFLOWS_PUSHGATEWAY_URL"
)

// Config holds configuration for the workflows
type Config struct {
	// OpenAIKey is only ever read from the environment
	OpenAIKey string `yaml:"-"`

	// Model for both flows (default: "gpt-4o")
	Model string `yaml:"model"`

	// BaseURL of the Chat Completions API (default: OpenAI)
	BaseURL string `yaml:"base_url"`

	// Timeout per request; zero leaves the transport default in place
	Timeout time.Duration `yaml:"timeout"`

	// LogLevel for the stderr logger (default: "warn")
	LogLevel string `yaml:"log_level"`

	// TracePath enables trace export when set (.db/.sqlite selects SQLite)
	TracePath string `yaml:"trace_path"`

	// PushgatewayURL enables metrics push when set
	PushgatewayURL string `yaml:"pushgateway_url"`
}

// Load reads configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads configuration using lookup in place of os.LookupEnv. An
// optional YAML file named by LLMFLOWS_CONFIG is applied first; environment
// variables override it.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	cfg := Config{
		Model:    llm.DefaultModel,
		BaseURL:  llm.DefaultOpenAIBaseURL,
		LogLevel: logging.DefaultLevel,
	}

	if path, ok := lookup(EnvConfigFile); ok && path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	setString := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setString(&cfg.Model, EnvModel)
	setString(&cfg.BaseURL, EnvBaseURL)
	setString(&cfg.LogLevel, EnvLogLevel)
	setString(&cfg.TracePath, EnvTracePath)
	setString(&cfg.PushgatewayURL, EnvPushgateway)

	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return Config{}, &llm.ConfigurationError{Message: EnvTimeout + " is not a valid duration", Err: err}
		}
		cfg.Timeout = d
	}

	if v, ok := lookup(EnvAPIKey); ok {
		cfg.OpenAIKey = strings.TrimSpace(v)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &llm.ConfigurationError{Message: "reading config file " + path, Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return &llm.ConfigurationError{Message: "parsing config file " + path, Err: err}
	}
	return nil
}

// Validate reports the first unusable setting as *llm.ConfigurationError.
func (c Config) Validate() error {
	if c.OpenAIKey == "" {
		return &llm.ConfigurationError{Message: EnvAPIKey + " is not set", Err: llm.ErrMissingCredential}
	}
	if c.Model == "" {
		return &llm.ConfigurationError{Message: "model must not be empty"}
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return &llm.ConfigurationError{Message: fmt.Sprintf("base URL %q must be an absolute URL", c.BaseURL)}
	}
	if c.Timeout < 0 {
		return &llm.ConfigurationError{Message: "timeout must not be negative"}
	}
	return nil
}
