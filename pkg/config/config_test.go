package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/research-assistant/pkg/clients"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		KeyLLMProvider, KeyLLMModel, KeyOpenAIAPIKey, KeyAnthropicAPIKey, KeyGoogleAPIKey,
		KeyNCBIAPIKey, KeyNCBIEmail, KeyPort, KeyAllowedOrigins, KeyMaxResults,
		KeyLiteratureTimeout, KeyLogLevel, KeyLogFormat, KeyGinMode,
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyOpenAIAPIKey, "sk-test")

	cfg, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, clients.ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "sk-test", cfg.APIKey())
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000", "https://agentic-ai.netlify.app"}, cfg.AllowedOrigins)
	assert.Equal(t, 20, cfg.MaxResults)
	assert.Zero(t, cfg.LiteratureTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyLLMProvider, "Anthropic")
	t.Setenv(KeyLLMModel, " claude-custom ")
	t.Setenv(KeyAnthropicAPIKey, "ant-key")
	t.Setenv(KeyNCBIAPIKey, "ncbi")
	t.Setenv(KeyNCBIEmail, "dev@example.org")
	t.Setenv(KeyPort, "9000")
	t.Setenv(KeyAllowedOrigins, " https://a.example , ,https://b.example")
	t.Setenv(KeyMaxResults, "5")
	t.Setenv(KeyLiteratureTimeout, "30s")
	t.Setenv(KeyLogFormat, "JSON")

	cfg, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, clients.ProviderAnthropic, cfg.LLMProvider)
	assert.Equal(t, clients.Options{Provider: clients.ProviderAnthropic, Model: "claude-custom", APIKey: "ant-key"}, cfg.LLMOptions())
	assert.Equal(t, "ncbi", cfg.NCBIAPIKey)
	assert.Equal(t, "dev@example.org", cfg.NCBIEmail)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 5, cfg.MaxResults)
	assert.Equal(t, 30*time.Second, cfg.LiteratureTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestLoadUnknownProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyLLMProvider, "llama")

	_, err := Load(NewViper())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAPIKeyPerProvider(t *testing.T) {
	cfg := &Config{OpenAIAPIKey: "o", AnthropicAPIKey: "a", GoogleAPIKey: "g"}

	tests := []struct {
		provider clients.Provider
		want     string
	}{
		{clients.ProviderOpenAI, "o"},
		{clients.ProviderAnthropic, "a"},
		{clients.ProviderGoogleAI, "g"},
		{clients.ProviderGemini, "g"},
	}
	for _, tt := range tests {
		cfg.LLMProvider = tt.provider
		assert.Equal(t, tt.want, cfg.APIKey(), tt.provider)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLMProvider:  clients.ProviderOpenAI,
			OpenAIAPIKey: "k",
			MaxResults:   20,
			LogLevel:     "info",
			LogFormat:    "text",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"Missing key", func(c *Config) { c.OpenAIAPIKey = "" }, "no API key set for provider openai"},
		{"Wrong provider key", func(c *Config) { c.LLMProvider = clients.ProviderGemini }, "no API key set for provider gemini"},
		{"Zero results", func(c *Config) { c.MaxResults = 0 }, "MAX_RESULTS must be between"},
		{"Too many results", func(c *Config) { c.MaxResults = 10001 }, "MAX_RESULTS must be between"},
		{"Negative timeout", func(c *Config) { c.LiteratureTimeout = -time.Second }, "LITERATURE_TIMEOUT"},
		{"Bad level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"Bad format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"Bad gin mode", func(c *Config) { c.GinMode = "verbose" }, "GIN_MODE"},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{LogLevel: "warn", LogFormat: "json"}
	logger := slog.New(cfg.LogHandler(&buf))

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"value"`)
}
