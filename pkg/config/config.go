// Package config loads runtime settings from the environment.
//
// Values are read from an optional .env file, then from process environment
// variables through viper. Command-line flags may be bound to the same keys.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mikeboe/research-assistant/pkg/clients"
)

// Environment keys.
const (
	KeyLLMProvider       = "LLM_PROVIDER"
	KeyLLMModel          = "LLM_MODEL"
	KeyOpenAIAPIKey      = "OPENAI_API_KEY"
	KeyAnthropicAPIKey   = "ANTHROPIC_API_KEY"
	KeyGoogleAPIKey      = "GOOGLE_API_KEY"
	KeyNCBIAPIKey        = "NCBI_API_KEY"
	KeyNCBIEmail         = "NCBI_EMAIL"
	KeyPort              = "PORT"
	KeyAllowedOrigins    = "ALLOWED_ORIGINS"
	KeyMaxResults        = "MAX_RESULTS"
	KeyLiteratureTimeout = "LITERATURE_TIMEOUT"
	KeyLogLevel          = "LOG_LEVEL"
	KeyLogFormat         = "LOG_FORMAT"
	KeyGinMode           = "GIN_MODE"
)

// DefaultAllowedOrigins are the browser origins accepted by the HTTP server.
const DefaultAllowedOrigins = "http://localhost:3000,https://agentic-ai.netlify.app"

// maxRetMax is the largest page size E-utilities accepts.
const maxRetMax = 10000

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

type Config struct {
	LLMProvider     clients.Provider
	LLMModel        string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string

	NCBIAPIKey string
	NCBIEmail  string

	Port           string
	AllowedOrigins []string
	GinMode        string

	MaxResults        int
	LiteratureTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// LoadDotEnv reads .env from the working directory when present.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Could not read .env file", "error", err)
	}
}

// NewViper returns a viper instance reading the environment with defaults
// for every optional key.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(KeyLLMProvider, string(clients.ProviderOpenAI))
	v.SetDefault(KeyPort, "8081")
	v.SetDefault(KeyAllowedOrigins, DefaultAllowedOrigins)
	v.SetDefault(KeyMaxResults, 20)
	v.SetDefault(KeyLiteratureTimeout, time.Duration(0))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyGinMode, "release")
	return v
}

// Load builds a Config from v.
func Load(v *viper.Viper) (*Config, error) {
	provider, err := clients.ParseProvider(v.GetString(KeyLLMProvider))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &Config{
		LLMProvider:       provider,
		LLMModel:          strings.TrimSpace(v.GetString(KeyLLMModel)),
		OpenAIAPIKey:      v.GetString(KeyOpenAIAPIKey),
		AnthropicAPIKey:   v.GetString(KeyAnthropicAPIKey),
		GoogleAPIKey:      v.GetString(KeyGoogleAPIKey),
		NCBIAPIKey:        v.GetString(KeyNCBIAPIKey),
		NCBIEmail:         v.GetString(KeyNCBIEmail),
		Port:              v.GetString(KeyPort),
		AllowedOrigins:    splitList(v.GetString(KeyAllowedOrigins)),
		GinMode:           v.GetString(KeyGinMode),
		MaxResults:        v.GetInt(KeyMaxResults),
		LiteratureTimeout: v.GetDuration(KeyLiteratureTimeout),
		LogLevel:          v.GetString(KeyLogLevel),
		LogFormat:         strings.ToLower(v.GetString(KeyLogFormat)),
	}, nil
}

// APIKey returns the credential of the selected provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case clients.ProviderAnthropic:
		return c.AnthropicAPIKey
	case clients.ProviderGoogleAI, clients.ProviderGemini:
		return c.GoogleAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// LLMOptions returns the client options for the selected provider.
func (c *Config) LLMOptions() clients.Options {
	return clients.Options{Provider: c.LLMProvider, Model: c.LLMModel, APIKey: c.APIKey()}
}

// Validate checks the settings needed to serve requests.
func (c *Config) Validate() error {
	var errs []error
	if c.APIKey() == "" {
		errs = append(errs, fmt.Errorf("no API key set for provider %s", c.LLMProvider))
	}
	if c.MaxResults < 1 || c.MaxResults > maxRetMax {
		errs = append(errs, fmt.Errorf("%s must be between 1 and %d, got %d", KeyMaxResults, maxRetMax, c.MaxResults))
	}
	if c.LiteratureTimeout < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyLiteratureTimeout))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("%s must be text or json, got %q", KeyLogFormat, c.LogFormat))
	}
	switch c.GinMode {
	case "", "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("%s must be debug, release or test, got %q", KeyGinMode, c.GinMode))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// LogHandler returns the slog handler selected by LOG_FORMAT and LOG_LEVEL.
func (c *Config) LogHandler(w io.Writer) slog.Handler {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	return level, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
