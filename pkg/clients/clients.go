// Package clients builds the language model used by the research workflow.
package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider names a text-generation backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogleAI  Provider = "googleai"
	// ProviderGemini talks to the Gemini API through google.golang.org/genai
	// instead of the langchaingo wrapper.
	ProviderGemini Provider = "gemini"
)

// ModelType is a provider model identifier.
type ModelType string

const (
	GPT4o         ModelType = "gpt-4o"
	Claude4Sonnet ModelType = "claude-sonnet-4-20250514"
	GeminiFlash   ModelType = "gemini-3-flash-preview"
	GeminiPro     ModelType = "gemini-3-pro-preview"
)

// ErrMissingAPIKey is returned when no credential is configured.
var ErrMissingAPIKey = errors.New("missing API key")

// Options selects and configures a provider.
type Options struct {
	Provider Provider
	Model    string
	APIKey   string
}

// DefaultModel returns the model used when Options.Model is empty.
func DefaultModel(p Provider) ModelType {
	switch p {
	case ProviderAnthropic:
		return Claude4Sonnet
	case ProviderGoogleAI, ProviderGemini:
		return GeminiFlash
	default:
		return GPT4o
	}
}

// ParseProvider normalises a provider name.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return ProviderOpenAI, nil
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogleAI, ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("unknown LLM provider %q", s)
	}
}

// New creates the model for opts.
func New(ctx context.Context, opts Options) (llms.Model, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, opts.Provider)
	}
	model := opts.Model
	if model == "" {
		model = string(DefaultModel(opts.Provider))
	}

	var (
		llm llms.Model
		err error
	)
	switch opts.Provider {
	case ProviderOpenAI, "":
		llm, err = openai.New(openai.WithToken(opts.APIKey), openai.WithModel(model))
	case ProviderAnthropic:
		llm, err = anthropic.New(anthropic.WithToken(opts.APIKey), anthropic.WithModel(model))
	case ProviderGoogleAI:
		// See https://ai.google.dev/gemini-api/docs/models/gemini for possible models
		llm, err = googleai.New(ctx, googleai.WithAPIKey(opts.APIKey), googleai.WithDefaultModel(model))
	case ProviderGemini:
		llm, err = NewGenAIModel(ctx, opts.APIKey, model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", opts.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to init %s model %s: %w", opts.Provider, model, err)
	}
	return llm, nil
}
