// Package llm sends prompts to a text-generation model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// FallbackResponse is returned by Complete when the model cannot be reached.
const FallbackResponse = "An error occurred while communicating with the language model."

// FallbackQuestion is the single entry Questions returns on failure.
const FallbackQuestion = "An error occurred while generating questions."

// DefaultSystemPrompt asks for bullet points with a citation per bullet.
const DefaultSystemPrompt = "You are a helpful research assistant. When providing responses, " +
	"please break down key insights into bullet points, and for each bullet point, " +
	"include the associated reference citation (link)."

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("language model returned an empty response")

var listMarker = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s+`)

// Adapter wraps an llms.Model with the prompt conventions of the workflow.
type Adapter struct {
	Model        llms.Model
	SystemPrompt string
	Logger       *slog.Logger
}

// NewAdapter returns an Adapter using DefaultSystemPrompt.
func NewAdapter(model llms.Model, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{Model: model, SystemPrompt: DefaultSystemPrompt, Logger: logger}
}

// Generate sends prompt as a single human turn and returns the trimmed text
// of the first choice.
func (a *Adapter) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return a.generate(ctx, "", prompt, maxTokens)
}

// Complete sends prompt after the system prompt. It never fails: errors are
// logged and FallbackResponse is returned instead.
func (a *Adapter) Complete(ctx context.Context, prompt string, maxTokens int) string {
	content, err := a.generate(ctx, a.SystemPrompt, prompt, maxTokens)
	if err != nil {
		a.Logger.ErrorContext(ctx, "Language model request failed", "error", err)
		return FallbackResponse
	}
	return content
}

func (a *Adapter) generate(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	var opts []llms.CallOption
	if maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(maxTokens))
	}

	a.Logger.DebugContext(ctx, "Sending prompt to language model", "prompt_len", len(prompt), "max_tokens", maxTokens)
	resp, err := a.Model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices: %w", ErrEmptyResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	a.Logger.DebugContext(ctx, "Received response from language model", "length", len(content))
	return content, nil
}

// Questions generates a list with one entry per non-empty line. Numbering
// and bullet markers are removed.
func (a *Adapter) Questions(ctx context.Context, prompt string, maxTokens int) []string {
	content, err := a.Generate(ctx, prompt, maxTokens)
	if err != nil {
		a.Logger.ErrorContext(ctx, "Question generation failed", "error", err)
		return []string{FallbackQuestion}
	}
	return SplitLines(content)
}

// SplitLines splits text into trimmed, non-empty lines without list markers.
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
