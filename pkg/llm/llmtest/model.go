// Package llmtest provides a scripted llms.Model for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// Call records one GenerateContent invocation.
type Call struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Model answers GenerateContent with the next scripted reply, or with Err
// when set. When the script runs out the last reply is repeated.
type Model struct {
	Replies []string
	Err     error

	mu    sync.Mutex
	calls []Call
}

var _ llms.Model = (*Model)(nil)

// New returns a Model that answers with replies in order.
func New(replies ...string) *Model {
	return &Model{Replies: replies}
}

// Failing returns a Model whose every call fails with err.
func Failing(err error) *Model {
	return &Model{Err: err}
}

func (m *Model) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}

	call := Call{MaxTokens: opts.MaxTokens}
	for _, msg := range messages {
		text := textOf(msg)
		if msg.Role == llms.ChatMessageTypeSystem {
			call.System = text
		} else {
			call.Prompt = text
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Replies) == 0 {
		return &llms.ContentResponse{}, nil
	}
	i := len(m.calls) - 1
	if i >= len(m.Replies) {
		i = len(m.Replies) - 1
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.Replies[i]}}}, nil
}

func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Calls returns the recorded invocations.
func (m *Model) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func textOf(msg llms.MessageContent) string {
	var parts []string
	for _, p := range msg.Parts {
		if tc, ok := p.(llms.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
