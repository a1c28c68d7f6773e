package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const refineMaxTokens = 100

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Refiner folds the clarifying answers into a single search query.
type Refiner struct {
	LLM    Generator
	Logger *slog.Logger
}

// Refine asks the model for an optimized query. On failure, or when the
// model returns nothing, the original query is returned unchanged.
func (r *Refiner) Refine(ctx context.Context, original string, answers []QAPair) string {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	prompt := refinePrompt(original, answers)
	logger.InfoContext(ctx, "Enhancing query", "original", original, "answers", len(answers))

	refined, err := r.LLM.Generate(ctx, prompt, refineMaxTokens)
	if err != nil {
		logger.ErrorContext(ctx, "Query refinement failed, using original query", "error", err)
		return original
	}
	refined = strings.TrimSpace(refined)
	if refined == "" {
		return original
	}

	logger.InfoContext(ctx, "Enhanced query", "query", refined)
	return refined
}

func refinePrompt(original string, answers []QAPair) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original research query: %s\n\n", original)
	b.WriteString("Clarifying questions and answers:\n")
	for _, qa := range answers {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", qa.Question, qa.Answer)
	}
	b.WriteString("\nBased on the original query and the answers to the clarifying questions, " +
		"formulate a new, optimized research query. Respond with the query only.")
	return b.String()
}
