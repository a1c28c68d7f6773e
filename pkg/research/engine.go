// Package research drives the staged literature-research workflow.
//
// The engine is stateless: every call to Advance receives the complete task
// snapshot from the caller and returns the next stage together with the data
// the caller needs to continue.
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mikeboe/research-assistant/pkg/literature"
)

// User-facing messages of the Error pseudo-stage.
const (
	MsgNoSelection   = "No papers have been selected for analysis."
	MsgNotFound      = "The selected papers could not be found in the fetched research papers."
	MsgNotEnough     = "There is not enough information to conclude. Please select at least two research papers."
	MsgInconclusive  = "The analysis was inconclusive. Please refine your research question or select different papers."
	msgStart         = "Analyzing your prompt to generate clarifying questions."
	msgQuestions     = "Please answer the following questions to refine your research query:"
	msgPapers        = "Research papers fetched. Please select the papers you want to include and click 'Proceed with Selected Papers'."
	msgSearchFailed  = "The literature search is currently unavailable. Please try again later."
	msgTaskCompleted = "Task completed."
)

const (
	clarifyMaxTokens = 250
	contentMaxTokens = 1000
)

// Completer is the language-model surface the engine needs.
type Completer interface {
	Generator
	Complete(ctx context.Context, prompt string, maxTokens int) string
	Questions(ctx context.Context, prompt string, maxTokens int) []string
}

// Searcher finds papers for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]literature.Paper, error)
}

// Config tunes the engine.
type Config struct {
	// MaxResults caps the papers requested from the Searcher.
	MaxResults int
	// MinResponseWords is the conclusiveness threshold for generated text.
	MinResponseWords int
}

// DefaultConfig returns the standard engine settings.
func DefaultConfig() Config {
	return Config{MaxResults: literature.DefaultMaxResults, MinResponseWords: 50}
}

type stageHandler func(ctx context.Context, task Task) (*Result, error)

// Engine advances tasks through the workflow.
type Engine struct {
	cfg      Config
	llm      Completer
	searcher Searcher
	refiner  *Refiner
	logger   *slog.Logger
	handlers map[Stage]stageHandler
}

// NewEngine wires an Engine. Zero config fields take their defaults.
func NewEngine(cfg Config, llm Completer, searcher Searcher, logger *slog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.MinResponseWords <= 0 {
		cfg.MinResponseWords = def.MinResponseWords
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		cfg:      cfg,
		llm:      llm,
		searcher: searcher,
		refiner:  &Refiner{LLM: llm, Logger: logger},
		logger:   logger,
	}
	e.handlers = map[Stage]stageHandler{
		StageStart:      e.start,
		StageClarify:    e.clarify,
		StageResearch:   e.research,
		StageAnalyze:    e.content,
		StageSynthesize: e.content,
		StageConclude:   e.content,
	}
	return e
}

// Advance processes one step of task and returns the result for the caller.
//
// Errors are reserved for conditions the caller must handle outside the
// workflow: ErrInvalidTask for malformed input and literature.ErrNoResults
// when the search matched nothing. Everything else is reported in the Result.
func (e *Engine) Advance(ctx context.Context, task Task) (*Result, error) {
	e.logger.InfoContext(ctx, "Advancing task", "state", task.State, "papers", len(task.ResearchPapers))

	handler, ok := e.handlers[task.State]
	if !ok {
		e.logger.WarnContext(ctx, "Unknown state, ending task", "state", task.State)
		return e.transition(ctx, task.State, &Result{
			State:        StageEnd,
			Response:     msgTaskCompleted,
			CurrentSteps: Substeps(StageEnd),
		}), nil
	}

	res, err := handler(ctx, task)
	if err != nil {
		return nil, err
	}
	return e.transition(ctx, task.State, res), nil
}

func (e *Engine) transition(ctx context.Context, from Stage, res *Result) *Result {
	if res.CurrentSteps == nil {
		res.CurrentSteps = []string{}
	}
	if res.State == StageError {
		e.logger.WarnContext(ctx, "Task rejected", "from", from, "to", res.State, "reason", res.ErrorMessage)
	} else {
		e.logger.InfoContext(ctx, "Transitioning", "from", from, "to", res.State)
	}
	return res
}

func (e *Engine) start(_ context.Context, task Task) (*Result, error) {
	return &Result{
		State:        NextStage(task.State),
		Response:     msgStart,
		CurrentSteps: Substeps(task.State),
	}, nil
}

func (e *Engine) clarify(ctx context.Context, task Task) (*Result, error) {
	if strings.TrimSpace(task.TaskDescription) == "" {
		return nil, fmt.Errorf("%w: task_description is required", ErrInvalidTask)
	}

	questions := e.llm.Questions(ctx, clarifyPrompt(task.TaskDescription), clarifyMaxTokens)
	e.logger.InfoContext(ctx, "Generated clarifying questions", "count", len(questions))

	return &Result{
		State:        StageClarify,
		Response:     msgQuestions,
		Questions:    questions,
		CurrentSteps: Substeps(StageClarify),
	}, nil
}

func (e *Engine) research(ctx context.Context, task Task) (*Result, error) {
	if strings.TrimSpace(task.TaskDescription) == "" {
		return nil, fmt.Errorf("%w: task_description is required", ErrInvalidTask)
	}
	answers, err := task.ClarifyAnswers()
	if err != nil {
		return nil, err
	}

	query := e.refiner.Refine(ctx, task.TaskDescription, answers)
	papers, err := e.searcher.Search(ctx, query, e.cfg.MaxResults)
	switch {
	case errors.Is(err, literature.ErrNoResults):
		return nil, fmt.Errorf("research %q: %w", query, err)
	case errors.Is(err, literature.ErrEmptyQuery):
		return nil, fmt.Errorf("%w: %v", ErrInvalidTask, err)
	case err != nil:
		e.logger.ErrorContext(ctx, "Literature search failed", "query", query, "error", err)
		return &Result{
			State:          StageResearch,
			Response:       msgSearchFailed,
			Query:          query,
			ResearchPapers: []literature.Paper{},
			CurrentSteps:   Substeps(StageResearch),
		}, nil
	}

	e.logger.InfoContext(ctx, "Fetched research papers", "count", len(papers))
	return &Result{
		State:          StageResearch,
		Response:       msgPapers,
		Query:          query,
		ResearchPapers: papers,
		CurrentSteps:   Substeps(StageResearch),
	}, nil
}

func (e *Engine) content(ctx context.Context, task Task) (*Result, error) {
	links, err := task.SelectedPapers()
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return e.reject(task.State, MsgNoSelection), nil
	}

	papers := literature.FilterByLinks(task.ResearchPapers, links)
	switch {
	case len(papers) == 0:
		return e.reject(task.State, MsgNotFound), nil
	case task.State == StageAnalyze && len(papers) < 2:
		return e.reject(task.State, MsgNotEnough), nil
	}

	e.logger.InfoContext(ctx, "Using selected research papers", "state", task.State, "count", len(papers))
	e.logger.DebugContext(ctx, "Selected links", "links", literature.Links(papers))
	for _, step := range substeps[task.State] {
		e.logger.DebugContext(ctx, "Step", "state", task.State, "step", step)
	}

	response := e.llm.Complete(ctx, contentPrompt(task.State, task.TaskDescription, papers), contentMaxTokens)
	if words := len(strings.Fields(response)); words < e.cfg.MinResponseWords {
		e.logger.WarnContext(ctx, "Generated response too short", "state", task.State, "words", words)
		return e.reject(task.State, MsgInconclusive), nil
	}

	return &Result{
		State:        NextStage(task.State),
		Response:     response,
		CurrentSteps: Substeps(task.State),
	}, nil
}

func (e *Engine) reject(stage Stage, msg string) *Result {
	return &Result{
		State:        StageError,
		ErrorMessage: msg,
		CurrentSteps: Substeps(stage),
	}
}
