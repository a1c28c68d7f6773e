package server

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mikeboe/research-assistant/pkg/literature"
	"github.com/mikeboe/research-assistant/pkg/research"
)

// Workflow advances a task snapshot by one step.
type Workflow interface {
	Advance(ctx context.Context, task research.Task) (*research.Result, error)
}

// Service is the transport-independent surface shared by the REST routes
// and the MCP tools.
type Service struct {
	Workflow   Workflow
	Searcher   research.Searcher
	MaxResults int
	Logger     *slog.Logger
}

func NewService(w Workflow, s research.Searcher, maxResults int, logger *slog.Logger) *Service {
	if maxResults <= 0 {
		maxResults = literature.DefaultMaxResults
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Workflow: w, Searcher: s, MaxResults: maxResults, Logger: logger}
}

func (s *Service) Advance(ctx context.Context, task research.Task) (*research.Result, error) {
	s.Logger.InfoContext(ctx, "Received task", "state", task.State, "description", task.TaskDescription)
	return s.Workflow.Advance(ctx, task)
}

// Search runs a literature search. limit is clamped to [1, MaxResults].
func (s *Service) Search(ctx context.Context, query string, limit int) ([]literature.Paper, error) {
	if limit <= 0 || limit > s.MaxResults {
		limit = s.MaxResults
	}
	s.Logger.InfoContext(ctx, "Searching literature", "query", strings.TrimSpace(query), "limit", limit)
	return s.Searcher.Search(ctx, query, limit)
}

// StageInfo describes one workflow stage.
type StageInfo struct {
	Name     research.Stage `json:"name"`
	Next     research.Stage `json:"next,omitempty"`
	Substeps []string       `json:"substeps"`
}

// WorkflowInfo is the read-only description served on /api/workflow.
type WorkflowInfo struct {
	Stages     []StageInfo    `json:"stages"`
	ErrorStage research.Stage `json:"error_stage"`
}

func (s *Service) Describe() WorkflowInfo {
	info := WorkflowInfo{ErrorStage: research.StageError}
	for _, st := range research.Stages() {
		si := StageInfo{Name: st, Substeps: research.Substeps(st)}
		if st != research.StageEnd {
			si.Next = research.NextStage(st)
		}
		info.Stages = append(info.Stages, si)
	}
	return info
}

// UnexpectedErrorResult is the payload returned for internal failures.
func UnexpectedErrorResult() *research.Result {
	return &research.Result{
		State:        research.StageEnd,
		Response:     "An unexpected error occurred. Please try again later.",
		CurrentSteps: research.Substeps(research.StageEnd),
	}
}
