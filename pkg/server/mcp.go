package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mikeboe/research-assistant/pkg/literature"
	"github.com/mikeboe/research-assistant/pkg/research"
)

const (
	mcpServerName    = "research-assistant-mcp"
	mcpServerVersion = "1.0.0"
)

// SearchLiteratureArgs are the arguments of the search_literature tool.
type SearchLiteratureArgs struct {
	Query      string `json:"query" jsonschema:"free-text research question or PubMed query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of papers to return"`
}

// SearchLiteratureResp is serialized into the text content of the result.
type SearchLiteratureResp struct {
	Query  string             `json:"query"`
	Papers []literature.Paper `json:"papers"`
}

// AdvanceTaskArgs mirror the body of POST /solve-task/.
type AdvanceTaskArgs struct {
	State           research.Stage     `json:"state" jsonschema:"current workflow stage, e.g. Start or Analyze"`
	TaskDescription string             `json:"task_description,omitempty" jsonschema:"the user's research question"`
	InputData       map[string]any     `json:"input_data,omitempty" jsonschema:"stage input such as clarify_answers or selected_papers"`
	ResearchPapers  []literature.Paper `json:"research_papers,omitempty" jsonschema:"papers returned by the Research stage"`
}

// NewMCPServer exposes the service as MCP tools.
func NewMCPServer(s *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: mcpServerName, Version: mcpServerVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_literature",
		Description: "Search PubMed for papers matching a research question.",
	}, s.searchLiteratureTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "advance_task",
		Description: "Advance a research task by one workflow stage and return the next state.",
	}, s.advanceTaskTool)

	return server
}

// NewMCPHandler serves NewMCPServer over streamable HTTP.
func NewMCPHandler(s *Service) http.Handler {
	server := NewMCPServer(s)
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
}

func (s *Service) searchLiteratureTool(ctx context.Context, _ *mcp.CallToolRequest, args SearchLiteratureArgs) (*mcp.CallToolResult, any, error) {
	papers, err := s.Search(ctx, args.Query, args.MaxResults)
	if errors.Is(err, literature.ErrNoResults) {
		papers, err = []literature.Paper{}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return textResult(SearchLiteratureResp{Query: args.Query, Papers: papers})
}

func (s *Service) advanceTaskTool(ctx context.Context, _ *mcp.CallToolRequest, args AdvanceTaskArgs) (*mcp.CallToolResult, any, error) {
	res, err := s.Advance(ctx, research.Task{
		State:           args.State,
		TaskDescription: args.TaskDescription,
		InputData:       args.InputData,
		ResearchPapers:  args.ResearchPapers,
	})
	if err != nil {
		return nil, nil, err
	}
	return textResult(res)
}

func textResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
