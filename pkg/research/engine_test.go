package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/research-assistant/pkg/literature"
	"github.com/mikeboe/research-assistant/pkg/llm"
	"github.com/mikeboe/research-assistant/pkg/llm/llmtest"
)

type fakeSearcher struct {
	papers []literature.Paper
	err    error

	queries    []string
	maxResults int
}

func (f *fakeSearcher) Search(_ context.Context, query string, maxResults int) ([]literature.Paper, error) {
	f.queries = append(f.queries, query)
	f.maxResults = maxResults
	if f.err != nil {
		return nil, f.err
	}
	return f.papers, nil
}

func paper(n int) literature.Paper {
	return literature.Paper{
		Title:         fmt.Sprintf("Paper %d", n),
		Link:          fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%d/", n),
		Authors:       []literature.Author{{Name: "Doe Jane"}},
		PublishedDate: "2023-Jan-05",
	}
}

func longText(words int) string {
	return strings.TrimSpace(strings.Repeat("insight ", words))
}

func newTestEngine(model *llmtest.Model, searcher Searcher) *Engine {
	if searcher == nil {
		searcher = &fakeSearcher{}
	}
	return NewEngine(Config{}, llm.NewAdapter(model, nil), searcher, nil)
}

func TestAdvanceStart(t *testing.T) {
	model := llmtest.New()
	e := newTestEngine(model, nil)

	res, err := e.Advance(context.Background(), Task{State: StageStart, TaskDescription: "vitamin D"})
	require.NoError(t, err)

	assert.Equal(t, StageClarify, res.State)
	assert.Equal(t, msgStart, res.Response)
	assert.Equal(t, Substeps(StageStart), res.CurrentSteps)
	assert.Empty(t, model.Calls())
}

func TestAdvanceUnknownStage(t *testing.T) {
	for _, s := range []Stage{"Init", "", "End", StageError} {
		t.Run(string(s), func(t *testing.T) {
			res, err := newTestEngine(llmtest.New(), nil).Advance(context.Background(), Task{State: s})
			require.NoError(t, err)
			assert.Equal(t, StageEnd, res.State)
			assert.Equal(t, msgTaskCompleted, res.Response)
			assert.Equal(t, []string{"Task completed successfully."}, res.CurrentSteps)
		})
	}
}

func TestAdvanceClarify(t *testing.T) {
	model := llmtest.New("1. Are you focused on adults?\n2. Is bone density the outcome?\n\n3. Only randomized trials?")
	e := newTestEngine(model, nil)

	res, err := e.Advance(context.Background(), Task{State: StageClarify, TaskDescription: "vitamin D and bones"})
	require.NoError(t, err)

	assert.Equal(t, StageClarify, res.State)
	assert.Equal(t, []string{
		"Are you focused on adults?",
		"Is bone density the outcome?",
		"Only randomized trials?",
	}, res.Questions)

	calls := model.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "'vitamin D and bones'")
	assert.Equal(t, clarifyMaxTokens, calls[0].MaxTokens)
}

func TestAdvanceClarifyFallback(t *testing.T) {
	e := newTestEngine(llmtest.Failing(errors.New("quota")), nil)

	res, err := e.Advance(context.Background(), Task{State: StageClarify, TaskDescription: "omega 3"})
	require.NoError(t, err)
	assert.Equal(t, []string{llm.FallbackQuestion}, res.Questions)
}

func TestAdvanceMissingDescription(t *testing.T) {
	for _, s := range []Stage{StageClarify, StageResearch} {
		_, err := newTestEngine(llmtest.New("x"), nil).Advance(context.Background(), Task{State: s, TaskDescription: "  "})
		assert.ErrorIs(t, err, ErrInvalidTask, s)
	}
}

func TestAdvanceResearch(t *testing.T) {
	model := llmtest.New("vitamin D bone density elderly")
	searcher := &fakeSearcher{papers: []literature.Paper{paper(1), paper(2)}}
	e := newTestEngine(model, searcher)

	task := Task{
		State:           StageResearch,
		TaskDescription: "vitamin D",
		InputData: map[string]any{
			InputClarifyAnswers: []any{
				map[string]any{"question": "Elderly?", "answer": true},
				map[string]any{"question": "Supplements?", "answer": "No"},
			},
		},
	}
	res, err := e.Advance(context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, StageResearch, res.State)
	assert.Equal(t, "vitamin D bone density elderly", res.Query)
	assert.Equal(t, []literature.Paper{paper(1), paper(2)}, res.ResearchPapers)
	assert.Equal(t, Substeps(StageResearch), res.CurrentSteps)

	assert.Equal(t, []string{"vitamin D bone density elderly"}, searcher.queries)
	assert.Equal(t, 20, searcher.maxResults)

	prompt := model.Calls()[0].Prompt
	assert.Contains(t, prompt, "Original research query: vitamin D")
	assert.Contains(t, prompt, "Q: Elderly?\nA: Yes\n")
	assert.Contains(t, prompt, "Q: Supplements?\nA: No\n")
}

func TestAdvanceResearchWithoutAnswers(t *testing.T) {
	searcher := &fakeSearcher{papers: []literature.Paper{paper(1)}}
	e := newTestEngine(llmtest.Failing(errors.New("down")), searcher)

	res, err := e.Advance(context.Background(), Task{State: StageResearch, TaskDescription: "zinc and immunity"})
	require.NoError(t, err)
	assert.Equal(t, "zinc and immunity", res.Query)
	assert.Equal(t, []string{"zinc and immunity"}, searcher.queries)
}

func TestAdvanceResearchNoResults(t *testing.T) {
	searcher := &fakeSearcher{err: literature.ErrNoResults}
	e := newTestEngine(llmtest.New("q"), searcher)

	res, err := e.Advance(context.Background(), Task{State: StageResearch, TaskDescription: "nothing"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, literature.ErrNoResults)
}

func TestAdvanceResearchUpstreamFailure(t *testing.T) {
	searcher := &fakeSearcher{err: &literature.UpstreamError{Endpoint: "esearch", StatusCode: 503}}
	e := newTestEngine(llmtest.New("q"), searcher)

	res, err := e.Advance(context.Background(), Task{State: StageResearch, TaskDescription: "iron"})
	require.NoError(t, err)
	assert.Equal(t, StageResearch, res.State)
	assert.NotNil(t, res.ResearchPapers)
	assert.Empty(t, res.ResearchPapers)
	assert.Equal(t, msgSearchFailed, res.Response)
}

func TestAdvanceResearchEmptyQuery(t *testing.T) {
	searcher := &fakeSearcher{err: literature.ErrEmptyQuery}
	_, err := newTestEngine(llmtest.New("q"), searcher).Advance(context.Background(), Task{State: StageResearch, TaskDescription: "\"\""})
	assert.ErrorIs(t, err, ErrInvalidTask)
}

func TestAdvanceContentStages(t *testing.T) {
	papers := []literature.Paper{paper(1), paper(2), paper(3)}
	selected := []any{paper(1).Link, paper(3).Link}

	tests := []struct {
		stage Stage
		next  Stage
		instr string
	}{
		{StageAnalyze, StageSynthesize, "Provide an analysis"},
		{StageSynthesize, StageConclude, "Synthesize the information"},
		{StageConclude, StageEnd, "comprehensive conclusion"},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			reply := longText(60)
			model := llmtest.New(reply)
			task := Task{
				State:           tt.stage,
				TaskDescription: "magnesium and sleep",
				InputData:       map[string]any{InputSelectedPapers: selected},
				ResearchPapers:  papers,
			}

			res, err := newTestEngine(model, nil).Advance(context.Background(), task)
			require.NoError(t, err)

			assert.Equal(t, tt.next, res.State)
			assert.Equal(t, reply, res.Response)
			assert.Empty(t, res.ErrorMessage)
			assert.Equal(t, Substeps(tt.stage), res.CurrentSteps)

			call := model.Calls()[0]
			assert.Equal(t, llm.DefaultSystemPrompt, call.System)
			assert.Equal(t, contentMaxTokens, call.MaxTokens)
			assert.Contains(t, call.Prompt, "Current State: "+string(tt.stage))
			assert.Contains(t, call.Prompt, "- Paper 1 (https://pubmed.ncbi.nlm.nih.gov/1/)")
			assert.Contains(t, call.Prompt, "- Paper 3 (https://pubmed.ncbi.nlm.nih.gov/3/)")
			assert.NotContains(t, call.Prompt, "Paper 2")
			assert.Contains(t, call.Prompt, tt.instr)

			// caller's snapshot is untouched
			assert.Len(t, task.ResearchPapers, 3)
		})
	}
}

func TestAdvanceContentRejections(t *testing.T) {
	papers := []literature.Paper{paper(1), paper(2)}

	tests := []struct {
		name     string
		stage    Stage
		selected any
		papers   []literature.Paper
		reply    string
		want     string
	}{
		{"Nothing selected", StageAnalyze, []any{}, nil, longText(60), MsgNoSelection},
		{"Selection missing", StageSynthesize, nil, nil, longText(60), MsgNoSelection},
		{"Unknown links", StageConclude, []any{"https://example.org/x"}, nil, longText(60), MsgNotFound},
		{"Single paper for analysis", StageAnalyze, []any{paper(1).Link}, nil, longText(60), MsgNotEnough},
		{"Opaque link for analysis", StageAnalyze, []any{"linkA"}, []literature.Paper{{Link: "linkA"}}, longText(60), MsgNotEnough},
		{"Same paper sent twice", StageAnalyze, []any{paper(1).Link}, []literature.Paper{paper(1), paper(1)}, longText(60), MsgNotEnough},
		{"Short analysis", StageAnalyze, []any{paper(1).Link, paper(2).Link}, nil, longText(49), MsgInconclusive},
		{"Short synthesis", StageSynthesize, []any{paper(1).Link}, nil, "Too short.", MsgInconclusive},
		{"Short conclusion", StageConclude, []any{paper(2).Link}, nil, longText(10), MsgInconclusive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := Task{
				State:          tt.stage,
				InputData:      map[string]any{},
				ResearchPapers: papers,
			}
			if tt.papers != nil {
				task.ResearchPapers = tt.papers
			}
			if tt.selected != nil {
				task.InputData[InputSelectedPapers] = tt.selected
			}

			res, err := newTestEngine(llmtest.New(tt.reply), nil).Advance(context.Background(), task)
			require.NoError(t, err)
			assert.Equal(t, StageError, res.State)
			assert.Equal(t, tt.want, res.ErrorMessage)
			assert.NotNil(t, res.CurrentSteps)
		})
	}
}

func TestAdvanceOpaqueLinks(t *testing.T) {
	model := llmtest.New(longText(60))
	task := Task{
		State:           StageAnalyze,
		TaskDescription: "sleep",
		InputData:       map[string]any{InputSelectedPapers: []string{"linkA", "linkB"}},
		ResearchPapers:  []literature.Paper{{Title: "A", Link: "linkA"}, {Link: "linkB"}},
	}

	res, err := newTestEngine(model, nil).Advance(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, StageSynthesize, res.State)
	assert.Contains(t, model.Calls()[0].Prompt, "- A (linkA)")
	assert.Contains(t, model.Calls()[0].Prompt, " (linkB)")
}

func TestAdvanceContentModelFailure(t *testing.T) {
	task := Task{
		State:          StageAnalyze,
		InputData:      map[string]any{InputSelectedPapers: []string{paper(1).Link, paper(2).Link}},
		ResearchPapers: []literature.Paper{paper(1), paper(2)},
	}

	res, err := newTestEngine(llmtest.Failing(errors.New("unauthorized")), nil).Advance(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, StageError, res.State)
	assert.Equal(t, MsgInconclusive, res.ErrorMessage)
}

func TestAdvanceMalformedInput(t *testing.T) {
	e := newTestEngine(llmtest.New(longText(60)), nil)

	_, err := e.Advance(context.Background(), Task{
		State:     StageAnalyze,
		InputData: map[string]any{InputSelectedPapers: "https://pubmed.ncbi.nlm.nih.gov/1/"},
	})
	assert.ErrorIs(t, err, ErrInvalidTask)

	_, err = e.Advance(context.Background(), Task{
		State:           StageResearch,
		TaskDescription: "x",
		InputData:       map[string]any{InputClarifyAnswers: []any{map[string]any{"question": "q", "answer": 3}}},
	})
	assert.ErrorIs(t, err, ErrInvalidTask)
}

func TestNewEngineDefaults(t *testing.T) {
	e := NewEngine(Config{MaxResults: -1}, llm.NewAdapter(llmtest.New(), nil), &fakeSearcher{}, nil)
	assert.Equal(t, DefaultConfig(), e.cfg)

	e = NewEngine(Config{MaxResults: 5, MinResponseWords: 3}, llm.NewAdapter(llmtest.New(), nil), &fakeSearcher{}, nil)
	assert.Equal(t, Config{MaxResults: 5, MinResponseWords: 3}, e.cfg)
}
