package research

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mikeboe/research-assistant/pkg/literature"
)

// Stage is a step of the research workflow.
type Stage string

const (
	StageStart      Stage = "Start"
	StageClarify    Stage = "Clarify"
	StageResearch   Stage = "Research"
	StageAnalyze    Stage = "Analyze"
	StageSynthesize Stage = "Synthesize"
	StageConclude   Stage = "Conclude"
	StageEnd        Stage = "End"

	// StageError is the dead end reported for invalid input. It is not part
	// of the transition table.
	StageError Stage = "Error"
)

// Keys of Task.InputData.
const (
	InputClarifyAnswers = "clarify_answers"
	InputSelectedPapers = "selected_papers"
)

// ErrInvalidTask is returned when the task snapshot cannot be processed.
var ErrInvalidTask = errors.New("invalid task")

// Answer is a yes/no answer. It decodes from a JSON string or boolean.
type Answer string

func (a *Answer) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*a = "Yes"
		} else {
			*a = "No"
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("answer must be a string or boolean: %w", err)
	}
	*a = Answer(strings.TrimSpace(s))
	return nil
}

// QAPair is one answered clarifying question.
type QAPair struct {
	Question string `json:"question"`
	Answer   Answer `json:"answer"`
}

// Task is the caller-held snapshot of a research task. The server keeps no
// copy; callers send the whole snapshot with every request.
type Task struct {
	State           Stage              `json:"state"`
	InputData       map[string]any     `json:"input_data"`
	TaskDescription string             `json:"task_description"`
	ResearchPapers  []literature.Paper `json:"research_papers"`

	// ClarifyingQuestions is echoed by some callers. The engine ignores it.
	ClarifyingQuestions []string `json:"clarifying_questions,omitempty"`
}

// SelectedPapers returns the links in input_data.selected_papers.
func (t Task) SelectedPapers() ([]string, error) {
	var links []string
	if err := t.decodeInput(InputSelectedPapers, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// ClarifyAnswers returns input_data.clarify_answers.
func (t Task) ClarifyAnswers() ([]QAPair, error) {
	var answers []QAPair
	if err := t.decodeInput(InputClarifyAnswers, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// decodeInput converts the loosely typed input_data entry key into dst.
// A missing key leaves dst untouched.
func (t Task) decodeInput(key string, dst any) error {
	raw, ok := t.InputData[key]
	if !ok || raw == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidTask, key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidTask, key, err)
	}
	return nil
}

// Result is the engine's answer for one Advance call.
type Result struct {
	State          Stage              `json:"state"`
	Response       string             `json:"response,omitempty"`
	CurrentSteps   []string           `json:"current_steps"`
	Questions      []string           `json:"questions,omitempty"`
	ResearchPapers []literature.Paper `json:"research_papers,omitempty"`
	Query          string             `json:"query,omitempty"`
	ErrorMessage   string             `json:"error_message,omitempty"`
}
