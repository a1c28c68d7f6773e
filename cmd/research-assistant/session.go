package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/mikeboe/research-assistant/pkg/literature"
	"github.com/mikeboe/research-assistant/pkg/research"
)

var errAborted = errors.New("research aborted")

type advancer interface {
	Advance(ctx context.Context, task research.Task) (*research.Result, error)
}

// session drives one task from Start to End on a terminal, sending the same
// snapshots an HTTP caller would.
type session struct {
	engine    advancer
	in        *bufio.Reader
	out       io.Writer
	selection string
}

func newSession(engine advancer, in io.Reader, out io.Writer, selection string) *session {
	return &session{engine: engine, in: bufio.NewReader(in), out: out, selection: selection}
}

func (s *session) run(ctx context.Context, topic string) error {
	task := research.Task{
		State:           research.StageStart,
		TaskDescription: topic,
		InputData:       map[string]any{},
	}

	for {
		res, err := s.engine.Advance(ctx, task)
		if errors.Is(err, literature.ErrNoResults) {
			fmt.Fprintln(s.out, "No research papers found for this topic.")
			return err
		}
		if err != nil {
			return err
		}
		s.printResult(task.State, res)

		switch {
		case res.State == research.StageError:
			return fmt.Errorf("%s: %s", task.State, res.ErrorMessage)

		case res.State == research.StageEnd:
			return nil

		case res.State == research.StageClarify && len(res.Questions) > 0:
			answers, err := s.askQuestions(res.Questions)
			if err != nil {
				return err
			}
			task.InputData[research.InputClarifyAnswers] = answers
			task.State = research.NextStage(research.StageClarify)

		case res.State == research.StageResearch:
			if len(res.ResearchPapers) == 0 {
				return fmt.Errorf("%w: no papers to choose from", errAborted)
			}
			links, err := s.choosePapers(res.ResearchPapers)
			if err != nil {
				return err
			}
			task.ResearchPapers = res.ResearchPapers
			task.InputData[research.InputSelectedPapers] = links
			task.State = research.NextStage(research.StageResearch)

		default:
			task.State = res.State
		}
	}
}

func (s *session) printResult(from research.Stage, res *research.Result) {
	fmt.Fprintf(s.out, "\n== %s -> %s ==\n", from, res.State)
	for _, step := range res.CurrentSteps {
		fmt.Fprintf(s.out, "  * %s\n", step)
	}
	if res.Query != "" {
		fmt.Fprintf(s.out, "Query: %s\n", res.Query)
	}
	if res.Response != "" {
		fmt.Fprintf(s.out, "\n%s\n", res.Response)
	}
	if res.ErrorMessage != "" {
		fmt.Fprintf(s.out, "\nError: %s\n", res.ErrorMessage)
	}
}

func (s *session) askQuestions(questions []string) ([]research.QAPair, error) {
	answers := make([]research.QAPair, 0, len(questions))
	for _, q := range questions {
		for {
			fmt.Fprintf(s.out, "%s [y/n]: ", q)
			line, err := s.readLine()
			if err != nil {
				return nil, err
			}
			if a, ok := parseAnswer(line); ok {
				answers = append(answers, research.QAPair{Question: q, Answer: a})
				break
			}
			fmt.Fprintln(s.out, "Please answer y or n.")
		}
	}
	return answers, nil
}

func (s *session) choosePapers(papers []literature.Paper) ([]string, error) {
	for i, p := range papers {
		fmt.Fprintf(s.out, "%2d. %s (%s)\n    %s\n", i+1, p.Title, p.PublishedDate, p.Link)
	}

	input := s.selection
	for {
		if input == "" {
			fmt.Fprint(s.out, "Select papers (e.g. 1,3,5 or all): ")
			line, err := s.readLine()
			if err != nil {
				return nil, err
			}
			input = line
		}

		idx, err := parseSelection(input, len(papers))
		if err == nil {
			links := make([]string, 0, len(idx))
			for _, i := range idx {
				links = append(links, papers[i].Link)
			}
			return links, nil
		}
		if s.selection != "" {
			return nil, err
		}
		fmt.Fprintln(s.out, err)
		input = ""
	}
}

func (s *session) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", errAborted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func parseAnswer(s string) (research.Answer, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return "Yes", true
	case "n", "no":
		return "No", true
	}
	return "", false
}

// parseSelection turns "all" or a list of 1-based numbers and ranges such as
// "1,3-5" into sorted, unique 0-based indexes below n.
func parseSelection(s string, n int) ([]int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}

	seen := make(map[int]bool)
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q", part)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(hi); err != nil {
				return nil, fmt.Errorf("invalid selection %q", part)
			}
		}
		if first < 1 || last > n || first > last {
			return nil, fmt.Errorf("selection %q out of range 1-%d", part, n)
		}
		for i := first; i <= last; i++ {
			seen[i-1] = true
		}
	}
	if len(seen) == 0 {
		return nil, errors.New("no papers selected")
	}

	idx := make([]int, 0, len(seen))
	for i := range seen {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx, nil
}
