package research

import (
	"fmt"
	"strings"

	"github.com/mikeboe/research-assistant/pkg/literature"
)

var stageInstructions = map[Stage]string{
	StageAnalyze:    "Provide an analysis based on the above research papers.",
	StageSynthesize: "Synthesize the information from the above research papers.",
	StageConclude: "\nBased on the above research, please provide a comprehensive conclusion.\n" +
		"Break down the key insights into bullet points, and for each bullet point, " +
		"include the associated reference citation (link). " +
		"Do NOT use any other information other than the research papers in question. " +
		"If no information is found to answer the question, please respond with " +
		"'No information found in the research papers provided.'",
}

func clarifyPrompt(description string) string {
	return "You are a research assistant for nutrition and medical literature. " +
		"Ask 3 to 5 critical follow-up questions that can be answered with 'Yes' or 'No' " +
		"to make the user's research prompt more specific. Ensure that the questions are strictly " +
		"yes/no and won't require further elaboration. Put each question on its own line. " +
		fmt.Sprintf("The user's prompt is: '%s'", description)
}

func contentPrompt(stage Stage, description string, papers []literature.Paper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task Description: %s\n", description)
	fmt.Fprintf(&b, "Current State: %s\n", stage)
	b.WriteString("Research Papers:\n")
	for _, p := range papers {
		fmt.Fprintf(&b, "- %s (%s)\n", p.Title, p.Link)
	}
	b.WriteString(stageInstructions[stage])
	return b.String()
}
