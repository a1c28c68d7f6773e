package research

// The tables below are written once at package init and only read after.

var stageOrder = []Stage{
	StageStart,
	StageClarify,
	StageResearch,
	StageAnalyze,
	StageSynthesize,
	StageConclude,
	StageEnd,
}

var transitions = map[Stage]Stage{
	StageStart:      StageClarify,
	StageClarify:    StageResearch,
	StageResearch:   StageAnalyze,
	StageAnalyze:    StageSynthesize,
	StageSynthesize: StageConclude,
	StageConclude:   StageEnd,
}

var substeps = map[Stage][]string{
	StageStart: {
		"Initializing the research assistant.",
		"Setting up the environment.",
	},
	StageClarify: {
		"Analyzing the prompt for specificity.",
		"Generating clarifying questions.",
	},
	StageResearch: {
		"Optimizing query for optimal findings.",
		"Querying medical publications.",
		"Finding relevant research papers for the prompt.",
	},
	StageAnalyze: {
		"Analyzing the fetched research papers.",
		"Extracting key insights and data.",
	},
	StageSynthesize: {
		"Synthesizing information from analysis.",
		"Compiling comprehensive insights.",
	},
	StageConclude: {
		"Formulating the final conclusion based on research.",
		"Ensuring all points are covered comprehensively.",
	},
	StageEnd: {
		"Task completed successfully.",
	},
}

// NextStage returns the successor of s. Unknown stages resolve to End.
func NextStage(s Stage) Stage {
	if next, ok := transitions[s]; ok {
		return next
	}
	return StageEnd
}

// Substeps returns a copy of the progress labels for s.
func Substeps(s Stage) []string {
	return append([]string{}, substeps[s]...)
}

// Stages returns the workflow stages in order.
func Stages() []Stage {
	return append([]Stage(nil), stageOrder...)
}

// IsStage reports whether s is one of the workflow stages.
func IsStage(s Stage) bool {
	_, ok := substeps[s]
	return ok
}
