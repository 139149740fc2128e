package prompts

import (
	_ "embed"
	"strings"
)

// Embedded prompt files

//go:embed analysis_prefix.txt
var analysisPrefix string

//go:embed agent_system.txt
var agentSystem string

//go:embed format_correction.txt
var formatCorrection string

func AnalysisPrefix() string   { return analysisPrefix }
func AgentSystem() string      { return agentSystem }
func FormatCorrection() string { return strings.TrimSpace(formatCorrection) }

// BuildQuestion prepends the response-shape instructions to a raw user question.
func BuildQuestion(question string) string {
	return strings.TrimRight(analysisPrefix, "\r\n") + question
}

// BuildSystem appends a dataset description to the agent system prompt.
func BuildSystem(datasetSummary string) string {
	return strings.TrimRight(agentSystem, "\r\n") + "\n\n" + datasetSummary
}
