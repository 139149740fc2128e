package prompts

import (
	"strings"
	"testing"
)

func TestBuildQuestionPrefixesTemplate(t *testing.T) {
	got := BuildQuestion("Which product sold most?")

	if !strings.HasSuffix(got, "Current user request: Which product sold most?") {
		t.Errorf("question not appended after the request marker: %q", got[len(got)-60:])
	}
	for _, key := range []string{`{"answer"`, `{"table"`, `{"bar"`, `{"line"`} {
		if !strings.Contains(got, key) {
			t.Errorf("prefix is missing the %s shape", key)
		}
	}
}

func TestBuildSystemAppendsSummary(t *testing.T) {
	got := BuildSystem("columns: a, b")
	if !strings.Contains(got, "`df`") {
		t.Error("system prompt should name the dataframe")
	}
	if !strings.HasSuffix(got, "\n\ncolumns: a, b") {
		t.Errorf("summary not appended: %q", got)
	}
}

func TestFormatCorrectionIsTrimmed(t *testing.T) {
	got := FormatCorrection()
	if got == "" || strings.HasSuffix(got, "\n") {
		t.Errorf("FormatCorrection() = %q", got)
	}
}
