package components

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"sheet-agent/dataset"
	"sheet-agent/envelope"
	"sheet-agent/web/format"

	"github.com/a-h/templ"
)

const hostile = `<img src=x onerror=alert(1)>"&`

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestFragmentsEscapeText(t *testing.T) {
	tests := []struct {
		name string
		c    templ.Component
	}{
		{"layout title", Layout(hostile, nil)},
		{"upload file name", UploadForm(hostile, dataset.KindCSV)},
		{"sheet names", SheetSelector([]string{hostile})},
		{"table", Table(format.TableFromStrings([]string{hostile}, [][]string{{hostile}}))},
		{"question", QuestionForm(hostile, true)},
		{"error panel", ErrorPanel(hostile, hostile)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(t, tt.c)
			if strings.Contains(out, "<img") {
				t.Errorf("unescaped markup in output:\n%s", out)
			}
			if !strings.Contains(out, "&lt;img src=x onerror=alert(1)&gt;") {
				t.Errorf("escaped text missing from output:\n%s", out)
			}
		})
	}
}

func TestResultPanelEscapesModelOutput(t *testing.T) {
	env, err := envelope.Decode(`{"answer":"See [x](javascript:alert(1)) <script>alert(2)</script>",` +
		`"table":{"columns":["dept"],"data":[["<script>alert(3)</script>"]]},` +
		`"bar":{"columns":["dept","sales"],"data":[["<img src=x onerror=alert(4)>",10],["R&D",5]]}}`)
	if err != nil {
		t.Fatal(err)
	}
	res, err := format.Render(env)
	if err != nil {
		t.Fatal(err)
	}

	out := render(t, ResultPanel(res))
	for _, bad := range []string{"<script>", "<img", `href="javascript:`} {
		if strings.Contains(out, bad) {
			t.Errorf("result panel contains %q:\n%s", bad, out)
		}
	}
	for _, want := range []string{`<figure class="chart chart-bar">`, "<svg", "R&amp;D"} {
		if !strings.Contains(out, want) {
			t.Errorf("result panel missing %q", want)
		}
	}
}

func TestQuestionFormDisabled(t *testing.T) {
	out := render(t, QuestionForm("", false))
	if !strings.Contains(out, `<textarea name="question" placeholder="Ask something about the data" disabled>`) {
		t.Errorf("textarea not disabled:\n%s", out)
	}
	if !strings.Contains(out, "Upload a file to ask questions.") {
		t.Error("hint missing")
	}
}
