package format

import (
	"fmt"

	"sheet-agent/envelope"
)

// Chart is one rendered chart branch.
type Chart struct {
	Kind string
	SVG  string
}

// Result holds the renderings of every branch present in an envelope.
type Result struct {
	HasAnswer  bool
	Answer     string
	AnswerHTML string
	Table      *TableView
	Bar        *Chart
	Line       *Chart
}

// IsEmpty reports whether nothing was rendered.
func (r *Result) IsEmpty() bool {
	return !r.HasAnswer && r.Table == nil && r.Bar == nil && r.Line == nil
}

// Outputs counts the rendered branches.
func (r *Result) Outputs() int {
	n := 0
	if r.HasAnswer {
		n++
	}
	for _, present := range []bool{r.Table != nil, r.Bar != nil, r.Line != nil} {
		if present {
			n++
		}
	}
	return n
}

// Render builds a Result from env, rendering each present branch.
func Render(env *envelope.Envelope) (*Result, error) {
	res := &Result{}
	if env.Answer != nil {
		res.HasAnswer = true
		res.Answer = *env.Answer
		res.AnswerHTML = MarkdownToHTML(*env.Answer)
	}

	if env.Table != nil {
		f, err := env.Table.Frame(envelope.KeyTable)
		if err != nil {
			return nil, err
		}
		res.Table = TableFromFrame(f)
	}

	charts := []struct {
		key    string
		branch *envelope.Branch
		draw   func(*envelope.Frame) (string, error)
		dst    **Chart
	}{
		{envelope.KeyBar, env.Bar, BarChartSVG, &res.Bar},
		{envelope.KeyLine, env.Line, LineChartSVG, &res.Line},
	}
	for _, c := range charts {
		if c.branch == nil {
			continue
		}
		f, err := c.branch.Frame(c.key)
		if err != nil {
			return nil, err
		}
		svg, err := c.draw(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.key, err)
		}
		*c.dst = &Chart{Kind: c.key, SVG: svg}
	}
	return res, nil
}
