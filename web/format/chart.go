package format

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"math"

	"sheet-agent/envelope"

	chart "github.com/wcharczuk/go-chart/v2"
)

// ErrNotPlottable is returned when a frame has no numeric column to plot.
var ErrNotPlottable = errors.New("no numeric column to plot")

const (
	chartWidth  = 720
	chartHeight = 400
)

// escapingRenderer escapes text bodies, which go-chart's SVG canvas writes
// verbatim. Layout still measures and wraps the unescaped text.
type escapingRenderer struct {
	chart.Renderer
}

func (r escapingRenderer) Text(body string, x, y int) {
	r.Renderer.Text(html.EscapeString(body), x, y)
}

func escapedSVG(width, height int) (chart.Renderer, error) {
	r, err := chart.SVG(width, height)
	if err != nil {
		return nil, err
	}
	return escapingRenderer{r}, nil
}

// series is one numeric column keyed by category labels.
type series struct {
	name   string
	values []float64
}

// plotData holds category labels and one series per numeric column.
type plotData struct {
	labels []string
	series []series
}

// splitFrame picks labels and series from f. The first non-numeric column
// becomes the labels and every numeric column a series. A single row with
// no label column is read sideways: each column is one category.
func splitFrame(f *envelope.Frame) (*plotData, error) {
	labelCol := -1
	var numeric []int
	for i := range f.Columns {
		if isNumericColumn(f.Column(i)) {
			numeric = append(numeric, i)
		} else if labelCol == -1 {
			labelCol = i
		}
	}
	if len(numeric) == 0 || f.NumRows() == 0 {
		return nil, ErrNotPlottable
	}

	if labelCol == -1 && f.NumRows() == 1 {
		s := series{name: "value", values: make([]float64, len(f.Columns))}
		for i, v := range f.Rows[0] {
			s.values[i], _ = envelope.Float(v)
		}
		return &plotData{labels: f.Columns, series: []series{s}}, nil
	}

	pd := &plotData{labels: make([]string, f.NumRows())}
	for r, row := range f.Rows {
		if labelCol >= 0 {
			pd.labels[r] = envelope.Text(row[labelCol])
		} else {
			pd.labels[r] = fmt.Sprint(r)
		}
	}
	for _, c := range numeric {
		s := series{name: f.Columns[c], values: make([]float64, f.NumRows())}
		for r, row := range f.Rows {
			s.values[r], _ = envelope.Float(row[c])
		}
		pd.series = append(pd.series, s)
	}
	return pd, nil
}

// isNumericColumn is true when every non-null cell is a number and at least
// one cell is present.
func isNumericColumn(values []any) bool {
	seen := false
	for _, v := range values {
		if v == nil {
			continue
		}
		if _, ok := v.(bool); ok {
			return false
		}
		if _, ok := envelope.Float(v); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// yRange spans zero and every value, never collapsing to a point.
func (pd *plotData) yRange() *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, s := range pd.series {
		for _, v := range s.values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi <= lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

// BarChartSVG renders f as a bar chart. Several numeric columns are stacked.
func BarChartSVG(f *envelope.Frame) (string, error) {
	pd, err := splitFrame(f)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if len(pd.series) == 1 {
		bars := make([]chart.Value, len(pd.labels))
		for i, label := range pd.labels {
			bars[i] = chart.Value{Label: label, Value: pd.series[0].values[i]}
		}
		graph := chart.BarChart{
			Width:      chartWidth,
			Height:     chartHeight,
			BarWidth:   barWidth(len(bars)),
			Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
			YAxis:      chart.YAxis{Range: pd.yRange()},
			Bars:       bars,
		}
		if err := graph.Render(escapedSVG, &buf); err != nil {
			return "", fmt.Errorf("render bar chart: %w", err)
		}
		return buf.String(), nil
	}

	stacks := make([]chart.StackedBar, len(pd.labels))
	for i, label := range pd.labels {
		values := make([]chart.Value, len(pd.series))
		for j, s := range pd.series {
			values[j] = chart.Value{Label: s.name, Value: s.values[i]}
		}
		stacks[i] = chart.StackedBar{Name: label, Values: values}
	}
	graph := chart.StackedBarChart{
		Width:      chartWidth,
		Height:     chartHeight,
		BarSpacing: 24,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		Bars:       stacks,
	}
	if err := graph.Render(escapedSVG, &buf); err != nil {
		return "", fmt.Errorf("render stacked bar chart: %w", err)
	}
	return buf.String(), nil
}

func barWidth(n int) int {
	w := (chartWidth - 80) / max(n, 1) * 2 / 3
	return min(max(w, 4), 80)
}

// LineChartSVG renders f as a line chart with one line per numeric column
// over the row order.
func LineChartSVG(f *envelope.Frame) (string, error) {
	pd, err := splitFrame(f)
	if err != nil {
		return "", err
	}

	xs := make([]float64, len(pd.labels))
	ticks := make([]chart.Tick, len(pd.labels))
	for i, label := range pd.labels {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: label}
	}
	// Ticks set the x range, and go-chart rejects a zero-width one.
	if len(xs) == 1 {
		xs = append(xs, 1)
		ticks = append(ticks, chart.Tick{Value: 1})
	}

	lines := make([]chart.Series, 0, len(pd.series))
	for _, s := range pd.series {
		ys := s.values
		if len(ys) == 1 {
			ys = []float64{ys[0], ys[0]}
		}
		lines = append(lines, chart.ContinuousSeries{Name: s.name, XValues: xs, YValues: ys})
	}

	graph := chart.Chart{
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Ticks: ticks},
		YAxis:      chart.YAxis{Range: pd.yRange()},
		Series:     lines,
	}
	if len(lines) > 1 {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}

	var buf bytes.Buffer
	if err := graph.Render(escapedSVG, &buf); err != nil {
		return "", fmt.Errorf("render line chart: %w", err)
	}
	return buf.String(), nil
}
