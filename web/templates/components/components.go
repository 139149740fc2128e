// Package components holds the HTML fragments of the analysis page.
package components

import (
	"context"
	"fmt"
	"io"
	"strings"

	"sheet-agent/dataset"
	"sheet-agent/web/format"

	"github.com/a-h/templ"
)

// markup is HTML written as is. Only literals convert to it implicitly, so
// dynamic text has to go through text or trusted.
type markup string

// writer collects the first write error so fragments can be emitted
// without checking every call.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) write(s string) {
	if w.err == nil {
		_, w.err = io.WriteString(w.w, s)
	}
}

func (w *writer) raw(m markup) { w.write(string(m)) }

func (w *writer) text(s string) { w.write(templ.EscapeString(s)) }

// trusted writes HTML produced by the format package, which escapes chart
// text and renders markdown without raw HTML or unsafe links.
func (w *writer) trusted(html string) { w.write(html) }

func (w *writer) component(ctx context.Context, c templ.Component) {
	if w.err == nil && c != nil {
		w.err = c.Render(ctx, w.w)
	}
}

func fragment(fn func(ctx context.Context, w *writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		fn(ctx, w)
		return w.err
	})
}

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1d232b}
main{max-width:980px;margin:0 auto;padding:24px}
section{background:#fff;border:1px solid #dde1e6;border-radius:8px;padding:16px 20px;margin-bottom:16px}
h1{font-size:1.4rem}h2{font-size:1.05rem;margin-top:0}
table{border-collapse:collapse;font-size:.9rem;width:100%}
th,td{border:1px solid #dde1e6;padding:4px 8px;text-align:left}
th{background:#f0f2f5}
.scroll{overflow:auto;max-height:420px}
.error{border-color:#e0a1a1;background:#fff6f6}
pre{white-space:pre-wrap;background:#f0f2f5;padding:8px;border-radius:4px}
textarea{width:100%;min-height:72px}
.muted{color:#6b7480;font-size:.85rem}
`

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return fragment(func(ctx context.Context, w *writer) {
		w.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		w.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.raw(`<title>`)
		w.text(title)
		w.raw(`</title><style>` + styles + `</style></head><body><main>`)
		w.raw(`<h1>`)
		w.text(title)
		w.raw(`</h1>`)
		w.component(ctx, body)
		w.raw(`</main></body></html>`)
	})
}

// UploadForm posts one file with its declared type.
func UploadForm(fileName string, kind dataset.Kind) templ.Component {
	return fragment(func(_ context.Context, w *writer) {
		w.raw(`<section id="upload"><h2>Data file</h2>`)
		w.raw(`<form method="post" action="/upload" enctype="multipart/form-data">`)
		w.raw(`<label>Type <select name="file_type">`)
		for _, k := range []dataset.Kind{dataset.KindCSV, dataset.KindExcel} {
			w.raw(`<option value="`)
			w.text(string(k))
			w.raw(`"`)
			if k == kind {
				w.raw(` selected`)
			}
			w.raw(`>`)
			w.text(string(k))
			w.raw(`</option>`)
		}
		w.raw(`</select></label> <input type="file" name="file" accept=".csv,.xlsx" required> `)
		w.raw(`<button type="submit">Upload</button></form>`)
		if fileName != "" {
			w.raw(`<p class="muted">Loaded: `)
			w.text(fileName)
			w.raw(` <form method="post" action="/reset" style="display:inline"><button type="submit">Clear</button></form></p>`)
		}
		w.raw(`</section>`)
	})
}

// SheetSelector lists the sheets of a pending workbook.
func SheetSelector(sheets []string) templ.Component {
	return fragment(func(_ context.Context, w *writer) {
		w.raw(`<section id="sheets"><h2>Choose a sheet</h2><form method="post" action="/sheet"><select name="sheet">`)
		for _, s := range sheets {
			w.raw(`<option value="`)
			w.text(s)
			w.raw(`">`)
			w.text(s)
			w.raw(`</option>`)
		}
		w.raw(`</select> <button type="submit">Load sheet</button></form></section>`)
	})
}

// Table renders a table view.
func Table(tv *format.TableView) templ.Component {
	return fragment(func(_ context.Context, w *writer) {
		w.raw(`<div class="scroll"><table><thead><tr>`)
		for _, c := range tv.Columns {
			w.raw(`<th>`)
			w.text(c)
			w.raw(`</th>`)
		}
		w.raw(`</tr></thead><tbody>`)
		for _, row := range tv.Rows {
			w.raw(`<tr>`)
			for _, cell := range row {
				w.raw(`<td>`)
				w.text(cell)
				w.raw(`</td>`)
			}
			w.raw(`</tr>`)
		}
		w.raw(`</tbody></table></div>`)
	})
}

// DatasetPreview shows the shape and the first rows of ds.
func DatasetPreview(ds *dataset.Dataset, rows int) templ.Component {
	return fragment(func(ctx context.Context, w *writer) {
		head := ds.Head(rows)
		w.raw(`<section id="preview"><h2>Preview</h2><p class="muted">`)
		name := ds.Name
		if ds.Sheet != "" {
			name += " / " + ds.Sheet
		}
		w.text(fmt.Sprintf("%s: %d rows x %d columns", name, ds.NumRows(), ds.NumColumns()))
		if head.NumRows() < ds.NumRows() {
			w.text(fmt.Sprintf(", showing first %d", head.NumRows()))
		}
		w.raw(`</p>`)
		w.component(ctx, Table(format.TableFromStrings(head.Columns, head.Rows)))
		w.raw(`</section>`)
	})
}

// QuestionForm is disabled until a dataset is loaded.
func QuestionForm(question string, enabled bool) templ.Component {
	return fragment(func(_ context.Context, w *writer) {
		var disabled markup
		if !enabled {
			disabled = ` disabled`
		}
		w.raw(`<section id="question"><h2>Question</h2><form method="post" action="/ask">`)
		w.raw(`<textarea name="question" placeholder="Ask something about the data"` + disabled + `>`)
		w.text(question)
		w.raw(`</textarea><p><button type="submit"` + disabled + `>Ask</button></p></form>`)
		if !enabled {
			w.raw(`<p class="muted">Upload a file to ask questions.</p>`)
		}
		w.raw(`</section>`)
	})
}

// ResultPanel renders every branch present in res.
func ResultPanel(res *format.Result) templ.Component {
	return fragment(func(ctx context.Context, w *writer) {
		if res == nil || res.IsEmpty() {
			return
		}
		w.raw(`<section id="result"><h2>Result</h2>`)
		if res.HasAnswer {
			w.raw(`<div class="answer">`)
			w.trusted(res.AnswerHTML)
			w.raw(`</div>`)
		}
		if res.Table != nil {
			w.component(ctx, Table(res.Table))
		}
		for _, c := range []*format.Chart{res.Bar, res.Line} {
			if c == nil {
				continue
			}
			w.raw(`<figure class="chart chart-`)
			w.text(c.Kind)
			w.raw(`">`)
			w.trusted(c.SVG)
			w.raw(`</figure>`)
		}
		w.raw(`</section>`)
	})
}

// ErrorPanel shows message and, when present, the raw model output that
// could not be rendered.
func ErrorPanel(message, raw string) templ.Component {
	return fragment(func(_ context.Context, w *writer) {
		if message == "" {
			return
		}
		w.raw(`<section id="error" class="error"><h2>Something went wrong</h2><p>`)
		w.text(message)
		w.raw(`</p>`)
		if strings.TrimSpace(raw) != "" {
			w.raw(`<details open><summary>Raw response</summary><pre>`)
			w.text(raw)
			w.raw(`</pre></details>`)
		}
		w.raw(`</section>`)
	})
}
