package pages

import (
	"context"
	"io"

	"sheet-agent/dataset"
	"sheet-agent/web/services"
	"sheet-agent/web/templates/components"

	"github.com/a-h/templ"
)

const Title = "Sheet Agent"

// PageData is everything AnalysisPage needs. Error is a request-level
// failure such as a rejected upload; outcome errors come from View.
type PageData struct {
	View        services.View
	PreviewRows int
	Kind        dataset.Kind
	Error       string
}

// AnalysisPage renders the full upload/ask page for one session.
func AnalysisPage(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		v := data.View
		parts := []templ.Component{components.UploadForm(v.FileName, data.Kind)}

		message, raw := data.Error, ""
		if out := v.Outcome; out != nil && out.Err != nil {
			raw = out.Raw
			if message == "" {
				message = out.Err.Error()
			}
		}
		parts = append(parts, components.ErrorPanel(message, raw))

		if v.State == services.StateSheetPending {
			parts = append(parts, components.SheetSelector(v.Sheets))
		}
		if v.Dataset != nil {
			parts = append(parts, components.DatasetPreview(v.Dataset, data.PreviewRows))
		}
		parts = append(parts, components.QuestionForm(v.Question, v.Dataset != nil))
		if out := v.Outcome; out != nil && out.Err == nil {
			parts = append(parts, components.ResultPanel(out.Result))
		}

		for _, p := range parts {
			if err := p.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
	return components.Layout(Title, body)
}
