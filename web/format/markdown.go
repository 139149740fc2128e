package format

import (
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var numberedListItem = regexp.MustCompile(`^\d+\.\s`)

// MarkdownToHTML renders answer text. Raw HTML is dropped, links with an
// unsafe scheme render as plain text, and quotes and dashes are kept as
// written.
func MarkdownToHTML(text string) string {
	text = normalizeMarkdownLists(text)
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.SkipHTML | html.Safelink | html.HrefTargetBlank,
	})
	return strings.TrimSpace(string(markdown.ToHTML([]byte(text), p, r)))
}

func isListItem(line string) bool {
	return strings.HasPrefix(line, "- ") ||
		strings.HasPrefix(line, "* ") ||
		strings.HasPrefix(line, "+ ") ||
		numberedListItem.MatchString(line)
}

// normalizeMarkdownLists ensures list items have proper spacing for markdown parsing.
// Markdown requires a blank line before lists, but LLMs often forget this.
func normalizeMarkdownLists(text string) string {
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))
	for i, line := range lines {
		if i > 0 && isListItem(strings.TrimSpace(line)) {
			prev := strings.TrimSpace(lines[i-1])
			if prev != "" && !isListItem(prev) {
				result = append(result, "")
			}
		}
		result = append(result, line)
	}
	return strings.Join(result, "\n")
}
