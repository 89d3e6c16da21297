package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
)

// markdownRenderer renders analysis text, rebuilding the glamour renderer
// when the wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
	built    int
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{width: 60}
}

func (r *markdownRenderer) setWidth(width int) {
	if width > 0 {
		r.width = width
	}
}

func (r *markdownRenderer) render(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if r.renderer == nil || r.built != r.width {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(r.width),
		)
		if err != nil {
			return wordwrap.String(text, r.width)
		}
		r.renderer, r.built = renderer, r.width
	}
	out, err := r.renderer.Render(text)
	if err != nil {
		return wordwrap.String(text, r.width)
	}
	return strings.Trim(out, "\n")
}
