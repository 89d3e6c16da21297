package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"pkt.systems/tabforge/schema"
)

const (
	labelWidth = 20
	valueWidth = 40
)

// View renders the model.
func (m *Model) View() string {
	if !m.ready {
		return m.styles.card.Render("Loading...\nPlease wait while the interface loads.")
	}

	var sections []string
	sections = append(sections, m.styles.title.Render("tabforge"))
	sections = append(sections, m.viewTabs())
	sections = append(sections, m.viewFields())
	if m.edit != editNone {
		sections = append(sections, m.viewEditor())
	}
	if line := m.viewStatus(); line != "" {
		sections = append(sections, line)
	}
	if m.showDebug {
		sections = append(sections, m.styles.debug.Render(m.debug.View()))
	}
	sections = append(sections, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) viewTabs() string {
	current := m.ws.Mapper.CurrentTab()
	over := m.ws.Mapper.DragOverTab()
	tabs := m.ws.Store.Tabs()
	buttons := make([]string, 0, len(tabs))
	for i, tab := range tabs {
		label := string(tab.Name)
		if i < 9 {
			label = fmt.Sprintf("%d %s", i+1, label)
		}
		style := m.styles.tab
		switch {
		case tab.ID == over:
			style = m.styles.tabHover
		case tab.ID == current:
			style = m.styles.tabActive
		}
		buttons = append(buttons, style.Render(label))
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
	if m.width > 0 && lipgloss.Width(bar) > m.width {
		return wordwrap.String(bar, m.width)
	}
	return bar
}

func (m *Model) viewFields() string {
	current := m.ws.Mapper.CurrentTab()
	active := m.ws.Mapper.ActiveID()
	var title string
	for _, tab := range m.ws.Store.Tabs() {
		if tab.ID == current {
			title = string(tab.Name)
			break
		}
	}

	var b strings.Builder
	b.WriteString(m.styles.cardTitle.Render(title))
	b.WriteByte('\n')
	fields := m.ws.Mapper.CurrentFields()
	if len(fields) == 0 {
		b.WriteString(m.styles.muted.Render("No fields. Drop a field here."))
	}
	for i, field := range fields {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.viewField(i, field, active))
	}
	return m.styles.card.Render(b.String())
}

func (m *Model) viewField(i int, field schema.Field, active schema.FieldID) string {
	marker := "  "
	if active == "" && i == m.cursor {
		marker = m.styles.cursor.Render("> ")
	}
	label := truncate.StringWithTail(field.Label, labelWidth, "…")
	line := marker + "⋮⋮ " + m.styles.label.Render(label) + m.viewValue(field)

	switch {
	case field.ID == active:
		line = m.styles.dragging.Render(line + "  [dragging]")
	case active != "" && i == m.hoverField:
		line += m.styles.dropHere.Render("  ◂ drop here")
	}

	if field.Type != schema.FieldFile {
		return line
	}
	if m.analyzing[field.ID] {
		return line + "\n      " + m.spinner.View() + " Analyzing image..."
	}
	result, ok := m.results[field.ID]
	if !ok {
		return line
	}
	if !result.OK() {
		return line + "\n      " + m.styles.errorText.Render(wordwrap.String(result.Err, max(m.width-10, 20)))
	}
	rendered := m.markdown.render(result.Analysis)
	if rendered == "" {
		return line
	}
	return line + "\n" + indent(rendered, "      ")
}

func (m *Model) viewValue(field schema.Field) string {
	switch {
	case field.Type == schema.FieldFile && field.Value == "":
		return m.styles.muted.Render("(no file)")
	case field.Value == "":
		return m.styles.muted.Render("(empty)")
	case field.Type == schema.FieldPassword:
		return m.styles.value.Render(strings.Repeat("•", min(len([]rune(field.Value)), valueWidth)))
	}
	return m.styles.value.Render(truncate.StringWithTail(field.Value, valueWidth, "…"))
}

func (m *Model) viewEditor() string {
	field, _ := m.ws.Store.FindField(m.editField)
	title := "Edit " + field.Label
	if m.edit == editFile {
		title = "Image for " + field.Label
	}
	return m.styles.card.Render(m.styles.cardTitle.Render(title) + "\n" + m.input.View())
}

func (m *Model) viewStatus() string {
	var parts []string
	if m.status != "" {
		if m.statusErr {
			parts = append(parts, m.styles.errorText.Render(m.status))
		} else {
			parts = append(parts, m.styles.status.Render(m.status))
		}
	}
	if m.lastEvent != "" {
		parts = append(parts, m.styles.muted.Render("last event: "+m.lastEvent))
	}
	return strings.Join(parts, "  ")
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
