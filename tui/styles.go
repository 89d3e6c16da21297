package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	tab       lipgloss.Style
	tabActive lipgloss.Style
	tabHover  lipgloss.Style
	card      lipgloss.Style
	cardTitle lipgloss.Style
	label     lipgloss.Style
	value     lipgloss.Style
	cursor    lipgloss.Style
	dragging  lipgloss.Style
	dropHere  lipgloss.Style
	muted     lipgloss.Style
	status    lipgloss.Style
	errorText lipgloss.Style
	debug     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	navy := lipgloss.Color("#1d3b6f")
	accent := lipgloss.Color("#2f80ed")
	return styles{
		title:     r.NewStyle().Bold(true).Foreground(accent),
		tab:       r.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()),
		tabActive: r.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(navy).Background(navy).Foreground(lipgloss.Color("#ffffff")),
		tabHover:  r.NewStyle().Padding(0, 1).Border(lipgloss.DoubleBorder()).BorderForeground(accent),
		card:      r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		cardTitle: r.NewStyle().Bold(true),
		label:     r.NewStyle().Width(22),
		value:     r.NewStyle(),
		cursor:    r.NewStyle().Foreground(accent).Bold(true),
		dragging:  r.NewStyle().Faint(true).Italic(true),
		dropHere:  r.NewStyle().Foreground(accent),
		muted:     r.NewStyle().Faint(true),
		status:    r.NewStyle().Foreground(lipgloss.Color("#2e7d32")),
		errorText: r.NewStyle().Foreground(lipgloss.Color("#b00020")),
		debug:     r.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
	}
}
