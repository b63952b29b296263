package ui

import "github.com/charmbracelet/lipgloss"

// palette is one colour scheme. Dark is the default until the terminal
// reports otherwise.
type palette struct {
	accent lipgloss.Color
	text   lipgloss.Color
	dim    lipgloss.Color
	warn   lipgloss.Color
	crit   lipgloss.Color
	ok     lipgloss.Color
	panel  lipgloss.Color
	header lipgloss.Color
}

var (
	darkPalette = palette{
		accent: lipgloss.Color("#8BE9FD"),
		text:   lipgloss.Color("#F8F8F2"),
		dim:    lipgloss.Color("#6272A4"),
		warn:   lipgloss.Color("#F1FA8C"),
		crit:   lipgloss.Color("#FF5555"),
		ok:     lipgloss.Color("#50FA7B"),
		panel:  lipgloss.Color("#44475A"),
		header: lipgloss.Color("#FF79C6"),
	}
	lightPalette = palette{
		accent: lipgloss.Color("#0369A1"),
		text:   lipgloss.Color("#1F2937"),
		dim:    lipgloss.Color("#6B7280"),
		warn:   lipgloss.Color("#B45309"),
		crit:   lipgloss.Color("#B91C1C"),
		ok:     lipgloss.Color("#15803D"),
		panel:  lipgloss.Color("#E5E7EB"),
		header: lipgloss.Color("#9D174D"),
	}
)

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	sorted    lipgloss.Style
	label     lipgloss.Style
	value     lipgloss.Style
	dim       lipgloss.Style
	warn      lipgloss.Style
	crit      lipgloss.Style
	ok        lipgloss.Style
	badge     lipgloss.Style
	critBadge lipgloss.Style
	prompt    lipgloss.Style
}

func newStyles(dark bool) styles {
	p := darkPalette
	if !dark {
		p = lightPalette
	}
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		header:    lipgloss.NewStyle().Bold(true).Foreground(p.header),
		sorted:    lipgloss.NewStyle().Bold(true).Underline(true).Foreground(p.accent),
		label:     lipgloss.NewStyle().Foreground(p.dim),
		value:     lipgloss.NewStyle().Foreground(p.text),
		dim:       lipgloss.NewStyle().Foreground(p.dim),
		warn:      lipgloss.NewStyle().Foreground(p.warn).Bold(true),
		crit:      lipgloss.NewStyle().Foreground(p.crit).Bold(true),
		ok:        lipgloss.NewStyle().Foreground(p.ok),
		badge:     lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(p.panel).Foreground(p.warn),
		critBadge: lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(p.crit).Foreground(p.text),
		prompt:    lipgloss.NewStyle().Foreground(p.accent),
	}
}

// pctStyle colours a utilisation percentage.
func (s styles) pctStyle(pct float64) lipgloss.Style {
	switch {
	case pct >= 80:
		return s.crit
	case pct >= 50:
		return s.warn
	default:
		return s.ok
	}
}
