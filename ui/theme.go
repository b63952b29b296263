package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
)

// appearanceMsg reports the terminal background.
type appearanceMsg struct {
	dark bool
}

// DetectDarkBackground queries the terminal for its background colour. It
// reads the reply from the tty, so it must run before the program starts
// reading input.
func DetectDarkBackground() bool {
	return termenv.HasDarkBackground()
}

func appearance(dark bool) tea.Cmd {
	return func() tea.Msg { return appearanceMsg{dark: dark} }
}
