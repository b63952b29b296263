package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/ftahirops/killa/model"
)

// keyMap lists every binding the table view understands. Plain characters
// are not bound: they always go to the search phrase.
type keyMap struct {
	Back      key.Binding
	Confirm   key.Binding
	Backspace key.Binding
	Search    key.Binding
	FreezeOn  key.Binding
	FreezeOff key.Binding
	Freeze    key.Binding
	SortCPU   key.Binding
	SortMem   key.Binding
	SortPID   key.Binding
	SortStart key.Binding
	SortTime  key.Binding
	Term      key.Binding
	Kill      key.Binding
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Confirm:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Backspace: key.NewBinding(key.WithKeys("backspace"), key.WithHelp("bksp", "delete char")),
		Search:    key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "search box")),
		FreezeOn:  key.NewBinding(key.WithKeys("ctrl+j"), key.WithHelp("ctrl+j", "freeze")),
		FreezeOff: key.NewBinding(key.WithKeys("alt+j"), key.WithHelp("alt+j", "unfreeze")),
		Freeze:    key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "toggle freeze")),
		SortCPU:   key.NewBinding(key.WithKeys("alt+1"), key.WithHelp("alt+1", "sort cpu")),
		SortMem:   key.NewBinding(key.WithKeys("alt+2"), key.WithHelp("alt+2", "sort mem")),
		SortPID:   key.NewBinding(key.WithKeys("alt+3"), key.WithHelp("alt+3", "sort pid")),
		SortStart: key.NewBinding(key.WithKeys("alt+4"), key.WithHelp("alt+4", "sort started")),
		SortTime:  key.NewBinding(key.WithKeys("alt+5"), key.WithHelp("alt+5", "sort cpu time")),
		Term:      key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "stage SIGTERM")),
		Kill:      key.NewBinding(key.WithKeys("alt+k"), key.WithHelp("alt+k", "stage SIGKILL")),
		Up:        key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "scroll up")),
		Down:      key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "scroll down")),
		PageUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		Help:      key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
		Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// sortColumn returns the column a sort binding selects.
func (k keyMap) sortColumn(msgKey string) (model.Column, bool) {
	switch msgKey {
	case k.SortCPU.Keys()[0]:
		return model.ColumnCPU, true
	case k.SortMem.Keys()[0]:
		return model.ColumnMemory, true
	case k.SortPID.Keys()[0]:
		return model.ColumnPID, true
	case k.SortStart.Keys()[0]:
		return model.ColumnStarted, true
	case k.SortTime.Keys()[0]:
		return model.ColumnCPUTime, true
	}
	return 0, false
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Freeze, k.Term, k.Kill, k.Confirm, k.Back, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.Backspace, k.Back, k.Confirm},
		{k.FreezeOn, k.FreezeOff, k.Freeze},
		{k.SortCPU, k.SortMem, k.SortPID, k.SortStart, k.SortTime},
		{k.Term, k.Kill, k.Up, k.Down, k.PageUp, k.PageDown, k.Help, k.Quit},
	}
}
