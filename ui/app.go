package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/ftahirops/killa/engine"
	"github.com/ftahirops/killa/model"
	"golang.org/x/sys/unix"
)

// Feed is the read side of the collector bridge.
type Feed interface {
	Poll() (*model.RawSnapshot, engine.PollResult)
	Err() error
}

// Options tunes the model.
type Options struct {
	// PollInterval is how often the feed is polled. It is independent of
	// the collection interval.
	PollInterval time.Duration
	// Dark is the terminal background detected before start-up.
	Dark bool
	// StageSignal and ForceSignal are staged by the two signal keys.
	// Zero means SIGTERM and SIGKILL.
	StageSignal unix.Signal
	ForceSignal unix.Signal
}

type pollMsg time.Time

// Model is the bubbletea model.
type Model struct {
	feed         Feed
	pipe         *engine.Pipeline
	pollInterval time.Duration
	dark         bool
	stageSig     unix.Signal
	forceSig     unix.Signal

	keys   keyMap
	help   help.Model
	search textinput.Model
	st     styles

	width  int
	height int
	scroll int

	showHelp bool
	now      func() time.Time
}

// NewModel wires a feed to a pipeline.
func NewModel(feed Feed, pipe *engine.Pipeline, opts Options) Model {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	if opts.StageSignal == 0 {
		opts.StageSignal = unix.SIGTERM
	}
	if opts.ForceSignal == 0 {
		opts.ForceSignal = unix.SIGKILL
	}
	keys := defaultKeyMap()
	keys.Term.SetHelp("ctrl+k", "stage "+engine.SignalName(opts.StageSignal))
	keys.Kill.SetHelp("alt+k", "stage "+engine.SignalName(opts.ForceSignal))

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "name, pid:123, cmd:python, -name:kworker"
	ti.Focus()

	st := newStyles(opts.Dark)
	ti.PromptStyle = st.prompt

	return Model{
		feed:         feed,
		pipe:         pipe,
		pollInterval: opts.PollInterval,
		dark:         opts.Dark,
		stageSig:     opts.StageSignal,
		forceSig:     opts.ForceSignal,
		keys:         keys,
		help:         help.New(),
		search:       ti,
		st:           st,
		now:          time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(poll(m.pollInterval), appearance(m.dark))
}

func poll(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return pollMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.search.Width = msg.Width - 4
		return m, nil

	case appearanceMsg:
		m.pipe.SetAppearance(msg.dark)
		m.st = newStyles(msg.dark)
		m.search.PromptStyle = m.st.prompt
		return m, nil

	case pollMsg:
		if !m.drain() {
			return m, nil
		}
		return m, poll(m.pollInterval)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// drain applies whatever the feed holds. It returns false once the stream
// has ended.
func (m *Model) drain() bool {
	for {
		raw, res := m.feed.Poll()
		switch res {
		case engine.PollSnapshot:
			m.pipe.Ingest(raw)
		case engine.PollEnded:
			m.pipe.Disconnect(m.feed.Err())
			return false
		default:
			return true
		}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		m.pipe.Back()
	case key.Matches(msg, m.keys.Confirm):
		if m.pipe.Confirm() != nil {
			m.scroll = 0
		}
	case key.Matches(msg, m.keys.Backspace):
		m.pipe.PopSearch()
	case key.Matches(msg, m.keys.Search):
		m.pipe.ToggleSearch()
	case key.Matches(msg, m.keys.FreezeOn):
		m.pipe.SetFreeze(true)
	case key.Matches(msg, m.keys.FreezeOff):
		m.pipe.SetFreeze(false)
	case key.Matches(msg, m.keys.Freeze):
		m.pipe.ToggleFreeze()
	case key.Matches(msg, m.keys.Term):
		m.pipe.StageSignal(m.stageSig)
	case key.Matches(msg, m.keys.Kill):
		m.pipe.StageSignal(m.forceSig)
	case key.Matches(msg, m.keys.Up):
		m.scroll--
	case key.Matches(msg, m.keys.Down):
		m.scroll++
	case key.Matches(msg, m.keys.PageUp):
		m.scroll -= m.tableHeight()
	case key.Matches(msg, m.keys.PageDown):
		m.scroll += m.tableHeight()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	default:
		if col, ok := m.keys.sortColumn(msg.String()); ok {
			m.pipe.SetSortColumn(col)
			m.scroll = 0
			break
		}
		if text := searchText(msg); text != "" {
			m.pipe.AppendSearch(text)
			m.scroll = 0
		}
	}
	m.clampScroll()
	m.syncSearch()
	return m, nil
}

// searchText returns the printable text a key press contributes, if any.
func searchText(msg tea.KeyMsg) string {
	if msg.Alt {
		return ""
	}
	switch msg.Type {
	case tea.KeyRunes:
		return string(msg.Runes)
	case tea.KeySpace:
		return " "
	}
	return ""
}

func (m *Model) syncSearch() {
	if m.search.Value() != m.pipe.Search() {
		m.search.SetValue(m.pipe.Search())
		m.search.CursorEnd()
	}
}

// tableHeight is the number of data rows that fit on screen.
func (m Model) tableHeight() int {
	h := m.height - 4 // title, table header, status, help
	if m.pipe.SearchVisible() {
		h--
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) clampScroll() {
	maxScroll := len(m.pipe.Rows()) - m.tableHeight()
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}
	if m.width == 0 {
		return "Loading..."
	}
	if m.pipe.Live() == nil {
		if down, err := m.pipe.Disconnected(); down {
			return m.renderDisconnected(err)
		}
		return "Collecting first sample..."
	}

	var sb strings.Builder
	sb.WriteString(m.renderTitle())
	sb.WriteByte('\n')
	if m.pipe.SearchVisible() {
		sb.WriteString(m.renderSearch())
		sb.WriteByte('\n')
	}
	sb.WriteString(renderTableHeader(m.st, m.pipe.Sort(), m.width))
	sb.WriteByte('\n')

	h := m.tableHeight()
	lines := renderTableRows(m.st, m.pipe.Rows(), m.scroll, h, m.width, m.now())
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	for i := len(lines); i < h; i++ {
		sb.WriteByte('\n')
	}
	sb.WriteString(m.renderStatusBar())
	sb.WriteByte('\n')
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m Model) renderTitle() string {
	spec := m.pipe.Sort()
	mem := m.pipe.Memory()
	left := m.st.title.Render("killa") + "  " +
		m.st.label.Render("sort ") + m.st.value.Render(spec.Column.String()+" "+spec.Direction.String()) + "  " +
		m.st.label.Render("rows ") + m.st.value.Render(fmt.Sprintf("%s/%s",
		humanize.Comma(int64(len(m.pipe.Rows()))), humanize.Comma(int64(m.pipe.TotalRows())))) + "  "

	memText := "mem n/a"
	if pct, ok := mem.CheckedPercent(); ok {
		memText = fmt.Sprintf("mem %s %s / %s %.0f%%", bar(m.st, pct, 10),
			humanize.Bytes(mem.Used), humanize.Bytes(mem.Total), pct)
	}
	return left + memText
}

func (m Model) renderSearch() string {
	line := m.search.View()
	if errs := m.pipe.QueryErrors(); len(errs) > 0 {
		line += "  " + m.st.crit.Render(errs[0].Error())
	}
	return line
}

// renderStatusBar shows freeze, staging and stream state, most urgent first.
func (m Model) renderStatusBar() string {
	var parts []string
	if down, err := m.pipe.Disconnected(); down {
		label := "DISCONNECTED"
		if err != nil {
			label += ": " + err.Error()
		}
		parts = append(parts, m.st.critBadge.Render(label))
	}
	if m.pipe.Frozen() {
		label := "FROZEN"
		if m.pipe.HasPending() {
			label += " (new data)"
		}
		parts = append(parts, m.st.badge.Render(label))
	}
	if sig, ok := m.pipe.Staged(); ok {
		parts = append(parts, m.st.crit.Render(fmt.Sprintf("%s staged for %d processes: enter to send, esc to cancel",
			engine.SignalName(sig), len(m.pipe.Rows()))))
	} else if m.pipe.Frozen() && !m.pipe.CanStage() {
		parts = append(parts, m.st.dim.Render(fmt.Sprintf("type %d+ characters to enable signals", m.pipe.MinSearchLen())))
	}
	if rep := m.pipe.LastReport(); rep != nil {
		style := m.st.ok
		if len(rep.Failures) > 0 {
			style = m.st.warn
		}
		parts = append(parts, style.Render(rep.Summary()))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderDisconnected(err error) string {
	msg := "Collector stream ended before the first sample."
	if err != nil {
		msg += "\n" + err.Error()
	}
	return m.st.crit.Render(msg) + "\n" + m.st.dim.Render("ctrl+c to quit")
}

func (m Model) renderHelp() string {
	h := m.help
	h.ShowAll = true
	var sb strings.Builder
	sb.WriteString(m.st.title.Render("killa keys") + "\n\n")
	sb.WriteString(h.View(m.keys) + "\n\n")
	sb.WriteString(m.st.label.Render("Search: space separated terms, all must match. Prefix a term with - to") + "\n")
	sb.WriteString(m.st.label.Render("negate it, or with name:, pid:, cmd: to restrict it to one column.") + "\n")
	sb.WriteString(m.st.label.Render(fmt.Sprintf("Signals need freeze on and at least %d search characters.", m.pipe.MinSearchLen())) + "\n\n")
	sb.WriteString(m.st.dim.Render("any key to close"))
	return sb.String()
}
