package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ftahirops/killa/engine"
	"github.com/ftahirops/killa/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type fakeFeed struct {
	queue    []*model.RawSnapshot
	ended    bool
	reported bool
	err      error
}

func (f *fakeFeed) Poll() (*model.RawSnapshot, engine.PollResult) {
	if len(f.queue) > 0 {
		s := f.queue[0]
		f.queue = f.queue[1:]
		return s, engine.PollSnapshot
	}
	if f.ended && !f.reported {
		f.reported = true
		return nil, engine.PollEnded
	}
	return nil, engine.PollEmpty
}

func (f *fakeFeed) Err() error { return f.err }

type sent struct {
	pid int
	sig unix.Signal
}

type fakeSignaler struct{ calls []sent }

func (s *fakeSignaler) Signal(pid int, sig unix.Signal) error {
	s.calls = append(s.calls, sent{pid, sig})
	return nil
}

func snapshot(ts int64, names ...string) *model.RawSnapshot {
	raw := &model.RawSnapshot{
		Timestamp:   time.Unix(ts, 0),
		LogicalCPUs: 1,
		Memory:      model.MemoryTotals{Used: 2_000_000_000, Total: 8_000_000_000},
	}
	for i, n := range names {
		raw.Processes = append(raw.Processes, model.ProcessRecord{
			PID:        100 + i,
			Name:       n,
			Command:    "/usr/bin/" + n,
			MemBytes:   uint64(i+1) * 10_000_000,
			CPUPercent: float64(len(names) - i),
		})
	}
	return raw
}

func newTestModel(t *testing.T, feed *fakeFeed, sig *fakeSignaler) Model {
	t.Helper()
	pipe := engine.NewPipeline(engine.PipelineConfig{
		Sort: model.SortSpec{Column: model.ColumnCPU},
	}, sig, nil)
	m := NewModel(feed, pipe, Options{PollInterval: time.Millisecond})
	m.now = func() time.Time { return time.Unix(1000, 0) }
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return updated.(Model)
}

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func alt(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s), Alt: true}
}

func TestModel_PollIngestsAndKeepsPolling(t *testing.T) {
	feed := &fakeFeed{queue: []*model.RawSnapshot{snapshot(1, "alpha", "beta")}}
	m := newTestModel(t, feed, &fakeSignaler{})

	updated, cmd := m.Update(pollMsg(time.Now()))
	m = updated.(Model)
	require.NotNil(t, cmd, "polling continues while the stream is alive")
	assert.Len(t, m.pipe.Rows(), 2)
	assert.Contains(t, m.View(), "alpha")
}

func TestModel_EndedStopsPolling(t *testing.T) {
	feed := &fakeFeed{queue: []*model.RawSnapshot{snapshot(1, "alpha")}, ended: true, err: errors.New("boom")}
	m := newTestModel(t, feed, &fakeSignaler{})

	updated, cmd := m.Update(pollMsg(time.Now()))
	m = updated.(Model)
	assert.Nil(t, cmd)
	down, err := m.pipe.Disconnected()
	assert.True(t, down)
	assert.EqualError(t, err, "boom")
	assert.Len(t, m.pipe.Rows(), 1, "last data stays on screen")
	assert.Contains(t, m.View(), "DISCONNECTED")
}

func TestModel_TypingAppendsToSearch(t *testing.T) {
	feed := &fakeFeed{queue: []*model.RawSnapshot{snapshot(1, "alpha", "beta", "alphabet")}}
	m := newTestModel(t, feed, &fakeSignaler{})
	m = send(t, m, pollMsg(time.Now()), runes("alp"), tea.KeyMsg{Type: tea.KeySpace}, runes("-name:alphabet"))

	assert.Equal(t, "alp -name:alphabet", m.pipe.Search())
	assert.Equal(t, m.pipe.Search(), m.search.Value())
	require.Len(t, m.pipe.Rows(), 1)
	assert.Equal(t, "alpha", m.pipe.Rows()[0].Name)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "alp -name:alphabe", m.pipe.Search())
}

func TestModel_AltKeysDoNotType(t *testing.T) {
	m := newTestModel(t, &fakeFeed{}, &fakeSignaler{})
	m = send(t, m, alt("j"), alt("x"))
	assert.Empty(t, m.pipe.Search())
}

func TestModel_SortKeys(t *testing.T) {
	feed := &fakeFeed{queue: []*model.RawSnapshot{snapshot(1, "a", "b", "c")}}
	m := newTestModel(t, feed, &fakeSignaler{})
	m = send(t, m, pollMsg(time.Now()), alt("2"))
	assert.Equal(t, model.SortSpec{Column: model.ColumnMemory, Direction: model.Descending}, m.pipe.Sort())
	assert.Equal(t, 102, m.pipe.Rows()[0].PID)

	m = send(t, m, alt("2"))
	assert.Equal(t, model.Ascending, m.pipe.Sort().Direction)
	assert.Equal(t, 100, m.pipe.Rows()[0].PID)

	m = send(t, m, alt("3"))
	assert.Equal(t, model.ColumnPID, m.pipe.Sort().Column)
}

func TestModel_StageAndConfirm(t *testing.T) {
	sig := &fakeSignaler{}
	feed := &fakeFeed{queue: []*model.RawSnapshot{snapshot(1, "worker", "worker", "shell")}}
	m := newTestModel(t, feed, sig)
	m = send(t, m, pollMsg(time.Now()))

	// Not frozen yet: staging is refused.
	m = send(t, m, runes("work"), tea.KeyMsg{Type: tea.KeyCtrlK})
	_, staged := m.pipe.Staged()
	assert.False(t, staged)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlT}, tea.KeyMsg{Type: tea.KeyCtrlK})
	s, staged := m.pipe.Staged()
	require.True(t, staged)
	assert.Equal(t, unix.SIGTERM, s)
	assert.Contains(t, m.View(), "SIGTERM staged for 2 processes")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []sent{{100, unix.SIGTERM}, {101, unix.SIGTERM}}, sig.calls)
	assert.True(t, m.pipe.Frozen(), "confirm re-freezes")
	require.NotNil(t, m.pipe.LastReport())
	assert.Contains(t, m.View(), "SIGTERM sent to 2/2 processes")

	// esc releases the hold from confirm.
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.pipe.Frozen())
}

func TestModel_EscCancelsStagedSignal(t *testing.T) {
	sig := &fakeSignaler{}
	feed := &fakeFeed{queue: []*model.RawSnapshot{snapshot(1, "worker")}}
	m := newTestModel(t, feed, sig)
	m = send(t, m, pollMsg(time.Now()), runes("work"), tea.KeyMsg{Type: tea.KeyCtrlJ}, alt("k"))
	s, staged := m.pipe.Staged()
	require.True(t, staged)
	assert.Equal(t, unix.SIGKILL, s)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, sig.calls)
	assert.True(t, m.pipe.Frozen(), "cancel leaves user freeze alone")
}

func TestModel_ConfiguredSignals(t *testing.T) {
	sig := &fakeSignaler{}
	pipe := engine.NewPipeline(engine.PipelineConfig{}, sig, nil)
	m := NewModel(&fakeFeed{queue: []*model.RawSnapshot{snapshot(1, "worker")}}, pipe, Options{
		PollInterval: time.Millisecond,
		StageSignal:  unix.SIGINT,
		ForceSignal:  unix.SIGQUIT,
	})
	m = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 30}, pollMsg(time.Now()),
		runes("work"), tea.KeyMsg{Type: tea.KeyCtrlJ}, tea.KeyMsg{Type: tea.KeyCtrlK})
	s, staged := m.pipe.Staged()
	require.True(t, staged)
	assert.Equal(t, unix.SIGINT, s)
	assert.Equal(t, "stage SIGINT", m.keys.Term.Help().Desc)

	m = send(t, m, alt("k"))
	s, _ = m.pipe.Staged()
	assert.Equal(t, unix.SIGQUIT, s)
	assert.Equal(t, "stage SIGQUIT", m.keys.Kill.Help().Desc)
}

func TestModel_SearchToggle(t *testing.T) {
	m := newTestModel(t, &fakeFeed{}, &fakeSignaler{})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlF})
	assert.True(t, m.pipe.SearchVisible())

	m = send(t, m, runes("abc"), tea.KeyMsg{Type: tea.KeyCtrlF})
	assert.False(t, m.pipe.SearchVisible())
	assert.Empty(t, m.pipe.Search())
	assert.Empty(t, m.search.Value())
}

func TestModel_AppearanceSwitchesPalette(t *testing.T) {
	m := newTestModel(t, &fakeFeed{}, &fakeSignaler{})
	m = send(t, m, appearanceMsg{dark: false})
	assert.False(t, m.pipe.Dark())
	m = send(t, m, appearanceMsg{dark: true})
	assert.True(t, m.pipe.Dark())
}

func TestModel_InitDeliversDetectedAppearance(t *testing.T) {
	pipe := engine.NewPipeline(engine.PipelineConfig{}, &fakeSignaler{}, nil)
	require.True(t, pipe.Dark())
	m := NewModel(&fakeFeed{}, pipe, Options{PollInterval: time.Millisecond, Dark: false})

	msg := appearance(m.dark)()
	assert.Equal(t, appearanceMsg{dark: false}, msg, "Init carries the pre-detected value, no terminal query")

	updated, _ := m.Update(msg)
	assert.False(t, updated.(Model).pipe.Dark())
}

func TestModel_HelpOverlay(t *testing.T) {
	m := newTestModel(t, &fakeFeed{}, &fakeSignaler{})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyF1})
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "killa keys")

	m = send(t, m, runes("x"))
	assert.False(t, m.showHelp)
	assert.Empty(t, m.pipe.Search(), "closing help swallows the key")
}

func TestModel_QuitKey(t *testing.T) {
	m := newTestModel(t, &fakeFeed{}, &fakeSignaler{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestView_HeaderMarksSortColumn(t *testing.T) {
	st := newStyles(true)
	h := renderTableHeader(st, model.SortSpec{Column: model.ColumnPID, Direction: model.Ascending}, 100)
	assert.Contains(t, h, "PID▲")
	h = renderTableHeader(st, model.SortSpec{Column: model.ColumnMemory}, 100)
	assert.Contains(t, h, "MEM MB▼")
}

func TestView_RowsRespectOffsetAndHeight(t *testing.T) {
	rows := make([]model.Row, 10)
	for i := range rows {
		rows[i] = model.Row{PID: i + 1, Name: "p"}
	}
	lines := renderTableRows(newStyles(true), rows, 8, 5, 100, time.Now())
	require.Len(t, lines, 2)
	assert.True(t, strings.Contains(lines[0], " 9 "))
}
