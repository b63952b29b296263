package engine

import (
	"unicode/utf8"

	"github.com/ftahirops/killa/model"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// DefaultMinSearchLen is the shortest search phrase that allows staging
// a signal.
const DefaultMinSearchLen = 3

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// MinSearchLen is the minimum search phrase length, in runes, required
	// to stage a signal. Values below 1 fall back to DefaultMinSearchLen.
	MinSearchLen int
	Sort         model.SortSpec
	Protection   Protection
}

// Pipeline holds the session state between the bridge and the view:
// live data, freeze, search, sort and the staged signal.
//
// It is driven from a single goroutine (the UI update loop) and takes no
// locks.
type Pipeline struct {
	cfg      PipelineConfig
	signaler Signaler
	log      *zap.Logger

	live   *model.Snapshot
	freeze Freeze

	search        string
	searchVisible bool
	query         Query

	sort model.SortSpec

	staged        unix.Signal
	hasStaged     bool
	heldForSignal bool // freeze was re-engaged by Confirm, not by the user

	visible []model.Row

	disconnected bool
	lastErr      error
	lastReport   *DispatchReport
	dark         bool
}

// NewPipeline creates a pipeline with no data yet.
func NewPipeline(cfg PipelineConfig, s Signaler, log *zap.Logger) *Pipeline {
	if cfg.MinSearchLen < 1 {
		cfg.MinSearchLen = DefaultMinSearchLen
	}
	if s == nil {
		s = UnixSignaler{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		cfg:      cfg,
		signaler: s,
		log:      log,
		sort:     cfg.Sort,
		dark:     true,
	}
}

// ---------------------------------------------------------------------------
// Inbound events
// ---------------------------------------------------------------------------

// Ingest transforms raw and applies it, or parks it while frozen. The first
// snapshot is always applied so that freezing early does not leave the
// table empty.
func (p *Pipeline) Ingest(raw *model.RawSnapshot) {
	snap := Transform(raw)
	if p.live != nil && p.freeze.Offer(snap) {
		return
	}
	p.live = snap
	p.refresh()
}

// Disconnect records that the collector stream ended. The last data stays
// on screen.
func (p *Pipeline) Disconnect(err error) {
	p.disconnected = true
	p.lastErr = err
	if err != nil {
		p.log.Warn("collector stream ended", zap.Error(err))
	} else {
		p.log.Info("collector stream ended")
	}
}

// SetAppearance records the terminal background. It does not touch data.
func (p *Pipeline) SetAppearance(dark bool) {
	p.dark = dark
}

// ---------------------------------------------------------------------------
// Search commands
// ---------------------------------------------------------------------------

// AppendSearch appends text to the search phrase and shows the search box.
func (p *Pipeline) AppendSearch(text string) {
	if text == "" {
		return
	}
	p.searchVisible = true
	p.setSearch(p.search + text)
}

// PopSearch deletes the last rune of the search phrase.
func (p *Pipeline) PopSearch() {
	if p.search == "" {
		return
	}
	_, size := utf8.DecodeLastRuneInString(p.search)
	p.setSearch(p.search[:len(p.search)-size])
}

// ReplaceSearch replaces the whole search phrase.
func (p *Pipeline) ReplaceSearch(text string) {
	p.setSearch(text)
}

// ToggleSearch shows or hides the search box. Hiding clears the phrase.
func (p *Pipeline) ToggleSearch() {
	if p.searchVisible {
		p.HideSearch()
		return
	}
	p.searchVisible = true
}

// HideSearch hides the search box and clears the phrase.
func (p *Pipeline) HideSearch() {
	p.searchVisible = false
	p.setSearch("")
}

func (p *Pipeline) setSearch(text string) {
	if text == p.search {
		return
	}
	p.clearStaged("search changed")
	p.search = text
	p.query = ParseQuery(text)
	p.refresh()
}

// ---------------------------------------------------------------------------
// Sort and freeze commands
// ---------------------------------------------------------------------------

// SetSortColumn selects the sort column. Selecting the active column again
// flips the direction; a new column starts descending.
func (p *Pipeline) SetSortColumn(c model.Column) {
	p.clearStaged("sort changed")
	if p.sort.Column == c {
		p.sort.Direction = p.sort.Direction.Flip()
	} else {
		p.sort = model.SortSpec{Column: c, Direction: model.Descending}
	}
	p.refresh()
}

// SetSort replaces the sort spec outright.
func (p *Pipeline) SetSort(spec model.SortSpec) {
	p.clearStaged("sort changed")
	p.sort = spec
	p.refresh()
}

// ToggleFreeze flips freeze.
func (p *Pipeline) ToggleFreeze() {
	p.SetFreeze(!p.freeze.Enabled())
}

// SetFreeze turns freeze on or off. Any freeze command drops a staged
// signal. Turning freeze off commits the pending snapshot, if there is one.
func (p *Pipeline) SetFreeze(on bool) {
	p.clearStaged("freeze changed")
	p.heldForSignal = false
	if on {
		p.freeze.Enable()
		return
	}
	p.unfreeze()
}

func (p *Pipeline) unfreeze() {
	pending, changed := p.freeze.Disable()
	if !changed {
		return
	}
	if pending != nil {
		p.live = pending
	}
	p.refresh()
}

// ---------------------------------------------------------------------------
// Signal staging
// ---------------------------------------------------------------------------

// CanStage reports whether StageSignal would currently succeed.
func (p *Pipeline) CanStage() bool {
	return p.freeze.Enabled() && utf8.RuneCountInString(p.search) >= p.cfg.MinSearchLen
}

// StageSignal stages sig for the visible rows. It is refused unless freeze
// is on and the search phrase is long enough.
func (p *Pipeline) StageSignal(sig unix.Signal) bool {
	if !p.CanStage() {
		p.log.Debug("stage refused",
			zap.String("signal", SignalName(sig)),
			zap.Bool("frozen", p.freeze.Enabled()),
			zap.Int("search_len", utf8.RuneCountInString(p.search)))
		return false
	}
	p.staged, p.hasStaged = sig, true
	p.log.Info("signal staged",
		zap.String("signal", SignalName(sig)),
		zap.String("query", p.search),
		zap.Int("targets", len(p.visible)))
	return true
}

// Confirm sends the staged signal to every visible row, then reloads the
// table from the newest data and freezes it again. It returns nil if
// nothing was staged.
func (p *Pipeline) Confirm() *DispatchReport {
	if !p.hasStaged {
		return nil
	}
	sig := p.staged
	p.staged, p.hasStaged = 0, false

	rep := Dispatch(p.visible, sig, p.signaler, p.cfg.Protection)
	for _, f := range rep.Failures {
		p.log.Warn("signal failed",
			zap.String("batch", rep.ID),
			zap.Int("pid", f.PID),
			zap.String("name", f.Name),
			zap.Error(f.Err))
	}
	p.log.Info("signal dispatched",
		zap.String("batch", rep.ID),
		zap.String("signal", SignalName(sig)),
		zap.Ints("sent", rep.Sent),
		zap.Int("failed", len(rep.Failures)))
	p.lastReport = rep

	p.unfreeze()
	p.freeze.Enable()
	p.heldForSignal = true
	return rep
}

// Back cancels a staged signal. If freeze is only held because of a
// previous Confirm it is released in the same step; otherwise an open
// search box is hidden.
func (p *Pipeline) Back() {
	if p.hasStaged {
		p.clearStaged("cancelled")
		if p.heldForSignal {
			p.heldForSignal = false
			p.unfreeze()
		}
		return
	}
	if p.heldForSignal {
		p.heldForSignal = false
		p.unfreeze()
		return
	}
	if p.searchVisible {
		p.HideSearch()
	}
}

func (p *Pipeline) clearStaged(reason string) {
	if !p.hasStaged {
		return
	}
	p.log.Info("staged signal cleared",
		zap.String("signal", SignalName(p.staged)),
		zap.String("reason", reason))
	p.staged, p.hasStaged = 0, false
}

// ---------------------------------------------------------------------------
// Recompute and accessors
// ---------------------------------------------------------------------------

// refresh sorts a copy of the live rows and filters it. The live snapshot
// itself is never reordered.
func (p *Pipeline) refresh() {
	if p.live == nil {
		p.visible = nil
		return
	}
	rows := make([]model.Row, len(p.live.Rows))
	copy(rows, p.live.Rows)
	SortRows(rows, p.sort)
	p.visible = p.query.Apply(rows)
}

// Rows returns the visible rows in display order. Callers must not modify
// the slice.
func (p *Pipeline) Rows() []model.Row { return p.visible }

// Live returns the snapshot currently backing the table, or nil.
func (p *Pipeline) Live() *model.Snapshot { return p.live }

// Memory returns the memory totals of the live snapshot.
func (p *Pipeline) Memory() model.MemoryTotals {
	if p.live == nil {
		return model.MemoryTotals{}
	}
	return p.live.Memory
}

// TotalRows returns the number of rows before filtering.
func (p *Pipeline) TotalRows() int { return p.live.Len() }

// Frozen reports whether freeze is on.
func (p *Pipeline) Frozen() bool { return p.freeze.Enabled() }

// HasPending reports whether a snapshot is waiting for unfreeze.
func (p *Pipeline) HasPending() bool { return p.freeze.Pending() != nil }

// Staged returns the staged signal, if any.
func (p *Pipeline) Staged() (unix.Signal, bool) { return p.staged, p.hasStaged }

// Search returns the current search phrase.
func (p *Pipeline) Search() string { return p.search }

// SearchVisible reports whether the search box is shown.
func (p *Pipeline) SearchVisible() bool { return p.searchVisible }

// QueryErrors returns syntax problems in the current search phrase.
func (p *Pipeline) QueryErrors() []error { return p.query.Errors() }

// Sort returns the active sort spec.
func (p *Pipeline) Sort() model.SortSpec { return p.sort }

// MinSearchLen returns the configured staging threshold.
func (p *Pipeline) MinSearchLen() int { return p.cfg.MinSearchLen }

// Disconnected reports whether the collector stream ended, and why.
func (p *Pipeline) Disconnected() (bool, error) { return p.disconnected, p.lastErr }

// LastReport returns the most recent dispatch report, or nil.
func (p *Pipeline) LastReport() *DispatchReport { return p.lastReport }

// Dark reports the last known terminal appearance.
func (p *Pipeline) Dark() bool { return p.dark }
