package engine

import "github.com/ftahirops/killa/model"

// Freeze pins the visible table. While enabled, incoming snapshots are
// parked in a single pending slot (latest wins) instead of replacing the
// live data.
type Freeze struct {
	enabled bool
	pending *model.Snapshot
}

// Enabled reports whether freeze is on.
func (f *Freeze) Enabled() bool { return f.enabled }

// Pending returns the buffered snapshot, or nil.
func (f *Freeze) Pending() *model.Snapshot { return f.pending }

// Enable turns freeze on with an empty pending slot. It returns false if
// freeze was already on, in which case the pending slot is kept.
func (f *Freeze) Enable() bool {
	if f.enabled {
		return false
	}
	f.enabled = true
	f.pending = nil
	return true
}

// Offer buffers s if freeze is on, replacing any earlier pending snapshot.
// It returns false when freeze is off and the caller should apply s itself.
func (f *Freeze) Offer(s *model.Snapshot) bool {
	if !f.enabled {
		return false
	}
	f.pending = s
	return true
}

// Disable turns freeze off and hands back the pending snapshot, if any,
// for the caller to commit. changed is false when freeze was already off.
func (f *Freeze) Disable() (pending *model.Snapshot, changed bool) {
	if !f.enabled {
		return nil, false
	}
	pending = f.pending
	f.enabled = false
	f.pending = nil
	return pending, true
}
