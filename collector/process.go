package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/ftahirops/killa/model"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessCollector reads per-process stats through gopsutil.
//
// Process handles are kept between sweeps because gopsutil computes
// interval CPU percentages from the previous sample held by the handle.
type ProcessCollector struct {
	starts  *StartTimes
	handles map[int32]*process.Process
}

// NewProcessCollector creates a process collector using starts as its
// start-time cache. A nil cache gets a private one.
func NewProcessCollector(starts *StartTimes) *ProcessCollector {
	if starts == nil {
		starts = NewStartTimes()
	}
	return &ProcessCollector{
		starts:  starts,
		handles: make(map[int32]*process.Process),
	}
}

func (p *ProcessCollector) Name() string { return "process" }

func (p *ProcessCollector) Probe(ctx context.Context) error {
	_, err := process.PidsWithContext(ctx)
	return err
}

func (p *ProcessCollector) Collect(ctx context.Context, snap *model.RawSnapshot) error {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	alive := make(map[int]struct{}, len(procs))
	next := make(map[int32]*process.Process, len(procs))
	records := make([]model.ProcessRecord, 0, len(procs))
	for _, fresh := range procs {
		h, ok := p.handles[fresh.Pid]
		if !ok {
			h = fresh
		}
		rec, err := p.readProcess(ctx, h)
		if err != nil {
			p.starts.Forget(int(fresh.Pid)) // process may have exited
			continue
		}
		next[fresh.Pid] = h
		alive[rec.PID] = struct{}{}
		records = append(records, rec)
	}
	p.handles = next
	p.starts.Retain(alive)

	snap.Processes = records
	return nil
}

func (p *ProcessCollector) readProcess(ctx context.Context, h *process.Process) (model.ProcessRecord, error) {
	rec := model.ProcessRecord{PID: int(h.Pid)}

	name, err := h.NameWithContext(ctx)
	if err != nil {
		return rec, err
	}
	rec.Name = name

	// Kernel threads have no command line; the name stands in.
	if cmd, err := h.CmdlineWithContext(ctx); err == nil && cmd != "" {
		rec.Command = cmd
	} else {
		rec.Command = name
	}
	if mi, err := h.MemoryInfoWithContext(ctx); err == nil {
		rec.MemBytes = mi.RSS
	}
	if pct, err := h.PercentWithContext(ctx, 0); err == nil {
		rec.CPUPercent = pct
	}
	if t, err := h.TimesWithContext(ctx); err == nil {
		rec.CPUTime = time.Duration((t.User + t.System) * float64(time.Second))
	}
	if st, ok := p.starts.Lookup(rec.PID, func() (time.Time, error) {
		ms, err := h.CreateTimeWithContext(ctx)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms), nil
	}); ok {
		rec.StartTime = st
	}
	return rec, nil
}
