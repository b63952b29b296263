package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ftahirops/killa/collector"
	"github.com/ftahirops/killa/model"
	"go.uber.org/zap"
)

// recordFrame is one snapshot frame written to disk.
type recordFrame struct {
	Snapshot model.RawSnapshot `json:"snapshot"`
}

// Recorder wraps a source and writes every snapshot it produces to w as a
// JSON line before passing it on.
type Recorder struct {
	inner  collector.Source
	writer *json.Encoder
	log    *zap.Logger
	mu     sync.Mutex
	frames int
}

// NewRecorder creates a recorder that writes JSON lines to w.
func NewRecorder(src collector.Source, w io.Writer, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		inner:  src,
		writer: json.NewEncoder(w),
		log:    log,
	}
}

// Probe implements collector.Source.
func (r *Recorder) Probe(ctx context.Context) error {
	return r.inner.Probe(ctx)
}

// Run implements collector.Source. An encode failure is logged and the
// snapshot is still forwarded.
func (r *Recorder) Run(ctx context.Context, emit func(*model.RawSnapshot) bool) error {
	return r.inner.Run(ctx, func(s *model.RawSnapshot) bool {
		r.mu.Lock()
		if err := r.writer.Encode(recordFrame{Snapshot: *s}); err != nil {
			r.log.Warn("record frame", zap.Error(err))
		} else {
			r.frames++
		}
		r.mu.Unlock()
		return emit(s)
	})
}

// Frames returns how many frames were written.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Player replays recorded frames. It is a finite source: once the last
// frame is emitted Run returns and the bridge reports end of stream.
type Player struct {
	frames   []recordFrame
	interval time.Duration
	skipped  int
}

// NewPlayer reads all frames from r. Malformed lines are skipped.
func NewPlayer(r io.Reader, interval time.Duration) (*Player, error) {
	dec := json.NewDecoder(r)
	p := &Player{interval: interval}
	for {
		var frame recordFrame
		if err := dec.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			p.skipped++
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				continue
			}
			// Syntax errors and truncated input stick to the decoder.
			break
		}
		p.frames = append(p.frames, frame)
	}
	return p, nil
}

// Len returns the number of frames available.
func (p *Player) Len() int { return len(p.frames) }

// Skipped returns how many malformed frames were dropped.
func (p *Player) Skipped() int { return p.skipped }

// Probe implements collector.Source.
func (p *Player) Probe(context.Context) error {
	if len(p.frames) == 0 {
		return fmt.Errorf("%w: recording has no frames", collector.ErrUnavailable)
	}
	return nil
}

// Run implements collector.Source, emitting one frame per interval.
func (p *Player) Run(ctx context.Context, emit func(*model.RawSnapshot) bool) error {
	for i := range p.frames {
		if i > 0 && p.interval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.interval):
			}
		}
		snap := p.frames[i].Snapshot
		if !emit(&snap) {
			return nil
		}
	}
	return nil
}
