package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/ftahirops/killa/collector"
	"github.com/ftahirops/killa/model"
	"go.uber.org/zap"
)

// PollResult tells the consumer what a Poll produced.
type PollResult int

const (
	// PollEmpty means nothing new arrived since the last poll.
	PollEmpty PollResult = iota
	// PollSnapshot means a fresh snapshot was returned.
	PollSnapshot
	// PollEnded means the worker has stopped. It is reported exactly once.
	PollEnded
)

func (r PollResult) String() string {
	switch r {
	case PollSnapshot:
		return "snapshot"
	case PollEnded:
		return "ended"
	}
	return "empty"
}

// Bridge moves snapshots from a blocking Source running on its own
// goroutine to a consumer that must never block.
//
// The hand-off is a single slot: when the consumer falls behind, the older
// snapshot is replaced by the newer one. Poll must be called from one
// goroutine only.
type Bridge struct {
	slot   chan *model.RawSnapshot
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *zap.Logger

	errMu sync.Mutex
	err   error

	ended    bool
	produced int64 // worker-owned
	dropped  int64 // worker-owned
}

// StartBridge probes src and, if the backend is usable, starts the worker.
// A probe failure is returned as is and no goroutine is left running.
func StartBridge(ctx context.Context, src collector.Source, log *zap.Logger) (*Bridge, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := src.Probe(ctx); err != nil {
		return nil, fmt.Errorf("start collector: %w", err)
	}

	wctx, cancel := context.WithCancel(ctx)
	b := &Bridge{
		slot:   make(chan *model.RawSnapshot, 1),
		cancel: cancel,
		log:    log,
	}
	b.wg.Add(1)
	go b.work(wctx, src)
	return b, nil
}

func (b *Bridge) work(ctx context.Context, src collector.Source) {
	defer b.wg.Done()
	defer close(b.slot)

	err := src.Run(ctx, func(s *model.RawSnapshot) bool {
		if ctx.Err() != nil {
			return false
		}
		b.push(s)
		return true
	})
	if err != nil {
		b.errMu.Lock()
		b.err = err
		b.errMu.Unlock()
	}
	b.log.Info("collector worker stopped",
		zap.Int64("produced", b.produced),
		zap.Int64("dropped", b.dropped),
		zap.Error(err))
}

// push never blocks: a snapshot the consumer has not taken yet is
// discarded in favour of s.
func (b *Bridge) push(s *model.RawSnapshot) {
	b.produced++
	for {
		select {
		case b.slot <- s:
			return
		default:
		}
		select {
		case <-b.slot:
			b.dropped++
		default:
		}
	}
}

// Poll returns the newest unconsumed snapshot without blocking.
func (b *Bridge) Poll() (*model.RawSnapshot, PollResult) {
	if b.ended {
		return nil, PollEmpty
	}
	select {
	case s, ok := <-b.slot:
		if !ok {
			b.ended = true
			return nil, PollEnded
		}
		return s, PollSnapshot
	default:
		return nil, PollEmpty
	}
}

// Ended reports whether PollEnded has been delivered.
func (b *Bridge) Ended() bool {
	return b.ended
}

// Err returns the error the source stopped with, if any.
func (b *Bridge) Err() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.err
}

// Close stops the worker and waits for it to exit. It is safe to call
// more than once.
func (b *Bridge) Close() {
	b.cancel()
	b.wg.Wait()
}
