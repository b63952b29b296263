package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ftahirops/killa/model"
	"go.uber.org/zap"
)

// ErrUnavailable is returned when the metrics backend cannot be used at all.
var ErrUnavailable = errors.New("metrics source unavailable")

// Source produces snapshots for the collector bridge.
type Source interface {
	// Probe checks that the backend is usable. It is called once, before Run.
	Probe(ctx context.Context) error
	// Run blocks, handing every snapshot to emit, until ctx is done or the
	// source is exhausted. emit returns false once nobody is listening.
	Run(ctx context.Context, emit func(*model.RawSnapshot) bool) error
}

// Collector is the interface for all metric collectors.
type Collector interface {
	Name() string
	Collect(ctx context.Context, snap *model.RawSnapshot) error
}

// Prober is a collector that can check its backend before the first sweep.
type Prober interface {
	Probe(ctx context.Context) error
}

// Registry holds all registered collectors.
type Registry struct {
	collectors []Collector
}

// NewRegistry creates a registry with the default collectors.
// starts is the start-time cache handed to the process collector.
func NewRegistry(starts *StartTimes) *Registry {
	return &Registry{
		collectors: []Collector{
			&CPUCollector{},
			&MemoryCollector{},
			NewProcessCollector(starts),
		},
	}
}

// Add registers an additional collector.
func (r *Registry) Add(c Collector) {
	r.collectors = append(r.collectors, c)
}

// Probe runs every collector's probe and returns the first failure.
func (r *Registry) Probe(ctx context.Context) error {
	for _, c := range r.collectors {
		p, ok := c.(Prober)
		if !ok {
			continue
		}
		if err := p.Probe(ctx); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnavailable, c.Name(), err)
		}
	}
	return nil
}

// CollectAll runs all collectors, populating the snapshot.
func (r *Registry) CollectAll(ctx context.Context, snap *model.RawSnapshot) []error {
	var errs []error
	for _, c := range r.collectors {
		if err := c.Collect(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	return errs
}

// Poller is the live Source: it sweeps a Registry on a fixed interval.
type Poller struct {
	registry *Registry
	interval time.Duration
	log      *zap.Logger
}

// NewPoller creates a poller. A non-positive interval falls back to one second.
func NewPoller(reg *Registry, interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{registry: reg, interval: interval, log: log}
}

// Probe implements Source.
func (p *Poller) Probe(ctx context.Context) error {
	return p.registry.Probe(ctx)
}

// Run implements Source. It returns nil when ctx is cancelled.
func (p *Poller) Run(ctx context.Context, emit func(*model.RawSnapshot) bool) error {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		snap := p.sweep(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if !emit(snap) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (p *Poller) sweep(ctx context.Context) *model.RawSnapshot {
	start := time.Now()
	snap := &model.RawSnapshot{Timestamp: start}
	for _, err := range p.registry.CollectAll(ctx, snap) {
		snap.Errors = append(snap.Errors, err.Error())
		p.log.Debug("collector error", zap.Error(err))
	}
	p.log.Debug("sweep done",
		zap.Int("processes", len(snap.Processes)),
		zap.Duration("took", time.Since(start)))
	return snap
}
