package collector

import (
	"context"
	"fmt"

	"github.com/ftahirops/killa/model"
	"github.com/shirou/gopsutil/v4/mem"
)

// MemoryCollector reads system-wide memory totals.
type MemoryCollector struct{}

func (m *MemoryCollector) Name() string { return "memory" }

func (m *MemoryCollector) Probe(ctx context.Context) error {
	_, err := mem.VirtualMemoryWithContext(ctx)
	return err
}

func (m *MemoryCollector) Collect(ctx context.Context, snap *model.RawSnapshot) error {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("virtual memory: %w", err)
	}
	snap.Memory = model.MemoryTotals{Used: vm.Used, Total: vm.Total}
	return nil
}
