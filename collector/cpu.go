package collector

import (
	"context"
	"fmt"

	"github.com/ftahirops/killa/model"
	"github.com/shirou/gopsutil/v4/cpu"
)

// CPUCollector reports the number of logical cores used to normalise
// per-process CPU percentages.
type CPUCollector struct {
	logical int
}

func (c *CPUCollector) Name() string { return "cpu" }

func (c *CPUCollector) Probe(ctx context.Context) error {
	_, err := c.count(ctx)
	return err
}

func (c *CPUCollector) Collect(ctx context.Context, snap *model.RawSnapshot) error {
	n, err := c.count(ctx)
	if err != nil {
		return err
	}
	snap.LogicalCPUs = n
	return nil
}

// count caches the first successful answer; hot-plugging cores is rare
// enough that a restart is acceptable.
func (c *CPUCollector) count(ctx context.Context) (int, error) {
	if c.logical > 0 {
		return c.logical, nil
	}
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("count logical cpus: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("count logical cpus: got %d", n)
	}
	c.logical = n
	return n, nil
}
