package engine

import (
	"math"
	"strings"

	"github.com/ftahirops/killa/model"
)

const bytesPerMB = 1_000_000

// Transform maps a raw snapshot to display rows. It does not modify raw.
func Transform(raw *model.RawSnapshot) *model.Snapshot {
	if raw == nil {
		return &model.Snapshot{}
	}
	cores := raw.LogicalCPUs
	if cores <= 0 {
		cores = 1
	}

	rows := make([]model.Row, len(raw.Processes))
	for i, p := range raw.Processes {
		rows[i] = model.Row{
			Name:         p.Name,
			NameLower:    strings.ToLower(p.Name),
			PID:          p.PID,
			Command:      p.Command,
			CommandLower: strings.ToLower(p.Command),
			MemBytes:     p.MemBytes,
			MemMB:        p.MemBytes / bytesPerMB,
			CPUPct:       normalizeCPU(p.CPUPercent, cores),
			CPUTime:      p.CPUTime,
			Started:      p.StartTime,
		}
	}
	return &model.Snapshot{
		Timestamp: raw.Timestamp,
		Rows:      rows,
		Memory:    raw.Memory,
	}
}

// normalizeCPU divides a summed-over-cores percentage by the core count and
// rounds to one decimal.
func normalizeCPU(pct float64, cores int) float64 {
	if pct <= 0 || math.IsNaN(pct) {
		return 0
	}
	return math.Round(pct/float64(cores)*10) / 10
}
