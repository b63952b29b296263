package model

import "time"

// ProcessRecord is one process as reported by a metrics source.
type ProcessRecord struct {
	PID        int           `json:"pid"`
	Name       string        `json:"name"`
	Command    string        `json:"command"`
	MemBytes   uint64        `json:"mem_bytes"`   // resident set size
	CPUPercent float64       `json:"cpu_percent"` // summed over all cores, may exceed 100
	CPUTime    time.Duration `json:"cpu_time"`    // user+system
	StartTime  time.Time     `json:"start_time,omitempty"`
}

// MemoryTotals holds system-wide memory usage in bytes.
type MemoryTotals struct {
	Used  uint64 `json:"used"`
	Total uint64 `json:"total"`
}

// CheckedPercent returns used/total as a percentage.
// ok is false when Total is zero.
func (m MemoryTotals) CheckedPercent() (pct float64, ok bool) {
	if m.Total == 0 {
		return 0, false
	}
	return float64(m.Used) / float64(m.Total) * 100, true
}

// RawSnapshot is one collection result as produced by a metrics source,
// before any normalisation.
type RawSnapshot struct {
	Timestamp   time.Time       `json:"timestamp"`
	LogicalCPUs int             `json:"logical_cpus"`
	Processes   []ProcessRecord `json:"processes"`
	Memory      MemoryTotals    `json:"memory"`
	Errors      []string        `json:"errors,omitempty"`
}
