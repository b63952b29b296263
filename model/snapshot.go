package model

import "time"

// Row is the displayed state of one process.
// Rows are values: a new slice is built for every accepted snapshot.
type Row struct {
	Name         string
	NameLower    string
	PID          int
	Command      string
	CommandLower string
	MemBytes     uint64
	MemMB        uint64  // decimal megabytes, for display
	CPUPct       float64 // normalised by core count, one decimal
	CPUTime      time.Duration
	Started      time.Time // zero when unknown
}

// Snapshot holds the rows and memory totals of one point in time.
type Snapshot struct {
	Timestamp time.Time
	Rows      []Row
	Memory    MemoryTotals
}

// Len returns the number of rows, tolerating a nil snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}
