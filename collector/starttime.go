package collector

import "time"

// StartTimes caches process start times keyed by pid.
//
// It is owned by a single collector and is not safe for concurrent use.
// Entries for pids that disappear are dropped by Retain after every sweep,
// so the cache never outgrows the live process table.
type StartTimes struct {
	entries map[int]time.Time
}

// NewStartTimes creates an empty cache.
func NewStartTimes() *StartTimes {
	return &StartTimes{entries: make(map[int]time.Time)}
}

// Lookup returns the cached start time for pid, calling load on a miss.
// Failed loads are not cached, so the next sweep retries.
func (s *StartTimes) Lookup(pid int, load func() (time.Time, error)) (time.Time, bool) {
	if t, ok := s.entries[pid]; ok {
		return t, true
	}
	t, err := load()
	if err != nil {
		return time.Time{}, false
	}
	s.entries[pid] = t
	return t, true
}

// Retain drops every entry whose pid is not in alive and returns how many
// entries were evicted.
func (s *StartTimes) Retain(alive map[int]struct{}) int {
	evicted := 0
	for pid := range s.entries {
		if _, ok := alive[pid]; !ok {
			delete(s.entries, pid)
			evicted++
		}
	}
	return evicted
}

// Forget removes a single pid.
func (s *StartTimes) Forget(pid int) {
	delete(s.entries, pid)
}
