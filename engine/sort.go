package engine

import (
	"sort"

	"github.com/ftahirops/killa/model"
)

// Sortable reports whether SortRows reorders rows for column c.
func Sortable(c model.Column) bool {
	switch c {
	case model.ColumnMemory, model.ColumnCPU, model.ColumnPID, model.ColumnCPUTime, model.ColumnStarted:
		return true
	}
	return false
}

// SortRows stably sorts rows in place. Columns without a meaningful order
// (name, command) leave rows untouched. Memory sorts on raw bytes.
func SortRows(rows []model.Row, spec model.SortSpec) {
	less := lessFunc(spec.Column)
	if less == nil {
		return
	}
	if spec.Direction == model.Descending {
		sort.SliceStable(rows, func(i, j int) bool { return less(&rows[j], &rows[i]) })
		return
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(&rows[i], &rows[j]) })
}

func lessFunc(c model.Column) func(a, b *model.Row) bool {
	switch c {
	case model.ColumnMemory:
		return func(a, b *model.Row) bool { return a.MemBytes < b.MemBytes }
	case model.ColumnCPU:
		return func(a, b *model.Row) bool { return a.CPUPct < b.CPUPct }
	case model.ColumnPID:
		return func(a, b *model.Row) bool { return a.PID < b.PID }
	case model.ColumnCPUTime:
		return func(a, b *model.Row) bool { return a.CPUTime < b.CPUTime }
	case model.ColumnStarted:
		return func(a, b *model.Row) bool { return a.Started.Before(b.Started) }
	}
	return nil
}
