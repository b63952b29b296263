package model

import (
	"fmt"
	"strings"
)

// Column identifies a table column.
type Column int

const (
	ColumnName Column = iota
	ColumnMemory
	ColumnCPU
	ColumnPID
	ColumnCommand
	ColumnStarted
	ColumnCPUTime
	columnCount
)

var columnNames = []string{"Name", "Memory", "CPU", "ID", "Command", "Started", "Time"}

// Columns lists all columns in display order.
func Columns() []Column {
	return []Column{ColumnName, ColumnMemory, ColumnCPU, ColumnPID, ColumnCPUTime, ColumnStarted, ColumnCommand}
}

func (c Column) String() string {
	if c < 0 || c >= columnCount {
		return "Unknown"
	}
	return columnNames[c]
}

// ParseColumn maps a user supplied column name to a Column.
func ParseColumn(s string) (Column, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name":
		return ColumnName, nil
	case "mem", "memory":
		return ColumnMemory, nil
	case "cpu":
		return ColumnCPU, nil
	case "pid", "id":
		return ColumnPID, nil
	case "cmd", "command":
		return ColumnCommand, nil
	case "started", "start":
		return ColumnStarted, nil
	case "time", "cputime":
		return ColumnCPUTime, nil
	}
	return 0, fmt.Errorf("unknown column %q", s)
}

// Direction is a sort direction. The zero value is Descending.
type Direction int

const (
	Descending Direction = iota
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Ascending {
		return Descending
	}
	return Ascending
}

// SortSpec is the active sort column and direction.
type SortSpec struct {
	Column    Column
	Direction Direction
}

// ParseDirection accepts asc/ascending and desc/descending. Empty means
// Descending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	}
	return Descending, fmt.Errorf("unknown sort direction %q", s)
}
