package ui

import (
	"strconv"
	"strings"
	"time"

	"github.com/ftahirops/killa/model"
)

type tableColumn struct {
	col   model.Column
	title string
	width int // 0 takes the remaining width
	right bool
}

var tableColumns = []tableColumn{
	{model.ColumnPID, "PID", 8, true},
	{model.ColumnName, "NAME", 18, false},
	{model.ColumnMemory, "MEM MB", 9, true},
	{model.ColumnCPU, "CPU%", 7, true},
	{model.ColumnCPUTime, "TIME", 10, true},
	{model.ColumnStarted, "STARTED", 10, true},
	{model.ColumnCommand, "COMMAND", 0, false},
}

const minCommandWidth = 10

// fixedWidth is the width of every column except the last, with separators.
func fixedWidth() int {
	w := 0
	for _, c := range tableColumns {
		if c.width > 0 {
			w += c.width + 1
		}
	}
	return w
}

func cellText(r *model.Row, c model.Column, now time.Time) string {
	switch c {
	case model.ColumnPID:
		return strconv.Itoa(r.PID)
	case model.ColumnName:
		return r.Name
	case model.ColumnMemory:
		return strconv.FormatUint(r.MemMB, 10)
	case model.ColumnCPU:
		return fmtPct(r.CPUPct)
	case model.ColumnCPUTime:
		return fmtCPUTime(r.CPUTime)
	case model.ColumnStarted:
		return fmtStarted(r.Started, now)
	case model.ColumnCommand:
		return r.Command
	}
	return ""
}

func fitCell(text string, c tableColumn, width int) string {
	if c.right {
		return padLeft(text, width)
	}
	return padRight(text, width)
}

// renderTableHeader marks the sorted column with an arrow.
func renderTableHeader(st styles, spec model.SortSpec, width int) string {
	cmdW := width - fixedWidth()
	if cmdW < minCommandWidth {
		cmdW = minCommandWidth
	}
	var sb strings.Builder
	for i, c := range tableColumns {
		w := c.width
		if w == 0 {
			w = cmdW
		}
		title := c.title
		style := st.header
		if c.col == spec.Column {
			if spec.Direction == model.Ascending {
				title += "▲"
			} else {
				title += "▼"
			}
			style = st.sorted
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(style.Render(fitCell(title, c, w)))
	}
	return sb.String()
}

// renderTableRows renders at most height rows starting at offset.
func renderTableRows(st styles, rows []model.Row, offset, height, width int, now time.Time) []string {
	if offset < 0 {
		offset = 0
	}
	if offset > len(rows) {
		offset = len(rows)
	}
	end := offset + height
	if end > len(rows) {
		end = len(rows)
	}
	cmdW := width - fixedWidth()
	if cmdW < minCommandWidth {
		cmdW = minCommandWidth
	}

	lines := make([]string, 0, end-offset)
	for i := offset; i < end; i++ {
		r := &rows[i]
		var sb strings.Builder
		for j, c := range tableColumns {
			w := c.width
			if w == 0 {
				w = cmdW
			}
			if j > 0 {
				sb.WriteByte(' ')
			}
			cell := fitCell(cellText(r, c.col, now), c, w)
			switch c.col {
			case model.ColumnCPU:
				cell = st.pctStyle(r.CPUPct).Render(cell)
			case model.ColumnName:
				cell = st.value.Render(cell)
			case model.ColumnCommand, model.ColumnStarted, model.ColumnCPUTime:
				cell = st.dim.Render(cell)
			}
			sb.WriteString(cell)
		}
		lines = append(lines, sb.String())
	}
	return lines
}
