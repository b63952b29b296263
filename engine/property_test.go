package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/ftahirops/killa/model"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
	"pgregory.net/rapid"
)

func genRows() *rapid.Generator[[]model.Row] {
	return rapid.Custom(func(t *rapid.T) []model.Row {
		n := rapid.IntRange(1, 25).Draw(t, "n")
		procs := make([]model.ProcessRecord, n)
		for i := range procs {
			name := rapid.StringMatching(`[a-zA-Z]{1,6}`).Draw(t, "name")
			procs[i] = model.ProcessRecord{
				PID:        rapid.IntRange(1, 50).Draw(t, "pid"),
				Name:       name,
				Command:    "/bin/" + name + " " + rapid.StringMatching(`[a-z0-9-]{0,6}`).Draw(t, "arg"),
				MemBytes:   rapid.Uint64Range(0, 5_000_000).Draw(t, "mem"),
				CPUPercent: float64(rapid.IntRange(0, 400).Draw(t, "cpu")),
				CPUTime:    time.Duration(rapid.IntRange(0, 100).Draw(t, "time")) * time.Second,
			}
		}
		return Transform(&model.RawSnapshot{LogicalCPUs: 4, Processes: procs}).Rows
	})
}

func TestProperty_SortFlipIdempotence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := genRows().Draw(t, "rows")
		col := rapid.SampledFrom([]model.Column{model.ColumnPID, model.ColumnMemory, model.ColumnCPU}).Draw(t, "col")

		SortRows(rows, model.SortSpec{Column: col, Direction: model.Ascending})
		first := append([]model.Row(nil), rows...)
		SortRows(rows, model.SortSpec{Column: col, Direction: model.Descending})
		SortRows(rows, model.SortSpec{Column: col, Direction: model.Ascending})

		if fmt.Sprint(first) != fmt.Sprint(rows) {
			t.Fatalf("asc/desc/asc differs from asc for %v", col)
		}
	})
}

func TestProperty_EmptyPhraseIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := genRows().Draw(t, "rows")
		prefix := rapid.SampledFrom([]string{"", "-", "any:", "*:", "name:", "pid:", "id:", "cmd:", "command:", "-name:"}).Draw(t, "prefix")

		got := ParseQuery(prefix).Apply(rows)
		if fmt.Sprint(got) != fmt.Sprint(rows) {
			t.Fatalf("query %q changed the row set", prefix)
		}
	})
}

func TestProperty_NegationPartitions(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := genRows().Draw(t, "rows")
		x := rapid.StringMatching(`[a-zA-Z0-9]{1,4}`).Draw(t, "x")

		pos := ParseQuery("name:" + x)
		neg := ParseQuery("-name:" + x)
		for i := range rows {
			in, out := pos.Match(&rows[i]), neg.Match(&rows[i])
			if in == out {
				t.Fatalf("row %+v: name:%s=%v -name:%s=%v", rows[i], x, in, x, out)
			}
		}
		if len(pos.Apply(rows))+len(neg.Apply(rows)) != len(rows) {
			t.Fatal("partition sizes do not add up")
		}
	})
}

func TestProperty_PidIsExact(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := genRows().Draw(t, "rows")
		pid := rapid.IntRange(1, 50).Draw(t, "pid")

		for _, r := range ParseQuery(fmt.Sprintf("pid:%d", pid)).Apply(rows) {
			if r.PID != pid {
				t.Fatalf("pid:%d matched pid %d", pid, r.PID)
			}
		}
	})
}

func TestProperty_UnknownColumnFailsClosed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := genRows().Draw(t, "rows")
		col := rapid.StringMatching(`[a-z]{2,5}`).Filter(func(s string) bool {
			_, err := ParseFilterColumn(s)
			return err != nil
		}).Draw(t, "col")
		phrase := rapid.StringMatching(`[a-z]{0,3}`).Draw(t, "phrase")
		neg := rapid.SampledFrom([]string{"", "-"}).Draw(t, "neg")

		if got := ParseQuery(neg + col + ":" + phrase).Apply(rows); len(got) != 0 {
			t.Fatalf("%s%s:%s matched %d rows", neg, col, phrase, len(got))
		}
	})
}

func TestProperty_FreezeShowsOnlyLatest(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := NewPipeline(PipelineConfig{}, &recordingSignaler{}, nil)
		p.Ingest(rawOf(0, proc(1, "base", 1)))
		p.SetFreeze(true)
		before := fmt.Sprint(p.Rows())

		n := rapid.IntRange(1, 20).Draw(t, "n")
		for i := 1; i <= n; i++ {
			p.Ingest(rawOf(int64(i), proc(100+i, "next", 1)))
			if fmt.Sprint(p.Rows()) != before {
				t.Fatalf("rows changed while frozen after %d snapshots", i)
			}
		}
		p.SetFreeze(false)
		rows := p.Rows()
		if len(rows) != 1 || rows[0].PID != 100+n {
			t.Fatalf("after unfreeze got %v, want pid %d", pids(rows), 100+n)
		}
	})
}

func TestProperty_StageGate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := NewPipeline(PipelineConfig{}, &recordingSignaler{}, nil)
		p.Ingest(rawOf(0, proc(1, "worker", 1)))
		frozen := rapid.Bool().Draw(t, "frozen")
		search := rapid.StringMatching(`[a-z]{0,6}`).Draw(t, "search")
		p.ReplaceSearch(search)
		p.SetFreeze(frozen)

		ok := p.StageSignal(unix.SIGTERM)
		want := frozen && len(search) >= DefaultMinSearchLen
		if ok != want {
			t.Fatalf("frozen=%v search=%q staged=%v", frozen, search, ok)
		}
		if ok {
			p.SetSortColumn(model.ColumnMemory)
			if _, staged := p.Staged(); staged {
				t.Fatal("sort change kept the staged signal")
			}
		}
	})
}

func TestMemoryPercentExample(t *testing.T) {
	pct, ok := model.MemoryTotals{Used: 50, Total: 100}.CheckedPercent()
	require.True(t, ok)
	require.InDelta(t, 50.0, pct, 1e-9)

	_, ok = model.MemoryTotals{Used: 50, Total: 0}.CheckedPercent()
	require.False(t, ok)
}
