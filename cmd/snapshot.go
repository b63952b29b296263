package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ftahirops/killa/collector"
	"github.com/ftahirops/killa/config"
	"github.com/ftahirops/killa/engine"
	"github.com/ftahirops/killa/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// snapshotRow is one row of `killa snapshot` output.
type snapshotRow struct {
	PID      int     `json:"pid"`
	Name     string  `json:"name"`
	Command  string  `json:"command"`
	MemBytes uint64  `json:"mem_bytes"`
	Mem      string  `json:"mem"`
	CPUPct   float64 `json:"cpu_pct"`
	CPUTime  string  `json:"cpu_time"`
	Started  string  `json:"started,omitempty"`
}

type snapshotOutput struct {
	Timestamp string        `json:"timestamp"`
	Query     string        `json:"query,omitempty"`
	Sort      string        `json:"sort"`
	Total     int           `json:"total"`
	Memory    string        `json:"memory"`
	MemoryPct *float64      `json:"memory_pct,omitempty"`
	Errors    []string      `json:"errors,omitempty"`
	Rows      []snapshotRow `json:"rows"`
}

func newSnapshotCmd(opts *options) *cobra.Command {
	var query string
	var asc bool
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print one filtered, sorted snapshot as JSON",
		Example: `  killa snapshot --query "-name:kworker cmd:python" --sort mem
  killa snapshot --replay run.jsonl --sort pid --asc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts.configFile)
			if err != nil {
				return err
			}
			spec, err := sortSpec(cfg)
			if err != nil {
				return err
			}
			if asc {
				spec.Direction = model.Ascending
			}
			src, cleanup, err := buildSource(cfg, opts, zap.NewNop())
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			raw, err := collectOnce(ctx, src)
			if err != nil {
				return err
			}
			return writeSnapshot(cmd.OutOrStdout(), raw, query, spec)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search query, same syntax as the interactive search box")
	cmd.Flags().String("sort", "", "Sort column (name, mem, cpu, pid, cmd, started, time)")
	cmd.Flags().BoolVar(&asc, "asc", false, "Sort ascending")
	cmd.Flags().StringVar(&opts.replayPath, "replay", "", "Read from a recording instead of the live system")
	return cmd
}

// collectOnce returns the second snapshot from src so that CPU figures have
// a baseline, or the only snapshot when the source ends sooner.
func collectOnce(ctx context.Context, src collector.Source) (*model.RawSnapshot, error) {
	if err := src.Probe(ctx); err != nil {
		return nil, fmt.Errorf("start collector: %w", err)
	}
	var last *model.RawSnapshot
	n := 0
	err := src.Run(ctx, func(s *model.RawSnapshot) bool {
		last = s
		n++
		return n < 2
	})
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, fmt.Errorf("%w: no snapshot produced", collector.ErrUnavailable)
	}
	return last, nil
}

func writeSnapshot(w io.Writer, raw *model.RawSnapshot, query string, spec model.SortSpec) error {
	pipe := engine.NewPipeline(engine.PipelineConfig{}, nil, nil)
	pipe.SetSort(spec)
	pipe.ReplaceSearch(query)
	if errs := pipe.QueryErrors(); len(errs) > 0 {
		return fmt.Errorf("query %q: %w", query, errs[0])
	}
	pipe.Ingest(raw)
	snap := pipe.Live()
	rows := pipe.Rows()

	out := snapshotOutput{
		Timestamp: snap.Timestamp.Format(time.RFC3339),
		Query:     query,
		Sort:      spec.Column.String() + " " + spec.Direction.String(),
		Total:     snap.Len(),
		Memory:    humanize.Bytes(snap.Memory.Used) + " / " + humanize.Bytes(snap.Memory.Total),
		Errors:    raw.Errors,
		Rows:      make([]snapshotRow, 0, len(rows)),
	}
	if pct, ok := snap.Memory.CheckedPercent(); ok {
		out.MemoryPct = &pct
	}
	for _, r := range rows {
		sr := snapshotRow{
			PID:      r.PID,
			Name:     r.Name,
			Command:  r.Command,
			MemBytes: r.MemBytes,
			Mem:      humanize.Bytes(r.MemBytes),
			CPUPct:   r.CPUPct,
			CPUTime:  r.CPUTime.Round(time.Second).String(),
		}
		if !r.Started.IsZero() {
			sr.Started = r.Started.Format(time.RFC3339)
		}
		out.Rows = append(out.Rows, sr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the killa config file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configFile
			if path == "" {
				path = config.Path()
			}
			if path == "" {
				return config.ErrNoConfigDir
			}
			if !force && fileExists(path) {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
