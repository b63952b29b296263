package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ftahirops/killa/collector"
	"github.com/ftahirops/killa/config"
	"github.com/ftahirops/killa/engine"
	"github.com/ftahirops/killa/logging"
	"github.com/ftahirops/killa/model"
	"github.com/ftahirops/killa/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

// options holds flags that are not part of the persisted config.
type options struct {
	configFile string
	recordPath string
	replayPath string
	debug      bool
}

// Run builds the command tree and executes it.
func Run() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "killa [interval]",
		Short: "Live process table with freeze and guarded signalling",
		Long: `killa shows a live, searchable process table. Freeze the table, narrow it
with a search of at least a few characters, stage a signal and confirm it to
send the signal to every visible process.`,
		Example: `  killa                     Interactive table, 1s refresh
  killa 5                   Interactive table, 5s refresh
  killa --record run.jsonl  Record snapshots while running
  killa --replay run.jsonl  Replay a recording`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				d, err := parseInterval(args[0])
				if err != nil {
					return err
				}
				if err := cmd.Flags().Set("interval", d.String()); err != nil {
					return err
				}
			}
			cfg, err := loadConfig(cmd, opts.configFile)
			if err != nil {
				return err
			}
			if opts.debug {
				cfg.Log.Level = "debug"
			}
			return runTUI(cmd.Context(), cfg, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/killa/config.json)")
	root.Flags().Duration("interval", time.Second, "Collection interval")
	root.Flags().Int("min-search", engine.DefaultMinSearchLen, "Search length required before a signal can be staged")
	root.Flags().StringVar(&opts.recordPath, "record", "", "Record snapshots to FILE while running")
	root.Flags().StringVar(&opts.replayPath, "replay", "", "Replay snapshots from FILE instead of collecting")
	root.Flags().BoolVar(&opts.debug, "debug", false, "Log at debug level")
	root.MarkFlagsMutuallyExclusive("record", "replay")

	root.AddCommand(newSnapshotCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// parseInterval accepts whole seconds ("5") or a Go duration ("500ms").
func parseInterval(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("interval must be positive, got %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", d)
	}
	return d, nil
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"interval":   "interval",
	"min-search": "min_search_len",
	"sort":       "default_sort",
}

// loadConfig layers changed flags over env, file and defaults.
func loadConfig(cmd *cobra.Command, file string) (config.Config, error) {
	v := config.New(file)
	if err := bindFlags(v, cmd); err != nil {
		return config.Config{}, err
	}
	return config.Load(v)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// sortSpec resolves the configured default sort.
func sortSpec(cfg config.Config) (model.SortSpec, error) {
	col, err := model.ParseColumn(cfg.DefaultSort)
	if err != nil {
		return model.SortSpec{}, err
	}
	if !engine.Sortable(col) {
		return model.SortSpec{}, fmt.Errorf("column %s has no sort order", col)
	}
	dir, err := model.ParseDirection(cfg.DefaultDirection)
	if err != nil {
		return model.SortSpec{}, err
	}
	return model.SortSpec{Column: col, Direction: dir}, nil
}

// signals resolves the two signals the staging keys use.
func signals(cfg config.Config) (stage, force unix.Signal, err error) {
	if stage, err = engine.ParseSignal(cfg.StageSignal); err != nil {
		return 0, 0, fmt.Errorf("stage_signal: %w", err)
	}
	if force, err = engine.ParseSignal(cfg.ForceSignal); err != nil {
		return 0, 0, fmt.Errorf("force_signal: %w", err)
	}
	return stage, force, nil
}

// buildSource returns the live poller, optionally wrapped in a recorder, or
// a player for replay. The returned cleanup must be called when done.
func buildSource(cfg config.Config, opts *options, log *zap.Logger) (collector.Source, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.replayPath != "" {
		f, err := os.Open(opts.replayPath)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open replay file: %w", err)
		}
		defer f.Close()
		player, err := engine.NewPlayer(f, cfg.Interval)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot parse replay file: %w", err)
		}
		log.Info("replay loaded", zap.String("file", opts.replayPath), zap.Int("frames", player.Len()))
		if n := player.Skipped(); n > 0 {
			log.Warn("replay frames skipped", zap.Int("skipped", n))
		}
		return player, func() {}, nil
	}

	poller := collector.NewPoller(collector.NewRegistry(collector.NewStartTimes()), cfg.Interval, log)
	if opts.recordPath == "" {
		return poller, func() {}, nil
	}
	f, err := os.Create(opts.recordPath)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create record file: %w", err)
	}
	rec := engine.NewRecorder(poller, f, log)
	return rec, func() {
		log.Info("recording closed", zap.String("file", opts.recordPath), zap.Int("frames", rec.Frames()))
		f.Close()
	}, nil
}

func runTUI(ctx context.Context, cfg config.Config, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	spec, err := sortSpec(cfg)
	if err != nil {
		return err
	}
	stageSig, forceSig, err := signals(cfg)
	if err != nil {
		return err
	}

	if os.Geteuid() != 0 && opts.replayPath == "" {
		fmt.Fprintf(os.Stderr, "Warning: running without root, signals to other users' processes will fail\n")
	}

	src, cleanup, err := buildSource(cfg, opts, log)
	if err != nil {
		return err
	}
	defer cleanup()

	bridge, err := engine.StartBridge(ctx, src, log)
	if err != nil {
		return err
	}
	defer bridge.Close()

	pipe := engine.NewPipeline(engine.PipelineConfig{
		MinSearchLen: cfg.MinSearchLen,
		Sort:         spec,
		Protection:   engine.NewProtection(cfg.ProtectedNames),
	}, engine.UnixSignaler{}, log)

	log.Info("session started",
		zap.Duration("interval", cfg.Interval),
		zap.Int("min_search_len", cfg.MinSearchLen),
		zap.Bool("replay", opts.replayPath != ""))

	// The background query reads the tty, so it has to finish before
	// bubbletea takes over input.
	dark := ui.DetectDarkBackground()
	m := ui.NewModel(bridge, pipe, ui.Options{
		PollInterval: cfg.PollInterval,
		Dark:         dark,
		StageSignal:  stageSig,
		ForceSignal:  forceSig,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
