package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrNoConfigDir is returned when no config directory can be determined.
var ErrNoConfigDir = errors.New("cannot determine config directory")

// Config holds user-configurable defaults.
type Config struct {
	Interval         time.Duration `json:"interval" mapstructure:"interval"`
	PollInterval     time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
	MinSearchLen     int           `json:"min_search_len" mapstructure:"min_search_len"`
	DefaultSort      string        `json:"default_sort" mapstructure:"default_sort"`
	DefaultDirection string        `json:"default_direction" mapstructure:"default_direction"`
	ProtectedNames   []string      `json:"protected_names" mapstructure:"protected_names"`
	StageSignal      string        `json:"stage_signal" mapstructure:"stage_signal"`
	ForceSignal      string        `json:"force_signal" mapstructure:"force_signal"`
	Log              LogConfig     `json:"log" mapstructure:"log"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	File       string `json:"file" mapstructure:"file"`
	Level      string `json:"level" mapstructure:"level"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
}

// MarshalJSON writes durations as strings such as "1s" so the file stays
// hand-editable. Load accepts both strings and nanosecond integers.
func (c Config) MarshalJSON() ([]byte, error) {
	type plain Config
	return json.Marshal(struct {
		plain
		Interval     string `json:"interval"`
		PollInterval string `json:"poll_interval"`
	}{plain(c), c.Interval.String(), c.PollInterval.String()})
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		Interval:         time.Second,
		PollInterval:     50 * time.Millisecond,
		MinSearchLen:     3,
		DefaultSort:      "cpu",
		DefaultDirection: "desc",
		StageSignal:      "TERM",
		ForceSignal:      "KILL",
		Log: LogConfig{
			File:       DefaultLogPath(),
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Path returns ~/.config/killa/config.json (or XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "" // refuse to fall back to /tmp
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "killa", "config.json")
}

// DefaultLogPath returns ~/.local/state/killa/killa.log (or XDG_STATE_HOME).
func DefaultLogPath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "killa", "killa.log")
}

// SetDefaults registers every default on v so that flags, environment and
// file all layer over them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("interval", d.Interval)
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("min_search_len", d.MinSearchLen)
	v.SetDefault("default_sort", d.DefaultSort)
	v.SetDefault("default_direction", d.DefaultDirection)
	v.SetDefault("protected_names", d.ProtectedNames)
	v.SetDefault("stage_signal", d.StageSignal)
	v.SetDefault("force_signal", d.ForceSignal)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
}

// New returns a viper instance wired for killa: defaults, KILLA_* env
// overrides, and the config file at file (or Path() when empty).
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("KILLA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if file == "" {
		file = Path()
	}
	if file != "" {
		v.SetConfigFile(file)
	}
	return v
}

// Load reads the config file, if any, and decodes v into a Config.
// A missing file is not an error.
func Load(v *viper.Viper) (Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return Default(), fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)
}

// Validate checks values that would otherwise misbehave at runtime.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.MinSearchLen < 1 {
		return fmt.Errorf("min_search_len must be at least 1, got %d", c.MinSearchLen)
	}
	switch strings.ToLower(c.DefaultDirection) {
	case "asc", "desc", "":
	default:
		return fmt.Errorf("default_direction must be asc or desc, got %q", c.DefaultDirection)
	}
	return nil
}

// Save writes the config to path, or to Path() when path is empty.
func Save(cfg Config, path string) error {
	if path == "" {
		path = Path()
	}
	if path == "" {
		return ErrNoConfigDir
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
