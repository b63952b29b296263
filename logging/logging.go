// Package logging builds the zap logger used across killa. The TUI owns the
// terminal, so logs go to a rotating file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ftahirops/killa/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a JSON logger writing to cfg.File through lumberjack.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	path := cfg.File
	if path == "" {
		path = config.DefaultLogPath()
	}
	if path == "" {
		return Nop(), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	return NewWithSink(zapcore.AddSync(sink), level), nil
}

// NewWithSink builds a logger at level writing JSON to ws.
func NewWithSink(ws zapcore.WriteSyncer, level zapcore.Level) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, level)
	return zap.New(core).With(zap.Int("pid", os.Getpid()))
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger { return zap.NewNop() }
