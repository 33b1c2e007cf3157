// Package logging wraps log/slog with the rotation and format selection
// conventions shared by every doraemon binary: text in debug mode, JSON in
// production, optional size-based file rotation alongside stdout.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Config controls how a Logger is constructed.
type Config struct {
	Level      slog.Level
	OutputFile string // empty means stdout only
	MaxSize    int64  // bytes before rotation, default 10MB
	MaxBackups int    // rotated files kept, default 3
	JSON       bool
	AddSource  bool
}

// Logger is a thin wrapper around *slog.Logger that owns an optional log
// file handle so callers can Close() it on shutdown.
type Logger struct {
	*slog.Logger
	file *os.File
	mu   sync.Mutex
	cfg  Config
}

// New builds a Logger from cfg, opening and rotating the output file if one
// is configured.
func New(cfg Config) (*Logger, error) {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 10 * 1024 * 1024
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 3
	}

	l := &Logger{cfg: cfg}
	writers := []io.Writer{os.Stdout}

	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		if err := l.rotateIfNeeded(); err != nil {
			return nil, fmt.Errorf("rotate log file: %w", err)
		}
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", cfg.OutputFile, err)
		}
		l.file = f
		writers = append(writers, f)
	}

	out := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	l.Logger = slog.New(handler)
	return l, nil
}

func (l *Logger) rotateIfNeeded() error {
	info, err := os.Stat(l.cfg.OutputFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < l.cfg.MaxSize {
		return nil
	}

	for i := l.cfg.MaxBackups - 1; i >= 1; i-- {
		old := fmt.Sprintf("%s.%d", l.cfg.OutputFile, i)
		next := fmt.Sprintf("%s.%d", l.cfg.OutputFile, i+1)
		if _, err := os.Stat(old); err == nil {
			os.Rename(old, next)
		}
	}
	return os.Rename(l.cfg.OutputFile, l.cfg.OutputFile+".1")
}

// Close releases the log file handle, if one is open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Production returns the config used by long-running daemons: JSON, INFO,
// no source locations, rotating file at logFile (empty disables the file).
func Production(logFile string) Config {
	return Config{Level: slog.LevelInfo, OutputFile: logFile, JSON: true}
}

// Debug returns the config used for local development: human-readable text
// on stdout only, with source locations.
func Debug() Config {
	return Config{Level: slog.LevelDebug, JSON: false, AddSource: true}
}
