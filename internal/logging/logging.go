// Package logging builds the process-wide structured logger: JSON output
// to stdout or a rotated file, with a level that can be changed while the
// server is running.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls log output. An empty File writes to stdout.
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger wraps the slog logger with its adjustable level.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New builds a JSON logger from the options. The returned Logger keeps a
// handle on the level so SetLevel works after handlers are wired up.
func New(opts Options) (*Logger, error) {
	level := new(slog.LevelVar)
	if err := setLevel(level, opts.Level); err != nil {
		return nil, err
	}

	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	return &Logger{
		Logger: slog.New(handler),
		level:  level,
	}, nil
}

// SetLevel changes the minimum level of every handler built from this
// logger. Used by the config watcher for runtime adjustment.
func (l *Logger) SetLevel(name string) error {
	return setLevel(l.level, name)
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

func setLevel(v *slog.LevelVar, name string) error {
	switch strings.ToLower(name) {
	case "debug":
		v.Set(slog.LevelDebug)
	case "info":
		v.Set(slog.LevelInfo)
	case "warn", "warning":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level %q", name)
	}
	return nil
}
