package logging

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/nanoserve/nanoserve/internal/testutil"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		want    slog.Level
		wantErr bool
	}{
		{name: "debug", level: "debug", want: slog.LevelDebug},
		{name: "info", level: "info", want: slog.LevelInfo},
		{name: "warn", level: "warn", want: slog.LevelWarn},
		{name: "warning alias", level: "warning", want: slog.LevelWarn},
		{name: "error", level: "error", want: slog.LevelError},
		{name: "case insensitive", level: "INFO", want: slog.LevelInfo},
		{name: "unknown", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(Options{Level: tt.level})
			if tt.wantErr {
				testutil.AssertError(t, err)
				return
			}
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, tt.want, log.Level())
		})
	}
}

func TestSetLevel(t *testing.T) {
	log, err := New(Options{Level: "info"})
	testutil.AssertNoError(t, err)

	if log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled at info level")
	}

	testutil.AssertNoError(t, log.SetLevel("debug"))
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled after SetLevel")
	}

	testutil.AssertError(t, log.SetLevel("nonsense"))
	testutil.AssertEqual(t, slog.LevelDebug, log.Level())
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nanoserve.log")
	log, err := New(Options{Level: "info", File: path, MaxSizeMB: 1})
	testutil.AssertNoError(t, err)

	log.Info("line one")
}
