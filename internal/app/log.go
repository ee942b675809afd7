package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// svHandler formats log records as tab-separated lines:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
//
// Records at or above minLevel go to w. Records at or above echoLevel are
// also written to echo, when set.
type svHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	echo      io.Writer
	minLevel  slog.Level
	echoLevel slog.Level
	opID      string
	attrs     []slog.Attr
}

func (h *svHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel
}

func (h *svHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%s\t%s\t%s", r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level, h.opID, r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')
	line := b.String()

	if h.mu != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
	}
	if _, err := io.WriteString(h.w, line); err != nil {
		return err
	}
	if h.echo != nil && r.Level >= h.echoLevel {
		if _, err := io.WriteString(h.echo, line); err != nil {
			return err
		}
	}
	return nil
}

func (h *svHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &c
}

func (h *svHandler) WithGroup(string) slog.Handler { return h }

// parseLevel maps $SV_LOG_LEVEL onto a slog level. Unknown values mean info.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newLogger creates a structured logger that writes to logDir/sv.log, and
// echoes warnings and errors to stderr. It returns the slog.Logger, the open
// log file (for cleanup), and any error.
func newLogger(logDir string, opID string) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "sv.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := &svHandler{
		mu:        &sync.Mutex{},
		w:         f,
		echo:      os.Stderr,
		minLevel:  parseLevel(os.Getenv(EnvLogLevel)),
		echoLevel: slog.LevelWarn,
		opID:      opID,
	}
	return slog.New(handler), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the sv.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
