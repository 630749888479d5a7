// Package logger configures the process-wide slog.Logger: level parsing,
// third-party noise filtering, and a small set of human-readable output
// formats for terminal and file sinks. Every package in loom logs
// through slog.Default() rather than holding its own logger, so Init is
// meant to run once, early in cmd/loom's main.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

var defaultLogger *slog.Logger

const loomPackagePrefix = "github.com/loomwork/loom"

// ParseLevel converts a case-insensitive level name to a slog.Level.
// Unrecognized names fall back to warn rather than erroring, since a
// bad --log-level flag shouldn't crash a running team.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, nil
	}
}

// filteringHandler wraps a slog.Handler and drops third-party library
// logs (anything whose call site isn't under loomPackagePrefix) unless
// the configured level is debug. Agent runtimes pull in LLM/HTTP
// clients that log aggressively at info; without this, a RUNNING team
// would be unreadable at the default level.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel && h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug || h.fromLoom(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

// fromLoom reports whether pc's function or file belongs to one of
// loom's own packages, distinguishing loom's logs from a vendored
// dependency's.
func (h *filteringHandler) fromLoom(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	file, _ := fn.FileLine(pc)
	return strings.Contains(fn.Name(), loomPackagePrefix) || strings.Contains(file, "loom/")
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\033[31m" // red
	case level >= slog.LevelWarn:
		return "\033[33m" // yellow
	case level >= slog.LevelInfo:
		return "\033[36m" // cyan
	default:
		return "\033[90m" // gray
	}
}

func isTerminal(file *os.File) bool {
	fi, err := file.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func normalizedLevel(l slog.Level) string {
	s := l.String()
	if s == "WARNING" {
		return "WARN"
	}
	return s
}

// textHandler renders records as "[time] LEVEL message k=v ...", with
// the time prefix and ANSI coloring each independently switchable —
// covering loom's three on-disk formats (simple, verbose, and the
// colored terminal variants of both) without three near-duplicate
// handler types.
type textHandler struct {
	writer    io.Writer
	withTime  bool
	useColor  bool
}

func (h *textHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *textHandler) Handle(_ context.Context, record slog.Record) error {
	var buf strings.Builder

	if h.withTime && !record.Time.IsZero() {
		buf.WriteString(record.Time.Format("2006/01/02 15:04:05 "))
	}

	levelStr := normalizedLevel(record.Level)
	if h.useColor {
		buf.WriteString(levelColor(record.Level))
		buf.WriteString(levelStr)
		buf.WriteString("\033[0m")
	} else {
		buf.WriteString(levelStr)
	}
	buf.WriteString(" ")
	buf.WriteString(record.Message)

	record.Attrs(func(a slog.Attr) bool {
		buf.WriteString(" ")
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(a.Value.String())
		return true
	})
	buf.WriteString("\n")

	_, err := h.writer.Write([]byte(buf.String()))
	return err
}

func (h *textHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *textHandler) WithGroup(string) slog.Handler      { return h }

// Init installs the process-wide default logger. format selects the
// on-disk shape: "simple" (level + message, the default), "verbose"
// (adds a timestamp), or anything else (slog's standard key=value
// text format). The simple and verbose formats add ANSI coloring
// automatically when output is a terminal; slog's format is never
// colored.
func Init(level slog.Level, output *os.File, format string) {
	simple := format == "simple" || format == ""
	verbose := format == "verbose"
	useColor := isTerminal(output)

	var handler slog.Handler
	switch {
	case simple || verbose:
		handler = &textHandler{writer: output, withTime: verbose, useColor: useColor}
	default:
		opts := &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.LevelKey && a.Value.String() == "WARNING" {
					return slog.String(slog.LevelKey, "WARN")
				}
				return a
			},
		}
		handler = slog.NewTextHandler(output, opts)
	}

	defaultLogger = slog.New(&filteringHandler{handler: handler, minLevel: level})
	slog.SetDefault(defaultLogger)
}

// OpenLogFile opens (creating if needed) a file for append-mode log
// output, returning a cleanup func the caller should defer.
func OpenLogFile(path string) (*os.File, func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { file.Close() }, nil
}

// GetLogger returns the process-wide logger, initializing it at info
// level with the simple format if Init hasn't run yet.
func GetLogger() *slog.Logger {
	if defaultLogger == nil {
		Init(slog.LevelInfo, os.Stderr, "simple")
	}
	return defaultLogger
}
