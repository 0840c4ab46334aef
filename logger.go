package mmseq

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with mmseq-specific helpers so every component
// logs with the same field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output. It is the
// default for every opened file.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogOpen logs the mapping of a data file.
func (l *Logger) LogOpen(ctx context.Context, path string, size int64, windows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"path", path,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "file mapped",
		"path", path,
		"size", size,
		"windows", windows,
	)
}

// LogIndexBuilt logs the result of a full index scan.
func (l *Logger) LogIndexBuilt(ctx context.Context, path string, lines, buckets int, elapsed time.Duration) {
	l.InfoContext(ctx, "line index built",
		"path", path,
		"lines", lines,
		"buckets", buckets,
		"elapsed", elapsed,
	)
}

// LogSidecar logs a sidecar index load or save. A failure is a warning: the
// index is rebuilt or simply not persisted.
func (l *Logger) LogSidecar(ctx context.Context, op, path string, err error) {
	if err != nil {
		l.WarnContext(ctx, "sidecar "+op+" failed",
			"sidecar", path,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "sidecar "+op+" completed",
		"sidecar", path,
	)
}

// LogSplit logs a range split. Unsplittable ranges are logged with ok=false.
func (l *Logger) LogSplit(ctx context.Context, start, end, at int64, ok bool) {
	l.DebugContext(ctx, "range split",
		"start", start,
		"end", end,
		"at", at,
		"ok", ok,
	)
}
