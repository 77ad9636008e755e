package quantvec

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with index-specific helpers so operations log
// consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler falls
// back to a text handler on stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger emitting human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NewJSONLogger creates a Logger emitting JSON to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable level
	}))}
}

// LogAdd logs a batch insert.
func (l *Logger) LogAdd(ctx context.Context, count, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "add completed with failures",
			"total", count,
			"failed", failed,
		)
		return
	}
	l.DebugContext(ctx, "add completed", "count", count)
}

// LogSearch logs a batch search.
func (l *Logger) LogSearch(ctx context.Context, queries, k int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed", "queries", queries, "k", k, "error", err)
		return
	}
	l.DebugContext(ctx, "search completed", "queries", queries, "k", k)
}

// LogDelete logs a tombstone delete.
func (l *Logger) LogDelete(ctx context.Context, label uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed", "label", label, "error", err)
		return
	}
	l.DebugContext(ctx, "delete completed", "label", label)
}

// LogSnapshot logs a save or load.
func (l *Logger) LogSnapshot(ctx context.Context, op, filename string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed", "op", op, "filename", filename, "error", err)
		return
	}
	l.InfoContext(ctx, "snapshot completed", "op", op, "filename", filename)
}
