// Package log is a small, contextual, leveled logger whose call shape
// mirrors the teacher's pkg/util/log (Infof(ctx, ...), Warningf(ctx, ...),
// VEventf(ctx, level, ...)), without vendoring that package's machinery
// (cluster settings, log channels, redaction policy) which has no home in
// this core — see DESIGN.md. There is no process-wide default logger, per
// Design Notes §9: a *Logger is constructed once and injected into the
// compiler.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Logger is injected into compiler.Compiler at construction and passed
// explicitly to the phases that log.
type Logger struct {
	sl      *slog.Logger
	verbose int
}

// New builds a Logger writing to os.Stderr at the given verbosity level;
// VEventf calls at a level above verbosity are dropped without formatting
// their arguments.
func New(verbosity int) *Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &Logger{sl: slog.New(h), verbose: verbosity}
}

// Infof logs at info level.
func (l *Logger) Infof(ctx context.Context, format string, args ...any) {
	if l == nil {
		return
	}
	l.sl.InfoContext(ctx, sprintf(format, args...))
}

// Warningf logs at warn level, used for recoverable situations such as an
// unrecognized compiler hint (§7 "Invalid hint value").
func (l *Logger) Warningf(ctx context.Context, format string, args ...any) {
	if l == nil {
		return
	}
	l.sl.WarnContext(ctx, sprintf(format, args...))
}

// Errorf logs at error level.
func (l *Logger) Errorf(ctx context.Context, format string, args ...any) {
	if l == nil {
		return
	}
	l.sl.ErrorContext(ctx, sprintf(format, args...))
}

// VEventf logs at a debug level gated by verbosity: a call at level higher
// than the logger's configured verbosity is skipped entirely.
func (l *Logger) VEventf(ctx context.Context, level int, format string, args ...any) {
	if l == nil || level > l.verbose {
		return
	}
	l.sl.DebugContext(ctx, sprintf(format, args...))
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
