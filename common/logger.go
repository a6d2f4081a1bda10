package common

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// discardHandler is a slog.Handler that drops every record. Enabled reports false
// so callers skip formatting altogether.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

var engineLogger atomic.Pointer[slog.Logger]

func init() {
	engineLogger.Store(slog.New(discardHandler{}))
}

// SetLogger installs the logger used by every engine package.
// The engine is silent by default; pass nil to silence it again.
//
// Levels used by the engine:
//   - slog.LevelDebug: per-pass diagnostics (viewport changes, world slot usage)
//   - slog.LevelInfo: lifecycle events (adapter selected, shared resources created, profiler stats)
//   - slog.LevelWarn: recoverable problems (frame skipped, resource already released)
//   - slog.LevelError: failed GPU operations surfaced from render goroutines
//
// Parameters:
//   - l: the logger to install, or nil to discard output
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(discardHandler{})
	}
	engineLogger.Store(l)
}

// Logger returns the logger installed with SetLogger. Safe for concurrent use.
//
// Returns:
//   - *slog.Logger: the current engine logger
func Logger() *slog.Logger {
	return engineLogger.Load()
}
