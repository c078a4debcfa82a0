package stain

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically because backends
// log from their own pipeline goroutines.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for stain. By default stain produces no
// log output. Pass nil to restore the silent default.
//
// Log levels used by stain:
//   - [slog.LevelDebug]: per-frame statistics (compile time, primitive counts, wait time)
//   - [slog.LevelInfo]: lifecycle events (backend started, scene reloaded)
//   - [slog.LevelWarn]: non-fatal issues (failed transactions, placeholder images)
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by stain.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
