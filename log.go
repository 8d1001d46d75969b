package lifetime

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

// SetLogger replaces the logger used for lifetime diagnostics.
// Passing nil restores the default, which follows slog.Default.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
}

func log() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

func debugEnabled() bool {
	return log().Enabled(context.Background(), slog.LevelDebug)
}
