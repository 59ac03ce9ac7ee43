package observability

import (
	"log/slog"
	"os"
	"time"

	"github.com/agroclim/gdd-tracker/internal/domain"
)

// NewLogger builds the process logger from the configured level and format.
// Unknown values fall back to info/JSON.
func NewLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// LogSink adapts a slog.Logger to domain.ProgressSink so services get block
// and retry progress in their structured logs.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) BlockStarted(start, end time.Time) {
	s.Logger.Info("fetching block",
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
	)
}

func (s LogSink) FetchRetried(attempt, maxAttempts int, cause error) {
	s.Logger.Warn("block fetch retrying",
		"attempt", attempt,
		"max_attempts", maxAttempts,
		"error", cause,
	)
}

var _ domain.ProgressSink = LogSink{}
