package diagnostics

import (
	"context"
	"log/slog"

	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
)

// LogSink writes events to a slog.Logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink writing to logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Report implements ports.DiagnosticsSink.
func (s *LogSink) Report(ctx context.Context, ev domain.DiagnosticEvent) {
	attrs := []slog.Attr{
		slog.String("kind", string(ev.Kind)),
		slog.String("operation_id", ev.OperationID),
		slog.Int("attempt", ev.Attempt),
	}
	if ev.Hook != "" {
		attrs = append(attrs, slog.String("hook", string(ev.Hook)))
	}
	if ev.Handler != "" {
		attrs = append(attrs, slog.String("handler", ev.Handler))
	}
	if ev.Path != "" {
		attrs = append(attrs, slog.String("path", ev.Path))
	}
	if ev.Method != "" {
		attrs = append(attrs, slog.String("method", ev.Method))
	}
	if ev.Reason != "" {
		attrs = append(attrs, slog.String("reason", ev.Reason))
	}
	if ev.Delay > 0 {
		attrs = append(attrs, slog.Duration("delay", ev.Delay))
	}
	if ev.Err != nil {
		attrs = append(attrs, slog.String("error", ev.Err.Error()))
	}

	s.logger.LogAttrs(ctx, levelFor(ev.Kind), "hooks: "+string(ev.Kind), attrs...)
}

func levelFor(kind domain.DiagnosticKind) slog.Level {
	switch kind {
	case domain.DiagnosticError, domain.DiagnosticRetryExhausted:
		return slog.LevelWarn
	case domain.DiagnosticRetry:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

var _ ports.DiagnosticsSink = (*LogSink)(nil)
