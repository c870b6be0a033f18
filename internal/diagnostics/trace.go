package diagnostics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
)

// TraceSink records events on the span active in the report context.
type TraceSink struct{}

// Report implements ports.DiagnosticsSink.
func (TraceSink) Report(ctx context.Context, ev domain.DiagnosticEvent) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("hooks.kind", string(ev.Kind)),
		attribute.String("hooks.hook", string(ev.Hook)),
		attribute.Int("hooks.attempt", ev.Attempt),
	}
	if ev.Handler != "" {
		attrs = append(attrs, attribute.String("hooks.handler", ev.Handler))
	}
	if ev.Reason != "" {
		attrs = append(attrs, attribute.String("hooks.reason", ev.Reason))
	}
	if ev.Delay > 0 {
		attrs = append(attrs, attribute.Int64("hooks.delay_ms", ev.Delay.Milliseconds()))
	}
	if ev.Err != nil {
		attrs = append(attrs, attribute.String("hooks.error", ev.Err.Error()))
	}

	span.AddEvent("hooks."+string(ev.Kind), trace.WithAttributes(attrs...), trace.WithTimestamp(ev.Timestamp))
}

var _ ports.DiagnosticsSink = TraceSink{}
