package pipeline

import (
	"context"
	"log/slog"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
)

const tracerName = "github.com/tjfontaine/hookgate/internal/pipeline"

// Runner executes one handler set against one context and reduces the
// individual outcomes to a chain decision. It holds no per-operation state
// and is safe for concurrent use.
type Runner struct {
	sink   ports.DiagnosticsSink
	logger *slog.Logger
	tracer trace.Tracer
}

// NewRunner creates a runner that reports contained handler errors to sink.
// A nil sink discards them; a nil logger uses slog.Default.
func NewRunner(sink ports.DiagnosticsSink, logger *slog.Logger) *Runner {
	if sink == nil {
		sink = ports.DiagnosticsFunc(func(context.Context, domain.DiagnosticEvent) {})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		sink:   sink,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// RunGate evaluates a before chain. The first Block or Retry ends the chain;
// if no handler stops it the result is Allow. A failing handler blocks.
func (r *Runner) RunGate(ctx context.Context, set HandlerSet, hc *domain.HookContext) domain.Decision {
	ctx, span := r.startSpan(ctx, domain.HookBefore, set, hc)
	defer span.End()

	for _, h := range set.entries {
		if !h.Scope.MatchesContext(hc) {
			continue
		}

		d, err := r.invoke(ctx, domain.HookBefore, h, hc)
		if err != nil {
			r.reportError(ctx, span, domain.HookBefore, h, hc, err)
			span.SetAttributes(attribute.String("hooks.decision", domain.DecisionBlock.String()))
			return domain.Block("")
		}

		switch d.Kind {
		case domain.DecisionBlock, domain.DecisionRetry:
			r.logger.Debug("hooks: chain stopped",
				slog.String("handler", h.Name),
				slog.String("decision", d.String()),
				slog.String("path", hc.Path()),
			)
			span.SetAttributes(
				attribute.String("hooks.decision", d.Kind.String()),
				attribute.String("hooks.handler", h.Name),
			)
			return d
		}
	}

	span.SetAttributes(attribute.String("hooks.decision", domain.DecisionAllow.String()))
	return domain.Allow()
}

// RunNotify evaluates a notification chain. Every matching handler runs,
// even when an earlier one fails. The returned slice holds one classified
// decision per invoked handler, in evaluation order: a Fallback or None.
func (r *Runner) RunNotify(ctx context.Context, kind domain.HookKind, set HandlerSet, hc *domain.HookContext) []domain.Decision {
	if set.Empty() {
		return nil
	}

	ctx, span := r.startSpan(ctx, kind, set, hc)
	defer span.End()

	decisions := make([]domain.Decision, 0, len(set.entries))
	for _, h := range set.entries {
		if !h.Scope.MatchesContext(hc) {
			continue
		}

		d, err := r.invoke(ctx, kind, h, hc)
		if err != nil {
			r.reportError(ctx, span, kind, h, hc, err)
			decisions = append(decisions, domain.None())
			continue
		}

		if d.IsFallback() {
			decisions = append(decisions, d)
		} else {
			decisions = append(decisions, domain.None())
		}
	}

	span.SetAttributes(attribute.Int("hooks.invoked", len(decisions)))
	return decisions
}

// invoke calls a single handler, converting returned errors and panics into
// a HandlerError.
func (r *Runner) invoke(ctx context.Context, kind domain.HookKind, h ScopedHandler, hc *domain.HookContext) (d domain.Decision, err error) {
	defer func() {
		if p := recover(); p != nil {
			d = domain.None()
			err = &domain.HandlerError{
				Hook:    kind,
				Handler: h.Name,
				Panic:   p,
				Stack:   string(debug.Stack()),
			}
		}
	}()

	d, err = h.Handler.Handle(ctx, hc)
	if err != nil {
		return domain.None(), &domain.HandlerError{Hook: kind, Handler: h.Name, Err: err}
	}
	return d, nil
}

func (r *Runner) reportError(ctx context.Context, span trace.Span, kind domain.HookKind, h ScopedHandler, hc *domain.HookContext, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	attrs := []any{
		slog.String("hook", string(kind)),
		slog.String("handler", h.Name),
		slog.String("error", err.Error()),
	}
	if he, ok := err.(*domain.HandlerError); ok && he.Stack != "" {
		attrs = append(attrs, slog.String("stack", he.Stack))
	}
	r.logger.Warn("hooks: handler failed", attrs...)

	ev := domain.NewDiagnosticEvent(domain.DiagnosticError, kind, hc)
	ev.Handler = h.Name
	ev.Err = err
	r.sink.Report(ctx, ev)
}

func (r *Runner) startSpan(ctx context.Context, kind domain.HookKind, set HandlerSet, hc *domain.HookContext) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "hooks."+string(kind),
		trace.WithAttributes(
			attribute.String("hooks.kind", string(kind)),
			attribute.Int("hooks.handlers", set.Len()),
			attribute.String("hooks.path", hc.Path()),
			attribute.String("hooks.operation_id", hc.OperationID()),
			attribute.Int("hooks.attempt", hc.Attempt()),
		),
	)
}
