package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
)

// MetadataBlockReason is the metadata key under which blocked hooks find
// the reason the before chain gave.
const MetadataBlockReason = "hookgate.block_reason"

// ContextSource builds the hook context for a zero-based attempt. It is
// called once per attempt, so retries always see a fresh context.
type ContextSource func(attempt int) *domain.HookContext

// FromContext returns a source that uses hc for the first attempt and
// derives later attempts from it.
func FromContext(hc *domain.HookContext) ContextSource {
	return func(attempt int) *domain.HookContext {
		if attempt == 0 {
			return hc
		}
		return hc.ForAttempt(hc.Attempt()+attempt, time.Now())
	}
}

// ExecuteFunc performs the guarded operation. It may return a response
// together with an error when the operation produced output and failed.
type ExecuteFunc func(ctx context.Context, hc *domain.HookContext) (*domain.Response, error)

// GateResult is the outcome of the before chain and its retries.
type GateResult struct {
	// Decision is Allow or Block. Retry never escapes the engine.
	Decision domain.Decision
	// Context is the context of the final attempt.
	Context *domain.HookContext
	// Attempts counts before-chain evaluations.
	Attempts int
	// Retries counts honoured Retry decisions.
	Retries int
	// Exhausted is set when a Retry was downgraded to Allow.
	Exhausted bool
}

// Result is the outcome of a full operation.
type Result struct {
	GateResult

	// Executed is set when the ExecuteFunc ran.
	Executed bool
	Response *domain.Response
	Err      error

	// Fallback is the first fallback raised by the after chain.
	Fallback *domain.Decision
	// Fallbacks lists every fallback raised by the after chain, in order.
	Fallbacks []domain.Decision
}

// Blocked reports whether the before chain stopped the operation.
func (r *Result) Blocked() bool {
	return r.Decision.IsBlock()
}

// Engine drives the hook lifecycle of an operation: gate, retry, execute,
// notify. Its configuration is fixed at construction.
type Engine struct {
	hooks  Hooks
	retry  RetryConfig
	sink   ports.DiagnosticsSink
	logger *slog.Logger
	sleep  Sleeper
	runner *Runner
}

// Option configures an Engine.
type Option func(*Engine)

// WithRetryConfig replaces the default retry policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(e *Engine) {
		e.retry = cfg
	}
}

// WithSink sets the diagnostics sink.
func WithSink(sink ports.DiagnosticsSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithSleeper replaces the retry delay implementation.
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) {
		e.sleep = s
	}
}

// NewEngine creates an engine for the given hooks.
func NewEngine(hooks Hooks, opts ...Option) *Engine {
	e := &Engine{
		hooks: hooks,
		retry: DefaultRetryConfig(),
		sleep: Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.sink == nil {
		e.sink = ports.DiagnosticsFunc(func(context.Context, domain.DiagnosticEvent) {})
	}
	if e.sleep == nil {
		e.sleep = Sleep
	}
	e.runner = NewRunner(e.sink, e.logger)
	return e
}

// Hooks returns the configured hooks.
func (e *Engine) Hooks() Hooks {
	return e.hooks
}

// RetryConfig returns the configured retry policy.
func (e *Engine) RetryConfig() RetryConfig {
	return e.retry
}

// Gate runs the before chain, honouring Retry decisions, and runs the
// blocked hooks when the chain blocks. The only error returned is the
// context error when ctx ends during a retry delay.
func (e *Engine) Gate(ctx context.Context, source ContextSource) (GateResult, error) {
	state := NewRetryState(e.retry.Retries())

	for attempt := 0; ; attempt++ {
		hc := source(attempt)
		d := e.runner.RunGate(ctx, e.hooks.Before, hc)

		res := GateResult{
			Decision: d,
			Context:  hc,
			Attempts: attempt + 1,
			Retries:  state.AttemptCount,
		}

		switch {
		case d.IsBlock():
			e.block(ctx, hc, d)
			return res, nil

		case d.IsRetry():
			if state.Exhausted() {
				ev := domain.NewDiagnosticEvent(domain.DiagnosticRetryExhausted, domain.HookBefore, hc)
				ev.Reason = d.Reason
				e.sink.Report(ctx, ev)
				e.logger.Warn("hooks: retries exhausted, allowing",
					slog.String("operation_id", hc.OperationID()),
					slog.Int("retries", state.AttemptCount),
				)
				res.Decision = domain.Allow()
				res.Exhausted = true
				return res, nil
			}

			delay := ComputeDelay(e.retry, d, state.AttemptCount)
			ev := domain.NewDiagnosticEvent(domain.DiagnosticRetry, domain.HookBefore, hc)
			ev.Reason = d.Reason
			ev.Delay = delay
			e.sink.Report(ctx, ev)

			if err := e.sleep(ctx, delay); err != nil {
				e.logger.Debug("hooks: operation abandoned during retry delay",
					slog.String("operation_id", hc.OperationID()),
					slog.String("error", err.Error()),
				)
				return res, err
			}
			state.Record()

		default:
			res.Decision = domain.Allow()
			return res, nil
		}
	}
}

// Guard gates a single context and reports a Block as a
// *domain.BlockedError, for callers that speak in errors rather than
// decisions. The context error is returned when ctx ends during a retry
// delay.
func (e *Engine) Guard(ctx context.Context, hc *domain.HookContext) error {
	res, err := e.Gate(ctx, FromContext(hc))
	if err != nil {
		return err
	}
	if res.Decision.IsBlock() {
		return &domain.BlockedError{Reason: res.Decision.Reason}
	}
	return nil
}

// Run gates the operation, executes it when allowed and runs the after or
// failed hooks on its outcome. Execution errors are reported in the Result,
// not returned.
func (e *Engine) Run(ctx context.Context, source ContextSource, exec ExecuteFunc) (*Result, error) {
	gate, err := e.Gate(ctx, source)
	res := &Result{GateResult: gate}
	if err != nil || gate.Decision.IsBlock() {
		return res, err
	}

	resp, execErr := exec(ctx, gate.Context)
	res.Executed = true
	res.Response = resp
	res.Err = execErr

	if execErr != nil {
		failed := gate.Context.WithOutcome(domain.Outcome{Response: resp, Err: execErr})
		e.runner.RunNotify(ctx, domain.HookFailed, e.hooks.Failed, failed)
		return res, nil
	}

	done := gate.Context.WithOutcome(domain.Outcome{Response: resp})
	decisions := e.runner.RunNotify(ctx, domain.HookAfter, e.hooks.After, done)

	res.Fallbacks = CollectFallbacks(decisions)
	if fb, ok := ExtractFallback(decisions); ok {
		res.Fallback = &fb
		ev := domain.NewDiagnosticEvent(domain.DiagnosticFallback, domain.HookAfter, done)
		ev.Reason = fb.Reason
		e.sink.Report(ctx, ev)
	}

	return res, nil
}

func (e *Engine) block(ctx context.Context, hc *domain.HookContext, d domain.Decision) {
	ev := domain.NewDiagnosticEvent(domain.DiagnosticBlock, domain.HookBefore, hc)
	ev.Reason = d.Reason
	e.sink.Report(ctx, ev)

	if e.hooks.Blocked.Empty() {
		return
	}
	e.runner.RunNotify(ctx, domain.HookBlocked, e.hooks.Blocked, hc.WithMetadata(MetadataBlockReason, d.Reason))
}
