package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tjfontaine/hookgate/internal/core/domain"
)

// sequenceHandler returns its decisions in order, repeating the last one.
type sequenceHandler struct {
	decisions []domain.Decision
	calls     []*domain.HookContext
}

func (h *sequenceHandler) Handle(ctx context.Context, hc *domain.HookContext) (domain.Decision, error) {
	h.calls = append(h.calls, hc)
	i := len(h.calls) - 1
	if i >= len(h.decisions) {
		i = len(h.decisions) - 1
	}
	return h.decisions[i], nil
}

// recordingSleeper records requested delays without waiting.
type recordingSleeper struct {
	delays []time.Duration
	err    error
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

func okExec(status int) (ExecuteFunc, *int) {
	calls := 0
	return func(ctx context.Context, hc *domain.HookContext) (*domain.Response, error) {
		calls++
		return &domain.Response{Status: status}, nil
	}, &calls
}

func TestEngine_Run_NoHooks(t *testing.T) {
	e := NewEngine(Hooks{})
	exec, calls := okExec(200)

	res, err := e.Run(context.Background(), FromContext(requestCtx("GET", "/")), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Decision.IsAllow() || !res.Executed || *calls != 1 {
		t.Errorf("unexpected result: %+v (calls=%d)", res, *calls)
	}
	if res.Response.Status != 200 || res.Attempts != 1 {
		t.Errorf("unexpected response/attempts: %+v", res)
	}
	if res.Fallback != nil || len(res.Fallbacks) != 0 {
		t.Error("expected no fallback")
	}
}

func TestEngine_Run_Blocked(t *testing.T) {
	sink := &recordingSink{}
	blocked := &mockHandler{name: "on-block"}
	after := &mockHandler{name: "after"}

	e := NewEngine(Hooks{
		Before:  Single(&mockHandler{name: "deny", decision: domain.Block("no entry")}),
		Blocked: Single(blocked),
		After:   Single(after),
	}, WithSink(sink))
	exec, calls := okExec(200)

	res, err := e.Run(context.Background(), FromContext(requestCtx("GET", "/admin")), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Blocked() || res.Decision.Reason != "no entry" {
		t.Errorf("expected block, got %v", res.Decision)
	}
	if res.Executed || *calls != 0 {
		t.Error("blocked operation was executed")
	}
	if len(after.calls) != 0 {
		t.Error("after hooks ran for a blocked operation")
	}
	if len(blocked.calls) != 1 {
		t.Fatalf("blocked hooks ran %d times, want 1", len(blocked.calls))
	}
	if reason, _ := blocked.calls[0].Value(MetadataBlockReason); reason != "no entry" {
		t.Errorf("block reason metadata = %v", reason)
	}
	if sink.count(domain.DiagnosticBlock) != 1 {
		t.Errorf("expected one block diagnostic, got %v", sink.kinds())
	}
}

func TestEngine_Gate_RetryThenAllow(t *testing.T) {
	sink := &recordingSink{}
	sleeper := &recordingSleeper{}
	h := &sequenceHandler{decisions: []domain.Decision{
		domain.RetryAfter(100, "warming"),
		domain.RetryAfter(100, "warming"),
		domain.Allow(),
	}}

	e := NewEngine(Hooks{Before: Single(h)}, WithSink(sink), WithSleeper(sleeper.sleep))
	res, err := e.Gate(context.Background(), FromContext(requestCtx("GET", "/")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Decision.IsAllow() || res.Exhausted {
		t.Errorf("expected allow, got %+v", res)
	}
	if res.Attempts != 3 || res.Retries != 2 {
		t.Errorf("attempts=%d retries=%d, want 3 and 2", res.Attempts, res.Retries)
	}
	if len(sleeper.delays) != 2 || sleeper.delays[0] != 100 || sleeper.delays[1] != 100 {
		t.Errorf("delays = %v", sleeper.delays)
	}
	if sink.count(domain.DiagnosticRetry) != 2 {
		t.Errorf("diagnostics = %v", sink.kinds())
	}

	// Each retry sees a fresh context for the same operation.
	for i, hc := range h.calls {
		if hc.Attempt() != i {
			t.Errorf("call %d saw attempt %d", i, hc.Attempt())
		}
		if hc.OperationID() != "op-1" {
			t.Errorf("call %d saw operation %q", i, hc.OperationID())
		}
	}
	if h.calls[0] == h.calls[1] {
		t.Error("retry reused the previous context")
	}
}

func TestEngine_Gate_RetryExhaustedAllows(t *testing.T) {
	sink := &recordingSink{}
	sleeper := &recordingSleeper{}
	h := &sequenceHandler{decisions: []domain.Decision{domain.Retry("again")}}
	exec, calls := okExec(200)

	e := NewEngine(Hooks{Before: Single(h)},
		WithRetryConfig(RetryConfig{MaxRetries: 3, DefaultDelay: 50, ExponentialBackoff: true, MaxDelay: 300}),
		WithSink(sink),
		WithSleeper(sleeper.sleep),
	)

	res, err := e.Run(context.Background(), FromContext(requestCtx("GET", "/")), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Decision.IsAllow() || !res.Exhausted {
		t.Errorf("expected exhausted allow, got %+v", res.GateResult)
	}
	if len(h.calls) != 4 {
		t.Errorf("chain evaluated %d times, want 4 (initial + 3 retries)", len(h.calls))
	}
	want := []time.Duration{50, 100, 200}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", sleeper.delays, want)
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, sleeper.delays[i], want[i])
		}
	}
	if *calls != 1 {
		t.Error("operation should proceed after exhausting retries")
	}
	if sink.count(domain.DiagnosticRetryExhausted) != 1 {
		t.Errorf("diagnostics = %v", sink.kinds())
	}
}

func TestEngine_Gate_NoRetries(t *testing.T) {
	sleeper := &recordingSleeper{}
	h := &sequenceHandler{decisions: []domain.Decision{domain.Retry("")}}

	e := NewEngine(Hooks{Before: Single(h)}, WithRetryConfig(RetryConfig{MaxRetries: NoRetries}), WithSleeper(sleeper.sleep))
	res, _ := e.Gate(context.Background(), FromContext(requestCtx("GET", "/")))

	if !res.Decision.IsAllow() || !res.Exhausted || len(h.calls) != 1 || len(sleeper.delays) != 0 {
		t.Errorf("unexpected result with retries disabled: %+v calls=%d", res, len(h.calls))
	}
}

func TestEngine_Gate_UnsetMaxRetriesUsesDefault(t *testing.T) {
	sleeper := &recordingSleeper{}
	h := &sequenceHandler{decisions: []domain.Decision{domain.Retry("")}}

	e := NewEngine(Hooks{Before: Single(h)},
		WithRetryConfig(RetryConfig{ExponentialBackoff: true, DefaultDelay: 50 * time.Millisecond}),
		WithSleeper(sleeper.sleep),
	)
	res, err := e.Gate(context.Background(), FromContext(requestCtx("GET", "/")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Decision.IsAllow() || !res.Exhausted || res.Retries != DefaultMaxRetries {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(h.calls) != DefaultMaxRetries+1 {
		t.Errorf("calls = %d, want %d", len(h.calls), DefaultMaxRetries+1)
	}
	want := []time.Duration{50 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", sleeper.delays, want)
	}
	for i, d := range want {
		if sleeper.delays[i] != d {
			t.Errorf("delay[%d] = %v, want %v", i, sleeper.delays[i], d)
		}
	}
}

func TestEngine_Gate_RetryThenBlock(t *testing.T) {
	blocked := &mockHandler{name: "on-block"}
	h := &sequenceHandler{decisions: []domain.Decision{domain.Retry(""), domain.Block("gave up")}}

	e := NewEngine(Hooks{Before: Single(h), Blocked: Single(blocked)}, WithSleeper((&recordingSleeper{}).sleep))
	res, err := e.Gate(context.Background(), FromContext(requestCtx("GET", "/")))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Decision.IsBlock() || res.Attempts != 2 || res.Retries != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(blocked.calls) != 1 || blocked.calls[0].Attempt() != 1 {
		t.Error("blocked hooks should see the final attempt")
	}
}

func TestEngine_Gate_CancelledDuringDelay(t *testing.T) {
	h := &sequenceHandler{decisions: []domain.Decision{domain.RetryAfter(time.Hour, "")}}
	exec, calls := okExec(200)

	ctx, cancel := context.WithCancel(context.Background())
	e := NewEngine(Hooks{Before: Single(h)}, WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return Sleep(ctx, d)
	}))

	res, err := e.Run(ctx, FromContext(requestCtx("GET", "/")), exec)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(h.calls) != 1 {
		t.Errorf("chain re-ran after cancellation: %d calls", len(h.calls))
	}
	if res.Executed || *calls != 0 {
		t.Error("abandoned operation was executed")
	}
}

func TestEngine_Run_AfterHooksAndFallback(t *testing.T) {
	sink := &recordingSink{}
	failing := &mockHandler{name: "failing", err: errors.New("boom")}
	first := &mockHandler{name: "first", decision: domain.Fallback(map[string]any{"cached": true}, "stale")}
	second := &mockHandler{name: "second", decision: domain.Fallback("other", "also")}

	e := NewEngine(Hooks{After: Scoped(
		ScopedHandler{Handler: failing},
		ScopedHandler{Handler: first},
		ScopedHandler{Handler: second},
	)}, WithSink(sink))
	exec, _ := okExec(200)

	res, err := e.Run(context.Background(), FromContext(requestCtx("GET", "/items")), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Response == nil || res.Response.Status != 200 {
		t.Errorf("fallback must not change the result: %+v", res.Response)
	}
	if res.Fallback == nil || res.Fallback.Reason != "stale" {
		t.Fatalf("expected first fallback, got %+v", res.Fallback)
	}
	if len(res.Fallbacks) != 2 || res.Fallbacks[1].Data != "other" {
		t.Errorf("fallbacks = %+v", res.Fallbacks)
	}
	if len(second.calls) != 1 {
		t.Error("after chain stopped early")
	}

	outcome := first.calls[0].Outcome()
	if outcome == nil || outcome.Response.Status != 200 || outcome.Failed() {
		t.Errorf("after hook saw outcome %+v", outcome)
	}
	if sink.count(domain.DiagnosticError) != 1 || sink.count(domain.DiagnosticFallback) != 1 {
		t.Errorf("diagnostics = %v", sink.kinds())
	}
}

func TestEngine_Run_Failed(t *testing.T) {
	failed := &mockHandler{name: "on-fail", decision: domain.Fallback("x", "")}
	after := &mockHandler{name: "after"}
	execErr := errors.New("upstream down")

	e := NewEngine(Hooks{After: Single(after), Failed: Single(failed)})
	res, err := e.Run(context.Background(), FromContext(requestCtx("GET", "/")), func(ctx context.Context, hc *domain.HookContext) (*domain.Response, error) {
		return &domain.Response{Status: 502}, execErr
	})
	if err != nil {
		t.Fatalf("execution errors are not returned: %v", err)
	}

	if !res.Executed || !errors.Is(res.Err, execErr) {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(after.calls) != 0 {
		t.Error("after hooks ran for a failed operation")
	}
	if len(failed.calls) != 1 {
		t.Fatalf("failed hooks ran %d times", len(failed.calls))
	}
	o := failed.calls[0].Outcome()
	if !o.Failed() || o.Response.Status != 502 {
		t.Errorf("failed hook saw outcome %+v", o)
	}
	if res.Fallback != nil {
		t.Error("failed hooks do not raise fallbacks")
	}
}

func TestEngine_Options(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 7}
	e := NewEngine(Hooks{Before: Single(&mockHandler{})}, WithRetryConfig(cfg), WithSleeper(nil), WithLogger(nil), WithSink(nil))

	if e.RetryConfig() != cfg {
		t.Errorf("RetryConfig() = %+v", e.RetryConfig())
	}
	if e.Hooks().Before.Len() != 1 {
		t.Error("Hooks() lost the before set")
	}
	if e.sleep == nil || e.logger == nil || e.sink == nil {
		t.Error("nil options should fall back to defaults")
	}
}

func TestFromContext(t *testing.T) {
	hc := requestCtx("GET", "/x").WithMetadata("k", "v")
	src := FromContext(hc)

	if src(0) != hc {
		t.Error("attempt 0 should return the original context")
	}
	next := src(2)
	if next.Attempt() != 2 || next.OperationID() != "op-1" || next.Outcome() != nil {
		t.Errorf("unexpected derived context: attempt=%d op=%q", next.Attempt(), next.OperationID())
	}
	if v, _ := next.Value("k"); v != "v" {
		t.Error("metadata should carry over")
	}
}

func TestEngine_Guard(t *testing.T) {
	allow := NewEngine(Hooks{Before: Single(&mockHandler{name: "ok", decision: domain.Allow()})})
	if err := allow.Guard(context.Background(), requestCtx("GET", "/")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	deny := NewEngine(Hooks{Before: Single(&mockHandler{name: "deny", decision: domain.Block("closed")})})
	err := deny.Guard(context.Background(), requestCtx("GET", "/"))
	if !domain.IsBlocked(err) {
		t.Fatalf("expected BlockedError, got %v", err)
	}
	var be *domain.BlockedError
	if !errors.As(err, &be) || be.Reason != "closed" {
		t.Errorf("unexpected blocked error: %#v", err)
	}
}
