package domain

import "time"

// HookKind identifies a lifecycle point at which a chain runs.
type HookKind string

const (
	// HookBefore gates the operation before it executes.
	HookBefore HookKind = "before"
	// HookAfter observes a successful operation.
	HookAfter HookKind = "after"
	// HookBlocked observes an operation the before chain blocked.
	HookBlocked HookKind = "blocked"
	// HookFailed observes an operation that returned an error.
	HookFailed HookKind = "failed"
)

// Gating reports whether chains of this kind decide the operation.
func (k HookKind) Gating() bool {
	return k == HookBefore
}

// DiagnosticKind classifies diagnostic events.
type DiagnosticKind string

const (
	DiagnosticError          DiagnosticKind = "error"
	DiagnosticBlock          DiagnosticKind = "block"
	DiagnosticRetry          DiagnosticKind = "retry"
	DiagnosticRetryExhausted DiagnosticKind = "retry_exhausted"
	DiagnosticFallback       DiagnosticKind = "fallback"
)

// DiagnosticEvent is a structured record emitted to a diagnostics sink.
type DiagnosticEvent struct {
	Kind        DiagnosticKind `json:"kind"`
	Hook        HookKind       `json:"hook,omitempty"`
	Handler     string         `json:"handler,omitempty"`
	OperationID string         `json:"operation_id,omitempty"`
	Attempt     int            `json:"attempt"`
	Path        string         `json:"path,omitempty"`
	Method      string         `json:"method,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Delay       time.Duration  `json:"delay_ns,omitempty"`
	Err         error          `json:"-"`
	Timestamp   time.Time      `json:"timestamp"`
}

// NewDiagnosticEvent fills the context-derived fields of an event.
func NewDiagnosticEvent(kind DiagnosticKind, hook HookKind, hc *HookContext) DiagnosticEvent {
	ev := DiagnosticEvent{
		Kind:      kind,
		Hook:      hook,
		Timestamp: time.Now(),
	}
	if hc != nil {
		ev.OperationID = hc.OperationID()
		ev.Attempt = hc.Attempt()
		ev.Path = hc.Path()
		ev.Method = hc.Method()
	}
	return ev
}

// ErrorString returns the event error text, or "".
func (e DiagnosticEvent) ErrorString() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
