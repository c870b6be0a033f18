package domain

import (
	"fmt"
	"time"
)

// DecisionKind discriminates the Decision variants.
type DecisionKind int

const (
	// DecisionNone is the zero value: the handler expressed no opinion.
	DecisionNone DecisionKind = iota
	DecisionAllow
	DecisionBlock
	DecisionRetry
	DecisionFallback
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionNone:
		return "none"
	case DecisionAllow:
		return "allow"
	case DecisionBlock:
		return "block"
	case DecisionRetry:
		return "retry"
	case DecisionFallback:
		return "fallback"
	}
	return fmt.Sprintf("DecisionKind(%d)", int(k))
}

// ParseDecisionKind maps an action name to its kind.
func ParseDecisionKind(s string) (DecisionKind, error) {
	switch s {
	case "", "none":
		return DecisionNone, nil
	case "allow":
		return DecisionAllow, nil
	case "block", "deny":
		return DecisionBlock, nil
	case "retry":
		return DecisionRetry, nil
	case "fallback":
		return DecisionFallback, nil
	}
	return DecisionNone, fmt.Errorf("unknown action %q", s)
}

// Decision is the result of a hook handler or of a whole chain.
// Gating hooks produce Allow, Block or Retry; notification hooks produce
// None or Fallback.
type Decision struct {
	Kind DecisionKind

	// Reason is an optional human-readable explanation.
	Reason string

	// Delay is the retry delay requested by the handler. It is only
	// meaningful when HasDelay is set; otherwise the configured default applies.
	Delay    time.Duration
	HasDelay bool

	// Data is the fallback payload.
	Data any
}

// Allow lets the operation proceed.
func Allow() Decision { return Decision{Kind: DecisionAllow} }

// Block stops the operation.
func Block(reason string) Decision { return Decision{Kind: DecisionBlock, Reason: reason} }

// Retry asks for the gating chain to run again after the configured default delay.
func Retry(reason string) Decision { return Decision{Kind: DecisionRetry, Reason: reason} }

// RetryAfter asks for the gating chain to run again after delay.
func RetryAfter(delay time.Duration, reason string) Decision {
	return Decision{Kind: DecisionRetry, Reason: reason, Delay: delay, HasDelay: true}
}

// Fallback signals that the caller should substitute data for the result.
func Fallback(data any, reason string) Decision {
	return Decision{Kind: DecisionFallback, Data: data, Reason: reason}
}

// None is the empty decision.
func None() Decision { return Decision{} }

// FromBool converts the boolean handler shorthand.
func FromBool(ok bool) Decision {
	if ok {
		return Allow()
	}
	return Block("")
}

// IsAllow reports whether the decision allows the operation.
func (d Decision) IsAllow() bool { return d.Kind == DecisionAllow }

// IsBlock reports whether the decision blocks the operation.
func (d Decision) IsBlock() bool { return d.Kind == DecisionBlock }

// IsRetry reports whether the decision requests a retry.
func (d Decision) IsRetry() bool { return d.Kind == DecisionRetry }

// IsFallback reports whether the decision carries a fallback.
func (d Decision) IsFallback() bool { return d.Kind == DecisionFallback }

func (d Decision) String() string {
	if d.Reason == "" {
		return d.Kind.String()
	}
	return d.Kind.String() + ": " + d.Reason
}
