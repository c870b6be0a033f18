package domain

import (
	"errors"
	"fmt"
)

// HandlerError wraps an error returned, or a panic raised, by a hook handler.
// It is contained by the runner and never crosses the chain boundary.
type HandlerError struct {
	Hook    HookKind
	Handler string
	Err     error
	// Panic holds the recovered value when the handler panicked.
	Panic any
	Stack string
}

func (e *HandlerError) Error() string {
	name := e.Handler
	if name == "" {
		name = "anonymous"
	}
	if e.Panic != nil {
		return fmt.Sprintf("%s hook %s panicked: %v", e.Hook, name, e.Panic)
	}
	return fmt.Sprintf("%s hook %s failed: %v", e.Hook, name, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// BlockedError reports an operation stopped by the before chain. It lets
// callers that speak in errors surface a Block decision.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	if e.Reason == "" {
		return "operation blocked by hook"
	}
	return "operation blocked by hook: " + e.Reason
}

// IsBlocked returns true if err is, or wraps, a BlockedError.
func IsBlocked(err error) bool {
	var be *BlockedError
	return errors.As(err, &be)
}

// IsHandlerError returns true if err is, or wraps, a HandlerError.
func IsHandlerError(err error) bool {
	var he *HandlerError
	return errors.As(err, &he)
}
