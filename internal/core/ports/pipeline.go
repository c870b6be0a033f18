// Package ports defines the core interfaces for the hook engine.
// This file contains the handler interfaces hook chains are built from.
package ports

import (
	"context"

	"github.com/tjfontaine/hookgate/internal/core/domain"
)

// Handler evaluates a hook against a context.
//
// Gating handlers (before hooks) return Allow, Block or Retry. Notification
// handlers (after, blocked and failed hooks) return None or Fallback. A
// returned error is contained by the runner: gating chains treat it as
// Block, notification chains report and ignore it.
type Handler interface {
	Handle(ctx context.Context, hc *domain.HookContext) (domain.Decision, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, hc *domain.HookContext) (domain.Decision, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, hc *domain.HookContext) (domain.Decision, error) {
	return f(ctx, hc)
}

// BoolHandlerFunc is the boolean shorthand: true allows, false blocks.
type BoolHandlerFunc func(ctx context.Context, hc *domain.HookContext) (bool, error)

// Handle implements Handler.
func (f BoolHandlerFunc) Handle(ctx context.Context, hc *domain.HookContext) (domain.Decision, error) {
	ok, err := f(ctx, hc)
	if err != nil {
		return domain.None(), err
	}
	return domain.FromBool(ok), nil
}

// NamedHandler is implemented by handlers that report a stable name for
// logs and diagnostics.
type NamedHandler interface {
	Handler
	Name() string
}
