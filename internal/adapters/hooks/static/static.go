// Package static provides a hook handler that always returns the same decision.
package static

import (
	"context"
	"fmt"
	"time"

	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
)

// Handler implements ports.NamedHandler with a fixed decision.
// Useful for maintenance windows, kill switches and canned fallbacks.
type Handler struct {
	name     string
	decision domain.Decision
}

// New creates a handler that returns d.
func New(name string, d domain.Decision) *Handler {
	return &Handler{name: name, decision: d}
}

// FromAction builds a handler from a configured action name.
// delay only applies to retry, data only to fallback.
func FromAction(name, action, reason string, delay time.Duration, data any) (*Handler, error) {
	kind, err := domain.ParseDecisionKind(action)
	if err != nil {
		return nil, err
	}

	var d domain.Decision
	switch kind {
	case domain.DecisionAllow:
		d = domain.Allow()
		d.Reason = reason
	case domain.DecisionBlock:
		d = domain.Block(reason)
	case domain.DecisionRetry:
		if delay > 0 {
			d = domain.RetryAfter(delay, reason)
		} else {
			d = domain.Retry(reason)
		}
	case domain.DecisionFallback:
		d = domain.Fallback(data, reason)
	default:
		return nil, fmt.Errorf("static handler %s: action required", name)
	}

	return New(name, d), nil
}

// Name returns the handler identifier.
func (h *Handler) Name() string {
	return h.name
}

// Decision returns the configured decision.
func (h *Handler) Decision() domain.Decision {
	return h.decision
}

// Handle returns the configured decision.
func (h *Handler) Handle(ctx context.Context, hc *domain.HookContext) (domain.Decision, error) {
	return h.decision, nil
}

// Ensure Handler implements the interface.
var _ ports.NamedHandler = (*Handler)(nil)
