package pipeline

import (
	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
)

// ScopedHandler pairs a handler with the scope it applies to.
type ScopedHandler struct {
	// Name identifies the handler in logs and diagnostics.
	Name string
	// Scope restricts the contexts the handler sees. Nil matches everything.
	Scope   *domain.ScopeSpec
	Handler ports.Handler
}

// HandlerSet is either a single unscoped handler or an ordered list of
// scoped handlers. The zero value is an empty set.
type HandlerSet struct {
	entries []ScopedHandler
	single  bool
}

// Single builds a set holding one unscoped handler.
func Single(h ports.Handler) HandlerSet {
	if h == nil {
		return HandlerSet{}
	}
	return HandlerSet{
		entries: []ScopedHandler{{Name: handlerName(h), Handler: h}},
		single:  true,
	}
}

// Scoped builds a set from scoped handlers. Declaration order is the
// evaluation order.
func Scoped(entries ...ScopedHandler) HandlerSet {
	out := make([]ScopedHandler, len(entries))
	copy(out, entries)
	for i := range out {
		if out[i].Name == "" {
			out[i].Name = handlerName(out[i].Handler)
		}
	}
	return HandlerSet{entries: out}
}

// Len returns the number of configured handlers.
func (s HandlerSet) Len() int {
	return len(s.entries)
}

// Empty reports whether no handlers are configured.
func (s HandlerSet) Empty() bool {
	return len(s.entries) == 0
}

// IsSingle reports whether the set was built with Single.
func (s HandlerSet) IsSingle() bool {
	return s.single
}

// Entries returns a copy of the handlers in evaluation order.
func (s HandlerSet) Entries() []ScopedHandler {
	out := make([]ScopedHandler, len(s.entries))
	copy(out, s.entries)
	return out
}

// Append returns a set evaluating s then other. Either may be empty.
func (s HandlerSet) Append(other HandlerSet) HandlerSet {
	switch {
	case other.Empty():
		return s
	case s.Empty():
		return other
	}
	return Scoped(append(s.Entries(), other.entries...)...)
}

// Hooks holds the handler set for every lifecycle point.
type Hooks struct {
	Before  HandlerSet
	After   HandlerSet
	Blocked HandlerSet
	Failed  HandlerSet
}

// For returns the set configured for kind.
func (h Hooks) For(kind domain.HookKind) HandlerSet {
	switch kind {
	case domain.HookBefore:
		return h.Before
	case domain.HookAfter:
		return h.After
	case domain.HookBlocked:
		return h.Blocked
	case domain.HookFailed:
		return h.Failed
	}
	return HandlerSet{}
}

func handlerName(h ports.Handler) string {
	if n, ok := h.(ports.NamedHandler); ok {
		return n.Name()
	}
	return ""
}
