package diagnostics

import (
	"context"
	"sync"

	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
)

// Multi fans an event out to every sink in order. Nil entries are skipped.
type Multi []ports.DiagnosticsSink

// Report implements ports.DiagnosticsSink.
func (m Multi) Report(ctx context.Context, ev domain.DiagnosticEvent) {
	for _, s := range m {
		if s != nil {
			s.Report(ctx, ev)
		}
	}
}

// Recorder keeps every reported event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []domain.DiagnosticEvent
}

// Report implements ports.DiagnosticsSink.
func (r *Recorder) Report(ctx context.Context, ev domain.DiagnosticEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []domain.DiagnosticEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.DiagnosticEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of the recorded events, in order.
func (r *Recorder) Kinds() []domain.DiagnosticKind {
	events := r.Events()
	out := make([]domain.DiagnosticKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

var (
	_ ports.DiagnosticsSink = Multi(nil)
	_ ports.DiagnosticsSink = (*Recorder)(nil)
)
