// Package direct provides a diagnostics sink that writes events to storage
// synchronously.
package direct

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
)

// Publisher implements ports.DiagnosticsSink by writing directly to an
// EventStore. Wrap it in a diagnostics.Journal to keep writes off the
// hook chain.
type Publisher struct {
	store  ports.EventStore
	logger *slog.Logger
}

// NewPublisher creates a new direct event publisher.
func NewPublisher(store ports.EventStore, logger *slog.Logger) (*Publisher, error) {
	if store == nil {
		return nil, fmt.Errorf("event store required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		store:  store,
		logger: logger,
	}, nil
}

// Publish writes a diagnostic event to storage.
func (p *Publisher) Publish(ctx context.Context, ev domain.DiagnosticEvent) error {
	return p.store.AppendEvent(ctx, ToRecord(ev))
}

// Report implements ports.DiagnosticsSink. Write failures are logged.
func (p *Publisher) Report(ctx context.Context, ev domain.DiagnosticEvent) {
	if err := p.Publish(ctx, ev); err != nil {
		p.logger.Error("diagnostics: failed to store event",
			slog.String("kind", string(ev.Kind)),
			slog.String("operation_id", ev.OperationID),
			slog.String("error", err.Error()),
		)
	}
}

// Close is a no-op; the store is owned by the caller.
func (p *Publisher) Close() error {
	return nil
}

// ToRecord converts a diagnostic event into its stored form.
func ToRecord(ev domain.DiagnosticEvent) *ports.EventRecord {
	return &ports.EventRecord{
		Kind:        string(ev.Kind),
		Hook:        string(ev.Hook),
		Handler:     ev.Handler,
		OperationID: ev.OperationID,
		Attempt:     ev.Attempt,
		Path:        ev.Path,
		Method:      ev.Method,
		Reason:      ev.Reason,
		DelayNS:     int64(ev.Delay),
		Error:       ev.ErrorString(),
		CreatedAt:   ev.Timestamp,
	}
}

// Ensure Publisher implements the interface.
var _ ports.DiagnosticsSink = (*Publisher)(nil)
