package ports

import (
	"context"
	"time"
)

// EventRecord is a persisted diagnostic event.
type EventRecord struct {
	ID          int64     `db:"id" json:"id"`
	Kind        string    `db:"kind" json:"kind"`
	Hook        string    `db:"hook" json:"hook,omitempty"`
	Handler     string    `db:"handler" json:"handler,omitempty"`
	OperationID string    `db:"operation_id" json:"operation_id,omitempty"`
	Attempt     int       `db:"attempt" json:"attempt"`
	Path        string    `db:"path" json:"path,omitempty"`
	Method      string    `db:"method" json:"method,omitempty"`
	Reason      string    `db:"reason" json:"reason,omitempty"`
	DelayNS     int64     `db:"delay_ns" json:"delay_ns,omitempty"`
	Error       string    `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ListOptions controls event listing.
type ListOptions struct {
	OperationID string
	Kind        string
	Limit       int
}

// EventStore persists diagnostic events.
// Implementations: SQLite (default), in-memory.
type EventStore interface {
	AppendEvent(ctx context.Context, rec *EventRecord) error
	ListEvents(ctx context.Context, opts ListOptions) ([]*EventRecord, error)
	Close() error
}
