package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tjfontaine/hookgate/internal/core/ports"
)

// DefaultCapacity bounds the number of events retained by New.
const DefaultCapacity = 10000

// Store is an in-memory implementation of ports.EventStore. It keeps the
// most recent events up to its capacity.
type Store struct {
	mu       sync.RWMutex
	events   []*ports.EventRecord
	nextID   int64
	capacity int
}

var _ ports.EventStore = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return NewWithCapacity(DefaultCapacity)
}

// NewWithCapacity creates a store retaining at most capacity events.
func NewWithCapacity(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity}
}

func (s *Store) AppendEvent(ctx context.Context, rec *ports.EventRecord) error {
	if rec == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	rec.ID = s.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	stored := *rec
	s.events = append(s.events, &stored)
	if over := len(s.events) - s.capacity; over > 0 {
		s.events = append([]*ports.EventRecord(nil), s.events[over:]...)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, opts ports.ListOptions) ([]*ports.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*ports.EventRecord{}
	for _, ev := range s.events {
		if opts.OperationID != "" && ev.OperationID != opts.OperationID {
			continue
		}
		if opts.Kind != "" && ev.Kind != opts.Kind {
			continue
		}
		cp := *ev
		result = append(result, &cp)
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) Close() error {
	return nil
}
