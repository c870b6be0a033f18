package diagnostics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
)

// DefaultJournalBuffer is the queue size used when none is given.
const DefaultJournalBuffer = 256

type journalEntry struct {
	ctx context.Context
	ev  domain.DiagnosticEvent
}

// Journal forwards events to another sink from a background goroutine.
// Report never blocks: when the queue is full the event is dropped and
// counted.
type Journal struct {
	sink   ports.DiagnosticsSink
	logger *slog.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan journalEntry
	done    chan struct{}
	dropped atomic.Int64
	once    sync.Once
}

// NewJournal starts a journal writing to sink. Close stops it.
func NewJournal(sink ports.DiagnosticsSink, buffer int, logger *slog.Logger) *Journal {
	if buffer <= 0 {
		buffer = DefaultJournalBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}

	j := &Journal{
		sink:   sink,
		logger: logger,
		queue:  make(chan journalEntry, buffer),
		done:   make(chan struct{}),
	}
	go j.run()
	return j
}

// Report implements ports.DiagnosticsSink.
func (j *Journal) Report(ctx context.Context, ev domain.DiagnosticEvent) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		j.dropped.Add(1)
		return
	}

	select {
	case j.queue <- journalEntry{ctx: context.WithoutCancel(ctx), ev: ev}:
	default:
		if j.dropped.Add(1) == 1 {
			j.logger.Warn("diagnostics: journal full, dropping events",
				slog.Int("buffer", cap(j.queue)),
			)
		}
	}
}

// Dropped returns the number of events discarded so far.
func (j *Journal) Dropped() int64 {
	return j.dropped.Load()
}

// Close stops accepting events, waits for queued events to be written and
// returns. It is safe to call more than once.
func (j *Journal) Close() error {
	j.once.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.queue)
		j.mu.Unlock()
	})
	<-j.done

	if n := j.Dropped(); n > 0 {
		j.logger.Warn("diagnostics: journal closed", slog.Int64("dropped", n))
	}
	return nil
}

func (j *Journal) run() {
	defer close(j.done)
	for entry := range j.queue {
		j.sink.Report(entry.ctx, entry.ev)
	}
}

var _ ports.DiagnosticsSink = (*Journal)(nil)
