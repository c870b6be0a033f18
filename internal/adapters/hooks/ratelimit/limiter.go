// Package ratelimit provides a token-bucket hook handler. When a bucket is
// empty the handler asks the engine to retry after the time the next token
// becomes available instead of blocking outright.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
)

// DefaultKeys bounds the number of buckets kept when Config.Keys is zero.
const DefaultKeys = 4096

// KeyFunc selects the bucket for a context.
type KeyFunc func(hc *domain.HookContext) string

// ByPath keys buckets by the context path.
func ByPath(hc *domain.HookContext) string {
	return hc.Path()
}

// Global uses a single bucket for every context.
func Global(*domain.HookContext) string {
	return ""
}

// Config configures a Limiter.
type Config struct {
	Name string
	// Rate is the sustained number of events per second.
	Rate float64
	// Burst is the bucket size. Zero means 1.
	Burst int
	// Keys bounds the number of distinct buckets; least recently used
	// buckets are evicted.
	Keys int
	Key  KeyFunc
	Now  func() time.Time
}

// Limiter implements ports.NamedHandler with per-key token buckets.
type Limiter struct {
	name  string
	limit rate.Limit
	burst int
	key   KeyFunc
	now   func() time.Time

	mu      sync.Mutex
	buckets *lru.Cache[string, *rate.Limiter]
}

// New creates a limiter.
func New(cfg Config) (*Limiter, error) {
	if cfg.Rate <= 0 {
		return nil, fmt.Errorf("rate limit %s: rate must be positive", cfg.Name)
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	keys := cfg.Keys
	if keys <= 0 {
		keys = DefaultKeys
	}
	key := cfg.Key
	if key == nil {
		key = ByPath
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	buckets, err := lru.New[string, *rate.Limiter](keys)
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", cfg.Name, err)
	}

	return &Limiter{
		name:    cfg.Name,
		limit:   rate.Limit(cfg.Rate),
		burst:   burst,
		key:     key,
		now:     now,
		buckets: buckets,
	}, nil
}

// Name returns the handler identifier.
func (l *Limiter) Name() string {
	return l.name
}

// Handle takes a token from the context's bucket. It allows when one is
// available and otherwise returns Retry with the wait until the next token.
func (l *Limiter) Handle(ctx context.Context, hc *domain.HookContext) (domain.Decision, error) {
	lim := l.bucket(l.key(hc))
	now := l.now()

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return domain.Block("rate limit exceeded"), nil
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return domain.Allow(), nil
	}

	// The retry takes its own token.
	r.CancelAt(now)
	return domain.RetryAfter(delay, "rate limited"), nil
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.buckets.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.buckets.Add(key, lim)
	return lim
}

// Ensure Limiter implements the interface.
var _ ports.NamedHandler = (*Limiter)(nil)
