package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/tjfontaine/hookgate/internal/core/domain"
)

const (
	// DefaultMaxRetries is the number of honoured Retry decisions per operation.
	DefaultMaxRetries = 3
	// NoRetries disables retries when used as RetryConfig.MaxRetries.
	NoRetries = -1
	// DefaultMaxDelay caps exponential backoff when no cap is configured.
	DefaultMaxDelay = 10 * time.Second
)

// RetryConfig controls how Retry decisions from the before chain are honoured.
type RetryConfig struct {
	// MaxRetries is the number of retries allowed per operation. Once reached,
	// a further Retry is treated as Allow. Zero means DefaultMaxRetries and a
	// negative value (NoRetries) disables retries.
	MaxRetries int

	// DefaultDelay applies when a Retry decision carries no delay.
	DefaultDelay time.Duration

	// ExponentialBackoff doubles the delay on every retry.
	ExponentialBackoff bool

	// MaxDelay caps exponential backoff. Zero or negative means DefaultMaxDelay.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the engine defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		MaxDelay:   DefaultMaxDelay,
	}
}

// ComputeDelay returns how long to wait before retry number attemptIndex
// (zero-based). The signal's own delay takes precedence over the configured
// default. The result is never negative.
func ComputeDelay(cfg RetryConfig, signal domain.Decision, attemptIndex int) time.Duration {
	base := cfg.DefaultDelay
	if signal.HasDelay {
		base = signal.Delay
	}
	if base <= 0 {
		return 0
	}
	if !cfg.ExponentialBackoff {
		return base
	}

	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	if attemptIndex < 0 {
		attemptIndex = 0
	}

	scaled := float64(base) * math.Pow(2, float64(attemptIndex))
	if math.IsNaN(scaled) || scaled < 0 {
		return 0
	}
	if math.IsInf(scaled, 1) || scaled >= float64(maxDelay) {
		return maxDelay
	}
	return time.Duration(scaled)
}

// Retries returns the effective retry budget.
func (c RetryConfig) Retries() int {
	switch {
	case c.MaxRetries == 0:
		return DefaultMaxRetries
	case c.MaxRetries < 0:
		return 0
	}
	return c.MaxRetries
}

// RetryState tracks the retries of one logical operation.
type RetryState struct {
	AttemptCount int
	MaxAttempts  int
}

// NewRetryState creates the state for a new operation.
func NewRetryState(maxAttempts int) *RetryState {
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	return &RetryState{MaxAttempts: maxAttempts}
}

// Exhausted reports whether no further retry may be honoured.
func (s *RetryState) Exhausted() bool {
	return s.AttemptCount >= s.MaxAttempts
}

// Record counts a honoured retry.
func (s *RetryState) Record() {
	s.AttemptCount++
}

// Sleeper waits for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper. It returns ctx.Err() if the context ends
// before the delay elapses.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
