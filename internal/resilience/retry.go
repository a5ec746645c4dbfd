// ============================================================================
// readpulse Resilience - Retry policy
// ============================================================================
//
// Package: internal/resilience
// File: retry.go
// Purpose: Exponential backoff with jitter around a fallible operation.
//
// Delay for attempt k (0-based): min(base * factor^k, max) scaled by a
// uniform factor in [0.5, 1.0). Jitter keeps parallel clients from
// retrying in lockstep. Retries apply only to errors the caller marks
// retryable; everything else propagates immediately.
//
// ============================================================================

package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryConfig tunes a RetryPolicy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Factor      float64

	// Rand returns a uniform value in [0, 1). Defaults to math/rand.
	Rand func() float64

	// Sleep waits for the backoff delay and honors context
	// cancellation. Injectable for tests. Defaults to Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// RetryPolicy wraps an operation with bounded, jittered retries.
type RetryPolicy struct {
	cfg RetryConfig
}

// NewRetryPolicy creates a policy. Defaults: 3 attempts, 1s base,
// factor 2, capped at 60s.
func NewRetryPolicy(cfg RetryConfig) *RetryPolicy {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 60 * time.Second
	}
	if cfg.Factor <= 0 {
		cfg.Factor = 2
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}
	if cfg.Sleep == nil {
		cfg.Sleep = Sleep
	}
	return &RetryPolicy{cfg: cfg}
}

// Run invokes op up to MaxAttempts times. A nil retryable predicate
// retries every error. When attempts are exhausted, retryable says no,
// or the context is cancelled mid-backoff, the last error from op
// propagates unchanged so callers can still classify it.
func (p *RetryPolicy) Run(ctx context.Context, op func() error, retryable func(error) bool) error {
	var last error
	for attempt := 0; attempt < p.cfg.MaxAttempts; attempt++ {
		last = op()
		if last == nil {
			return nil
		}
		if retryable != nil && !retryable(last) {
			return last
		}
		if attempt == p.cfg.MaxAttempts-1 {
			break
		}

		delay := p.backoff(attempt)
		log.Debug("retrying after failure",
			"attempt", attempt+1,
			"delay", delay,
			"error", last)
		if err := p.cfg.Sleep(ctx, delay); err != nil {
			return last
		}
	}
	return last
}

func (p *RetryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.cfg.BaseDelay) * math.Pow(p.cfg.Factor, float64(attempt))
	if capped := float64(p.cfg.MaxDelay); d > capped {
		d = capped
	}
	// +-50% jitter: uniform in [0.5, 1.0) of the computed delay.
	return time.Duration(d * (0.5 + p.cfg.Rand()*0.5))
}

// Sleep blocks for d or until ctx is cancelled, whichever comes first.
// Shared by the retry policy and the orchestrator's pacing delays.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
