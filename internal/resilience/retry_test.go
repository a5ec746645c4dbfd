package resilience

// ============================================================================
// Retry Policy Test File
// Purpose: Verify invocation counts, retryable classification, backoff
// computation, and cancellation behavior.
// ============================================================================

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func noSleep(recorded *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		if recorded != nil {
			*recorded = append(*recorded, d)
		}
		return nil
	}
}

// TestRetryEventualSuccess: an op failing k times then succeeding is
// invoked exactly k+1 times and the wrapper returns nil.
func TestRetryEventualSuccess(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{MaxAttempts: 5, Sleep: noSleep(nil)})

	calls := 0
	err := p.Run(context.Background(), func() error {
		calls++
		if calls <= 2 {
			return errBoom
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

// TestRetryExhaustion: an always-failing retryable op is invoked
// exactly MaxAttempts times, then the last error propagates.
func TestRetryExhaustion(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{MaxAttempts: 3, Sleep: noSleep(nil)})

	calls := 0
	err := p.Run(context.Background(), func() error {
		calls++
		return errBoom
	}, func(err error) bool { return true })

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, calls)
}

// TestRetryNonRetryable: errors the predicate rejects propagate after
// a single invocation with no sleep.
func TestRetryNonRetryable(t *testing.T) {
	var slept []time.Duration
	p := NewRetryPolicy(RetryConfig{MaxAttempts: 3, Sleep: noSleep(&slept)})

	calls := 0
	err := p.Run(context.Background(), func() error {
		calls++
		return errBoom
	}, func(err error) bool { return false })

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
	assert.Empty(t, slept)
}

// TestRetryBackoffSchedule pins the delay sequence with jitter forced
// to its upper bound (rand -> 1.0 means multiplier 1.0).
func TestRetryBackoffSchedule(t *testing.T) {
	var slept []time.Duration
	p := NewRetryPolicy(RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    3 * time.Second,
		Factor:      2,
		Rand:        func() float64 { return 1.0 },
		Sleep:       noSleep(&slept),
	})

	_ = p.Run(context.Background(), func() error { return errBoom }, nil)

	// 1s, 2s, then 4s capped at 3s. No sleep after the final attempt.
	require.Len(t, slept, 3)
	assert.Equal(t, time.Second, slept[0])
	assert.Equal(t, 2*time.Second, slept[1])
	assert.Equal(t, 3*time.Second, slept[2])
}

// TestRetryJitterRange: with rand at the lower bound the delay halves.
func TestRetryJitterRange(t *testing.T) {
	var slept []time.Duration
	p := NewRetryPolicy(RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   time.Second,
		Rand:        func() float64 { return 0 },
		Sleep:       noSleep(&slept),
	})

	_ = p.Run(context.Background(), func() error { return errBoom }, nil)

	require.Len(t, slept, 1)
	assert.Equal(t, 500*time.Millisecond, slept[0])
}

// TestRetryCancelledContext: cancellation during backoff stops further
// attempts and surfaces the operation's last error.
func TestRetryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewRetryPolicy(RetryConfig{
		MaxAttempts: 5,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	})

	calls := 0
	err := p.Run(ctx, func() error {
		calls++
		return errBoom
	}, nil)

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

// TestSleepHonorsCancellation covers the shared ctx-aware sleep.
func TestSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)

	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
