// ============================================================================
// readpulse Resilience - Circuit breaker
// ============================================================================
//
// Package: internal/resilience
// File: breaker.go
// Purpose: Three-state failure gate protecting the read-submission call.
//
// State transitions:
//   Closed   -> failures reach threshold            -> Open
//   Open     -> cooldown elapsed since last failure -> HalfOpen (one probe)
//   HalfOpen -> probe succeeds -> Closed (counter reset)
//            -> probe fails    -> Open (cooldown restarts)
//
// Only errors matching the configured predicate count as failures or
// reset the cooldown clock; anything else passes through without
// touching breaker state. The breaker sits OUTSIDE the retry policy so
// an open circuit rejects before any backoff delay is incurred.
//
// ============================================================================

package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

var log = slog.Default()

// ErrCircuitOpen is returned when the breaker rejects a call without
// invoking the wrapped operation.
var ErrCircuitOpen = errors.New("circuit breaker open")

// State is the breaker's current position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a CircuitBreaker.
type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration

	// IsFailure reports whether an error counts toward opening the
	// circuit. Defaults to counting every non-nil error.
	IsFailure func(error) bool

	// Clock is injectable for tests. Defaults to time.Now.
	Clock func() time.Time
}

// CircuitBreaker guards one operation. Each protected operation gets
// its own instance; state is never shared across runs.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
}

// NewCircuitBreaker creates a breaker in the closed state.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &CircuitBreaker{cfg: cfg}
}

// Execute runs op through the breaker. When the circuit is open and
// the cooldown has not elapsed, op is not invoked and ErrCircuitOpen
// is returned immediately.
func (b *CircuitBreaker) Execute(op func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := op()
	b.record(err)
	return err
}

// State reports the breaker's current state.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *CircuitBreaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return nil
	}
	if b.cfg.Clock().Sub(b.lastFailure) < b.cfg.Cooldown {
		return ErrCircuitOpen
	}

	log.Info("circuit breaker half-open, allowing probe")
	b.state = StateHalfOpen
	return nil
}

func (b *CircuitBreaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state != StateClosed {
			log.Info("circuit breaker closed after successful probe")
		}
		b.failures = 0
		b.state = StateClosed
		return
	}

	if !b.cfg.IsFailure(err) {
		// Not a qualifying failure category: pass through untouched.
		return
	}

	b.failures++
	b.lastFailure = b.cfg.Clock()

	if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
		if b.state != StateOpen {
			log.Warn("circuit breaker opened",
				"failures", b.failures,
				"cooldown", b.cfg.Cooldown)
		}
		b.state = StateOpen
	}
}
