// ============================================================================
// readpulse Orchestrator - Read-loop coordinator
// ============================================================================
//
// Package: internal/orchestrator
// File: orchestrator.go
// Purpose: Drives the attempt loop: picks targets, signs requests,
// submits them through the resilience wrappers, interprets outcomes,
// manages the session lifetime, and accumulates run statistics.
//
// Run state machine:
//   Init      renew the session; failure here is the only fatal path
//   Looping   for each attempt: sign -> breaker(retry(submit)) ->
//             classify outcome -> pace with a blocking delay
//   Completed build statistics, notify, persist history
//
// Outcome handling per attempt:
//   Success          count it, advance previousTime to the accepted
//                    ct, wait the inter-attempt delay
//   ProtocolAnomaly  fire a best-effort sync repair, short delay,
//                    previousTime unchanged
//   AuthExpired      renew the session and keep looping; a failed
//                    renewal is notified but never aborts the run
//   CircuitOpen /    record a failed attempt, short delay
//   exhausted retry
//
// The loop is deliberately sequential with blocking sleeps between
// attempts: one request in flight at a time mimics a human reading
// cadence. All delays honor context cancellation, which stops the run
// before the next attempt and reports partial statistics.
//
// Composition order is load-bearing: the breaker wraps the retry loop,
// so an open circuit rejects immediately instead of sitting through
// backoff delays.
//
// ============================================================================

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/luyichen/readpulse/internal/history"
	"github.com/luyichen/readpulse/internal/metrics"
	"github.com/luyichen/readpulse/internal/resilience"
	"github.com/luyichen/readpulse/internal/signer"
	"github.com/luyichen/readpulse/internal/transport"
	"github.com/luyichen/readpulse/pkg/types"
)

var log = slog.Default()

// minutesPerRead is the reading credit one accepted submission earns.
const minutesPerRead = 0.5

// Notifier is the outbound notification surface. Delivery failures are
// the notifier's problem; the orchestrator only logs the boolean.
type Notifier interface {
	Enabled() bool
	Send(ctx context.Context, content, title string) bool
}

// Transport is the remote API surface the orchestrator drives.
type Transport interface {
	SubmitRead(ctx context.Context, payload signer.Payload, session *types.Session) (types.Outcome, error)
	RenewSession(ctx context.Context, session *types.Session) (string, error)
	RepairSyncState(ctx context.Context, session *types.Session, bookIDs []string) bool
}

// Config tunes one run.
type Config struct {
	TargetCount  int
	InterDelay   time.Duration
	FailureDelay time.Duration
	BookIDs      []string
	ChapterIDs   []string
	// BasePayload overrides the default protocol template when set.
	BasePayload signer.Payload
}

// Deps are the collaborators injected at construction. Session state
// is exclusively owned by the orchestrator from here on.
type Deps struct {
	Session   *types.Session
	Signer    *signer.Signer
	Transport Transport
	Breaker   *resilience.CircuitBreaker
	Retry     *resilience.RetryPolicy
	Notifier  Notifier
	Metrics   *metrics.Collector
	History   *history.Store // optional
}

// Orchestrator sequences one reading run.
type Orchestrator struct {
	cfg  Config
	base signer.Payload

	session   *types.Session
	signer    *signer.Signer
	transport Transport
	breaker   *resilience.CircuitBreaker
	retry     *resilience.RetryPolicy
	notifier  Notifier
	metrics   *metrics.Collector
	history   *history.Store

	// Injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	pick  func(n int) int
}

// New creates an orchestrator for a single run.
func New(cfg Config, deps Deps) *Orchestrator {
	base := cfg.BasePayload
	if base == nil {
		base = signer.DefaultBasePayload()
	}
	if cfg.InterDelay <= 0 {
		cfg.InterDelay = 30 * time.Second
	}
	if cfg.FailureDelay <= 0 {
		cfg.FailureDelay = 5 * time.Second
	}

	return &Orchestrator{
		cfg:       cfg,
		base:      base,
		session:   deps.Session,
		signer:    deps.Signer,
		transport: deps.Transport,
		breaker:   deps.Breaker,
		retry:     deps.Retry,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		history:   deps.History,
		now:       time.Now,
		sleep:     resilience.Sleep,
		pick:      rand.Intn,
	}
}

// Run executes the full reading session. Only the initial session
// renewal can fail the run; every later condition is absorbed into the
// statistics. Cancellation stops before the next attempt and returns
// partial statistics with a nil error.
func (o *Orchestrator) Run(ctx context.Context) (types.RunStats, error) {
	stats := types.RunStats{StartedAt: o.now()}

	log.Info("starting reading session",
		"target", o.cfg.TargetCount,
		"books", len(o.cfg.BookIDs),
		"chapters", len(o.cfg.ChapterIDs))

	if err := o.renewSession(ctx); err != nil {
		msg := fmt.Sprintf("Initial session renewal failed: %v", err)
		log.Error("aborting run", "error", err)
		o.notify(ctx, msg, "readpulse: session error")
		stats.FinishedAt = o.now()
		return stats, fmt.Errorf("initial session renewal: %w", err)
	}

	previous := o.now().Unix() - 30

	for attempt := 1; attempt <= o.cfg.TargetCount; attempt++ {
		if ctx.Err() != nil {
			log.Warn("run cancelled, reporting partial statistics",
				"completed_attempts", stats.Attempts)
			break
		}

		bookID := o.cfg.BookIDs[o.pick(len(o.cfg.BookIDs))]
		chapterID := o.cfg.ChapterIDs[o.pick(len(o.cfg.ChapterIDs))]
		payload := o.signer.Sign(o.base, bookID, chapterID, previous)

		started := o.now()
		outcome, err := o.submit(ctx, payload)
		elapsed := o.now().Sub(started).Seconds()
		stats.Attempts++

		switch {
		case err != nil:
			if errors.Is(err, resilience.ErrCircuitOpen) {
				log.Warn("circuit open, attempt skipped", "attempt", attempt)
			} else {
				log.Warn("read attempt failed", "attempt", attempt, "error", err)
			}
			o.metrics.RecordAttempt("failure", elapsed)
			o.pause(ctx, o.cfg.FailureDelay)

		case outcome.Kind == types.OutcomeSuccess:
			stats.Successes++
			previous = outcome.AcceptedAt
			o.metrics.RecordAttempt("success", elapsed)
			o.metrics.SetReadingMinutes(float64(stats.Successes) * minutesPerRead)
			log.Info("read accepted",
				"attempt", attempt,
				"book", bookID,
				"minutes", float64(stats.Successes)*minutesPerRead)
			o.pause(ctx, o.cfg.InterDelay)

		case outcome.Kind == types.OutcomeProtocolAnomaly:
			log.Warn("protocol anomaly, sending repair hint",
				"attempt", attempt,
				"reason", outcome.Reason)
			o.transport.RepairSyncState(ctx, o.session, nil)
			o.metrics.RecordRepair()
			o.metrics.RecordAttempt("protocol_anomaly", elapsed)
			o.pause(ctx, o.cfg.FailureDelay)

		case outcome.Kind == types.OutcomeAuthExpired:
			log.Warn("session appears expired, renewing", "attempt", attempt)
			if err := o.renewSession(ctx); err != nil {
				log.Error("session renewal failed, continuing run", "error", err)
				o.notify(ctx,
					fmt.Sprintf("Session renewal failed mid-run: %v", err),
					"readpulse: session error")
			}
			o.metrics.RecordAttempt("auth_expired", elapsed)
			o.pause(ctx, o.cfg.FailureDelay)
		}
	}

	stats.FinishedAt = o.now()
	stats.ReadingMinutes = float64(stats.Successes) * minutesPerRead
	if stats.Attempts > 0 {
		stats.SuccessRate = float64(stats.Successes) / float64(stats.Attempts) * 100
	}

	log.Info("reading session finished",
		"successes", stats.Successes,
		"attempts", stats.Attempts,
		"minutes", stats.ReadingMinutes)

	o.notifyCompletion(ctx, stats)
	o.recordHistory(stats)

	return stats, nil
}

// submit runs one read submission through the resilience wrappers.
// The breaker sits outside the retry policy: an open circuit rejects
// before any backoff delay accrues. Only transient transport errors
// retry or count toward opening the circuit.
func (o *Orchestrator) submit(ctx context.Context, payload signer.Payload) (types.Outcome, error) {
	var out types.Outcome

	err := o.breaker.Execute(func() error {
		return o.retry.Run(ctx, func() error {
			res, err := o.transport.SubmitRead(ctx, payload, o.session)
			if err != nil {
				return err
			}
			out = res
			return nil
		}, func(err error) bool {
			return errors.Is(err, transport.ErrTransient)
		})
	})

	o.metrics.SetCircuitState(o.breaker.State())
	return out, err
}

func (o *Orchestrator) renewSession(ctx context.Context) error {
	key, err := o.transport.RenewSession(ctx, o.session)
	if err != nil {
		o.metrics.RecordRenewal(false)
		return err
	}
	o.session.Cookies["wr_skey"] = key
	o.metrics.RecordRenewal(true)
	log.Info("session renewed")
	return nil
}

func (o *Orchestrator) pause(ctx context.Context, d time.Duration) {
	if err := o.sleep(ctx, d); err != nil {
		log.Debug("delay interrupted", "error", err)
	}
}

func (o *Orchestrator) notify(ctx context.Context, content, title string) {
	if o.notifier == nil || !o.notifier.Enabled() {
		return
	}
	if !o.notifier.Send(ctx, content, title) {
		log.Warn("notification delivery failed", "title", title)
	}
}

func (o *Orchestrator) notifyCompletion(ctx context.Context, stats types.RunStats) {
	content := fmt.Sprintf(
		"Reading session finished.\nMinutes credited: %.1f\nSuccess rate: %.1f%%\nSuccessful reads: %d/%d",
		stats.ReadingMinutes, stats.SuccessRate, stats.Successes, stats.Attempts)
	o.notify(ctx, content, "readpulse: session complete")
}

func (o *Orchestrator) recordHistory(stats types.RunStats) {
	if o.history == nil {
		return
	}
	if err := o.history.Append(stats); err != nil {
		log.Warn("failed to persist run history", "error", err)
	}
}
