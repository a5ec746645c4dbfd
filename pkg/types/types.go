// Package types defines the core domain model shared across readpulse.
package types

import "time"

// Session is the renewable credential bundle (headers + cookies)
// authorizing requests to the remote reading API. It is owned and
// mutated exclusively by the orchestrator; every other component only
// reads it.
type Session struct {
	Headers map[string]string
	Cookies map[string]string
}

// OutcomeKind classifies the result of one read submission.
type OutcomeKind int

const (
	// OutcomeSuccess means the server accepted the submission and
	// recorded progress (succ==1 with a synckey present).
	OutcomeSuccess OutcomeKind = iota

	// OutcomeAuthExpired covers every verification failure: non-2xx
	// status, malformed JSON, or succ!=1. The server returns the same
	// signal for expired sessions and anomalous payloads, so the two
	// are deliberately not distinguished here.
	OutcomeAuthExpired

	// OutcomeProtocolAnomaly means the server reported success but the
	// response was missing an expected field (e.g. the synckey).
	OutcomeProtocolAnomaly
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeAuthExpired:
		return "auth_expired"
	case OutcomeProtocolAnomaly:
		return "protocol_anomaly"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of a submitted read request.
// Connection-level failures (timeouts, refused connections) are
// reported as errors instead, so the resilience layer can retry them.
type Outcome struct {
	Kind OutcomeKind

	// AcceptedAt is the unix-second timestamp the server accepted.
	// Set only on success; the orchestrator uses it to compute the
	// elapsed-time field of the next attempt.
	AcceptedAt int64

	// Reason carries anomaly detail such as "missing-synckey".
	Reason string
}

// RunStats accumulates reading statistics across one run. It grows
// monotonically and is read once at the end to build the report.
type RunStats struct {
	Attempts       int       `json:"attempts"`
	Successes      int       `json:"successes"`
	ReadingMinutes float64   `json:"reading_minutes"`
	SuccessRate    float64   `json:"success_rate"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}
