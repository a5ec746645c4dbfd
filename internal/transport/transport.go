// ============================================================================
// readpulse Transport - HTTP session wrapper
// ============================================================================
//
// Package: internal/transport
// File: transport.go
// Purpose: Talks to the three fixed remote endpoints and classifies
// responses into typed outcomes.
//
// Endpoints (remote surface, not owned by this system):
//   POST /web/book/read         read submission
//   POST /web/login/renewal     session renewal (key arrives via Set-Cookie)
//   POST /web/book/chapterInfos sync-state repair hint
//
// Classification for read submissions:
//   2xx + succ==1 + synckey     -> Success
//   2xx + succ==1, no synckey   -> ProtocolAnomaly("missing-synckey")
//   non-2xx / bad JSON / succ!=1 -> AuthExpired (the server emits the
//                                   same signal for expired sessions
//                                   and anomalous payloads)
//   connection error / timeout  -> error wrapping ErrTransient
//
// Connection pooling is internal to this package; callers never see
// the underlying http.Client.
//
// ============================================================================

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/luyichen/readpulse/internal/signer"
	"github.com/luyichen/readpulse/pkg/types"
)

var log = slog.Default()

// ErrTransient marks connection-level failures that are safe to retry.
var ErrTransient = errors.New("transient network failure")

const (
	defaultBaseURL = "https://weread.qq.com"

	readPath   = "/web/book/read"
	renewPath  = "/web/login/renewal"
	repairPath = "/web/book/chapterInfos"

	sessionKeyCookie = "wr_skey"
	sessionKeyLen    = 8

	// Book the repair hint references when the configured pool is empty.
	defaultRepairBookID = "3300060341"
)

// Config tunes a Transport.
type Config struct {
	// BaseURL overrides the remote origin, mainly for tests.
	BaseURL string
	Timeout time.Duration
	// Client overrides the pooled HTTP client when set.
	Client *http.Client
}

// Transport is the HTTP session wrapper for the remote reading API.
type Transport struct {
	baseURL string
	client  *http.Client
}

// New creates a Transport with a pooled client.
func New(cfg Config) *Transport {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Transport{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
	}
}

type readResponse struct {
	Succ int `json:"succ"`
	// Raw so presence can be told apart from a zero value; the field's
	// numeric content is irrelevant here.
	SyncKey json.RawMessage `json:"synckey"`
}

// SubmitRead posts one signed read submission and classifies the
// server's verdict. The returned error is non-nil only for transport
// failures (wrapping ErrTransient); every protocol-level verdict comes
// back as an Outcome.
func (t *Transport) SubmitRead(ctx context.Context, payload signer.Payload, session *types.Session) (types.Outcome, error) {
	status, body, _, err := t.postJSON(ctx, readPath, payload, session)
	if err != nil {
		return types.Outcome{}, err
	}

	if status < 200 || status >= 300 {
		log.Warn("read submission rejected", "status", status)
		return types.Outcome{Kind: types.OutcomeAuthExpired}, nil
	}

	var res readResponse
	if err := json.Unmarshal(body, &res); err != nil {
		log.Warn("read submission returned malformed body", "error", err)
		return types.Outcome{Kind: types.OutcomeAuthExpired}, nil
	}
	if res.Succ != 1 {
		log.Warn("read submission not verified", "succ", res.Succ)
		return types.Outcome{Kind: types.OutcomeAuthExpired}, nil
	}
	if len(res.SyncKey) == 0 {
		return types.Outcome{
			Kind:   types.OutcomeProtocolAnomaly,
			Reason: "missing-synckey",
		}, nil
	}

	accepted, _ := payload["ct"].(int64)
	return types.Outcome{Kind: types.OutcomeSuccess, AcceptedAt: accepted}, nil
}

// RenewSession posts the fixed renewal payload and extracts a fresh
// session key from the response's Set-Cookie headers. Returns an error
// when the key is absent.
func (t *Transport) RenewSession(ctx context.Context, session *types.Session) (string, error) {
	payload := map[string]string{"rq": "%2Fweb%2Fbook%2Fread"}

	status, _, header, err := t.postJSON(ctx, renewPath, payload, session)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("renewal rejected with status %d", status)
	}

	for _, setCookie := range header.Values("Set-Cookie") {
		for _, part := range strings.Split(setCookie, ";") {
			part = strings.TrimSpace(part)
			if !strings.HasPrefix(part, sessionKeyCookie+"=") {
				continue
			}
			key := strings.TrimPrefix(part, sessionKeyCookie+"=")
			if len(key) > sessionKeyLen {
				key = key[:sessionKeyLen]
			}
			if key != "" {
				return key, nil
			}
		}
	}

	return "", fmt.Errorf("renewal response carried no %s cookie", sessionKeyCookie)
}

// RepairSyncState posts a best-effort hint asking the server to rebuild
// its sync state for the given books. Failures are logged, never
// escalated; the local state machine does not depend on the result.
func (t *Transport) RepairSyncState(ctx context.Context, session *types.Session, bookIDs []string) bool {
	if len(bookIDs) == 0 {
		bookIDs = []string{defaultRepairBookID}
	}
	payload := map[string][]string{"bookIds": bookIDs}

	status, _, _, err := t.postJSON(ctx, repairPath, payload, session)
	if err != nil {
		log.Warn("sync-state repair request failed", "error", err)
		return false
	}
	if status < 200 || status >= 300 {
		log.Warn("sync-state repair rejected", "status", status)
		return false
	}

	log.Debug("sync-state repair hint sent", "books", len(bookIDs))
	return true
}

func (t *Transport) postJSON(ctx context.Context, path string, payload any, session *types.Session) (int, []byte, http.Header, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range session.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range session.Cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: reading response: %v", ErrTransient, err)
	}

	return resp.StatusCode, body, resp.Header, nil
}
