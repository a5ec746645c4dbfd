// ============================================================================
// readpulse Notify - Outbound push channels
// ============================================================================
//
// Package: internal/notify
// File: notify.go
// Purpose: Notifier interface and the manager selecting one configured
// push channel. Delivery is best-effort everywhere: failures are
// logged and reported as false, never propagated.
//
// Supported methods: pushplus, telegram, wxpusher.
//
// ============================================================================

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

var log = slog.Default()

// Pusher delivers a formatted message to one third-party channel.
type Pusher interface {
	Send(ctx context.Context, content, title string) error
	Name() string
}

// Config selects and configures the push channel.
type Config struct {
	// Method is one of "pushplus", "telegram", "wxpusher", or empty to
	// disable notifications.
	Method   string
	PushPlus PushPlusConfig
	Telegram TelegramConfig
	WxPusher WxPusherConfig
}

// Manager wraps the selected pusher behind the orchestrator-facing
// notification surface.
type Manager struct {
	pusher Pusher
}

// NewManager builds a manager for the configured method. An empty
// method yields a disabled manager; an unknown method is a
// configuration error.
func NewManager(cfg Config) (*Manager, error) {
	switch cfg.Method {
	case "":
		return &Manager{}, nil
	case "pushplus":
		p, err := NewPushPlus(cfg.PushPlus)
		if err != nil {
			return nil, err
		}
		return &Manager{pusher: p}, nil
	case "telegram":
		p, err := NewTelegram(cfg.Telegram)
		if err != nil {
			return nil, err
		}
		return &Manager{pusher: p}, nil
	case "wxpusher":
		p, err := NewWxPusher(cfg.WxPusher)
		if err != nil {
			return nil, err
		}
		return &Manager{pusher: p}, nil
	default:
		return nil, fmt.Errorf("unsupported push method %q (expected pushplus, telegram, or wxpusher)", cfg.Method)
	}
}

// Enabled reports whether a push channel is configured.
func (m *Manager) Enabled() bool {
	return m != nil && m.pusher != nil
}

// Send delivers a message through the configured channel. Returns true
// on success and also when notifications are disabled; delivery
// failures are logged and returned as false.
func (m *Manager) Send(ctx context.Context, content, title string) bool {
	if !m.Enabled() {
		log.Debug("notifications disabled, skipping send")
		return true
	}
	if err := m.pusher.Send(ctx, content, title); err != nil {
		log.Error("push delivery failed",
			"pusher", m.pusher.Name(),
			"error", err)
		return false
	}
	log.Info("notification delivered", "pusher", m.pusher.Name())
	return true
}

// Test sends a fixed probe message to verify the channel end to end.
func (m *Manager) Test(ctx context.Context) bool {
	if !m.Enabled() {
		log.Info("notifications disabled, nothing to test")
		return false
	}
	return m.Send(ctx,
		"This is a test message verifying the push channel works.",
		"readpulse push test")
}

func newPushClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
