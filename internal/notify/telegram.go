package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTelegramAPIBase = "https://api.telegram.org"

// TelegramConfig configures the Telegram bot channel.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	// Proxy is an optional proxy URL. Delivery falls back to a direct
	// connection when the proxied attempt fails.
	Proxy string
	// APIBase overrides the endpoint, mainly for tests.
	APIBase string
	Timeout time.Duration
}

// Telegram delivers messages through the Bot API's sendMessage method.
type Telegram struct {
	chatID   string
	apiURL   string
	direct   *http.Client
	viaProxy *http.Client // nil when no proxy configured
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("telegram bot token is not configured")
	}
	if !strings.Contains(cfg.BotToken, ":") {
		return nil, errors.New("telegram bot token is malformed")
	}
	if cfg.ChatID == "" {
		return nil, errors.New("telegram chat id is not configured")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultTelegramAPIBase
	}

	t := &Telegram{
		chatID: cfg.ChatID,
		apiURL: fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(cfg.APIBase, "/"), cfg.BotToken),
		direct: newPushClient(cfg.Timeout),
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parsing telegram proxy URL: %w", err)
		}
		t.viaProxy = &http.Client{
			Timeout:   t.direct.Timeout,
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	return t, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, content, title string) error {
	message := content
	if title != "" {
		message = fmt.Sprintf("*%s*\n\n%s", title, content)
	}

	payload := map[string]any{
		"chat_id":                  t.chatID,
		"text":                     message,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": true,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding telegram payload: %w", err)
	}

	if t.viaProxy != nil {
		err := t.post(ctx, t.viaProxy, raw)
		if err == nil {
			return nil
		}
		log.Warn("telegram proxy delivery failed, trying direct", "error", err)
	}
	return t.post(ctx, t.direct, raw)
}

func (t *Telegram) post(ctx context.Context, client *http.Client, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding telegram response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}
	return nil
}
