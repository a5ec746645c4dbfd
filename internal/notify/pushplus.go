package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultPushPlusURL = "https://www.pushplus.plus/send"

// PushPlusConfig configures the PushPlus channel.
type PushPlusConfig struct {
	Token string
	// APIURL overrides the endpoint, mainly for tests.
	APIURL  string
	Timeout time.Duration
}

// PushPlus delivers messages through the PushPlus HTTP API.
type PushPlus struct {
	token  string
	apiURL string
	client *http.Client
}

func NewPushPlus(cfg PushPlusConfig) (*PushPlus, error) {
	if cfg.Token == "" {
		return nil, errors.New("pushplus token is not configured")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultPushPlusURL
	}
	return &PushPlus{
		token:  cfg.Token,
		apiURL: cfg.APIURL,
		client: newPushClient(cfg.Timeout),
	}, nil
}

func (p *PushPlus) Name() string { return "pushplus" }

func (p *PushPlus) Send(ctx context.Context, content, title string) error {
	if title == "" {
		title = "readpulse"
	}

	payload := map[string]string{
		"token":    p.token,
		"title":    title,
		"content":  content,
		"template": "html",
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding pushplus payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("pushplus request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pushplus returned status %d", resp.StatusCode)
	}

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding pushplus response: %w", err)
	}
	if result.Code != 200 {
		return fmt.Errorf("pushplus API error: %s (code %d)", result.Msg, result.Code)
	}
	return nil
}
