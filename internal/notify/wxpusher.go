package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultWxPusherAPIBase = "https://wxpusher.zjiecode.com"

// WxPusherConfig configures the WxPusher simple-push channel.
type WxPusherConfig struct {
	// SPT is the simple push token.
	SPT string
	// APIBase overrides the endpoint, mainly for tests.
	APIBase string
	Timeout time.Duration
}

// WxPusher delivers messages through WxPusher's simple-push GET API,
// where the message rides in the URL path.
type WxPusher struct {
	spt     string
	apiBase string
	client  *http.Client
}

func NewWxPusher(cfg WxPusherConfig) (*WxPusher, error) {
	if cfg.SPT == "" {
		return nil, errors.New("wxpusher SPT is not configured")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultWxPusherAPIBase
	}
	return &WxPusher{
		spt:     cfg.SPT,
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		client:  newPushClient(cfg.Timeout),
	}, nil
}

func (w *WxPusher) Name() string { return "wxpusher" }

func (w *WxPusher) Send(ctx context.Context, content, title string) error {
	message := content
	if title != "" {
		message = title + "\n\n" + content
	}

	endpoint := fmt.Sprintf("%s/api/send/message/%s/%s",
		w.apiBase, url.PathEscape(w.spt), url.PathEscape(message))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("wxpusher request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("reading wxpusher response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wxpusher returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
