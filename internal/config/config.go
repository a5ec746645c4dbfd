// ============================================================================
// readpulse Config - Configuration loading and validation
// ============================================================================
//
// Package: internal/config
// File: config.go
// Purpose: Loads configuration in three layers, later layers winning:
//   1. Built-in defaults
//   2. YAML config file (default: configs/default.yaml)
//   3. Environment variables (READ_NUM, PUSH_METHOD, PUSHPLUS_TOKEN,
//      TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID, WXPUSHER_SPT,
//      WXREAD_CURL_BASH, ...)
//
// A pasted "copy as cURL" command (session.curl_bash or the
// WXREAD_CURL_BASH env var) is parsed into session headers and cookies,
// overriding the static maps.
//
// Validation collects every problem before failing so a broken config
// is fixed in one pass.
//
// ============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the complete system configuration. Duration-like fields
// are plain integers (seconds or milliseconds) in the file; the CLI
// wiring converts them.
type Config struct {
	Read struct {
		TargetCount         int      `yaml:"target_count" env:"READ_NUM"`
		InterDelaySeconds   int      `yaml:"inter_delay_seconds"`
		FailureDelaySeconds int      `yaml:"failure_delay_seconds"`
		BookIDs             []string `yaml:"book_ids"`
		ChapterIDs          []string `yaml:"chapter_ids"`
	} `yaml:"read"`

	Request struct {
		TimeoutSeconds  int `yaml:"timeout_seconds"`
		MaxRetries      int `yaml:"max_retries"`
		BaseDelayMs     int `yaml:"base_delay_ms"`
		MaxDelaySeconds int `yaml:"max_delay_seconds"`
	} `yaml:"request"`

	Breaker struct {
		FailureThreshold int `yaml:"failure_threshold"`
		CooldownSeconds  int `yaml:"cooldown_seconds"`
	} `yaml:"breaker"`

	Session struct {
		Headers  map[string]string `yaml:"headers"`
		Cookies  map[string]string `yaml:"cookies"`
		CurlBash string            `yaml:"curl_bash" env:"WXREAD_CURL_BASH"`
	} `yaml:"session"`

	Push struct {
		Method           string `yaml:"method" env:"PUSH_METHOD"`
		PushPlusToken    string `yaml:"pushplus_token" env:"PUSHPLUS_TOKEN"`
		TelegramBotToken string `yaml:"telegram_bot_token" env:"TELEGRAM_BOT_TOKEN"`
		TelegramChatID   string `yaml:"telegram_chat_id" env:"TELEGRAM_CHAT_ID"`
		TelegramProxy    string `yaml:"telegram_proxy" env:"TELEGRAM_PROXY"`
		WxPusherSPT      string `yaml:"wxpusher_spt" env:"WXPUSHER_SPT"`
	} `yaml:"push"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`

	History struct {
		Path      string `yaml:"path"`
		Retention int    `yaml:"retention"`
	} `yaml:"history"`
}

// Duration accessors used by the CLI wiring.

func (c *Config) InterDelay() time.Duration {
	return time.Duration(c.Read.InterDelaySeconds) * time.Second
}

func (c *Config) FailureDelay() time.Duration {
	return time.Duration(c.Read.FailureDelaySeconds) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Request.TimeoutSeconds) * time.Second
}

func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Request.BaseDelayMs) * time.Millisecond
}

func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Request.MaxDelaySeconds) * time.Second
}

func (c *Config) BreakerCooldown() time.Duration {
	return time.Duration(c.Breaker.CooldownSeconds) * time.Second
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}

	cfg.Read.TargetCount = 40
	cfg.Read.InterDelaySeconds = 30
	cfg.Read.FailureDelaySeconds = 5
	cfg.Read.BookIDs = defaultBookIDs()
	cfg.Read.ChapterIDs = defaultChapterIDs()

	cfg.Request.TimeoutSeconds = 30
	cfg.Request.MaxRetries = 3
	cfg.Request.BaseDelayMs = 1000
	cfg.Request.MaxDelaySeconds = 60

	cfg.Breaker.FailureThreshold = 5
	cfg.Breaker.CooldownSeconds = 60

	cfg.Session.Headers = defaultHeaders()
	cfg.Session.Cookies = defaultCookies()

	cfg.Metrics.Enabled = false
	cfg.Metrics.Port = 9090

	cfg.History.Path = "data/history.json"
	cfg.History.Retention = 30

	return cfg
}

// Load builds the effective config: defaults, then the YAML file at
// path (optional when missing and optional=true), then env overrides,
// then curl-bash credential parsing, then validation.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && optional:
		// Defaults plus environment only.
	default:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment overrides: %w", err)
	}

	if cfg.Session.CurlBash != "" {
		headers, cookies, err := ParseCurl(cfg.Session.CurlBash)
		if err != nil {
			return nil, fmt.Errorf("parsing curl_bash credentials: %w", err)
		}
		if cfg.Session.Headers == nil {
			cfg.Session.Headers = map[string]string{}
		}
		if cfg.Session.Cookies == nil {
			cfg.Session.Cookies = map[string]string{}
		}
		for k, v := range headers {
			cfg.Session.Headers[k] = v
		}
		for k, v := range cookies {
			cfg.Session.Cookies[k] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the whole config and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Read.TargetCount < 1 || c.Read.TargetCount > 1000 {
		errs = append(errs, fmt.Errorf("read.target_count must be between 1 and 1000, got %d", c.Read.TargetCount))
	}
	if len(c.Read.BookIDs) == 0 {
		errs = append(errs, errors.New("read.book_ids must not be empty"))
	}
	if len(c.Read.ChapterIDs) == 0 {
		errs = append(errs, errors.New("read.chapter_ids must not be empty"))
	}
	if c.Read.InterDelaySeconds < 0 || c.Read.FailureDelaySeconds < 0 {
		errs = append(errs, errors.New("read delays must not be negative"))
	}

	if c.Request.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("request.timeout_seconds must be positive"))
	}
	if c.Request.MaxRetries < 1 {
		errs = append(errs, errors.New("request.max_retries must be at least 1"))
	}

	if c.Breaker.FailureThreshold < 1 {
		errs = append(errs, errors.New("breaker.failure_threshold must be at least 1"))
	}
	if c.Breaker.CooldownSeconds < 1 {
		errs = append(errs, errors.New("breaker.cooldown_seconds must be at least 1"))
	}

	switch c.Push.Method {
	case "":
	case "pushplus":
		if c.Push.PushPlusToken == "" {
			errs = append(errs, errors.New("push.pushplus_token is required for method pushplus"))
		}
	case "telegram":
		if c.Push.TelegramBotToken == "" {
			errs = append(errs, errors.New("push.telegram_bot_token is required for method telegram"))
		}
		if c.Push.TelegramChatID == "" {
			errs = append(errs, errors.New("push.telegram_chat_id is required for method telegram"))
		}
	case "wxpusher":
		if c.Push.WxPusherSPT == "" {
			errs = append(errs, errors.New("push.wxpusher_spt is required for method wxpusher"))
		}
	default:
		errs = append(errs, fmt.Errorf("push.method %q is not supported", c.Push.Method))
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Errorf("metrics.port %d is out of range", c.Metrics.Port))
	}

	return errors.Join(errs...)
}

func defaultHeaders() map[string]string {
	return map[string]string{
		"accept":          "application/json, text/plain, */*",
		"accept-language": "zh-CN,zh;q=0.9,en;q=0.8",
		"content-type":    "application/json",
		"user-agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	}
}

func defaultCookies() map[string]string {
	return map[string]string{
		"RK":      "oxEY1bTnXf",
		"ptcz":    "53e3b35a9486dd63c4d06430b05aa169402117fc407dc5cc9329b41e59f62e2b",
		"pac_uid": "0_e63870bcecc18",
		"iip":     "0",
	}
}

func defaultBookIDs() []string {
	return []string{
		"36d322f07186022636daa5e", "6f932ec05dd9eb6f96f14b9",
		"43f3229071984b9343f04a4", "d7732ea0813ab7d58g0184b8",
		"3d03298058a9443d052d409", "4fc328a0729350754fc56d4",
		"a743220058a92aa746632c0", "140329d0716ce81f140468e",
		"1d9321c0718ff5e11d9afe8", "ff132750727dc0f6ff1f7b5",
		"e8532a40719c4eb7e851cbe", "9b13257072562b5c9b1c8d6",
	}
}

func defaultChapterIDs() []string {
	return []string{
		"ecc32f3013eccbc87e4b62e", "a87322c014a87ff679a21ea",
		"e4d32d5015e4da3b7fbb1fa", "16732dc0161679091c5aeb1",
		"8f132430178f14e45fce0f7", "c9f326d018c9f0f895fb5e4",
		"45c322601945c48cce2e120", "d3d322001ad3d9446802347",
		"65132ca01b6512bd43d90e3", "c20321001cc20ad4d76f5ae",
		"c51323901dc51ce410c121b", "aab325601eaab3238922e53",
		"9bf32f301f9bf31c7ff0a60", "c7432af0210c74d97b01b1c",
		"70e32fb021170efdf2eca12", "6f4322302126f4922f45dec",
	}
}
