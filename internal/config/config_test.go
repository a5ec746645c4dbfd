package config

// ============================================================================
// Config Test File
// Purpose: Verify layer precedence (defaults < file < env), validation
// error collection, and curl credential parsing.
// ============================================================================

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileOptional(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Read.TargetCount)
	assert.NotEmpty(t, cfg.Read.BookIDs)
}

func TestLoadMissingFileRequired(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	assert.Error(t, err)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
read:
  target_count: 7
  inter_delay_seconds: 10
breaker:
  failure_threshold: 2
metrics:
  enabled: true
  port: 9191
`)

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Read.TargetCount)
	assert.Equal(t, 10, cfg.Read.InterDelaySeconds)
	assert.Equal(t, 2, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 9191, cfg.Metrics.Port)
	// Untouched sections keep their defaults.
	assert.Equal(t, 3, cfg.Request.MaxRetries)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
read:
  target_count: 7
`)
	t.Setenv("READ_NUM", "13")
	t.Setenv("PUSH_METHOD", "wxpusher")
	t.Setenv("WXPUSHER_SPT", "SPT_fromenv")

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, 13, cfg.Read.TargetCount)
	assert.Equal(t, "wxpusher", cfg.Push.Method)
	assert.Equal(t, "SPT_fromenv", cfg.Push.WxPusherSPT)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Read.TargetCount = 0
	cfg.Read.BookIDs = nil
	cfg.Push.Method = "smoke-signal"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "target_count")
	assert.ErrorContains(t, err, "book_ids")
	assert.ErrorContains(t, err, "smoke-signal")
}

func TestValidatePushSecrets(t *testing.T) {
	cfg := Default()
	cfg.Push.Method = "telegram"
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "telegram_bot_token")
	assert.ErrorContains(t, err, "telegram_chat_id")

	cfg.Push.TelegramBotToken = "42:abc"
	cfg.Push.TelegramChatID = "7"
	assert.NoError(t, cfg.Validate())
}

func TestLoadCurlBashMergesSession(t *testing.T) {
	path := writeConfig(t, `
session:
  curl_bash: "curl 'https://weread.qq.com/web/book/read' -H 'user-agent: test-agent' -H 'Cookie: wr_skey=k1234567; wr_vid=99' --data-raw '{}'"
`)

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, "test-agent", cfg.Session.Headers["user-agent"])
	assert.Equal(t, "k1234567", cfg.Session.Cookies["wr_skey"])
	assert.Equal(t, "99", cfg.Session.Cookies["wr_vid"])
	// Default cookies survive under the merged map.
	assert.Equal(t, "0", cfg.Session.Cookies["iip"])
}
