package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurlHeadersAndCookies(t *testing.T) {
	cmd := `curl 'https://weread.qq.com/web/book/read' \
  -H 'accept: application/json, text/plain, */*' \
  -H 'content-type: application/json' \
  -H 'Cookie: wr_skey=abcd1234; wr_vid=271828' \
  -b 'extra=1' \
  --data-raw '{"b":"x"}'`

	headers, cookies, err := ParseCurl(cmd)
	require.NoError(t, err)

	assert.Equal(t, "application/json, text/plain, */*", headers["accept"])
	assert.Equal(t, "application/json", headers["content-type"])
	// Cookie header never lands in the header map.
	assert.NotContains(t, headers, "cookie")

	assert.Equal(t, "abcd1234", cookies["wr_skey"])
	assert.Equal(t, "271828", cookies["wr_vid"])
	assert.Equal(t, "1", cookies["extra"])
}

func TestParseCurlDoubleQuotes(t *testing.T) {
	headers, _, err := ParseCurl(`curl "https://example.com" -H "x-test: a b c"`)
	require.NoError(t, err)
	assert.Equal(t, "a b c", headers["x-test"])
}

func TestParseCurlRejectsNonCurl(t *testing.T) {
	_, _, err := ParseCurl("wget https://example.com")
	assert.Error(t, err)

	_, _, err = ParseCurl("")
	assert.Error(t, err)
}

func TestParseCurlUnterminatedQuote(t *testing.T) {
	_, _, err := ParseCurl(`curl 'https://example.com`)
	assert.Error(t, err)
}

func TestParseCurlMissingHeaderValue(t *testing.T) {
	_, _, err := ParseCurl(`curl https://example.com -H`)
	assert.Error(t, err)
}
