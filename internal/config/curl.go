package config

// Parsing for pasted "copy as cURL" commands. Browsers emit headers as
// -H 'name: value' and cookies either as a Cookie header or via -b.
// Only the pieces needed to rebuild a session are extracted; method,
// URL and body flags are ignored.

import (
	"errors"
	"fmt"
	"strings"
)

// ParseCurl extracts request headers and cookies from a curl command.
func ParseCurl(command string) (headers, cookies map[string]string, err error) {
	tokens, err := tokenize(command)
	if err != nil {
		return nil, nil, err
	}
	if len(tokens) == 0 || !strings.EqualFold(tokens[0], "curl") {
		return nil, nil, errors.New("input does not look like a curl command")
	}

	headers = map[string]string{}
	cookies = map[string]string{}

	for i := 1; i < len(tokens); i++ {
		switch tokens[i] {
		case "-H", "--header":
			i++
			if i >= len(tokens) {
				return nil, nil, fmt.Errorf("%s flag is missing its value", tokens[i-1])
			}
			name, value, ok := strings.Cut(tokens[i], ":")
			if !ok {
				continue
			}
			name = strings.TrimSpace(name)
			value = strings.TrimSpace(value)
			if strings.EqualFold(name, "cookie") {
				mergeCookieString(cookies, value)
			} else {
				headers[strings.ToLower(name)] = value
			}
		case "-b", "--cookie":
			i++
			if i >= len(tokens) {
				return nil, nil, fmt.Errorf("%s flag is missing its value", tokens[i-1])
			}
			mergeCookieString(cookies, tokens[i])
		}
	}

	return headers, cookies, nil
}

func mergeCookieString(into map[string]string, raw string) {
	for _, pair := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			continue
		}
		into[name] = value
	}
}

// tokenize splits a shell-ish command line, honoring single and double
// quotes and backslash line continuations. Just enough shell for what
// browsers generate; no variable expansion.
func tokenize(command string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inToken := false

	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}

	runes := []rune(command)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '\'', '"':
			quote := c
			inToken = true
			i++
			for i < len(runes) && runes[i] != quote {
				cur.WriteRune(runes[i])
				i++
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("unterminated %c-quoted string", quote)
			}
		case '\\':
			// Line continuation or escaped character.
			if i+1 < len(runes) && (runes[i+1] == '\n' || runes[i+1] == '\r') {
				i++
				continue
			}
			if i+1 < len(runes) {
				inToken = true
				i++
				cur.WriteRune(runes[i])
			}
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			inToken = true
			cur.WriteRune(c)
		}
	}
	flush()

	return tokens, nil
}
