// ============================================================================
// readpulse Signer - Request signing pipeline
// ============================================================================
//
// Package: internal/signer
// File: signer.go
// Purpose: Builds fully signed read-submission payloads that match the
// remote verifier byte for byte.
//
// Signing pipeline (order matters):
//   1. Copy the base payload, overwrite book (b) and chapter (c), drop
//      any stale final hash (s)
//   2. Stamp ct (unix seconds), ts (ct*1000 + jitter), rt (seconds since
//      the last accepted attempt) and rn (random integer)
//   3. sg = SHA-256 hex of "{ts}{rn}{secretKey}"
//   4. Serialize all fields: keys sorted ascending, values
//      percent-encoded with no safe characters, joined k=v&k=v
//   5. s = rolling hash of the serialized string
//
// The rolling hash is a fixed external protocol, not a designed
// abstraction. Two 31-bit accumulators walk the code points from the
// tail in pairs; any deviation in bit width, masking, or iteration
// direction breaks verification silently (the server accepts the
// request but flags it as anomalous later). Keep it bit-exact.
//
// ============================================================================

package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"
)

// secretKey is the shared signing constant embedded in both the web
// client and the server.
const secretKey = "3c5c8717f3daf09iop3423zafeqoi"

const hashSeed = 0x15051505

// Payload is one read-submission request body.
type Payload map[string]any

// DefaultBasePayload returns the fixed protocol fields the web client
// sends on every submission. Book and chapter placeholders are
// overwritten per attempt.
func DefaultBasePayload() Payload {
	return Payload{
		"appId": "wb182564874603h266381671",
		"b":     "ce032b305a9bc1ce0b0dd2a",
		"c":     "7f632b502707f6ffaa6bf2e",
		"ci":    27,
		"co":    389,
		"sm":    "19聚会《三体》网友的聚会地点是一处僻静",
		"pr":    74,
		"rt":    15,
		"ps":    "4ee326507a65a465g015fae",
		"pc":    "aab32e207a65a466g010615",
	}
}

// Signer builds signed payloads. Clock and randomness are injected so
// signing stays deterministic under test.
type Signer struct {
	now  func() int64 // unix seconds
	rand func(n int) int
}

// New creates a Signer. now reports unix seconds; randInt returns a
// uniform value in [0, n). Nil arguments fall back to the wall clock
// and math/rand.
func New(now func() int64, randInt func(n int) int) *Signer {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	if randInt == nil {
		randInt = rand.Intn
	}
	return &Signer{now: now, rand: randInt}
}

// Sign derives a complete signed request from the base template.
// previousTime is the ct accepted by the server on the most recent
// successful attempt; it feeds the elapsed-reading field rt.
func (s *Signer) Sign(base Payload, bookID, chapterID string, previousTime int64) Payload {
	data := make(Payload, len(base)+6)
	for k, v := range base {
		data[k] = v
	}
	delete(data, "s")

	data["b"] = bookID
	data["c"] = chapterID

	ct := s.now()
	// randInt bounds are inclusive of 1000 to match the original client.
	ts := ct*1000 + int64(s.rand(1001))
	rn := s.rand(1001)

	data["ct"] = ct
	data["ts"] = ts
	data["rt"] = ct - previousTime
	data["rn"] = rn
	data["sg"] = Signature(ts, rn)
	data["s"] = Hash(Encode(data))

	return data
}

// Signature computes sg: the SHA-256 hex digest of the millisecond
// timestamp, the random integer and the shared key, concatenated.
func Signature(ts int64, rn int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d%d%s", ts, rn, secretKey)))
	return hex.EncodeToString(sum[:])
}

// Encode serializes a payload for hashing: keys sorted ascending, each
// value stringified and percent-encoded, pairs joined with '&'.
// Encoding the same payload twice yields the same string.
func Encode(data Payload) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(percentEncode(stringify(data[k])))
	}
	return b.String()
}

func stringify(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// percentEncode escapes every byte outside the RFC 3986 unreserved set,
// with no additional safe characters. Uppercase hex, %20 for space.
func percentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

const upperhex = "0123456789ABCDEF"

func isUnreserved(c byte) bool {
	return 'A' <= c && c <= 'Z' ||
		'a' <= c && c <= 'z' ||
		'0' <= c && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

// Hash implements the reading client's order-sensitive rolling hash.
// Both accumulators start at the seed and are truncated to 31 bits
// after every XOR; shifts are computed in 64-bit first because a code
// point shifted by up to 29 overflows 32 bits. The loop walks indexes
// L-1, L-3, ... while the index stays positive, consuming the index
// and its left neighbour per step. Empty and single-character inputs
// never enter the loop and hash to the seed sum.
func Hash(s string) string {
	runes := []rune(s)
	n := len(runes)

	h1 := uint64(hashSeed)
	h2 := uint64(hashSeed)

	for i := n - 1; i > 0; i -= 2 {
		h1 = (h1 ^ (uint64(runes[i]) << (uint(n-i) % 30))) & 0x7fffffff
		h2 = (h2 ^ (uint64(runes[i-1]) << (uint(i) % 30))) & 0x7fffffff
	}

	return strconv.FormatUint(h1+h2, 16)
}
