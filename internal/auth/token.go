// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package auth

import (
	"encoding/binary"
	"io"
	"log/slog"
	"math/big"
	"sync"

	"github.com/samber/oops"
	"golang.org/x/crypto/chacha20"
)

// Session token sizes.
const (
	SessionTokenBytes    = 16 // database form
	maxCookieValueDigits = 39 // digits in 2^128-1
	chachaSeedBytes      = chacha20.KeySize + chacha20.NonceSize
	defaultRekeyAfter    = 1 << 30
)

// SessionToken is an opaque 128-bit session credential. The zero value is
// never issued by a TokenGenerator.
type SessionToken struct {
	hi, lo uint64
}

// TokenFromUint64s builds a token from its high and low 64-bit halves.
func TokenFromUint64s(hi, lo uint64) SessionToken {
	return SessionToken{hi: hi, lo: lo}
}

// IsZero reports whether t is the zero token.
func (t SessionToken) IsZero() bool {
	return t.hi == 0 && t.lo == 0
}

// CookieValue returns the base-10 representation carried in the cookie.
func (t SessionToken) CookieValue() string {
	n := new(big.Int).SetUint64(t.hi)
	n.Lsh(n, 64)
	n.Or(n, new(big.Int).SetUint64(t.lo))
	return n.String()
}

// DatabaseValue returns the 16-byte little-endian form stored in sessions.session_token.
func (t SessionToken) DatabaseValue() []byte {
	b := make([]byte, SessionTokenBytes)
	binary.LittleEndian.PutUint64(b[:8], t.lo)
	binary.LittleEndian.PutUint64(b[8:], t.hi)
	return b
}

// LogValue keeps token material out of logs.
func (t SessionToken) LogValue() slog.Value {
	return slog.StringValue("[redacted]")
}

// ParseCookieValue parses the base-10 cookie form. Anything other than 1 to 39
// ASCII digits whose value fits in 128 bits is rejected.
func ParseCookieValue(s string) (SessionToken, error) {
	if len(s) == 0 || len(s) > maxCookieValueDigits {
		return SessionToken{}, malformedToken("cookie value length %d out of range", len(s))
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return SessionToken{}, malformedToken("cookie value is not a decimal integer")
		}
	}

	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.BitLen() > 128 {
		return SessionToken{}, malformedToken("cookie value exceeds 128 bits")
	}

	var buf [SessionTokenBytes]byte
	n.FillBytes(buf[:])
	return SessionToken{
		hi: binary.BigEndian.Uint64(buf[:8]),
		lo: binary.BigEndian.Uint64(buf[8:]),
	}, nil
}

// TokenFromDatabaseValue decodes the 16-byte little-endian database form.
func TokenFromDatabaseValue(b []byte) (SessionToken, error) {
	if len(b) != SessionTokenBytes {
		return SessionToken{}, malformedToken("database value is %d bytes, want %d", len(b), SessionTokenBytes)
	}
	return SessionToken{
		lo: binary.LittleEndian.Uint64(b[:8]),
		hi: binary.LittleEndian.Uint64(b[8:]),
	}, nil
}

func malformedToken(format string, args ...any) error {
	return oops.Code(CodeMalformedToken).Wrapf(ErrUnauthenticated, format, args...)
}

// GeneratorOption configures a TokenGenerator.
type GeneratorOption func(*TokenGenerator)

// WithRekeyAfter sets how many keystream bytes are served before the
// generator derives a fresh key from its own output.
func WithRekeyAfter(n int) GeneratorOption {
	return func(g *TokenGenerator) {
		if n >= SessionTokenBytes {
			g.rekeyAfter = n
		}
	}
}

// TokenGenerator produces session tokens from a ChaCha20 keystream seeded
// once from an entropy source. It is safe for concurrent use.
type TokenGenerator struct {
	mu         sync.Mutex
	stream     *chacha20.Cipher
	served     int
	rekeyAfter int
}

// NewTokenGenerator seeds a generator from entropy, normally crypto/rand.Reader.
func NewTokenGenerator(entropy io.Reader, opts ...GeneratorOption) (*TokenGenerator, error) {
	if entropy == nil {
		return nil, oops.Code("TOKEN_GENERATOR_INVALID").Errorf("entropy source is required")
	}

	seed := make([]byte, chachaSeedBytes)
	if _, err := io.ReadFull(entropy, seed); err != nil {
		return nil, oops.Code("TOKEN_GENERATOR_SEED_FAILED").
			With("requested_bytes", chachaSeedBytes).
			Wrap(err)
	}

	g := &TokenGenerator{rekeyAfter: defaultRekeyAfter}
	for _, opt := range opts {
		opt(g)
	}
	if err := g.reseed(seed); err != nil {
		return nil, err
	}
	return g, nil
}

// Generate returns a fresh non-zero token.
func (g *TokenGenerator) Generate() SessionToken {
	g.mu.Lock()
	defer g.mu.Unlock()

	var buf [SessionTokenBytes]byte
	for {
		g.read(buf[:])
		t := SessionToken{
			lo: binary.LittleEndian.Uint64(buf[:8]),
			hi: binary.LittleEndian.Uint64(buf[8:]),
		}
		if !t.IsZero() {
			return t
		}
	}
}

// read fills p from the keystream. Caller holds g.mu.
func (g *TokenGenerator) read(p []byte) {
	if g.served+len(p) > g.rekeyAfter {
		seed := make([]byte, chachaSeedBytes)
		g.keystream(seed)
		// reseed only fails on bad key or nonce sizes, which chachaSeedBytes rules out.
		_ = g.reseed(seed) //nolint:errcheck // sizes are fixed
	}
	g.keystream(p)
	g.served += len(p)
}

func (g *TokenGenerator) keystream(p []byte) {
	clear(p)
	g.stream.XORKeyStream(p, p)
}

func (g *TokenGenerator) reseed(seed []byte) error {
	stream, err := chacha20.NewUnauthenticatedCipher(seed[:chacha20.KeySize], seed[chacha20.KeySize:])
	clear(seed)
	if err != nil {
		return oops.Code("TOKEN_GENERATOR_SEED_FAILED").Wrap(err)
	}
	g.stream = stream
	g.served = 0
	return nil
}
