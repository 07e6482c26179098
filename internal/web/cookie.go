// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/samber/oops"

	"github.com/ledgerdesk/ledgerdesk/internal/auth"
)

// DefaultCookieName is the name of the session cookie.
const DefaultCookieName = "user_token"

// CookieOption configures a CookieCodec.
type CookieOption func(*CookieCodec)

// WithCookieName overrides DefaultCookieName.
func WithCookieName(name string) CookieOption {
	return func(c *CookieCodec) {
		if name != "" {
			c.name = name
		}
	}
}

// WithSecure sets the Secure attribute on issued cookies.
func WithSecure(secure bool) CookieOption {
	return func(c *CookieCodec) {
		c.secure = secure
	}
}

// WithCookieLifetime sets the cookie Max-Age. It should match the session
// lifetime so the browser forgets the cookie when the row expires.
func WithCookieLifetime(d time.Duration) CookieOption {
	return func(c *CookieCodec) {
		if d > 0 {
			c.lifetime = d
		}
	}
}

// CookieCodec seals session tokens into cookies and opens them again.
type CookieCodec struct {
	name     string
	secure   bool
	lifetime time.Duration
	sc       *securecookie.SecureCookie
}

// NewCookieCodec creates a codec. hashKey signs the cookie (32 or 64 bytes)
// and blockKey encrypts it (16, 24 or 32 bytes).
func NewCookieCodec(hashKey, blockKey []byte, opts ...CookieOption) (*CookieCodec, error) {
	if n := len(hashKey); n != 32 && n != 64 {
		return nil, oops.Code("COOKIE_INVALID_CONFIG").Errorf("hash key must be 32 or 64 bytes, got %d", n)
	}
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		return nil, oops.Code("COOKIE_INVALID_CONFIG").Errorf("block key must be 16, 24 or 32 bytes, got %d", len(blockKey))
	}

	c := &CookieCodec{
		name:     DefaultCookieName,
		secure:   true,
		lifetime: auth.DefaultSessionLifetime,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.sc = securecookie.New(hashKey, blockKey).
		SetSerializer(securecookie.NopEncoder{}).
		MaxAge(int(c.lifetime / time.Second))
	return c, nil
}

// Name returns the cookie name.
func (c *CookieCodec) Name() string {
	return c.name
}

// Seal returns the cookie carrying token.
func (c *CookieCodec) Seal(token auth.SessionToken) (*http.Cookie, error) {
	value, err := c.sc.Encode(c.name, []byte(token.CookieValue()))
	if err != nil {
		return nil, oops.Code("COOKIE_SEAL_FAILED").With("operation", "encode cookie").Wrap(err)
	}
	return c.cookie(value, int(c.lifetime/time.Second)), nil
}

// Clear returns a cookie that makes the browser drop the session cookie.
func (c *CookieCodec) Clear() *http.Cookie {
	cookie := c.cookie("", -1)
	cookie.Expires = time.Unix(0, 0)
	return cookie
}

func (c *CookieCodec) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Open extracts the session token from r. A missing cookie yields
// SESSION_MISSING; a cookie that fails authentication, decryption, or
// token parsing yields SESSION_MALFORMED_TOKEN. Both wrap
// auth.ErrUnauthenticated.
func (c *CookieCodec) Open(r *http.Request) (auth.SessionToken, error) {
	cookie, err := r.Cookie(c.name)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && cookie.Value == "") {
		return auth.SessionToken{}, oops.Code(auth.CodeSessionMissing).
			Wrapf(auth.ErrUnauthenticated, "no session cookie")
	}
	if err != nil {
		return auth.SessionToken{}, oops.Code(auth.CodeMalformedToken).
			With("reason", err.Error()).
			Wrapf(auth.ErrUnauthenticated, "unreadable session cookie")
	}

	var raw []byte
	if err := c.sc.Decode(c.name, cookie.Value, &raw); err != nil {
		return auth.SessionToken{}, oops.Code(auth.CodeMalformedToken).
			With("reason", err.Error()).
			Wrapf(auth.ErrUnauthenticated, "session cookie failed verification")
	}

	return auth.ParseCookieValue(string(raw))
}
