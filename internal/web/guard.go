// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ledgerdesk/ledgerdesk/internal/auth"
	"github.com/ledgerdesk/ledgerdesk/internal/logging"
	"github.com/ledgerdesk/ledgerdesk/pkg/errutil"
)

// Guard decision labels reported to auth.Metrics.
const (
	DecisionAllowed      = "allowed"
	DecisionUnauthorized = "unauthorized"
	DecisionUnavailable  = "unavailable"
)

// Authenticator resolves a session token to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token auth.SessionToken) (*auth.Identity, error)
}

// Guard authenticates requests from their session cookie.
type Guard struct {
	cookies *CookieCodec
	authn   Authenticator
	metrics auth.Metrics
}

// NewGuard creates a Guard. A nil metrics discards decisions.
func NewGuard(cookies *CookieCodec, authn Authenticator, metrics auth.Metrics) *Guard {
	if metrics == nil {
		metrics = auth.NopMetrics{}
	}
	return &Guard{cookies: cookies, authn: authn, metrics: metrics}
}

// Check resolves the caller of r. Errors classify as
// auth.FailureUnauthorized (no cookie, bad cookie, unknown or expired
// session) or auth.FailureUnavailable (store failure).
func (g *Guard) Check(r *http.Request) (*auth.Identity, error) {
	token, err := g.cookies.Open(r)
	if err != nil {
		return nil, err
	}
	return g.authn.Authenticate(r.Context(), token)
}

// Require wraps next so it only runs for authenticated callers, with the
// identity available through IdentityFrom.
func (g *Guard) Require(next http.Handler) http.Handler {
	return g.wrap(next, false)
}

// Resolve wraps next so it runs for every caller that is not turned away by
// a store failure. Authenticated callers get their identity through
// IdentityFrom; for anyone else IdentityFrom reports false.
func (g *Guard) Resolve(next http.Handler) http.Handler {
	return g.wrap(next, true)
}

func (g *Guard) wrap(next http.Handler, anonymousOK bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		id, err := g.Check(r)
		if err == nil {
			g.metrics.GuardDecision(DecisionAllowed)
			logger = logger.With("account_id", id.AccountID.String())
			ctx = logging.WithLogger(WithIdentity(ctx, id), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if auth.Classify(err) == auth.FailureUnauthorized {
			g.metrics.GuardDecision(DecisionUnauthorized)
			errutil.LogErrorContext(ctx, logger, slog.LevelDebug, "request rejected", err)
			if anonymousOK {
				next.ServeHTTP(w, r)
				return
			}
			writeJSON(w, http.StatusUnauthorized, errorBody(msgUnauthorized))
			return
		}

		g.metrics.GuardDecision(DecisionUnavailable)
		errutil.LogErrorContext(ctx, logger, slog.LevelError, "session lookup failed", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody(msgUnavailable))
	})
}
