// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ledgerdesk/ledgerdesk/internal/auth"
	"github.com/ledgerdesk/ledgerdesk/internal/logging"
	"github.com/ledgerdesk/ledgerdesk/pkg/errutil"
)

// Login attempt labels reported to auth.Metrics.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
	LoginError   = "error"
)

// Session revocation scopes reported to auth.Metrics.
const (
	RevokeScopeSession = "session"
	RevokeScopeAccount = "account"
	RevokeScopeOthers  = "others"
)

// AuthService is the subset of auth.Service the handlers call.
type AuthService interface {
	Authenticator
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Logout(ctx context.Context, token auth.SessionToken) error
	LogoutAll(ctx context.Context, accountID ulid.ULID) (int64, error)
	ListSessions(ctx context.Context, accountID ulid.ULID) ([]*auth.Session, error)
	Register(ctx context.Context, username, email, password string, accountType *auth.AccountType) (*auth.Account, error)
}

// PasswordChanger is the subset of auth.PasswordService the handlers call.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, accountID ulid.ULID, keep auth.SessionToken, current, next string) (int64, error)
}

// Handlers serves the /api/auth routes.
type Handlers struct {
	auth      AuthService
	passwords PasswordChanger
	cookies   *CookieCodec
	metrics   auth.Metrics
}

// NewHandlers creates the auth handlers. A nil metrics discards events.
func NewHandlers(authSvc AuthService, passwords PasswordChanger, cookies *CookieCodec, metrics auth.Metrics) *Handlers {
	if metrics == nil {
		metrics = auth.NopMetrics{}
	}
	return &Handlers{auth: authSvc, passwords: passwords, cookies: cookies, metrics: metrics}
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Email    string `json:"email"`
	UserType *int   `json:"user_type"`
}

type resetRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type meResponse struct {
	UserID      string `json:"user_id"`
	AccountType string `json:"account_type"`
}

// sessionView never carries the token itself.
type sessionView struct {
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Current    bool      `json:"current"`
}

type sessionsResponse struct {
	Sessions []sessionView `json:"sessions"`
}

// Login handles POST /api/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errutil.LogErrorContext(ctx, logger, slog.LevelDebug, "login request rejected", err)
		writeJSON(w, http.StatusBadRequest, errorBody(msgBadRequest))
		return
	}

	session, err := h.auth.Login(ctx, req.Name, req.Password)
	if err != nil {
		if auth.Classify(err) == auth.FailureUnauthorized {
			h.metrics.LoginAttempt(LoginFailure)
			errutil.LogErrorContext(ctx, logger, slog.LevelInfo, "login failed", err)
			writeJSON(w, http.StatusUnauthorized, errorBody(msgInvalidCredentials))
			return
		}
		h.metrics.LoginAttempt(LoginError)
		errutil.LogErrorContext(ctx, logger, slog.LevelError, "login unavailable", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody(msgUnavailable))
		return
	}

	cookie, err := h.cookies.Seal(session.Token)
	if err != nil {
		h.metrics.LoginAttempt(LoginError)
		errutil.LogErrorContext(ctx, logger, slog.LevelError, "failed to seal session cookie", err)
		// The row exists but the client can never present it.
		if revokeErr := h.auth.Logout(ctx, session.Token); revokeErr != nil {
			errutil.LogErrorContext(ctx, logger, slog.LevelError, "failed to remove orphaned session", revokeErr)
		}
		writeJSON(w, http.StatusServiceUnavailable, errorBody(msgUnavailable))
		return
	}

	h.metrics.LoginAttempt(LoginSuccess)
	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, successBody())
}

// Signup handles POST /api/auth/user. Only trader accounts can be created
// over HTTP.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errutil.LogErrorContext(ctx, logger, slog.LevelDebug, "signup request rejected", err)
		writeJSON(w, http.StatusBadRequest, errorBody(msgBadRequest))
		return
	}

	accountType := auth.AccountTypeTrader
	if req.UserType != nil && auth.AccountType(*req.UserType) != auth.AccountTypeTrader {
		logger.InfoContext(ctx, "signup rejected: privileged account type requested", "user_type", *req.UserType)
		writeJSON(w, http.StatusBadRequest, errorBody(msgInvalidInput))
		return
	}

	account, err := h.auth.Register(ctx, req.Name, req.Email, req.Password, &accountType)
	if err != nil {
		switch auth.Classify(err) {
		case auth.FailureInvalidInput:
			errutil.LogErrorContext(ctx, logger, slog.LevelInfo, "signup rejected", err)
			writeJSON(w, http.StatusBadRequest, errorBody(msgInvalidInput))
		case auth.FailureConflict:
			errutil.LogErrorContext(ctx, logger, slog.LevelInfo, "signup conflict", err)
			writeJSON(w, http.StatusConflict, errorBody(msgConflict))
		default:
			errutil.LogErrorContext(ctx, logger, slog.LevelError, "signup unavailable", err)
			writeJSON(w, http.StatusServiceUnavailable, errorBody(msgUnavailable))
		}
		return
	}

	logger.InfoContext(ctx, "account created", "account_id", account.ID.String())
	writeJSON(w, http.StatusCreated, successBody())
}

// Logout handles POST /api/auth/logout behind Guard.Resolve. A caller whose
// session is already gone still gets 200 and a cleared cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	id, ok := IdentityFrom(ctx)
	if !ok {
		logger.DebugContext(ctx, "logout without a live session")
		http.SetCookie(w, h.cookies.Clear())
		writeJSON(w, http.StatusOK, successBody())
		return
	}

	if err := h.auth.Logout(ctx, id.Session.Token); err != nil {
		errutil.LogErrorContext(ctx, logger, slog.LevelError, "logout failed", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody(msgUnavailable))
		return
	}

	h.metrics.SessionsRevoked(RevokeScopeSession, 1)
	logger.InfoContext(ctx, "logged out")
	http.SetCookie(w, h.cookies.Clear())
	writeJSON(w, http.StatusOK, successBody())
}

// LogoutAll handles POST /api/auth/logout/all, revoking every session of
// the caller's account.
func (h *Handlers) LogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	id, ok := IdentityFrom(ctx)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody(msgUnauthorized))
		return
	}

	n, err := h.auth.LogoutAll(ctx, id.AccountID)
	if err != nil {
		errutil.LogErrorContext(ctx, logger, slog.LevelError, "logout all failed", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody(msgUnavailable))
		return
	}

	h.metrics.SessionsRevoked(RevokeScopeAccount, n)
	logger.InfoContext(ctx, "logged out everywhere", "sessions_revoked", n)
	http.SetCookie(w, h.cookies.Clear())
	writeJSON(w, http.StatusOK, successBody())
}

// Reset handles POST /api/auth/reset. The presenting session survives; all
// other sessions of the account are revoked.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	id, ok := IdentityFrom(ctx)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody(msgUnauthorized))
		return
	}

	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errutil.LogErrorContext(ctx, logger, slog.LevelDebug, "reset request rejected", err)
		writeJSON(w, http.StatusBadRequest, errorBody(msgBadRequest))
		return
	}

	n, err := h.passwords.ChangePassword(ctx, id.AccountID, id.Session.Token, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch auth.Classify(err) {
		case auth.FailureUnauthorized:
			errutil.LogErrorContext(ctx, logger, slog.LevelInfo, "password change refused", err)
			msg := msgUnauthorized
			if errors.Is(err, auth.ErrInvalidCredentials) {
				msg = msgInvalidCredentials
			}
			writeJSON(w, http.StatusUnauthorized, errorBody(msg))
		case auth.FailureInvalidInput:
			errutil.LogErrorContext(ctx, logger, slog.LevelInfo, "password change rejected", err)
			writeJSON(w, http.StatusBadRequest, errorBody(msgInvalidInput))
		default:
			errutil.LogErrorContext(ctx, logger, slog.LevelError, "password change unavailable", err)
			writeJSON(w, http.StatusServiceUnavailable, errorBody(msgUnavailable))
		}
		return
	}

	h.metrics.SessionsRevoked(RevokeScopeOthers, n)
	writeJSON(w, http.StatusOK, successBody())
}

// Me handles GET /api/auth/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody(msgUnauthorized))
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		UserID:      id.AccountID.String(),
		AccountType: id.AccountType.String(),
	})
}

// Sessions handles GET /api/auth/sessions, listing the caller's live sessions.
func (h *Handlers) Sessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	id, ok := IdentityFrom(ctx)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody(msgUnauthorized))
		return
	}

	sessions, err := h.auth.ListSessions(ctx, id.AccountID)
	if err != nil {
		errutil.LogErrorContext(ctx, logger, slog.LevelError, "list sessions failed", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody(msgUnavailable))
		return
	}

	resp := sessionsResponse{Sessions: make([]sessionView, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, sessionView{
			CreatedAt:  s.CreatedAt,
			LastSeenAt: s.LastSeenAt,
			ExpiresAt:  s.ExpiresAt,
			Current:    s.Token == id.Session.Token,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
