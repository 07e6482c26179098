// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Session insert retry policy. A duplicate key means two generated tokens
// collided, so each attempt draws a fresh token.
const (
	sessionInsertRetries = 3
	sessionInsertBackoff = 5 * time.Millisecond
)

// TokenSource issues session tokens. *TokenGenerator is the production implementation.
type TokenSource interface {
	Generate() SessionToken
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSessionLifetime overrides DefaultSessionLifetime.
func WithSessionLifetime(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.lifetime = d
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service provides authentication operations.
type Service struct {
	accounts AccountRepository
	sessions SessionRepository
	hasher   PasswordHasher
	tokens   TokenSource
	logger   *slog.Logger
	lifetime time.Duration
	now      func() time.Time
}

// NewAuthService creates a new Service that logs to slog.Default().
func NewAuthService(
	accounts AccountRepository,
	sessions SessionRepository,
	hasher PasswordHasher,
	tokens TokenSource,
	opts ...ServiceOption,
) (*Service, error) {
	return NewAuthServiceWithLogger(accounts, sessions, hasher, tokens, slog.Default(), opts...)
}

// NewAuthServiceWithLogger creates a new Service with an explicit logger.
func NewAuthServiceWithLogger(
	accounts AccountRepository,
	sessions SessionRepository,
	hasher PasswordHasher,
	tokens TokenSource,
	logger *slog.Logger,
	opts ...ServiceOption,
) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("accounts repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("token source is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("logger is required")
	}

	s := &Service{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger,
		lifetime: DefaultSessionLifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SessionLifetime returns the lifetime given to new sessions.
func (s *Service) SessionLifetime() time.Duration {
	return s.lifetime
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
}

func storeUnavailable(operation string, err error) error {
	return oops.Code(CodeStoreUnavailable).With("operation", operation).Wrap(err)
}

// Login authenticates an account and persists a new session.
// Unknown usernames, wrong passwords and unreadable password records all
// yield the same ErrInvalidCredentials error after comparable work.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	account, lookupErr := s.accounts.GetByUsername(ctx, username)

	targetHash := dummyPasswordHash
	accountExists := false
	switch {
	case lookupErr == nil:
		targetHash = account.PasswordHash
		accountExists = true
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, storeUnavailable("get account by username", lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if accountExists {
			s.logger.ErrorContext(ctx, "stored password hash is unreadable",
				"account_id", account.ID.String(),
				"error", verifyErr)
		}
		return nil, invalidCredentials()
	}
	if !accountExists || !valid {
		return nil, invalidCredentials()
	}

	if s.hasher.NeedsUpgrade(account.PasswordHash) {
		s.upgradeHash(ctx, account, password)
	}

	session, err := s.issueSession(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "login succeeded", "account_id", account.ID.String())
	return session, nil
}

// upgradeHash re-hashes a legacy record with argon2id. Login succeeds regardless.
func (s *Service) upgradeHash(ctx context.Context, account *Account, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password hash upgrade failed",
			"operation", "hash_upgrade",
			"account_id", account.ID.String(),
			"error", err)
		return
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, newHash); err != nil {
		s.logger.WarnContext(ctx, "best-effort password hash upgrade failed",
			"operation", "hash_upgrade",
			"account_id", account.ID.String(),
			"error", err)
		return
	}
	account.PasswordHash = newHash
}

// issueSession inserts a session under a fresh token, drawing a new token
// whenever the insert reports a duplicate key.
func (s *Service) issueSession(ctx context.Context, accountID ulid.ULID) (*Session, error) {
	backoff := retry.WithMaxRetries(sessionInsertRetries, retry.NewConstant(sessionInsertBackoff))

	session, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (*Session, error) {
		session, err := NewSession(s.tokens.Generate(), accountID, s.now(), s.lifetime)
		if err != nil {
			return nil, err
		}
		if err := s.sessions.Create(ctx, session); err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				s.logger.WarnContext(ctx, "session token collision, retrying",
					"account_id", accountID.String())
				return nil, retry.RetryableError(err)
			}
			return nil, err
		}
		return session, nil
	})
	if err != nil {
		return nil, storeUnavailable("persist session", err)
	}
	return session, nil
}

// Authenticate resolves a presented token to an Identity. Missing and
// expired sessions are reported as ErrUnauthenticated; the account type
// falls back to DefaultAccountType when it cannot be read.
func (s *Service) Authenticate(ctx context.Context, token SessionToken) (*Identity, error) {
	if token.IsZero() {
		return nil, oops.Code(CodeSessionNotFound).Wrapf(ErrUnauthenticated, "session not found")
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeSessionNotFound).Wrapf(ErrUnauthenticated, "session not found")
		}
		return nil, storeUnavailable("get session by token", err)
	}

	now := s.now()
	if session.IsExpiredAt(now) {
		return nil, oops.Code(CodeSessionExpired).
			With("account_id", session.AccountID.String()).
			Wrapf(ErrUnauthenticated, "session has expired")
	}

	if err := s.sessions.UpdateLastSeen(ctx, token, now); err != nil {
		s.logger.WarnContext(ctx, "best-effort session touch failed",
			"operation", "update_last_seen",
			"account_id", session.AccountID.String(),
			"error", err)
	} else {
		session.LastSeenAt = now
	}

	return &Identity{
		AccountID:   session.AccountID,
		AccountType: s.accountType(ctx, session.AccountID),
		Session:     session,
	}, nil
}

func (s *Service) accountType(ctx context.Context, accountID ulid.ULID) AccountType {
	t, err := s.accounts.GetAccountType(ctx, accountID)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort account type lookup failed",
			"operation", "get_account_type",
			"account_id", accountID.String(),
			"error", err)
		return DefaultAccountType
	}
	if t == nil || !t.Valid() {
		return DefaultAccountType
	}
	return *t
}

// Logout revokes the session identified by token. Revoking a session that
// no longer exists succeeds.
func (s *Service) Logout(ctx context.Context, token SessionToken) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return storeUnavailable("delete session", err)
	}
	return nil
}

// LogoutAll revokes every session held by an account and returns how many were removed.
func (s *Service) LogoutAll(ctx context.Context, accountID ulid.ULID) (int64, error) {
	n, err := s.sessions.DeleteByAccount(ctx, accountID)
	if err != nil {
		return 0, oops.Code(CodeStoreUnavailable).
			With("operation", "delete sessions by account").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return n, nil
}

// ListSessions returns the live sessions of an account, newest first.
// Expired rows the sweeper has not reached yet are left out.
func (s *Service) ListSessions(ctx context.Context, accountID ulid.ULID) ([]*Session, error) {
	all, err := s.sessions.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, oops.Code(CodeStoreUnavailable).
			With("operation", "list sessions by account").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	now := s.now()
	live := make([]*Session, 0, len(all))
	for _, session := range all {
		if !session.IsExpiredAt(now) {
			live = append(live, session)
		}
	}
	return live, nil
}

// Register creates an account. A username or email already in use yields ErrAccountExists.
func (s *Service) Register(ctx context.Context, username, email, password string, accountType *AccountType) (*Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return nil, err
		}
		return nil, oops.Code("AUTH_HASH_FAILED").With("operation", "hash password").Wrap(err)
	}

	account, err := NewAccount(username, email, passwordHash, accountType)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, oops.Code(CodeAccountExists).
				With("username", username).
				Wrap(ErrAccountExists)
		}
		return nil, storeUnavailable("create account", err)
	}

	s.logger.InfoContext(ctx, "account registered",
		"account_id", account.ID.String(),
		"account_type", account.EffectiveType().String())
	return account, nil
}
