// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultSessionLifetime matches the lifetime of the session cookie.
const DefaultSessionLifetime = 7 * 24 * time.Hour

// Session is a server-side record proving an active login. Deleting the
// record revokes the session.
type Session struct {
	Token      SessionToken
	AccountID  ulid.ULID
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

// NewSession creates a validated Session starting at now.
func NewSession(token SessionToken, accountID ulid.ULID, now time.Time, lifetime time.Duration) (*Session, error) {
	if token.IsZero() {
		return nil, oops.Code("SESSION_INVALID_TOKEN").Errorf("session token cannot be zero")
	}
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if lifetime <= 0 {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").
			With("lifetime", lifetime.String()).
			Errorf("session lifetime must be positive")
	}

	return &Session{
		Token:      token,
		AccountID:  accountID,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(lifetime),
	}, nil
}

// IsExpiredAt returns true if the session would be expired at the given time.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// Identity is the result of a successful authentication.
type Identity struct {
	AccountID   ulid.ULID
	AccountType AccountType
	Session     *Session
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create inserts a new session. An existing row with the same token is
	// never overwritten; the insert fails with ErrDuplicateKey instead.
	Create(ctx context.Context, session *Session) error

	// GetByToken retrieves a session by token. Returns ErrNotFound if absent.
	GetByToken(ctx context.Context, token SessionToken) (*Session, error)

	// ListByAccount returns all sessions held by an account.
	ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*Session, error)

	// UpdateLastSeen updates the LastSeenAt timestamp for a session.
	UpdateLastSeen(ctx context.Context, token SessionToken, lastSeen time.Time) error

	// Delete removes a session by token. Deleting an absent session succeeds.
	Delete(ctx context.Context, token SessionToken) error

	// DeleteByAccount removes all sessions for an account and returns the count.
	DeleteByAccount(ctx context.Context, accountID ulid.ULID) (int64, error)

	// DeleteByAccountExcept removes all sessions for an account other than keep.
	DeleteByAccountExcept(ctx context.Context, accountID ulid.ULID, keep SessionToken) (int64, error)

	// DeleteExpired removes all sessions expired as of now and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
