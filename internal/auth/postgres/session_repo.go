// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/ledgerdesk/ledgerdesk/internal/auth"
)

const sessionColumns = `session_token, account_id, created_at, last_seen_at, expires_at`

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a session. A plain INSERT never overwrites an existing
// token; the primary key violation surfaces as auth.ErrDuplicateKey.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5)
	`,
		session.Token.DatabaseValue(),
		session.AccountID.String(),
		session.CreatedAt,
		session.LastSeenAt,
		session.ExpiresAt,
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return oops.Code("SESSION_DUPLICATE_TOKEN").
			With("account_id", session.AccountID.String()).
			Wrap(auth.ErrDuplicateKey)
	case isForeignKeyViolation(err):
		return oops.Code("SESSION_ACCOUNT_NOT_FOUND").
			With("account_id", session.AccountID.String()).
			Wrap(auth.ErrNotFound)
	default:
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("account_id", session.AccountID.String()).
			Wrap(err)
	}
}

// GetByToken retrieves a session by token.
func (r *SessionRepository) GetByToken(ctx context.Context, token auth.SessionToken) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE session_token = $1
	`, token.DatabaseValue())

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}
	return session, nil
}

// ListByAccount returns all sessions held by an account, newest first.
func (r *SessionRepository) ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*auth.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE account_id = $1
		ORDER BY created_at DESC
	`, accountID.String())
	if err != nil {
		return nil, oops.Code("SESSION_LIST_FAILED").
			With("operation", "list sessions by account").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var sessions []*auth.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").
				With("operation", "scan session row").
				Wrap(err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_ROWS_ERROR").
			With("operation", "iterate session rows").
			Wrap(err)
	}

	return sessions, nil
}

// UpdateLastSeen updates the LastSeenAt timestamp for a session.
func (r *SessionRepository) UpdateLastSeen(ctx context.Context, token auth.SessionToken, lastSeen time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE sessions SET last_seen_at = $2
		WHERE session_token = $1
	`, token.DatabaseValue(), lastSeen)
	if err != nil {
		return oops.Code("SESSION_UPDATE_LAST_SEEN_FAILED").
			With("operation", "update last_seen_at").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a session by token.
func (r *SessionRepository) Delete(ctx context.Context, token auth.SessionToken) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE session_token = $1
	`, token.DatabaseValue())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	// No ErrNotFound if no rows deleted - revoking twice is a valid state
	return nil
}

// DeleteByAccount removes all sessions for an account.
func (r *SessionRepository) DeleteByAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE account_id = $1
	`, accountID.String())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_BY_ACCOUNT_FAILED").
			With("operation", "delete sessions by account").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteByAccountExcept removes all sessions for an account other than keep.
func (r *SessionRepository) DeleteByAccountExcept(ctx context.Context, accountID ulid.ULID, keep auth.SessionToken) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE account_id = $1 AND session_token <> $2
	`, accountID.String(), keep.DatabaseValue())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_BY_ACCOUNT_FAILED").
			With("operation", "delete other sessions by account").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes all sessions whose expiry is at or before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans a single row into a Session.
// Callers are responsible for handling pgx.ErrNoRows.
func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		rawToken     []byte
		accountIDStr string
		session      auth.Session
	)

	err := row.Scan(&rawToken, &accountIDStr, &session.CreatedAt, &session.LastSeenAt, &session.ExpiresAt)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session").
			Wrap(err)
	}

	session.Token, err = auth.TokenFromDatabaseValue(rawToken)
	if err != nil {
		// Stored rows are data corruption, not a client credential problem.
		return nil, oops.Code("SESSION_INVALID_TOKEN").
			With("operation", "decode session token").
			Errorf("stored session token is %d bytes", len(rawToken))
	}

	session.AccountID, err = ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT_ID").
			With("operation", "parse account id").
			With("account_id", accountIDStr).
			Wrap(err)
	}

	return &session, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
