// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// PasswordService changes passwords for authenticated accounts.
type PasswordService struct {
	accounts AccountRepository
	sessions SessionRepository
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewPasswordService creates a new PasswordService.
func NewPasswordService(
	accounts AccountRepository,
	sessions SessionRepository,
	hasher PasswordHasher,
	logger *slog.Logger,
) (*PasswordService, error) {
	if accounts == nil {
		return nil, oops.Code("PASSWORD_INVALID_CONFIG").Errorf("accounts repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("PASSWORD_INVALID_CONFIG").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("PASSWORD_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("PASSWORD_INVALID_CONFIG").Errorf("logger is required")
	}
	return &PasswordService{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
	}, nil
}

// ChangePassword replaces the password of accountID after verifying the
// current one, then revokes every session of the account except keep.
// It returns the number of sessions revoked.
func (s *PasswordService) ChangePassword(ctx context.Context, accountID ulid.ULID, keep SessionToken, current, next string) (int64, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, accountGone(accountID)
		}
		return 0, storeUnavailable("get account by id", err)
	}

	valid, err := s.hasher.Verify(current, account.PasswordHash)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored password hash is unreadable",
			"account_id", accountID.String(),
			"error", err)
		return 0, invalidCredentials()
	}
	if !valid {
		return 0, invalidCredentials()
	}

	newHash, err := s.hasher.Hash(next)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return 0, err
		}
		return 0, oops.Code("AUTH_HASH_FAILED").With("operation", "hash password").Wrap(err)
	}

	if err := s.accounts.UpdatePassword(ctx, accountID, newHash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, accountGone(accountID)
		}
		return 0, storeUnavailable("update password", err)
	}

	revoked, err := s.sessions.DeleteByAccountExcept(ctx, accountID, keep)
	if err != nil {
		return 0, oops.Code(CodeStoreUnavailable).
			With("operation", "revoke other sessions").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password changed",
		"account_id", accountID.String(),
		"sessions_revoked", revoked)
	return revoked, nil
}

// accountGone reports a guarded session whose account has since been removed.
// It is unauthenticated, not a credential failure.
func accountGone(accountID ulid.ULID) error {
	return oops.Code(CodeSessionNotFound).
		With("account_id", accountID.String()).
		Wrapf(ErrUnauthenticated, "account no longer exists")
}
