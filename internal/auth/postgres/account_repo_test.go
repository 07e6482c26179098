// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/ledgerdesk/internal/auth"
	"github.com/ledgerdesk/ledgerdesk/pkg/errutil"
)

var accountColumnNames = []string{"id", "username", "email", "password_hash", "account_type", "created_at", "updated_at"}

func testAccount(accountType *auth.AccountType) *auth.Account {
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	return &auth.Account{
		ID:           ulid.Make(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$a2V5",
		Type:         accountType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	admin := auth.AccountTypeAdmin

	t.Run("inserts account with type", func(t *testing.T) {
		mock := newMockPool(t)
		account := testAccount(&admin)

		mock.ExpectExec(`INSERT INTO accounts`).
			WithArgs(account.ID.String(), account.Username, account.Email, account.PasswordHash,
				int32(1), account.CreatedAt, account.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewAccountRepository(mock).Create(ctx, account))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil type is stored as NULL", func(t *testing.T) {
		mock := newMockPool(t)
		account := testAccount(nil)

		mock.ExpectExec(`INSERT INTO accounts`).
			WithArgs(account.ID.String(), account.Username, account.Email, account.PasswordHash,
				nil, account.CreatedAt, account.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewAccountRepository(mock).Create(ctx, account))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation is a duplicate key", func(t *testing.T) {
		mock := newMockPool(t)
		account := testAccount(nil)

		mock.ExpectExec(`INSERT INTO accounts`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		err := NewAccountRepository(mock).Create(ctx, account)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicateKey)
		errutil.AssertErrorCode(t, err, "ACCOUNT_DUPLICATE")
	})
}

func TestAccountRepository_GetByUsername(t *testing.T) {
	ctx := context.Background()
	trader := auth.AccountTypeTrader

	t.Run("returns account", func(t *testing.T) {
		mock := newMockPool(t)
		account := testAccount(&trader)
		raw := int32(trader)

		mock.ExpectQuery(`SELECT .+ FROM accounts\s+WHERE LOWER\(username\) = LOWER\(\$1\)`).
			WithArgs("ALICE").
			WillReturnRows(pgxmock.NewRows(accountColumnNames).AddRow(
				account.ID.String(), account.Username, account.Email, account.PasswordHash,
				&raw, account.CreatedAt, account.UpdatedAt))

		got, err := NewAccountRepository(mock).GetByUsername(ctx, "ALICE")
		require.NoError(t, err)
		assert.Equal(t, account, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown username is not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT .+ FROM accounts`).
			WithArgs("nobody").
			WillReturnRows(pgxmock.NewRows(accountColumnNames))

		_, err := NewAccountRepository(mock).GetByUsername(ctx, "nobody")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "ACCOUNT_NOT_FOUND")
	})

	t.Run("query failure is not a miss", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT .+ FROM accounts`).
			WithArgs("alice").
			WillReturnError(errors.New("connection refused"))

		_, err := NewAccountRepository(mock).GetByUsername(ctx, "alice")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
		assert.Equal(t, auth.FailureUnavailable, auth.Classify(err))
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	mock := newMockPool(t)
	account := testAccount(nil)

	mock.ExpectQuery(`SELECT .+ FROM accounts\s+WHERE id = \$1`).
		WithArgs(account.ID.String()).
		WillReturnRows(pgxmock.NewRows(accountColumnNames).AddRow(
			account.ID.String(), account.Username, account.Email, account.PasswordHash,
			nil, account.CreatedAt, account.UpdatedAt))

	got, err := NewAccountRepository(mock).GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Type)
	assert.Equal(t, account.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_GetAccountType(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("stored type", func(t *testing.T) {
		mock := newMockPool(t)
		raw := int32(auth.AccountTypeAdmin)
		mock.ExpectQuery(`SELECT account_type FROM accounts WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows([]string{"account_type"}).AddRow(&raw))

		got, err := NewAccountRepository(mock).GetAccountType(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, auth.AccountTypeAdmin, *got)
	})

	t.Run("NULL type is nil", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT account_type FROM accounts`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows([]string{"account_type"}).AddRow(nil))

		got, err := NewAccountRepository(mock).GetAccountType(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("missing account is not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT account_type FROM accounts`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows([]string{"account_type"}))

		_, err := NewAccountRepository(mock).GetAccountType(ctx, id)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestAccountRepository_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("updates hash", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE accounts SET password_hash = \$2`).
			WithArgs(id.String(), "new-hash", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewAccountRepository(mock).UpdatePassword(ctx, id, "new-hash"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account is not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE accounts SET password_hash`).
			WithArgs(id.String(), "new-hash", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := NewAccountRepository(mock).UpdatePassword(ctx, id, "new-hash")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "ACCOUNT_NOT_FOUND")
	})
}
