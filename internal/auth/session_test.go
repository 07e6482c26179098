// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/ledgerdesk/internal/auth"
	"github.com/ledgerdesk/ledgerdesk/pkg/errutil"
)

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token := auth.TokenFromUint64s(42, 7)
	accountID := ulid.Make()

	t.Run("creates valid session", func(t *testing.T) {
		session, err := auth.NewSession(token, accountID, now, auth.DefaultSessionLifetime)
		require.NoError(t, err)

		assert.Equal(t, token, session.Token)
		assert.Equal(t, accountID, session.AccountID)
		assert.Equal(t, now, session.CreatedAt)
		assert.Equal(t, now, session.LastSeenAt)
		assert.Equal(t, now.Add(7*24*time.Hour), session.ExpiresAt)
	})

	t.Run("rejects zero token", func(t *testing.T) {
		session, err := auth.NewSession(auth.SessionToken{}, accountID, now, time.Hour)
		assert.Nil(t, session)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_TOKEN")
	})

	t.Run("rejects zero account", func(t *testing.T) {
		session, err := auth.NewSession(token, ulid.ULID{}, now, time.Hour)
		assert.Nil(t, session)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_ACCOUNT")
	})

	t.Run("rejects non-positive lifetime", func(t *testing.T) {
		session, err := auth.NewSession(token, accountID, now, 0)
		assert.Nil(t, session)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_EXPIRY")
	})
}

func TestSession_IsExpiredAt(t *testing.T) {
	now := time.Now()
	session, err := auth.NewSession(auth.TokenFromUint64s(0, 1), ulid.Make(), now, time.Hour)
	require.NoError(t, err)

	assert.False(t, session.IsExpiredAt(now))
	assert.False(t, session.IsExpiredAt(now.Add(59*time.Minute)))
	assert.True(t, session.IsExpiredAt(now.Add(time.Hour)))
	assert.True(t, session.IsExpiredAt(now.Add(2*time.Hour)))
}
