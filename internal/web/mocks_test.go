// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package web

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/ledgerdesk/internal/auth"
)

var (
	testHashKey  = bytes.Repeat([]byte{0x5a}, 32)
	testBlockKey = bytes.Repeat([]byte{0xa5}, 16)
)

func newTestCodec(t *testing.T, opts ...CookieOption) *CookieCodec {
	t.Helper()
	codec, err := NewCookieCodec(testHashKey, testBlockKey, opts...)
	require.NoError(t, err)
	return codec
}

// sealedRequest returns a request carrying the session cookie for token.
func sealedRequest(t *testing.T, codec *CookieCodec, method, target string, token auth.SessionToken) *http.Request {
	t.Helper()
	cookie, err := codec.Seal(token)
	require.NoError(t, err)
	req, err := http.NewRequest(method, target, nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	return req
}

type mockAuthService struct {
	mock.Mock
}

func newMockAuthService(t *testing.T) *mockAuthService {
	m := &mockAuthService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockAuthService) Authenticate(ctx context.Context, token auth.SessionToken) (*auth.Identity, error) {
	ret := m.Called(ctx, token)
	id, _ := ret.Get(0).(*auth.Identity)
	return id, ret.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*auth.Session, error) {
	ret := m.Called(ctx, username, password)
	session, _ := ret.Get(0).(*auth.Session)
	return session, ret.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, token auth.SessionToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockAuthService) LogoutAll(ctx context.Context, accountID ulid.ULID) (int64, error) {
	ret := m.Called(ctx, accountID)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

func (m *mockAuthService) ListSessions(ctx context.Context, accountID ulid.ULID) ([]*auth.Session, error) {
	ret := m.Called(ctx, accountID)
	sessions, _ := ret.Get(0).([]*auth.Session)
	return sessions, ret.Error(1)
}

func (m *mockAuthService) Register(ctx context.Context, username, email, password string, accountType *auth.AccountType) (*auth.Account, error) {
	ret := m.Called(ctx, username, email, password, accountType)
	account, _ := ret.Get(0).(*auth.Account)
	return account, ret.Error(1)
}

type mockPasswordChanger struct {
	mock.Mock
}

func newMockPasswordChanger(t *testing.T) *mockPasswordChanger {
	m := &mockPasswordChanger{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockPasswordChanger) ChangePassword(ctx context.Context, accountID ulid.ULID, keep auth.SessionToken, current, next string) (int64, error) {
	ret := m.Called(ctx, accountID, keep, current, next)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

// recordingMetrics captures events for assertions.
type recordingMetrics struct {
	mu      sync.Mutex
	logins  []string
	guard   []string
	revoked map[string]int64
	swept   int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{revoked: make(map[string]int64)}
}

func (r *recordingMetrics) LoginAttempt(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, result)
}

func (r *recordingMetrics) GuardDecision(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guard = append(r.guard, outcome)
}

func (r *recordingMetrics) SessionsRevoked(scope string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[scope] += n
}

func (r *recordingMetrics) SessionsSwept(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.swept += n
}

var _ auth.Metrics = (*recordingMetrics)(nil)
