// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/ledgerdesk/ledgerdesk/internal/auth"
)

// TestingT is the subset of *testing.T the constructors need.
type TestingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockAccountRepository is a mock of auth.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

// NewMockAccountRepository creates a mock that asserts its expectations on cleanup.
func NewMockAccountRepository(t TestingT) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create implements auth.AccountRepository.
func (m *MockAccountRepository) Create(ctx context.Context, account *auth.Account) error {
	ret := m.Called(ctx, account)
	return ret.Error(0)
}

// GetByID implements auth.AccountRepository.
func (m *MockAccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	ret := m.Called(ctx, id)
	account, _ := ret.Get(0).(*auth.Account)
	return account, ret.Error(1)
}

// GetByUsername implements auth.AccountRepository.
func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*auth.Account, error) {
	ret := m.Called(ctx, username)
	account, _ := ret.Get(0).(*auth.Account)
	return account, ret.Error(1)
}

// GetAccountType implements auth.AccountRepository.
func (m *MockAccountRepository) GetAccountType(ctx context.Context, id ulid.ULID) (*auth.AccountType, error) {
	ret := m.Called(ctx, id)
	accountType, _ := ret.Get(0).(*auth.AccountType)
	return accountType, ret.Error(1)
}

// UpdatePassword implements auth.AccountRepository.
func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	ret := m.Called(ctx, id, passwordHash)
	return ret.Error(0)
}

// MockSessionRepository is a mock of auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a mock that asserts its expectations on cleanup.
func NewMockSessionRepository(t TestingT) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create implements auth.SessionRepository.
func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	ret := m.Called(ctx, session)
	return ret.Error(0)
}

// GetByToken implements auth.SessionRepository.
func (m *MockSessionRepository) GetByToken(ctx context.Context, token auth.SessionToken) (*auth.Session, error) {
	ret := m.Called(ctx, token)
	session, _ := ret.Get(0).(*auth.Session)
	return session, ret.Error(1)
}

// ListByAccount implements auth.SessionRepository.
func (m *MockSessionRepository) ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*auth.Session, error) {
	ret := m.Called(ctx, accountID)
	sessions, _ := ret.Get(0).([]*auth.Session)
	return sessions, ret.Error(1)
}

// UpdateLastSeen implements auth.SessionRepository.
func (m *MockSessionRepository) UpdateLastSeen(ctx context.Context, token auth.SessionToken, lastSeen time.Time) error {
	ret := m.Called(ctx, token, lastSeen)
	return ret.Error(0)
}

// Delete implements auth.SessionRepository.
func (m *MockSessionRepository) Delete(ctx context.Context, token auth.SessionToken) error {
	ret := m.Called(ctx, token)
	return ret.Error(0)
}

// DeleteByAccount implements auth.SessionRepository.
func (m *MockSessionRepository) DeleteByAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	ret := m.Called(ctx, accountID)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

// DeleteByAccountExcept implements auth.SessionRepository.
func (m *MockSessionRepository) DeleteByAccountExcept(ctx context.Context, accountID ulid.ULID, keep auth.SessionToken) (int64, error) {
	ret := m.Called(ctx, accountID, keep)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

// DeleteExpired implements auth.SessionRepository.
func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := m.Called(ctx, now)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

// MockPasswordHasher is a mock of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t TestingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash implements auth.PasswordHasher.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

// Verify implements auth.PasswordHasher.
func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	ret := m.Called(password, hash)
	return ret.Bool(0), ret.Error(1)
}

// NeedsUpgrade implements auth.PasswordHasher.
func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	ret := m.Called(hash)
	return ret.Bool(0)
}

// MockTokenSource is a mock of auth.TokenSource.
type MockTokenSource struct {
	mock.Mock
}

// NewMockTokenSource creates a mock that asserts its expectations on cleanup.
func NewMockTokenSource(t TestingT) *MockTokenSource {
	m := &MockTokenSource{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Generate implements auth.TokenSource.
func (m *MockTokenSource) Generate() auth.SessionToken {
	ret := m.Called()
	token, _ := ret.Get(0).(auth.SessionToken)
	return token
}

var (
	_ auth.AccountRepository = (*MockAccountRepository)(nil)
	_ auth.SessionRepository = (*MockSessionRepository)(nil)
	_ auth.PasswordHasher    = (*MockPasswordHasher)(nil)
	_ auth.TokenSource       = (*MockTokenSource)(nil)
)
