// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
)

// MaxEmailLength matches the width of accounts.email.
const MaxEmailLength = 100

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// AccountType classifies an account for authorization decisions downstream.
type AccountType int

// Account types. AccountTypeTrader is the least privileged and is used
// whenever the stored classifier is absent or cannot be read.
const (
	AccountTypeTrader AccountType = 0
	AccountTypeAdmin  AccountType = 1
)

// DefaultAccountType is the role assumed when enrichment fails.
const DefaultAccountType = AccountTypeTrader

// String returns the lowercase name of the type.
func (t AccountType) String() string {
	switch t {
	case AccountTypeTrader:
		return "trader"
	case AccountTypeAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	return t == AccountTypeTrader || t == AccountTypeAdmin
}

// Account represents a user account. PasswordHash is a PasswordHasher record,
// never plaintext.
type Account struct {
	ID           ulid.ULID
	Username     string
	Email        string
	PasswordHash string
	Type         *AccountType // nil when the classifier is unset
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount creates a validated Account with a fresh ID.
func NewAccount(username, email, passwordHash string, accountType *AccountType) (*Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, oops.Code("AUTH_INVALID_PASSWORD").Errorf("password hash cannot be empty")
	}
	if accountType != nil && !accountType.Valid() {
		return nil, oops.Code(CodeInvalidAccountType).
			With("account_type", int(*accountType)).
			Wrapf(ErrInvalidInput, "unknown account type")
	}

	now := time.Now()
	return &Account{
		ID:           ulid.Make(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Type:         accountType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// EffectiveType returns the stored type or DefaultAccountType when unset.
func (a *Account) EffectiveType() AccountType {
	if a.Type == nil || !a.Type.Valid() {
		return DefaultAccountType
	}
	return *a.Type
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code(CodeInvalidUsername).Wrapf(ErrInvalidInput, "username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code(CodeInvalidUsername).
			With("min", MinUsernameLength).
			Wrapf(ErrInvalidInput, "username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code(CodeInvalidUsername).
			With("max", MaxUsernameLength).
			Wrapf(ErrInvalidInput, "username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code(CodeInvalidUsername).
			Wrapf(ErrInvalidInput, "username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidateEmail performs a shape check only; deliverability is not verified.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeInvalidEmail).Wrapf(ErrInvalidInput, "email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code(CodeInvalidEmail).
			With("max", MaxEmailLength).
			Wrapf(ErrInvalidInput, "email must be at most %d characters", MaxEmailLength)
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return oops.Code(CodeInvalidEmail).Wrapf(ErrInvalidInput, "email must contain exactly one @")
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return oops.Code(CodeInvalidEmail).Wrapf(ErrInvalidInput, "email cannot contain whitespace")
	}
	return nil
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. A username or email that collides
	// case-insensitively with an existing account yields ErrDuplicateKey.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByUsername retrieves an account by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// GetAccountType returns the stored classifier, or nil when unset.
	GetAccountType(ctx context.Context, id ulid.ULID) (*AccountType, error)

	// UpdatePassword updates only the password hash for an account.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
