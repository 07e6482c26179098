// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned by repositories when an insert collides with
// an existing primary or unique key. Rows are never overwritten.
var ErrDuplicateKey = errors.New("duplicate key")

// Outcome sentinels. Service errors wrap exactly one of these when the
// failure is not an infrastructure fault.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAccountExists      = errors.New("account already exists")
)

// Internal reason codes. These are logged, never sent to clients.
const (
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeEmptyPassword      = "AUTH_EMPTY_PASSWORD"
	CodePasswordTooLong    = "AUTH_PASSWORD_TOO_LONG"
	CodeInvalidHash        = "AUTH_INVALID_HASH"
	CodeInvalidUsername    = "AUTH_INVALID_USERNAME"
	CodeInvalidEmail       = "AUTH_INVALID_EMAIL"
	CodeInvalidAccountType = "AUTH_INVALID_ACCOUNT_TYPE"
	CodeAccountExists      = "AUTH_ACCOUNT_EXISTS"
	CodeStoreUnavailable   = "AUTH_STORE_UNAVAILABLE"

	CodeSessionMissing  = "SESSION_MISSING"
	CodeMalformedToken  = "SESSION_MALFORMED_TOKEN"
	CodeSessionNotFound = "SESSION_NOT_FOUND"
	CodeSessionExpired  = "SESSION_EXPIRED"
)

// Failure is the externally visible class of an authentication error.
type Failure int

// Failure classes.
const (
	FailureNone Failure = iota
	FailureUnauthorized
	FailureInvalidInput
	FailureConflict
	FailureUnavailable
)

// String returns the lowercase class name used in metrics labels.
func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureUnauthorized:
		return "unauthorized"
	case FailureInvalidInput:
		return "invalid_input"
	case FailureConflict:
		return "conflict"
	default:
		return "unavailable"
	}
}

// Classify maps err onto a Failure class. Anything that is not a recognised
// client-side failure is treated as an infrastructure fault.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthenticated):
		return FailureUnauthorized
	case errors.Is(err, ErrInvalidInput):
		return FailureInvalidInput
	case errors.Is(err, ErrAccountExists):
		return FailureConflict
	default:
		return FailureUnavailable
	}
}
