// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

// Package auth provides authentication primitives for LedgerDesk.
//
// # Domain Types
//
// Domain types (Account, Session) should be created using their constructors:
//   - NewAccount - creates an Account with validated username, email and password hash
//   - NewSession - creates a Session with a non-zero token, owner and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Session Tokens
//
// A SessionToken is 128 bits drawn from a TokenGenerator. It has three forms:
// the base-10 cookie value, the 16-byte little-endian database value and the
// comparable in-memory value. All three round-trip losslessly.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - login, logout, registration and per-request authentication
//   - PasswordService - password change for an authenticated account
//   - SessionSweeper - background removal of expired sessions
//
// Errors returned by services carry an oops code naming the internal reason.
// Callers at the transport boundary use Classify to map an error onto the
// small set of externally visible outcomes.
package auth
