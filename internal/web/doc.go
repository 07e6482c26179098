// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

// Package web exposes the authentication flows over HTTP.
//
// The session credential travels in a single cookie sealed with
// gorilla/securecookie: the payload is the token's base-10 cookie value,
// authenticated with HMAC and encrypted with AES. Guard resolves that cookie
// on every protected route and stores the resulting auth.Identity in the
// request context. Every unauthorized cause produces the same 401 response.
package web
