// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package web

import (
	"context"

	"github.com/ledgerdesk/ledgerdesk/internal/auth"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by Guard.Require.
func IdentityFrom(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*auth.Identity)
	return id, ok && id != nil
}
