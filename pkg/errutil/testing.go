// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers for the reason codes and log context that services attach
// to their errors. Codes never reach HTTP clients, so tests are the only
// place they are checked.

func mustOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "want an oops error, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode fails the test unless err carries reason code code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	assert.Equal(t, code, mustOops(t, err).Code())
}

// AssertErrorContext fails the test unless err was annotated with key=value.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	fields := mustOops(t, err).Context()
	if assert.Contains(t, fields, key) {
		assert.Equal(t, value, fields[key])
	}
}
