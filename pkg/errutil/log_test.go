// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package errutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/ledgerdesk/pkg/errutil"
)

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("TEST_ERROR").
		With("key", "value").
		Errorf("something failed")

	errutil.LogError(logger, "operation failed", err)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Equal(t, "operation failed", logEntry["msg"])
	assert.Equal(t, "TEST_ERROR", logEntry["code"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := errors.New("standard error")

	errutil.LogError(logger, "operation failed", err)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Contains(t, logEntry["error"], "standard error")
}

func TestLogErrorContext_UsesLevelAndContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("SESSION_NOT_FOUND").
		With("account_id", "01HZX").
		Errorf("session not found")

	errutil.LogErrorContext(context.Background(), logger, slog.LevelWarn, "guard rejected request", err)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "WARN", logEntry["level"])
	assert.Equal(t, "SESSION_NOT_FOUND", logEntry["code"])
	ctx, ok := logEntry["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "01HZX", ctx["account_id"])
}

func TestAttrs_ReportsDeepestCode(t *testing.T) {
	inner := oops.Code("SESSION_GET_FAILED").Errorf("query failed")
	err := oops.Code("AUTH_STORE_UNAVAILABLE").Wrap(inner)

	attrs := errutil.Attrs(err)
	require.Len(t, attrs, 4)
	assert.Equal(t, "code", attrs[2])
	assert.Equal(t, "SESSION_GET_FAILED", attrs[3])
}
