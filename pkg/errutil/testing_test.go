// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package errutil_test

import (
	"fmt"
	"testing"

	"github.com/samber/oops"

	"github.com/ledgerdesk/ledgerdesk/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("MY_CODE").Errorf("test error")
	// Should not fail
	errutil.AssertErrorCode(t, err, "MY_CODE")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("account_id", "01J0000000000000000000000").Errorf("test error")
	// Should not fail
	errutil.AssertErrorContext(t, err, "account_id", "01J0000000000000000000000")
}

func TestAssertHelpers_SeeThroughWrapping(t *testing.T) {
	inner := oops.Code("SESSION_NOT_FOUND").With("account_id", "01J0000000000000000000001").Errorf("gone")
	err := fmt.Errorf("reset: %w", inner)

	errutil.AssertErrorCode(t, err, "SESSION_NOT_FOUND")
	errutil.AssertErrorContext(t, err, "account_id", "01J0000000000000000000001")
}
