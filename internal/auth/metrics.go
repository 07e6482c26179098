// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package auth

// Metrics receives authentication events. internal/observability provides
// the Prometheus implementation.
type Metrics interface {
	LoginAttempt(result string)
	GuardDecision(outcome string)
	SessionsRevoked(scope string, n int64)
	SessionsSwept(n int64)
}

// NopMetrics discards all events.
type NopMetrics struct{}

// LoginAttempt implements Metrics.
func (NopMetrics) LoginAttempt(string) {}

// GuardDecision implements Metrics.
func (NopMetrics) GuardDecision(string) {}

// SessionsRevoked implements Metrics.
func (NopMetrics) SessionsRevoked(string, int64) {}

// SessionsSwept implements Metrics.
func (NopMetrics) SessionsSwept(int64) {}
