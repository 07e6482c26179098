// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ledgerdesk/ledgerdesk/internal/auth"
)

// AuthMetrics is the Prometheus implementation of auth.Metrics.
type AuthMetrics struct {
	LoginAttemptsTotal   *prometheus.CounterVec
	GuardDecisionsTotal  *prometheus.CounterVec
	SessionsRevokedTotal *prometheus.CounterVec
	SessionsSweptTotal   prometheus.Counter
}

// NewAuthMetrics creates the authentication counters and registers them on reg.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerdesk_login_attempts_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerdesk_guard_decisions_total",
				Help: "Total number of authentication guard decisions by outcome",
			},
			[]string{"outcome"},
		),
		SessionsRevokedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerdesk_sessions_revoked_total",
				Help: "Total number of sessions revoked by scope",
			},
			[]string{"scope"},
		),
		SessionsSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ledgerdesk_sessions_swept_total",
				Help: "Total number of expired sessions removed by the sweeper",
			},
		),
	}

	reg.MustRegister(m.LoginAttemptsTotal, m.GuardDecisionsTotal, m.SessionsRevokedTotal, m.SessionsSweptTotal)
	return m
}

// LoginAttempt implements auth.Metrics.
func (m *AuthMetrics) LoginAttempt(result string) {
	m.LoginAttemptsTotal.WithLabelValues(result).Inc()
}

// GuardDecision implements auth.Metrics.
func (m *AuthMetrics) GuardDecision(outcome string) {
	m.GuardDecisionsTotal.WithLabelValues(outcome).Inc()
}

// SessionsRevoked implements auth.Metrics. Non-positive counts are ignored.
func (m *AuthMetrics) SessionsRevoked(scope string, n int64) {
	if n > 0 {
		m.SessionsRevokedTotal.WithLabelValues(scope).Add(float64(n))
	}
}

// SessionsSwept implements auth.Metrics.
func (m *AuthMetrics) SessionsSwept(n int64) {
	if n > 0 {
		m.SessionsSweptTotal.Add(float64(n))
	}
}

var _ auth.Metrics = (*AuthMetrics)(nil)
