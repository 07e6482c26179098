// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// DefaultSweepInterval is how often expired sessions are purged.
const DefaultSweepInterval = 10 * time.Minute

// SessionSweeper periodically deletes expired sessions.
type SessionSweeper struct {
	sessions SessionRepository
	interval time.Duration
	logger   *slog.Logger
	metrics  Metrics
	now      func() time.Time
}

// NewSessionSweeper creates a sweeper. A nil metrics sink discards events.
func NewSessionSweeper(sessions SessionRepository, interval time.Duration, logger *slog.Logger, metrics Metrics) (*SessionSweeper, error) {
	if sessions == nil {
		return nil, oops.Code("SWEEPER_INVALID_CONFIG").Errorf("sessions repository is required")
	}
	if interval <= 0 {
		return nil, oops.Code("SWEEPER_INVALID_CONFIG").
			With("interval", interval.String()).
			Errorf("sweep interval must be positive")
	}
	if logger == nil {
		return nil, oops.Code("SWEEPER_INVALID_CONFIG").Errorf("logger is required")
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &SessionSweeper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}, nil
}

// SweepOnce deletes sessions that have expired and returns the count.
func (s *SessionSweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").With("operation", "delete expired").Wrap(err)
	}
	if n > 0 {
		s.metrics.SessionsSwept(n)
		s.logger.DebugContext(ctx, "expired sessions swept", "count", n)
	}
	return n, nil
}

// Run sweeps every interval until ctx is cancelled. Sweep failures are
// logged and retried on the next tick.
func (s *SessionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.WarnContext(ctx, "best-effort session sweep failed",
					"operation", "sweep_expired",
					"error", err)
			}
		}
	}
}
