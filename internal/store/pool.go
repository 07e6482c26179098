// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

// Package store bootstraps the PostgreSQL pool and schema shared by the
// account and session repositories.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DefaultMaxConns is used when Open is called with maxConns <= 0.
const DefaultMaxConns int32 = 10

// connectBackoff governs how long Open waits for the database to accept
// connections. Tests swap it for a faster schedule.
var connectBackoff = func() retry.Backoff {
	return retry.WithMaxRetries(5, retry.NewExponential(200*time.Millisecond))
}

// Open creates a pool for dsn and waits until the database answers a ping.
func Open(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("STORE_INVALID_DSN").With("operation", "parse dsn").Wrap(err)
	}
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	cfg.MaxConns = maxConns
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("STORE_POOL_FAILED").With("operation", "create pool").Wrap(err)
	}

	err = retry.Do(ctx, connectBackoff(), func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("STORE_UNREACHABLE").
			With("operation", "ping database").
			With("host", cfg.ConnConfig.Host).
			Wrap(err)
	}

	return pool, nil
}
