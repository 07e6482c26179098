// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package main

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ledgerdesk/ledgerdesk/internal/auth"
	"github.com/ledgerdesk/ledgerdesk/internal/auth/postgres"
	"github.com/ledgerdesk/ledgerdesk/internal/config"
	"github.com/ledgerdesk/ledgerdesk/internal/logging"
	"github.com/ledgerdesk/ledgerdesk/internal/observability"
	"github.com/ledgerdesk/ledgerdesk/internal/web"
)

// observabilityStopTimeout bounds shutdown of the metrics listener.
const observabilityStopTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication API",
		Long: `Start the HTTP API that handles login, signup, logout and password
reset, along with the metrics and health endpoints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

// authStack is the wired authentication core shared by serve and account.
type authStack struct {
	accounts  *postgres.AccountRepository
	sessions  *postgres.SessionRepository
	service   *auth.Service
	passwords *auth.PasswordService
}

func buildAuthStack(pool Pool, cfg *config.Config, entropy io.Reader, logger *slog.Logger) (*authStack, error) {
	tokens, err := auth.NewTokenGenerator(entropy)
	if err != nil {
		return nil, oops.With("operation", "seed token generator").Wrap(err)
	}

	hasher := auth.NewArgon2idHasher(auth.WithMaxPasswordLength(cfg.Password.MaxLength))
	accounts := postgres.NewAccountRepository(pool)
	sessions := postgres.NewSessionRepository(pool)

	service, err := auth.NewAuthServiceWithLogger(accounts, sessions, hasher, tokens, logger,
		auth.WithSessionLifetime(cfg.Session.Lifetime))
	if err != nil {
		return nil, err
	}
	passwords, err := auth.NewPasswordService(accounts, sessions, hasher, logger)
	if err != nil {
		return nil, err
	}

	return &authStack{
		accounts:  accounts,
		sessions:  sessions,
		service:   service,
		passwords: passwords,
	}, nil
}

// runServeWithDeps starts the API with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps == nil {
		deps = &ServeDeps{}
	}

	if deps.PoolFactory == nil {
		deps.PoolFactory = openPool
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker, slog.Default())
		}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}
	if deps.EntropySource == nil {
		deps.EntropySource = rand.Reader
	}
	if deps.DatabaseURLGetter == nil {
		deps.DatabaseURLGetter = func() string {
			return os.Getenv("DATABASE_URL")
		}
	}

	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath, cmd.Flags(), deps.DatabaseURLGetter())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, level)
	logger.Info("starting auth service",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"session_lifetime", cfg.Session.Lifetime.String(),
	)

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	logger.Info("connected to database")

	stack, err := buildAuthStack(pool, cfg, deps.EntropySource, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var (
		obsServer ObservabilityServer
		metrics   auth.Metrics = auth.NopMetrics{}
	)
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, pool.Ping)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), observabilityStopTimeout)
			defer stopCancel()
			if err := obsServer.Stop(stopCtx); err != nil {
				logger.Warn("error stopping observability server", "error", err)
			}
		}()
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
		metrics = obsServer.Metrics()
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	hashKey, blockKey, err := cfg.Session.Keys()
	if err != nil {
		return err
	}
	cookies, err := web.NewCookieCodec(hashKey, blockKey,
		web.WithCookieName(cfg.Session.CookieName),
		web.WithSecure(cfg.Session.CookieSecure),
		web.WithCookieLifetime(cfg.Session.Lifetime),
	)
	if err != nil {
		return err
	}

	router := web.NewRouter(
		web.NewHandlers(stack.service, stack.passwords, cookies, metrics),
		web.NewGuard(cookies, stack.service, metrics),
		logger,
	)

	sweeper, err := auth.NewSessionSweeper(stack.sessions, cfg.Session.SweepInterval, logger, metrics)
	if err != nil {
		return err
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()
	defer wg.Wait()
	defer cancel()

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Auth service started")
	logger.Info("auth service ready", "http_addr", listener.Addr().String())

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case serveErr = <-errChan:
		logger.Error("HTTP server failed", "error", serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping HTTP server", "error", err)
	}

	if serveErr != nil {
		return oops.Code("HTTP_SERVE_FAILED").Wrap(serveErr)
	}
	logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
