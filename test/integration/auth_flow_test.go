// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ledgerdesk/ledgerdesk/internal/auth"
	authpg "github.com/ledgerdesk/ledgerdesk/internal/auth/postgres"
	"github.com/ledgerdesk/ledgerdesk/internal/store"
	"github.com/ledgerdesk/ledgerdesk/internal/web"
)

// testEnv holds the resources shared by the auth flow specs.
type testEnv struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container testcontainers.Container
	pool      *pgxpool.Pool
	sessions  *authpg.SessionRepository
	server    *httptest.Server
}

func setupTestEnv() (*testEnv, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	env := &testEnv{ctx: ctx, cancel: cancel}

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("ledgerdesk_test"),
		postgres.WithUsername("ledgerdesk"),
		postgres.WithPassword("ledgerdesk"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	env.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		env.cleanup()
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		env.cleanup()
		return nil, err
	}
	_ = migrator.Close()

	env.pool, err = store.Open(ctx, connStr, 4)
	if err != nil {
		env.cleanup()
		return nil, err
	}

	logger := slog.New(slog.DiscardHandler)
	accounts := authpg.NewAccountRepository(env.pool)
	env.sessions = authpg.NewSessionRepository(env.pool)
	hasher := auth.NewArgon2idHasher()
	tokens, err := auth.NewTokenGenerator(rand.Reader)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	svc, err := auth.NewAuthServiceWithLogger(accounts, env.sessions, hasher, tokens, logger)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	passwords, err := auth.NewPasswordService(accounts, env.sessions, hasher, logger)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	cookies, err := web.NewCookieCodec(bytes.Repeat([]byte{7}, 32), bytes.Repeat([]byte{9}, 32),
		web.WithSecure(false))
	if err != nil {
		env.cleanup()
		return nil, err
	}

	router := web.NewRouter(
		web.NewHandlers(svc, passwords, cookies, nil),
		web.NewGuard(cookies, svc, nil),
		logger,
	)
	env.server = httptest.NewServer(router)
	return env, nil
}

func (env *testEnv) cleanup() {
	if env.server != nil {
		env.server.Close()
	}
	if env.pool != nil {
		env.pool.Close()
	}
	if env.container != nil {
		_ = env.container.Terminate(context.Background())
	}
	env.cancel()
}

// browser is an HTTP client with its own cookie jar.
type browser struct {
	base   string
	client *http.Client
}

func (env *testEnv) newBrowser() *browser {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &browser{base: env.server.URL, client: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

func (b *browser) post(path string, body any) (int, map[string]string) {
	var payload bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&payload).Encode(body)).To(Succeed())
	}
	resp, err := b.client.Post(b.base+path, "application/json", &payload)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	out := map[string]string{}
	Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	return resp.StatusCode, out
}

func (b *browser) me() (int, map[string]string) {
	resp, err := b.client.Get(b.base + "/api/auth/me")
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	out := map[string]string{}
	Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	return resp.StatusCode, out
}

func (b *browser) sessions() (int, []map[string]any) {
	resp, err := b.client.Get(b.base + "/api/auth/sessions")
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	var out struct {
		Sessions []map[string]any `json:"sessions"`
	}
	if resp.StatusCode == http.StatusOK {
		Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	}
	return resp.StatusCode, out.Sessions
}

// cookies returns the cookies the browser would send to the service.
func (b *browser) cookies() []*http.Cookie {
	u, err := url.Parse(b.base)
	Expect(err).NotTo(HaveOccurred())
	return b.client.Jar.Cookies(u)
}

// restore puts previously captured cookies back into the jar.
func (b *browser) restore(cookies []*http.Cookie) {
	u, err := url.Parse(b.base)
	Expect(err).NotTo(HaveOccurred())
	b.client.Jar.SetCookies(u, cookies)
}

func (b *browser) login(name, password string) int {
	status, _ := b.post("/api/auth/login", map[string]string{"name": name, "password": password})
	return status
}

var _ = Describe("Auth flows", Ordered, func() {
	var env *testEnv

	BeforeAll(func() {
		var err error
		env, err = setupTestEnv()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if env != nil {
			env.cleanup()
		}
	})

	Describe("signup and login", func() {
		It("creates a trader account", func() {
			status, body := env.newBrowser().post("/api/auth/user", map[string]string{
				"name": "dana", "password": "correct horse", "email": "dana@example.com",
			})
			Expect(status).To(Equal(http.StatusCreated))
			Expect(body["status"]).To(Equal("successful"))
		})

		It("rejects a duplicate username regardless of case", func() {
			status, _ := env.newBrowser().post("/api/auth/user", map[string]string{
				"name": "DANA", "password": "x", "email": "other@example.com",
			})
			Expect(status).To(Equal(http.StatusConflict))
		})

		It("gives the same answer for a wrong password and an unknown user", func() {
			b := env.newBrowser()
			wrongStatus, wrongBody := b.post("/api/auth/login", map[string]string{"name": "dana", "password": "nope"})
			ghostStatus, ghostBody := b.post("/api/auth/login", map[string]string{"name": "ghost", "password": "nope"})

			Expect(wrongStatus).To(Equal(http.StatusUnauthorized))
			Expect(ghostStatus).To(Equal(wrongStatus))
			Expect(ghostBody).To(Equal(wrongBody))
		})

		It("authenticates with the issued cookie", func() {
			b := env.newBrowser()
			Expect(b.login("dana", "correct horse")).To(Equal(http.StatusOK))

			status, body := b.me()
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["account_type"]).To(Equal("trader"))
			Expect(body["user_id"]).NotTo(BeEmpty())
		})
	})

	Describe("logout", func() {
		It("revokes only the presenting session", func() {
			laptop := env.newBrowser()
			phone := env.newBrowser()
			Expect(laptop.login("dana", "correct horse")).To(Equal(http.StatusOK))
			Expect(phone.login("dana", "correct horse")).To(Equal(http.StatusOK))

			status, _ := laptop.post("/api/auth/logout", nil)
			Expect(status).To(Equal(http.StatusOK))

			status, _ = laptop.me()
			Expect(status).To(Equal(http.StatusUnauthorized))
			status, _ = phone.me()
			Expect(status).To(Equal(http.StatusOK))
		})

		It("succeeds again when already logged out", func() {
			laptop := env.newBrowser()
			Expect(laptop.login("dana", "correct horse")).To(Equal(http.StatusOK))
			stale := laptop.cookies()
			Expect(stale).NotTo(BeEmpty())

			status, _ := laptop.post("/api/auth/logout", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(laptop.cookies()).To(BeEmpty())

			status, body := laptop.post("/api/auth/logout", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("successful"))

			laptop.restore(stale)
			status, body = laptop.post("/api/auth/logout", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("successful"))
		})

		It("revokes every session with logout/all", func() {
			laptop := env.newBrowser()
			phone := env.newBrowser()
			Expect(laptop.login("dana", "correct horse")).To(Equal(http.StatusOK))
			Expect(phone.login("dana", "correct horse")).To(Equal(http.StatusOK))

			status, _ := laptop.post("/api/auth/logout/all", nil)
			Expect(status).To(Equal(http.StatusOK))

			status, _ = laptop.me()
			Expect(status).To(Equal(http.StatusUnauthorized))
			status, _ = phone.me()
			Expect(status).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("session listing", func() {
		It("shows each live session once and marks the caller's", func() {
			status, _ := env.newBrowser().post("/api/auth/user", map[string]string{
				"name": "erin", "password": "tr0mbone", "email": "erin@example.com",
			})
			Expect(status).To(Equal(http.StatusCreated))

			laptop := env.newBrowser()
			phone := env.newBrowser()
			Expect(laptop.login("erin", "tr0mbone")).To(Equal(http.StatusOK))
			Expect(phone.login("erin", "tr0mbone")).To(Equal(http.StatusOK))

			status, listed := laptop.sessions()
			Expect(status).To(Equal(http.StatusOK))
			Expect(listed).To(HaveLen(2))
			current := 0
			for _, s := range listed {
				if s["current"] == true {
					current++
				}
			}
			Expect(current).To(Equal(1))

			status, _ = phone.post("/api/auth/logout", nil)
			Expect(status).To(Equal(http.StatusOK))
			_, listed = laptop.sessions()
			Expect(listed).To(HaveLen(1))
			Expect(listed[0]["current"]).To(BeTrue())
		})
	})

	Describe("password reset", func() {
		It("keeps the current session and revokes the others", func() {
			laptop := env.newBrowser()
			phone := env.newBrowser()
			Expect(laptop.login("dana", "correct horse")).To(Equal(http.StatusOK))
			Expect(phone.login("dana", "correct horse")).To(Equal(http.StatusOK))

			status, _ := laptop.post("/api/auth/reset", map[string]string{
				"current_password": "correct horse", "new_password": "battery staple",
			})
			Expect(status).To(Equal(http.StatusOK))

			status, _ = laptop.me()
			Expect(status).To(Equal(http.StatusOK))
			status, _ = phone.me()
			Expect(status).To(Equal(http.StatusUnauthorized))

			Expect(env.newBrowser().login("dana", "correct horse")).To(Equal(http.StatusUnauthorized))
			Expect(env.newBrowser().login("dana", "battery staple")).To(Equal(http.StatusOK))
		})

		It("refuses a wrong current password", func() {
			b := env.newBrowser()
			Expect(b.login("dana", "battery staple")).To(Equal(http.StatusOK))

			status, _ := b.post("/api/auth/reset", map[string]string{
				"current_password": "wrong", "new_password": "whatever",
			})
			Expect(status).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("expiry", func() {
		It("treats an expired row as no session and the sweeper removes it", func() {
			b := env.newBrowser()
			Expect(b.login("dana", "battery staple")).To(Equal(http.StatusOK))

			_, err := env.pool.Exec(env.ctx, `UPDATE sessions SET expires_at = NOW() - INTERVAL '1 minute'`)
			Expect(err).NotTo(HaveOccurred())

			status, _ := b.me()
			Expect(status).To(Equal(http.StatusUnauthorized))

			sweeper, err := auth.NewSessionSweeper(env.sessions, time.Hour, slog.New(slog.DiscardHandler), nil)
			Expect(err).NotTo(HaveOccurred())
			n, err := sweeper.SweepOnce(env.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeNumerically(">=", 1))

			var remaining int
			Expect(env.pool.QueryRow(env.ctx, `SELECT COUNT(*) FROM sessions`).Scan(&remaining)).To(Succeed())
			Expect(remaining).To(Equal(0))
		})
	})
})
