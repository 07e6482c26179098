// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

//go:build integration

package store_test

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ledgerdesk/ledgerdesk/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var (
		ctx         context.Context
		pgContainer *postgres.PostgresContainer
		connStr     string
		migrator    *store.Migrator
	)

	BeforeAll(func() {
		ctx = context.Background()

		var err error
		pgContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("ledgerdesk_test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2)),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if migrator != nil {
			_ = migrator.Close()
		}
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
	})

	It("starts at version zero", func() {
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())
	})

	It("applies every migration", func() {
		Expect(migrator.Up()).To(Succeed())

		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Version).To(Equal(uint(2)))
		Expect(status.Pending).To(BeEmpty())
		Expect(status.Dirty).To(BeFalse())
	})

	It("treats a second Up as a no-op", func() {
		Expect(migrator.Up()).To(Succeed())
	})

	It("steps down and back up", func() {
		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))

		Expect(migrator.Steps(1)).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
	})

	Context("with the schema applied", func() {
		var pool *pgxpool.Pool

		BeforeAll(func() {
			var err error
			pool, err = store.Open(ctx, connStr, 2)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterAll(func() {
			if pool != nil {
				pool.Close()
			}
		})

		It("rejects session tokens that are not 16 bytes", func() {
			_, err := pool.Exec(ctx,
				`INSERT INTO accounts (id, username, email, password_hash) VALUES ('01J0000000000000000000000A', 'width', 'width@example.com', 'x')`)
			Expect(err).NotTo(HaveOccurred())

			_, err = pool.Exec(ctx,
				`INSERT INTO sessions (session_token, account_id, expires_at) VALUES ($1, '01J0000000000000000000000A', now())`,
				[]byte{1, 2, 3})
			Expect(err).To(HaveOccurred())
		})

		It("treats usernames case-insensitively", func() {
			_, err := pool.Exec(ctx,
				`INSERT INTO accounts (id, username, email, password_hash) VALUES ('01J0000000000000000000000B', 'Carol', 'carol@example.com', 'x')`)
			Expect(err).NotTo(HaveOccurred())

			_, err = pool.Exec(ctx,
				`INSERT INTO accounts (id, username, email, password_hash) VALUES ('01J0000000000000000000000C', 'carol', 'other@example.com', 'x')`)
			Expect(err).To(HaveOccurred())
		})
	})

	It("rolls everything back and forces a version", func() {
		Expect(migrator.Down()).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())

		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Force(1)).To(Succeed())
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))
		Expect(dirty).To(BeFalse())
	})
})
