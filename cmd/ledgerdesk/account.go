// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ledgerdesk/ledgerdesk/internal/auth"
	"github.com/ledgerdesk/ledgerdesk/internal/config"
	"github.com/ledgerdesk/ledgerdesk/internal/logging"
)

// accountCreateOptions holds flags for account create.
type accountCreateOptions struct {
	username string
	email    string
	admin    bool
}

// NewAccountCmd creates the account command.
func NewAccountCmd() *cobra.Command {
	return newAccountCmdWithDeps(nil)
}

func newAccountCmdWithDeps(deps *AccountDeps) *cobra.Command {
	if deps == nil {
		deps = &AccountDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = openPool
	}
	if deps.DatabaseURLGetter == nil {
		deps.DatabaseURLGetter = func() string {
			return os.Getenv("DATABASE_URL")
		}
	}

	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	opts := &accountCreateOptions{}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Long: `Create a trader account, or an administrator account with --admin.
The password is read from the first line of standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAccountCreate(cmd.Context(), cmd, opts, deps)
		},
	}
	create.Flags().StringVar(&opts.username, "username", "", "account username")
	create.Flags().StringVar(&opts.email, "email", "", "account email address")
	create.Flags().BoolVar(&opts.admin, "admin", false, "create an administrator account")
	//nolint:errcheck // flags are registered above
	create.MarkFlagRequired("username")
	//nolint:errcheck // flags are registered above
	create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}

func runAccountCreate(ctx context.Context, cmd *cobra.Command, opts *accountCreateOptions, deps *AccountDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}

	databaseURL := deps.DatabaseURLGetter()
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath, nil, databaseURL)
	if err != nil {
		return err
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	logger := logging.Setup(serviceName, version, "text", slog.LevelWarn, cmd.ErrOrStderr())

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	stack, err := buildAuthStack(pool, cfg, rand.Reader, logger)
	if err != nil {
		return err
	}

	accountType := auth.AccountTypeTrader
	if opts.admin {
		accountType = auth.AccountTypeAdmin
	}

	account, err := stack.service.Register(ctx, opts.username, opts.email, password, &accountType)
	if err != nil {
		return oops.With("operation", "create account").With("username", opts.username).Wrap(err)
	}

	cmd.Printf("Created %s account %s (%s)\n", accountType, account.Username, account.ID)
	return nil
}

// readPassword reads one line from the command's input, without the line ending.
func readPassword(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", oops.Code("PASSWORD_READ_FAILED").With("operation", "read password from stdin").Wrap(err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", oops.Code(auth.CodeEmptyPassword).Errorf("password is required on standard input")
	}
	return password, nil
}
