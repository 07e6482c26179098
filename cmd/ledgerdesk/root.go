// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/ledgerdesk/ledgerdesk/internal/xdg"
)

// serviceName labels every log record.
const serviceName = "ledgerdesk"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the LedgerDesk CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledgerdesk",
		Short: "LedgerDesk - session authentication for the trading desk",
		Long: `LedgerDesk issues server-side sessions to traders and administrators,
authenticates every API request from a sealed session cookie, and revokes
sessions on logout or password change.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/ledgerdesk/config.yaml if present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAccountCmd())

	return cmd
}

// resolveConfigPath returns --config when set, otherwise the XDG config file
// if one exists, otherwise "" (defaults and flags only).
func resolveConfigPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return xdg.ExistingConfigFile()
}
