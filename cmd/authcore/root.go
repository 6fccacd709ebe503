// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/authcore/authcore/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Authcore CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authcore",
		Short: "Authcore - token-based authentication service",
		Long: `Authcore is a standalone authentication service providing account
registration, credential login, refresh token rotation and password reset
over a JSON HTTP API, backed by PostgreSQL.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSweepCmd())

	return cmd
}

// addConfigOverrideFlags registers flags whose names mirror config keys so
// they can overlay the config file. Flag defaults match config.Default()
// so an untouched flag never changes an effective value.
func addConfigOverrideFlags(cmd *cobra.Command) {
	def := config.Default()
	flags := cmd.Flags()
	flags.String("server.addr", def.Server.Addr, "API listen address")
	flags.String("server.metrics_addr", def.Server.MetricsAddr, "metrics/health listen address (empty = disabled)")
	flags.String("db.url", def.DB.URL, "PostgreSQL connection URL")
	flags.String("log.level", def.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log.format", def.Log.Format, "log format (json or text)")
	flags.Duration("sweep.interval", def.Sweep.Interval, "dead token sweep interval")
}
