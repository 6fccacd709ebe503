// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authcore/authcore/internal/auth/postgres"
	"github.com/authcore/authcore/internal/config"
	"github.com/authcore/authcore/internal/store"
)

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete revoked and expired tokens once",
		Long: `Remove all revoked and expired token rows from the database in a
single pass. The serve command runs this continuously; sweep is for
cron-style scheduling or manual cleanup.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, nil)
			if err != nil {
				return err
			}
			if cfg.DB.URL == "" {
				return oops.Code("CONFIG_INVALID").Errorf("db.url is required")
			}

			ctx := cmd.Context()

			pool, err := store.Open(ctx, cfg.DB.URL)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").Wrap(err)
			}
			defer pool.Close()

			deleted, err := postgres.NewTokenRecordRepository(pool).DeleteDead(ctx)
			if err != nil {
				return oops.Code("SWEEP_FAILED").Wrap(err)
			}

			cmd.Printf("Deleted %d dead token(s)\n", deleted)
			return nil
		},
	}
}
