// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/config"
	"github.com/authcore/authcore/internal/mail"
	"github.com/authcore/authcore/pkg/errutil"
)

// 32 bytes, base64url.
const testSecret = "c2VjcmV0LXNlY3JldC1zZWNyZXQtc2VjcmV0LTEyMzQ"

func testServeConfig() config.Config {
	cfg := config.Default()
	cfg.DB.URL = "postgres://localhost:5432/authcore_test"
	cfg.JWT.Secret = testSecret
	cfg.Server.MetricsAddr = ""
	return cfg
}

// lazyPool creates a pool without connecting; pgxpool dials on first use.
func lazyPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, dsn)
}

type stubMigrator struct {
	upErr error
}

func (m *stubMigrator) Up() error    { return m.upErr }
func (m *stubMigrator) Close() error { return nil }

func TestRunServe_PoolOpenFailure(t *testing.T) {
	deps := &ServeDeps{
		PoolOpener: func(_ context.Context, _ string) (*pgxpool.Pool, error) {
			return nil, errors.New("connection refused")
		},
	}

	err := runServe(context.Background(), testServeConfig(), false, deps)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
}

func TestRunServe_AutoMigrateFailure(t *testing.T) {
	deps := &ServeDeps{
		MigratorOpener: func(_ string) (migrationRunner, error) {
			return &stubMigrator{upErr: errors.New("dirty database")}, nil
		},
	}

	err := runServe(context.Background(), testServeConfig(), true, deps)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_FAILED")
}

func TestRunServe_MigratorOpenFailure(t *testing.T) {
	deps := &ServeDeps{
		MigratorOpener: func(_ string) (migrationRunner, error) {
			return nil, errors.New("bad url")
		},
	}

	err := runServe(context.Background(), testServeConfig(), true, deps)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_FAILED")
}

func TestRunServe_MailerFailure(t *testing.T) {
	deps := &ServeDeps{
		PoolOpener: lazyPool,
		MailerFactory: func(_ mail.Config) (auth.ResetMailer, error) {
			return nil, errors.New("smtp host missing")
		},
	}

	err := runServe(context.Background(), testServeConfig(), false, deps)
	require.Error(t, err)
	require.Contains(t, err.Error(), "smtp host missing")
}

func TestRunServe_BadTokenSecret(t *testing.T) {
	cfg := testServeConfig()
	cfg.JWT.Secret = "!!!not-base64url!!!"
	deps := &ServeDeps{PoolOpener: lazyPool}

	err := runServe(context.Background(), cfg, false, deps)
	require.Error(t, err)
}
