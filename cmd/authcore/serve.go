// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/auth/postgres"
	"github.com/authcore/authcore/internal/config"
	"github.com/authcore/authcore/internal/httpapi"
	"github.com/authcore/authcore/internal/logging"
	"github.com/authcore/authcore/internal/mail"
	"github.com/authcore/authcore/internal/observability"
	"github.com/authcore/authcore/internal/store"
	"github.com/authcore/authcore/internal/token"
)

// migrationRunner is the subset of store.Migrator used by --auto-migrate.
type migrationRunner interface {
	Up() error
	Close() error
}

// ServeDeps carries injectable dependencies for the serve command. A nil
// field selects the production implementation.
type ServeDeps struct {
	PoolOpener     func(ctx context.Context, dsn string) (*pgxpool.Pool, error)
	MigratorOpener func(databaseURL string) (migrationRunner, error)
	MailerFactory  func(cfg mail.Config) (auth.ResetMailer, error)
}

func (d *ServeDeps) applyDefaults() {
	if d.PoolOpener == nil {
		d.PoolOpener = store.Open
	}
	if d.MigratorOpener == nil {
		d.MigratorOpener = func(databaseURL string) (migrationRunner, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if d.MailerFactory == nil {
		d.MailerFactory = func(cfg mail.Config) (auth.ResetMailer, error) {
			return mail.NewSMTPSender(cfg)
		}
	}
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication server",
		Long: `Start the HTTP authentication server, the observability endpoints
and the background dead-token sweeper.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, autoMigrate, nil)
		},
	}

	addConfigOverrideFlags(cmd)
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "run pending migrations before serving")

	return cmd
}

// runServe wires the full service and blocks until a shutdown signal or a
// server failure.
func runServe(ctx context.Context, cfg config.Config, autoMigrate bool, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.applyDefaults()

	logging.SetDefault("authcore", version, cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting authcore", "addr", cfg.Server.Addr)

	if autoMigrate {
		migrator, err := deps.MigratorOpener(cfg.DB.URL)
		if err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "open migrator").Wrap(err)
		}
		err = migrator.Up()
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
		if err != nil {
			return oops.Code("MIGRATION_FAILED").Wrap(err)
		}
		slog.Info("migrations applied")
	}

	pool, err := deps.PoolOpener(ctx, cfg.DB.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer pool.Close()

	slog.Info("connected to database")

	pgStore := postgres.NewStore(pool)
	users := pgStore.Users()
	tokens := pgStore.Tokens()

	codec, err := token.New(cfg.TokenConfig())
	if err != nil {
		return err
	}

	mailer, err := deps.MailerFactory(cfg.MailConfig())
	if err != nil {
		return err
	}

	hasher := auth.NewArgon2idHasher()

	svc, err := auth.NewService(users, tokens, hasher, codec, mailer, pgStore, auth.ServiceConfig{
		RotationBuffer: cfg.JWT.RotationBuffer,
		ResetBaseURL:   cfg.Server.ResetBaseURL,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Observability server, optional.
	var metrics *observability.Metrics
	var obsServer *observability.Server
	if cfg.Server.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.Server.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		metrics = obsServer.Metrics()
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	// Background sweeper.
	sweeper, err := auth.NewSweeper(tokens, cfg.Sweep.Interval, cfg.Sweep.Timeout)
	if err != nil {
		return err
	}
	if metrics != nil {
		sweeper.OnSweep = func(deleted int64) {
			metrics.SweepDeletedTotal.Add(float64(deleted))
		}
	}
	go sweeper.Run(ctx)

	// API server.
	apiServer, err := httpapi.NewServer(httpapi.Config{
		Addr:      cfg.Server.Addr,
		Service:   svc,
		Validator: codec,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}
	apiErrCh, err := apiServer.Start()
	if err != nil {
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	slog.Info("authcore ready", "addr", apiServer.Addr())

	// Wait for shutdown signal or server failure.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels the run context when a server reports a
// fatal error after startup.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
