// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Sweeper defaults.
const (
	DefaultSweepInterval = time.Hour
	DefaultSweepTimeout  = 30 * time.Second
)

// Sweeper periodically deletes revoked and expired token records. A sweep
// failure is logged and the loop keeps running; eventual storage reclamation
// is the only guarantee.
type Sweeper struct {
	tokens   TokenRecordRepository
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	// OnSweep, when set, is called after each successful sweep with the
	// number of deleted rows. Used to feed metrics.
	OnSweep func(deleted int64)
}

// NewSweeper creates a Sweeper. Zero interval or timeout select the
// defaults.
func NewSweeper(tokens TokenRecordRepository, interval, timeout time.Duration) (*Sweeper, error) {
	if tokens == nil {
		return nil, oops.Errorf("tokens repository is required")
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if timeout <= 0 {
		timeout = DefaultSweepTimeout
	}
	return &Sweeper{
		tokens:   tokens,
		interval: interval,
		timeout:  timeout,
		logger:   slog.Default(),
	}, nil
}

// WithLogger replaces the sweeper logger. Returns the sweeper for chaining.
func (s *Sweeper) WithLogger(logger *slog.Logger) *Sweeper {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Run sweeps once immediately and then on every interval tick until ctx is
// canceled. Each sweep runs under its own timeout so one slow delete cannot
// stall the loop. Run blocks; start it in a goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.InfoContext(ctx, "token sweeper started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("token sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep performs one bounded purge of dead token records.
func (s *Sweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	deleted, err := s.tokens.DeleteDead(sweepCtx)
	if err != nil {
		s.logger.ErrorContext(ctx, "token sweep failed", "error", err)
		return
	}

	if deleted > 0 {
		s.logger.InfoContext(ctx, "token sweep completed", "deleted", deleted)
	}
	if s.OnSweep != nil {
		s.OnSweep(deleted)
	}
}
