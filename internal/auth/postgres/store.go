// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/authcore/authcore/internal/auth"
)

// uniqueViolationCode is the SQLSTATE for unique constraint violations.
const uniqueViolationCode = pgerrcode.UniqueViolation

// Querier is the subset of pgx executed by the repositories. It is
// satisfied by *pgxpool.Pool, pgx.Tx, and pgxmock pools alike, so the same
// repository code runs inside and outside transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB extends Querier with transaction support.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store owns the database handle and implements auth.TxRunner.
type Store struct {
	db DB
}

// NewStore creates a Store over a pool or compatible handle.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Users returns a repository bound to the store's handle.
func (s *Store) Users() *UserRepository {
	return NewUserRepository(s.db)
}

// Tokens returns a repository bound to the store's handle.
func (s *Store) Tokens() *TokenRecordRepository {
	return NewTokenRecordRepository(s.db)
}

// RunInTx runs fn inside one transaction, handing it repositories bound to
// that transaction. The transaction commits when fn returns nil and rolls
// back otherwise; fn's error is returned unwrapped so sentinel checks keep
// working across the transaction boundary.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, r auth.Repositories) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}

	repos := auth.Repositories{
		Users:  NewUserRepository(tx),
		Tokens: NewTokenRecordRepository(tx),
	}

	if err := fn(ctx, repos); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Error("transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation, optionally on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != uniqueViolationCode {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// Compile-time interface check.
var _ auth.TxRunner = (*Store)(nil)
