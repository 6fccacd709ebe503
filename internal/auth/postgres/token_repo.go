// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/authcore/authcore/internal/auth"
)

// TokenRecordRepository implements auth.TokenRecordRepository using PostgreSQL.
type TokenRecordRepository struct {
	db Querier
}

// NewTokenRecordRepository creates a new TokenRecordRepository.
func NewTokenRecordRepository(db Querier) *TokenRecordRepository {
	return &TokenRecordRepository{db: db}
}

// Create stores a new token record.
func (r *TokenRecordRepository) Create(ctx context.Context, record *auth.TokenRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO tokens (id, user_id, value, revoked, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		record.ID.String(),
		record.UserID.String(),
		record.Value,
		record.Revoked,
		record.ExpiresAt,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("operation", "insert token").
			With("user_id", record.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetByValue retrieves a token record by its token string.
func (r *TokenRecordRepository) GetByValue(ctx context.Context, value string) (*auth.TokenRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, value, revoked, expires_at, created_at, updated_at
		FROM tokens
		WHERE value = $1
	`, value)

	record, err := scanTokenRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_BY_VALUE_FAILED").
			With("operation", "get token by value").
			Wrap(err)
	}
	return record, nil
}

// Revoke marks a token revoked if it is not revoked already. It reports
// whether this call performed the revocation, so concurrent revokers of the
// same token resolve to exactly one winner.
func (r *TokenRecordRepository) Revoke(ctx context.Context, id ulid.ULID) (bool, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE tokens SET revoked = TRUE, updated_at = $2
		WHERE id = $1 AND NOT revoked
	`, id.String(), time.Now())
	if err != nil {
		return false, oops.Code("TOKEN_REVOKE_FAILED").
			With("operation", "revoke token").
			With("id", id.String()).
			Wrap(err)
	}
	return result.RowsAffected() == 1, nil
}

// RevokeAllForUser revokes every live token belonging to a user and returns
// the number of tokens revoked.
func (r *TokenRecordRepository) RevokeAllForUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE tokens SET revoked = TRUE, updated_at = $2
		WHERE user_id = $1 AND NOT revoked
	`, userID.String(), time.Now())
	if err != nil {
		return 0, oops.Code("TOKEN_REVOKE_ALL_FAILED").
			With("operation", "revoke all tokens for user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteDead removes every revoked or expired token. Expiry is evaluated
// against the database clock at statement execution, so rows that expire
// between sweeps are caught by the next sweep.
func (r *TokenRecordRepository) DeleteDead(ctx context.Context) (int64, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM tokens
		WHERE revoked OR expires_at < now()
	`)
	if err != nil {
		return 0, oops.Code("TOKEN_DELETE_DEAD_FAILED").
			With("operation", "delete dead tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

func scanTokenRecord(row pgx.Row) (*auth.TokenRecord, error) {
	var (
		idStr     string
		userIDStr string
		value     string
		revoked   bool
		expiresAt time.Time
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&idStr, &userIDStr, &value, &revoked, &expiresAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("TOKEN_SCAN_FAILED").
			With("operation", "scan token").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID_USER_ID").
			With("user_id", userIDStr).
			Wrap(err)
	}

	return &auth.TokenRecord{
		ID:        id,
		UserID:    userID,
		Value:     value,
		Revoked:   revoked,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.TokenRecordRepository = (*TokenRecordRepository)(nil)
