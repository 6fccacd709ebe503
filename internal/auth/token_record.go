// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// TokenRecord is the persisted ledger entry for an issued refresh or reset
// token. Access tokens are never persisted. Value holds the serialized signed
// token and is globally unique.
type TokenRecord struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	Value     string
	Revoked   bool
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTokenRecord creates a validated TokenRecord with a freshly assigned ID.
func NewTokenRecord(userID ulid.ULID, value string, expiresAt time.Time) (*TokenRecord, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("TOKEN_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if value == "" {
		return nil, oops.Code("TOKEN_INVALID_VALUE").Errorf("token value cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("TOKEN_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	now := time.Now()
	return &TokenRecord{
		ID:        ulid.Make(),
		UserID:    userID,
		Value:     value,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsExpired returns true if the record's expiry has passed. The persisted
// expiry is authoritative over the token's own exp claim.
func (r *TokenRecord) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// IsLive returns true if the record is neither revoked nor expired.
func (r *TokenRecord) IsLive() bool {
	return !r.Revoked && !r.IsExpired()
}

// TokenRecordRepository manages token record persistence.
type TokenRecordRepository interface {
	// Create stores a new non-revoked record.
	Create(ctx context.Context, record *TokenRecord) error

	// GetByValue retrieves a record by exact token value. Returns an error
	// wrapping ErrNotFound on a miss.
	GetByValue(ctx context.Context, value string) (*TokenRecord, error)

	// Revoke marks a record revoked. It only touches rows that are not
	// already revoked and reports whether this call flipped the flag, which
	// lets concurrent refreshes of the same token elect a single winner.
	Revoke(ctx context.Context, id ulid.ULID) (bool, error)

	// RevokeAllForUser revokes every live record owned by the user and
	// returns the number of rows revoked.
	RevokeAllForUser(ctx context.Context, userID ulid.ULID) (int64, error)

	// DeleteDead deletes every record that is revoked or past its expiry at
	// the moment the statement runs, and returns the count. Rows inserted
	// concurrently that are still live are never touched.
	DeleteDead(ctx context.Context) (int64, error)
}
