// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authcore/authcore/internal/auth"
)

func TestTokenRecordRepository_Create(t *testing.T) {
	record := &auth.TokenRecord{
		ID:        ulid.Make(),
		UserID:    ulid.Make(),
		Value:     "refresh.jwt.value",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	t.Run("successful insert", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO tokens`).
			WithArgs(record.ID.String(), record.UserID.String(), record.Value,
				record.Revoked, record.ExpiresAt, record.CreatedAt, record.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := NewTokenRecordRepository(mock)
		require.NoError(t, repo.Create(context.Background(), record))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO tokens`).
			WithArgs(record.ID.String(), record.UserID.String(), record.Value,
				record.Revoked, record.ExpiresAt, record.CreatedAt, record.UpdatedAt).
			WillReturnError(errors.New("connection refused"))

		repo := NewTokenRecordRepository(mock)
		err = repo.Create(context.Background(), record)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTokenRecordRepository_GetByValue(t *testing.T) {
	tokenID := ulid.Make()
	userID := ulid.Make()
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{
			"id", "user_id", "value", "revoked", "expires_at", "created_at", "updated_at",
		}).AddRow(tokenID.String(), userID.String(), "refresh.jwt.value",
			false, now.Add(time.Hour), now, now)
		mock.ExpectQuery(`SELECT .+ FROM tokens`).
			WithArgs("refresh.jwt.value").
			WillReturnRows(rows)

		repo := NewTokenRecordRepository(mock)
		got, err := repo.GetByValue(context.Background(), "refresh.jwt.value")
		require.NoError(t, err)
		assert.Equal(t, tokenID, got.ID)
		assert.Equal(t, userID, got.UserID)
		assert.False(t, got.Revoked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found maps to sentinel", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT .+ FROM tokens`).
			WithArgs("unknown.jwt").
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "user_id", "value", "revoked", "expires_at", "created_at", "updated_at",
			}))

		repo := NewTokenRecordRepository(mock)
		_, err = repo.GetByValue(context.Background(), "unknown.jwt")
		require.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTokenRecordRepository_Revoke(t *testing.T) {
	tokenID := ulid.Make()

	tests := []struct {
		name        string
		setupMock   func(mock pgxmock.PgxPoolIface)
		wantRevoked bool
		wantErr     bool
	}{
		{
			name: "revokes live token",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE tokens SET revoked = TRUE`).
					WithArgs(tokenID.String(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
			wantRevoked: true,
		},
		{
			name: "already revoked loses the race",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE tokens SET revoked = TRUE`).
					WithArgs(tokenID.String(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantRevoked: false,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE tokens SET revoked = TRUE`).
					WithArgs(tokenID.String(), pgxmock.AnyArg()).
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewTokenRecordRepository(mock)
			revoked, err := repo.Revoke(context.Background(), tokenID)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantRevoked, revoked)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestTokenRecordRepository_RevokeAllForUser(t *testing.T) {
	userID := ulid.Make()

	t.Run("revokes all live tokens", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE tokens SET revoked = TRUE`).
			WithArgs(userID.String(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 3))

		repo := NewTokenRecordRepository(mock)
		n, err := repo.RevokeAllForUser(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no live tokens is not an error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE tokens SET revoked = TRUE`).
			WithArgs(userID.String(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewTokenRecordRepository(mock)
		n, err := repo.RevokeAllForUser(context.Background(), userID)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTokenRecordRepository_DeleteDead(t *testing.T) {
	t.Run("deletes revoked and expired rows", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM tokens`).
			WillReturnResult(pgxmock.NewResult("DELETE", 42))

		repo := NewTokenRecordRepository(mock)
		n, err := repo.DeleteDead(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM tokens`).
			WillReturnError(errors.New("connection refused"))

		repo := NewTokenRecordRepository(mock)
		_, err = repo.DeleteDead(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
