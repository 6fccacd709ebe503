// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/pkg/errutil"
)

func TestNewTokenRecord(t *testing.T) {
	userID := ulid.Make()
	expiry := time.Now().Add(time.Hour)

	t.Run("creates record with fresh ID", func(t *testing.T) {
		record, err := auth.NewTokenRecord(userID, "some.token.value", expiry)
		require.NoError(t, err)
		assert.NotEqual(t, ulid.ULID{}, record.ID)
		assert.Equal(t, userID, record.UserID)
		assert.Equal(t, "some.token.value", record.Value)
		assert.False(t, record.Revoked)
		assert.True(t, record.ExpiresAt.Equal(expiry))
	})

	t.Run("rejects zero user ID", func(t *testing.T) {
		_, err := auth.NewTokenRecord(ulid.ULID{}, "some.token.value", expiry)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "TOKEN_INVALID_USER")
	})

	t.Run("rejects empty value", func(t *testing.T) {
		_, err := auth.NewTokenRecord(userID, "", expiry)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "TOKEN_INVALID_VALUE")
	})

	t.Run("rejects zero expiry", func(t *testing.T) {
		_, err := auth.NewTokenRecord(userID, "some.token.value", time.Time{})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "TOKEN_INVALID_EXPIRY")
	})
}

func TestTokenRecord_IsLive(t *testing.T) {
	userID := ulid.Make()

	t.Run("fresh record is live", func(t *testing.T) {
		record, err := auth.NewTokenRecord(userID, "value", time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, record.IsLive())
		assert.False(t, record.IsExpired())
	})

	t.Run("revoked record is not live", func(t *testing.T) {
		record, err := auth.NewTokenRecord(userID, "value", time.Now().Add(time.Hour))
		require.NoError(t, err)
		record.Revoked = true
		assert.False(t, record.IsLive())
	})

	t.Run("expired record is not live", func(t *testing.T) {
		record, err := auth.NewTokenRecord(userID, "value", time.Now().Add(time.Hour))
		require.NoError(t, err)
		record.ExpiresAt = time.Now().Add(-time.Second)
		assert.True(t, record.IsExpired())
		assert.False(t, record.IsLive())
	})
}
