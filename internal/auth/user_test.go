// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/pkg/errutil"
)

func TestNewUser(t *testing.T) {
	t.Run("creates user with fresh ID and timestamps", func(t *testing.T) {
		user, err := auth.NewUser("alice@example.com", "$argon2id$hash", "Alice", "Smith")
		require.NoError(t, err)
		assert.NotEqual(t, ulid.ULID{}, user.ID)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "Alice", user.FirstName)
		assert.Equal(t, "Smith", user.LastName)
		assert.Zero(t, user.FailedAttempts)
		assert.Nil(t, user.LockedUntil)
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("assigns distinct IDs", func(t *testing.T) {
		u1, err := auth.NewUser("one@example.com", "$argon2id$hash", "", "")
		require.NoError(t, err)
		u2, err := auth.NewUser("two@example.com", "$argon2id$hash", "", "")
		require.NoError(t, err)
		assert.NotEqual(t, u1.ID, u2.ID)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		_, err := auth.NewUser("not-an-email", "$argon2id$hash", "", "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_INVALID_EMAIL")
	})

	t.Run("rejects empty password hash", func(t *testing.T) {
		_, err := auth.NewUser("alice@example.com", "", "", "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_INVALID_HASH")
	})
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"simple address", "alice@example.com", false},
		{"subdomain", "alice@mail.example.com", false},
		{"plus tag", "alice+tag@example.com", false},
		{"empty", "", true},
		{"missing at", "aliceexample.com", true},
		{"missing domain dot", "alice@example", true},
		{"embedded space", "alice smith@example.com", true},
		{"double at", "alice@@example.com", true},
		{"too long", strings.Repeat("a", 250) + "@x.io", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUser_RecordFailure(t *testing.T) {
	user, err := auth.NewUser("alice@example.com", "$argon2id$hash", "", "")
	require.NoError(t, err)

	t.Run("failures below threshold do not lock", func(t *testing.T) {
		for i := 0; i < auth.LockoutThreshold-1; i++ {
			user.RecordFailure()
		}
		assert.Equal(t, auth.LockoutThreshold-1, user.FailedAttempts)
		assert.Nil(t, user.LockedUntil)
		assert.False(t, user.IsLocked())
	})

	t.Run("threshold failure locks", func(t *testing.T) {
		user.RecordFailure()
		assert.Equal(t, auth.LockoutThreshold, user.FailedAttempts)
		require.NotNil(t, user.LockedUntil)
		assert.True(t, user.IsLocked())
	})

	t.Run("success clears counter and lockout", func(t *testing.T) {
		user.RecordSuccess()
		assert.Zero(t, user.FailedAttempts)
		assert.Nil(t, user.LockedUntil)
		assert.False(t, user.IsLocked())
	})
}

func TestUser_IsLocked(t *testing.T) {
	user, err := auth.NewUser("alice@example.com", "$argon2id$hash", "", "")
	require.NoError(t, err)

	t.Run("expired lockout is not locked", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		user.LockedUntil = &past
		assert.False(t, user.IsLocked())
	})

	t.Run("future lockout is locked", func(t *testing.T) {
		future := time.Now().Add(time.Minute)
		user.LockedUntil = &future
		assert.True(t, user.IsLocked())
	})
}
