// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/auth/mocks"
)

func TestNewSweeper(t *testing.T) {
	t.Run("requires tokens repository", func(t *testing.T) {
		_, err := auth.NewSweeper(nil, time.Minute, time.Second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tokens repository is required")
	})

	t.Run("accepts zero interval and timeout", func(t *testing.T) {
		tokens := mocks.NewMockTokenRecordRepository(t)
		s, err := auth.NewSweeper(tokens, 0, 0)
		require.NoError(t, err)
		assert.NotNil(t, s)
	})
}

func TestSweeper_Run(t *testing.T) {
	t.Run("sweeps immediately and stops on cancel", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		tokens := mocks.NewMockTokenRecordRepository(t)
		swept := make(chan struct{})
		tokens.On("DeleteDead", mock.Anything).Run(func(mock.Arguments) {
			select {
			case swept <- struct{}{}:
			default:
			}
		}).Return(int64(2), nil)

		s, err := auth.NewSweeper(tokens, time.Hour, time.Second)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			s.Run(ctx)
			close(done)
		}()

		select {
		case <-swept:
		case <-time.After(2 * time.Second):
			t.Fatal("initial sweep never happened")
		}

		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("sweeper did not stop on cancel")
		}
	})

	t.Run("ticks repeatedly with short interval", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		tokens := mocks.NewMockTokenRecordRepository(t)
		var sweeps atomic.Int64
		tokens.On("DeleteDead", mock.Anything).Run(func(mock.Arguments) {
			sweeps.Add(1)
		}).Return(int64(0), nil)

		s, err := auth.NewSweeper(tokens, 10*time.Millisecond, time.Second)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			s.Run(ctx)
			close(done)
		}()

		assert.Eventually(t, func() bool { return sweeps.Load() >= 3 },
			2*time.Second, 5*time.Millisecond)

		cancel()
		<-done
	})

	t.Run("sweep failure keeps the loop running", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		tokens := mocks.NewMockTokenRecordRepository(t)
		var sweeps atomic.Int64
		tokens.On("DeleteDead", mock.Anything).Run(func(mock.Arguments) {
			sweeps.Add(1)
		}).Return(int64(0), errors.New("connection refused"))

		s, err := auth.NewSweeper(tokens, 10*time.Millisecond, time.Second)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			s.Run(ctx)
			close(done)
		}()

		assert.Eventually(t, func() bool { return sweeps.Load() >= 2 },
			2*time.Second, 5*time.Millisecond, "loop must survive sweep errors")

		cancel()
		<-done
	})

	t.Run("reports deleted count through OnSweep", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		tokens := mocks.NewMockTokenRecordRepository(t)
		tokens.On("DeleteDead", mock.Anything).Return(int64(7), nil)

		s, err := auth.NewSweeper(tokens, time.Hour, time.Second)
		require.NoError(t, err)

		reported := make(chan int64, 1)
		s.OnSweep = func(deleted int64) {
			select {
			case reported <- deleted:
			default:
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			s.Run(ctx)
			close(done)
		}()

		select {
		case n := <-reported:
			assert.Equal(t, int64(7), n)
		case <-time.After(2 * time.Second):
			t.Fatal("OnSweep never called")
		}

		cancel()
		<-done
	})
}
