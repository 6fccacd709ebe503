// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import (
	"time"
)

// Login failure policy.
const (
	// LockoutDuration is the time a user is locked out after too many failures.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of consecutive failures that triggers a lockout.
	LockoutThreshold = 7

	// maxFailureDelay caps the progressive delay before lockout kicks in.
	maxFailureDelay = 32 * time.Second
)

// FailurePolicyResult describes what the transport layer should do with the
// next login attempt for this user.
type FailurePolicyResult struct {
	// Delay is the time to wait before allowing another attempt.
	Delay time.Duration

	// IsLockedOut indicates the account is temporarily locked.
	IsLockedOut bool

	// LockoutRemaining is the time until the lockout expires.
	LockoutRemaining time.Duration
}

// CheckFailures evaluates the failure policy for the given failure count.
// lockedUntil is the current lockout timestamp (nil if not locked).
func CheckFailures(failures int, lockedUntil *time.Time) FailurePolicyResult {
	result := FailurePolicyResult{}

	if IsLockedOut(lockedUntil) {
		result.IsLockedOut = true
		result.LockoutRemaining = time.Until(*lockedUntil)
		return result
	}

	// Progressive delay: 2^(failures-1) seconds, capped below the lockout.
	if failures > 0 && failures < LockoutThreshold {
		result.Delay = time.Duration(1<<(failures-1)) * time.Second
		if result.Delay > maxFailureDelay {
			result.Delay = maxFailureDelay
		}
	}

	if failures >= LockoutThreshold {
		result.IsLockedOut = true
		result.LockoutRemaining = LockoutDuration
	}

	return result
}

// IsLockedOut returns true if the lockout time is in the future.
func IsLockedOut(lockedUntil *time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(time.Now())
}

// ComputeLockoutTime returns the lockout timestamp for the given failure
// count, or nil while the count is below the threshold.
func ComputeLockoutTime(failures int) *time.Time {
	if failures < LockoutThreshold {
		return nil
	}
	lockout := time.Now().Add(LockoutDuration)
	return &lockout
}
