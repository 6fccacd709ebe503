// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package auth implements the token lifecycle and credential verification
// core of Authcore.
//
// # Domain Types
//
// Domain types (User, TokenRecord) should be created using their
// constructors:
//   - NewUser - creates a User with a validated email and password hash
//   - NewTokenRecord - creates a TokenRecord bound to a user and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Services
//
// Service is the orchestrator for register, login, logout, refresh,
// forgot-password and reset-password. Sweeper is the background task that
// purges revoked and expired token records. Both are created with New*
// constructors that validate dependencies.
//
// # Errors
//
// Business-rule failures are returned as values: *ValidationError carries a
// field-level detail map, ErrInvalidCredentials and ErrInvalidToken cover
// every unauthorized outcome without differentiating the cause, and
// ErrNotFound is reserved for read-only lookups where existence is not a
// secret.
package auth
