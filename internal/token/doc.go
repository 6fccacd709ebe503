// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package token mints and validates the signed claims tokens Authcore
// issues: short-lived access tokens, longer-lived refresh tokens, and
// single-purpose password reset tokens.
//
// All three kinds share one Codec because their claim shape and validation
// are identical except for lifetime and kind-specific extras; the Kind
// argument keeps the per-kind semantics explicit. Tokens are JWTs signed
// with HMAC-SHA-256; validation checks signature, issuer, audience and
// expiry with zero clock skew and rejects every other signing algorithm.
//
// Invalidity is a normal return value (an error wrapping ErrInvalid), never
// a panic. The Codec holds only immutable configuration and is safe for
// unrestricted concurrent use.
package token
