// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidCredentials is returned on any failed login. It deliberately does
// not say whether the email was unknown or the password wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned whenever a presented token cannot be honored:
// malformed, bad signature, expired, unknown, revoked, or mismatched. The
// cause is deliberately undifferentiated.
var ErrInvalidToken = errors.New("invalid token")

// ErrAccountLocked is returned when login is refused because of too many
// consecutive failures.
var ErrAccountLocked = errors.New("account temporarily locked")

// ErrDuplicateEmail is returned by UserRepository.Create when the email
// uniqueness constraint rejects the insert.
var ErrDuplicateEmail = errors.New("email already registered")

// ValidationError carries field-level validation failures. Fields maps a
// request field name to a human-readable message.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidationError returns the *ValidationError in err's chain, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsUnauthorized reports whether err is one of the undifferentiated
// unauthorized outcomes.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInvalidToken)
}
