// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/authcore/authcore/internal/auth"
)

// response is the JSON envelope every endpoint returns.
type response struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // response write error means the client went away
	json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, response{Status: "success", Message: message, Data: data})
}

// respondError maps a service error onto an HTTP status and envelope.
// Internal detail never leaves the process; unexpected errors are logged
// and surfaced as a generic 500.
func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if ve, ok := auth.AsValidationError(err); ok {
		writeJSON(w, http.StatusBadRequest, response{
			Status:  "error",
			Message: "validation failed",
			Errors:  ve.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, auth.ErrAccountLocked):
		writeJSON(w, http.StatusTooManyRequests, response{
			Status:  "error",
			Message: "account temporarily locked, try again later",
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, response{
			Status:  "error",
			Message: "invalid email or password",
		})
	case errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, response{
			Status:  "error",
			Message: "invalid or expired token",
		})
	case errors.Is(err, auth.ErrNotFound):
		writeJSON(w, http.StatusNotFound, response{
			Status:  "error",
			Message: "not found",
		})
	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, response{
			Status:  "error",
			Message: "internal server error",
		})
	}
}

func respondBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: message})
}
