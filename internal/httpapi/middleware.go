// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/authcore/authcore/internal/token"
)

type contextKey int

const claimsKey contextKey = iota

func claimsFromContext(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(claimsKey).(*token.Claims)
	return claims
}

// requireAccessToken admits only requests carrying a valid Bearer access
// token. Refresh tokens carry no email claim and reset tokens carry a
// purpose claim, so both are rejected here.
func (s *Server) requireAccessToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, response{
				Status:  "error",
				Message: "missing bearer token",
			})
			return
		}

		claims, err := s.validator.Validate(raw)
		if err != nil || claims.Email == "" || claims.Purpose != "" {
			writeJSON(w, http.StatusUnauthorized, response{
				Status:  "error",
				Message: "invalid or expired token",
			})
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || raw == "" {
		return "", false
	}
	return raw, true
}
