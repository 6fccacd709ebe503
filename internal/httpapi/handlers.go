// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/authcore/authcore/internal/auth"
)

// Request size is bounded before decoding; auth payloads are tiny.
const maxBodyBytes = 1 << 16

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

func newTokenPairResponse(pair *auth.TokenPair) tokenPairResponse {
	return tokenPairResponse{AccessToken: pair.Access, RefreshToken: pair.Refresh}
}

func newUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	}
}

// decodeBody strictly decodes a small JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondBadRequest(w, "malformed request body")
		return false
	}
	return true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pair, err := s.svc.Register(r.Context(), auth.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
	})
	if err != nil {
		s.recordRegistration("rejected")
		respondError(w, s.logger, err)
		return
	}

	s.recordRegistration("success")
	s.recordTokensIssued()
	respondData(w, http.StatusCreated, "account created", newTokenPairResponse(pair))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pair, err := s.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountLocked):
			s.recordLogin("locked")
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.recordLogin("invalid_credentials")
		default:
			s.recordLogin("error")
		}
		respondError(w, s.logger, err)
		return
	}

	s.recordLogin("success")
	s.recordTokensIssued()
	respondData(w, http.StatusOK, "logged in", newTokenPairResponse(pair))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		respondError(w, s.logger, err)
		return
	}

	s.recordRevocation("logout")
	writeJSON(w, http.StatusOK, response{Status: "success", Message: "logged out"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pair, err := s.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}

	respondData(w, http.StatusOK, "token refreshed", newTokenPairResponse(pair))
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		respondError(w, s.logger, err)
		return
	}

	// Identical response whether or not the account exists.
	writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: "if the email is registered, a reset link has been sent",
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pair, err := s.svc.ResetPassword(r.Context(), req.Token, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}

	s.recordRevocation("password_reset")
	s.recordTokensIssued()
	respondData(w, http.StatusOK, "password reset", newTokenPairResponse(pair))
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		respondError(w, s.logger, auth.ErrInvalidToken)
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		respondError(w, s.logger, auth.ErrInvalidToken)
		return
	}

	user, err := s.svc.GetUser(r.Context(), userID)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}

	respondData(w, http.StatusOK, "", newUserResponse(user))
}
