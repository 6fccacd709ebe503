// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/authcore/authcore/internal/token"
)

// DefaultRotationBuffer is how close to expiry a refresh token must be
// before a refresh call rotates it instead of just minting a new access
// token.
const DefaultRotationBuffer = 10 * time.Minute

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// dummyPasswordHash is verified when a login names an unknown email, so the
// response time does not reveal whether the email is registered. It is not a
// real credential and never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// TokenCodec mints and validates signed claims tokens. *token.Codec is the
// production implementation.
type TokenCodec interface {
	Mint(userID ulid.ULID, email string, kind token.Kind) (token.Minted, error)
	MintPair(userID ulid.ULID, email string) (token.Pair, error)
	Validate(tokenString string) (*token.Claims, error)
	NearExpiry(claims *token.Claims, buffer time.Duration) bool
}

// ResetMailer dispatches password reset emails.
type ResetMailer interface {
	SendResetEmail(ctx context.Context, toEmail, resetLink string) error
}

// Repositories bundles the repositories handed to a transactional unit of
// work. Inside RunInTx they are bound to the open transaction.
type Repositories struct {
	Users  UserRepository
	Tokens TokenRecordRepository
}

// TxRunner runs a function inside one atomic transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
}

// TokenPair is the success payload returned to the transport layer.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RegisterInput carries the registration request fields.
type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
}

// ServiceConfig tunes the orchestrator.
type ServiceConfig struct {
	// RotationBuffer is the near-expiry window for refresh rotation.
	// Zero means DefaultRotationBuffer.
	RotationBuffer time.Duration

	// ResetBaseURL is the application base URL used to build reset links,
	// e.g. "https://app.example.com".
	ResetBaseURL string
}

// Service orchestrates register, login, logout, refresh, forgot-password
// and reset-password. It holds no mutable state and is safe for concurrent
// use; the relational store is the only shared resource.
type Service struct {
	users  UserRepository
	tokens TokenRecordRepository
	hasher PasswordHasher
	codec  TokenCodec
	mailer ResetMailer
	tx     TxRunner
	cfg    ServiceConfig
	logger *slog.Logger
}

// NewService creates a Service. All dependencies are required.
func NewService(
	users UserRepository,
	tokens TokenRecordRepository,
	hasher PasswordHasher,
	codec TokenCodec,
	mailer ResetMailer,
	tx TxRunner,
	cfg ServiceConfig,
) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("tokens repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if codec == nil {
		return nil, oops.Errorf("token codec is required")
	}
	if mailer == nil {
		return nil, oops.Errorf("reset mailer is required")
	}
	if tx == nil {
		return nil, oops.Errorf("transaction runner is required")
	}
	if cfg.RotationBuffer <= 0 {
		cfg.RotationBuffer = DefaultRotationBuffer
	}

	return &Service{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		codec:  codec,
		mailer: mailer,
		tx:     tx,
		cfg:    cfg,
		logger: slog.Default(),
	}, nil
}

// WithLogger replaces the service logger. Returns the service for chaining.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Register creates a new identity, mints an access+refresh pair, and
// persists the identity together with the refresh token row in one atomic
// unit. A duplicate email detected either by the pre-insert check or by the
// uniqueness constraint on the insert itself produces the same
// ValidationError.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*TokenPair, error) {
	if in.Password != in.ConfirmPassword {
		return nil, NewValidationError("confirm_password", "password confirmation does not match")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, NewValidationError("password", "password must be at least 8 characters")
	}
	if err := ValidateEmail(in.Email); err != nil {
		return nil, NewValidationError("email", "email address is not valid")
	}

	// Pre-insert duplicate check. The uniqueness constraint still backstops
	// the race with a concurrent registration of the same email.
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, NewValidationError("email", "email address is already registered")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(in.Email, hash, in.FirstName, in.LastName)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	var pair token.Pair
	err = s.tx.RunInTx(ctx, func(ctx context.Context, r Repositories) error {
		if err := r.Users.Create(ctx, user); err != nil {
			return err
		}

		p, err := s.codec.MintPair(user.ID, user.Email)
		if err != nil {
			return err
		}
		pair = p

		record, err := NewTokenRecord(user.ID, p.Refresh.Token, p.Refresh.ExpiresAt)
		if err != nil {
			return err
		}
		return r.Tokens.Create(ctx, record)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, NewValidationError("email", "email address is already registered")
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return &TokenPair{Access: pair.Access.Token, Refresh: pair.Refresh.Token}, nil
}

// Login verifies credentials, mints a fresh pair, and persists the refresh
// token row. Unknown email and wrong password both return
// ErrInvalidCredentials; a dummy hash verification keeps timing consistent
// for unknown emails.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, lookupErr := s.users.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	userExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify so response time does not depend on email existence.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, ErrInvalidCredentials
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		if userExists {
			user.RecordFailure()
			_ = s.users.Update(ctx, user) //nolint:errcheck // Best effort
		}
		return nil, ErrInvalidCredentials
	}

	// Lockout is checked after verification to keep timing uniform.
	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	user.RecordSuccess()
	_ = s.users.Update(ctx, user) //nolint:errcheck // Best effort, login succeeds regardless

	pair, err := s.codec.MintPair(user.ID, user.Email)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "mint token pair").
			Wrap(err)
	}

	record, err := NewTokenRecord(user.ID, pair.Refresh.Token, pair.Refresh.ExpiresAt)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create token record").
			Wrap(err)
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "persist refresh token").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String())
	return &TokenPair{Access: pair.Access.Token, Refresh: pair.Refresh.Token}, nil
}

// Logout revokes the presented refresh token. It fails with ErrInvalidToken
// if the token is unknown, already revoked, or expired.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	record, err := s.tokens.GetByValue(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidToken
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "get token by value").
			Wrap(err)
	}
	if !record.IsLive() {
		return ErrInvalidToken
	}

	revoked, err := s.tokens.Revoke(ctx, record.ID)
	if err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "revoke token").
			Wrap(err)
	}
	if !revoked {
		// A concurrent logout or rotation got there first.
		return ErrInvalidToken
	}

	s.logger.InfoContext(ctx, "user logged out", "user_id", record.UserID.String())
	return nil
}

// Refresh exchanges a live refresh token for a new access token. When the
// refresh token's claimed expiry is outside the rotation buffer the same
// refresh string is returned with no writes; when it is near or past
// expiry, the row is revoked and a brand-new pair is minted and persisted,
// all in one atomic unit. The persisted expiry is authoritative over the
// claim.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Validate(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	// A reset token is also persisted and would pass the row checks below;
	// its purpose claim keeps it out of the refresh path.
	if claims.Purpose != "" {
		return nil, ErrInvalidToken
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	record, err := s.tokens.GetByValue(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get token by value").
			Wrap(err)
	}
	if !record.IsLive() || record.UserID.Compare(userID) != 0 {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	if !s.codec.NearExpiry(claims, s.cfg.RotationBuffer) {
		// Lightweight path: fresh access token, same refresh token, no writes.
		access, err := s.codec.Mint(user.ID, user.Email, token.KindAccess)
		if err != nil {
			return nil, oops.Code("AUTH_REFRESH_FAILED").
				With("operation", "mint access token").
				Wrap(err)
		}
		return &TokenPair{Access: access.Token, Refresh: refreshToken}, nil
	}

	// Rotation path: revoke-then-replace in one transaction. The
	// conditional revoke elects a single winner among concurrent refreshes
	// presenting the same token.
	var pair token.Pair
	err = s.tx.RunInTx(ctx, func(ctx context.Context, r Repositories) error {
		revoked, err := r.Tokens.Revoke(ctx, record.ID)
		if err != nil {
			return err
		}
		if !revoked {
			return ErrInvalidToken
		}

		p, err := s.codec.MintPair(user.ID, user.Email)
		if err != nil {
			return err
		}
		pair = p

		next, err := NewTokenRecord(user.ID, p.Refresh.Token, p.Refresh.ExpiresAt)
		if err != nil {
			return err
		}
		return r.Tokens.Create(ctx, next)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, ErrInvalidToken
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").Wrap(err)
	}

	s.logger.InfoContext(ctx, "refresh token rotated", "user_id", user.ID.String())
	return &TokenPair{Access: pair.Access.Token, Refresh: pair.Refresh.Token}, nil
}

// ForgotPassword mints a reset token for the identity behind email,
// persists it, and dispatches the reset email. An unknown email reports the
// same success as a known one so the endpoint cannot be used to probe for
// registered addresses; only a genuine send failure surfaces an error.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_FORGOT_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	minted, err := s.codec.Mint(user.ID, user.Email, token.KindReset)
	if err != nil {
		return oops.Code("AUTH_FORGOT_FAILED").
			With("operation", "mint reset token").
			Wrap(err)
	}

	record, err := NewTokenRecord(user.ID, minted.Token, minted.ExpiresAt)
	if err != nil {
		return oops.Code("AUTH_FORGOT_FAILED").
			With("operation", "create token record").
			Wrap(err)
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return oops.Code("AUTH_FORGOT_FAILED").
			With("operation", "persist reset token").
			Wrap(err)
	}

	link := s.cfg.ResetBaseURL + "/reset-password?token=" + url.QueryEscape(minted.Token)
	if err := s.mailer.SendResetEmail(ctx, user.Email, link); err != nil {
		return oops.Code("AUTH_FORGOT_FAILED").
			With("operation", "send reset email").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "reset email dispatched", "user_id", user.ID.String())
	return nil
}

// ResetPassword validates the presented reset token, revokes every live
// token row the user owns, and installs the new password hash in one atomic
// unit. On success a fresh pair is minted and persisted so the user is
// logged in immediately.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword, confirmPassword string) (*TokenPair, error) {
	if newPassword != confirmPassword {
		return nil, NewValidationError("confirm_password", "password confirmation does not match")
	}
	if len(newPassword) < MinPasswordLength {
		return nil, NewValidationError("password", "password must be at least 8 characters")
	}

	claims, err := s.codec.Validate(resetToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != token.PurposeResetPassword || claims.Email == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, oops.Code("AUTH_RESET_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	record, err := s.tokens.GetByValue(ctx, resetToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, oops.Code("AUTH_RESET_FAILED").
			With("operation", "get token by value").
			Wrap(err)
	}
	if !record.IsLive() || record.UserID.Compare(user.ID) != 0 {
		return nil, ErrInvalidToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, oops.Code("AUTH_RESET_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	var pair token.Pair
	err = s.tx.RunInTx(ctx, func(ctx context.Context, r Repositories) error {
		// Revoking every live row covers the reset token itself and any
		// refresh tokens from sessions that may be in an attacker's hands.
		if _, err := r.Tokens.RevokeAllForUser(ctx, user.ID); err != nil {
			return err
		}
		if err := r.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
			return err
		}

		p, err := s.codec.MintPair(user.ID, user.Email)
		if err != nil {
			return err
		}
		pair = p

		next, err := NewTokenRecord(user.ID, p.Refresh.Token, p.Refresh.ExpiresAt)
		if err != nil {
			return err
		}
		return r.Tokens.Create(ctx, next)
	})
	if err != nil {
		return nil, oops.Code("AUTH_RESET_FAILED").Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset completed", "user_id", user.ID.String())
	return &TokenPair{Access: pair.Access.Token, Refresh: pair.Refresh.Token}, nil
}

// GetUser fetches a user by ID for read-only contexts such as a profile
// endpoint, where a not-found result is not a secret.
func (s *Service) GetUser(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, oops.Code("AUTH_GET_USER_FAILED").
			With("operation", "get user by id").
			With("user_id", id.String()).
			Wrap(err)
	}
	return user, nil
}
