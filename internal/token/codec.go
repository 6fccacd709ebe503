// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// PurposeResetPassword is the purpose claim value carried by reset tokens.
const PurposeResetPassword = "reset-password"

// ErrInvalid is wrapped by every validation failure: malformed token, bad
// signature, wrong issuer or audience, or expiry passed. Callers check with
// errors.Is and must not learn which check failed.
var ErrInvalid = errors.New("invalid token")

// Kind selects the claim set and lifetime of a minted token.
type Kind int

// Token kinds.
const (
	KindAccess Kind = iota
	KindRefresh
	KindReset
)

// String returns the kind name for logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	case KindReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Claims is the claim set carried by Authcore tokens. Email is present on
// access and reset tokens; Purpose only on reset tokens.
type Claims struct {
	Email   string `json:"email,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into a user ID.
func (c *Claims) UserID() (ulid.ULID, error) {
	id, err := ulid.Parse(c.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_INVALID_SUBJECT").
			With("subject", c.Subject).
			Wrap(ErrInvalid)
	}
	return id, nil
}

// Config carries the signing secret and per-kind lifetimes. It is an
// explicit value handed to New; the codec keeps no ambient global state.
type Config struct {
	// Secret is the base64url-encoded HMAC signing secret.
	Secret   string
	Issuer   string
	Audience string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
}

// Minted is a freshly signed token together with its expiry instant, which
// callers persist alongside refresh and reset token values.
type Minted struct {
	Token     string
	ExpiresAt time.Time
}

// Pair is an access plus refresh token minted together.
type Pair struct {
	Access  Minted
	Refresh Minted
}

// Codec mints and validates signed claims tokens. Construct with New.
type Codec struct {
	key []byte
	cfg Config
}

// New creates a Codec from explicit configuration. The secret is decoded
// from base64url; padding is accepted and ignored.
func New(cfg Config) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("signing secret is required")
	}
	key, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(cfg.Secret, "="))
	if err != nil {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").
			With("operation", "decode signing secret").
			Wrap(err)
	}
	if len(key) < 32 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").
			With("key_bytes", len(key)).
			Errorf("signing secret must decode to at least 32 bytes")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("issuer and audience are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("token lifetimes must be positive")
	}

	return &Codec{key: key, cfg: cfg}, nil
}

// Mint builds, signs and serializes a token of the given kind for the user.
// Every call generates a fresh jti and iat, so two tokens minted for the
// same user never collide on the persisted value uniqueness constraint.
func (c *Codec) Mint(userID ulid.ULID, email string, kind Kind) (Minted, error) {
	now := time.Now()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID.String(),
			ID:       ulid.Make().String(),
			Issuer:   c.cfg.Issuer,
			Audience: jwt.ClaimStrings{c.cfg.Audience},
			IssuedAt: jwt.NewNumericDate(now),
		},
	}

	var ttl time.Duration
	switch kind {
	case KindAccess:
		ttl = c.cfg.AccessTTL
		claims.Email = email
	case KindRefresh:
		ttl = c.cfg.RefreshTTL
	case KindReset:
		ttl = c.cfg.ResetTTL
		claims.Email = email
		claims.Purpose = PurposeResetPassword
	default:
		return Minted{}, oops.Code("TOKEN_UNKNOWN_KIND").
			With("kind", int(kind)).
			Errorf("unknown token kind")
	}

	expiresAt := now.Add(ttl)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return Minted{}, oops.Code("TOKEN_SIGN_FAILED").
			With("kind", kind.String()).
			Wrap(err)
	}

	return Minted{Token: signed, ExpiresAt: expiresAt}, nil
}

// MintPair mints an access and a refresh token for the user.
func (c *Codec) MintPair(userID ulid.ULID, email string) (Pair, error) {
	access, err := c.Mint(userID, email, KindAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := c.Mint(userID, email, KindRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Validate verifies signature, issuer, audience and expiry, and returns the
// parsed claims. Any failure returns an error wrapping ErrInvalid; the
// underlying reason is attached as context for logs only.
func (c *Codec) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.cfg.Issuer),
		jwt.WithAudience(c.cfg.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID").
			With("reason", err.Error()).
			Wrap(ErrInvalid)
	}
	return claims, nil
}

// NearExpiry returns true if the expiry claim is earlier than now plus
// buffer, or if the claim is missing. A token without a readable expiry
// fails safe toward "needs rotation".
func (c *Codec) NearExpiry(claims *Claims, buffer time.Duration) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Time.Before(time.Now().Add(buffer))
}
