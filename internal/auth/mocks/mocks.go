// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/token"
)

// MockUserRepository is a mock implementation of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a new MockUserRepository. Expectations are
// asserted automatically during test cleanup.
func NewMockUserRepository(t *testing.T) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// MockTokenRecordRepository is a mock implementation of auth.TokenRecordRepository.
type MockTokenRecordRepository struct {
	mock.Mock
}

// NewMockTokenRecordRepository creates a new MockTokenRecordRepository.
func NewMockTokenRecordRepository(t *testing.T) *MockTokenRecordRepository {
	m := &MockTokenRecordRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenRecordRepository) Create(ctx context.Context, record *auth.TokenRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockTokenRecordRepository) GetByValue(ctx context.Context, value string) (*auth.TokenRecord, error) {
	args := m.Called(ctx, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenRecord), args.Error(1)
}

func (m *MockTokenRecordRepository) Revoke(ctx context.Context, id ulid.ULID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenRecordRepository) RevokeAllForUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTokenRecordRepository) DeleteDead(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockPasswordHasher is a mock implementation of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a new MockPasswordHasher.
func NewMockPasswordHasher(t *testing.T) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// MockTokenCodec is a mock implementation of auth.TokenCodec.
type MockTokenCodec struct {
	mock.Mock
}

// NewMockTokenCodec creates a new MockTokenCodec.
func NewMockTokenCodec(t *testing.T) *MockTokenCodec {
	m := &MockTokenCodec{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenCodec) Mint(userID ulid.ULID, email string, kind token.Kind) (token.Minted, error) {
	args := m.Called(userID, email, kind)
	return args.Get(0).(token.Minted), args.Error(1)
}

func (m *MockTokenCodec) MintPair(userID ulid.ULID, email string) (token.Pair, error) {
	args := m.Called(userID, email)
	return args.Get(0).(token.Pair), args.Error(1)
}

func (m *MockTokenCodec) Validate(tokenString string) (*token.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*token.Claims), args.Error(1)
}

func (m *MockTokenCodec) NearExpiry(claims *token.Claims, buffer time.Duration) bool {
	args := m.Called(claims, buffer)
	return args.Bool(0)
}

// MockResetMailer is a mock implementation of auth.ResetMailer.
type MockResetMailer struct {
	mock.Mock
}

// NewMockResetMailer creates a new MockResetMailer.
func NewMockResetMailer(t *testing.T) *MockResetMailer {
	m := &MockResetMailer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockResetMailer) SendResetEmail(ctx context.Context, toEmail, resetLink string) error {
	args := m.Called(ctx, toEmail, resetLink)
	return args.Error(0)
}

// MockTxRunner is a mock implementation of auth.TxRunner. Use PassthroughTx
// instead when the test should execute the transactional function against
// other mocks.
type MockTxRunner struct {
	mock.Mock
}

// NewMockTxRunner creates a new MockTxRunner.
func NewMockTxRunner(t *testing.T) *MockTxRunner {
	m := &MockTxRunner{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, r auth.Repositories) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

// PassthroughTx is a TxRunner that runs the function directly against the
// given repositories, with no transaction semantics.
type PassthroughTx struct {
	Repos auth.Repositories
}

// RunInTx implements auth.TxRunner.
func (p *PassthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context, r auth.Repositories) error) error {
	return fn(ctx, p.Repos)
}

// Interface checks.
var (
	_ auth.UserRepository        = (*MockUserRepository)(nil)
	_ auth.TokenRecordRepository = (*MockTokenRecordRepository)(nil)
	_ auth.PasswordHasher        = (*MockPasswordHasher)(nil)
	_ auth.TokenCodec            = (*MockTokenCodec)(nil)
	_ auth.ResetMailer           = (*MockResetMailer)(nil)
	_ auth.TxRunner              = (*MockTxRunner)(nil)
	_ auth.TxRunner              = (*PassthroughTx)(nil)
)
