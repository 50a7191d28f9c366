// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// MockTokenStore is a mock type for the TokenStore type.
type MockTokenStore struct {
	mock.Mock
}

// NewMockTokenStore creates a new instance of MockTokenStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockTokenStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTokenStore {
	m := &MockTokenStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func tokenOrNil(v any) *auth.Token {
	if v == nil {
		return nil
	}
	return v.(*auth.Token)
}

// CreateSessionToken provides a mock function.
func (m *MockTokenStore) CreateSessionToken(ctx context.Context, userID ulid.ULID) (*auth.Token, error) {
	ret := m.Called(ctx, userID)
	return tokenOrNil(ret.Get(0)), ret.Error(1)
}

// CreatePasswordResetToken provides a mock function.
func (m *MockTokenStore) CreatePasswordResetToken(ctx context.Context, userID ulid.ULID) (*auth.Token, error) {
	ret := m.Called(ctx, userID)
	return tokenOrNil(ret.Get(0)), ret.Error(1)
}

// CreateAccessToken provides a mock function.
func (m *MockTokenStore) CreateAccessToken(ctx context.Context, userID ulid.ULID, name string) (*auth.Token, error) {
	ret := m.Called(ctx, userID, name)
	return tokenOrNil(ret.Get(0)), ret.Error(1)
}

// GetByValue provides a mock function.
func (m *MockTokenStore) GetByValue(ctx context.Context, value string) (*auth.Token, error) {
	ret := m.Called(ctx, value)
	return tokenOrNil(ret.Get(0)), ret.Error(1)
}

// DeleteByValue provides a mock function.
func (m *MockTokenStore) DeleteByValue(ctx context.Context, value string) (*auth.Token, error) {
	ret := m.Called(ctx, value)
	return tokenOrNil(ret.Get(0)), ret.Error(1)
}

// DeleteByID provides a mock function.
func (m *MockTokenStore) DeleteByID(ctx context.Context, id, ownerID ulid.ULID) (ulid.ULID, error) {
	ret := m.Called(ctx, id, ownerID)
	return ret.Get(0).(ulid.ULID), ret.Error(1)
}

// ListAccessTokens provides a mock function.
func (m *MockTokenStore) ListAccessTokens(ctx context.Context, userID ulid.ULID) ([]*auth.Token, error) {
	ret := m.Called(ctx, userID)
	var tokens []*auth.Token
	if v := ret.Get(0); v != nil {
		tokens = v.([]*auth.Token)
	}
	return tokens, ret.Error(1)
}

// DeleteExpired provides a mock function.
func (m *MockTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := m.Called(ctx, now)
	return ret.Get(0).(int64), ret.Error(1)
}

var _ auth.TokenStore = (*MockTokenStore)(nil)
