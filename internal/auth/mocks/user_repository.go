// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/presence"
)

// MockUserRepository is a mock type for the UserRepository type.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a new instance of MockUserRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockUserRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func userOrNil(v any) *auth.User {
	if v == nil {
		return nil
	}
	return v.(*auth.User)
}

// Create provides a mock function.
func (m *MockUserRepository) Create(ctx context.Context, input auth.NewUser, cred auth.Credential) (*auth.User, error) {
	ret := m.Called(ctx, input, cred)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

// GetByID provides a mock function.
func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	ret := m.Called(ctx, id)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

// GetByEmail provides a mock function.
func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	ret := m.Called(ctx, email)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

// GetByActiveToken provides a mock function.
func (m *MockUserRepository) GetByActiveToken(ctx context.Context, value string, now time.Time) (*auth.User, error) {
	ret := m.Called(ctx, value, now)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

// UpdateCredential provides a mock function.
func (m *MockUserRepository) UpdateCredential(ctx context.Context, id ulid.ULID, cred auth.Credential) error {
	return m.Called(ctx, id, cred).Error(0)
}

// UpdateStatus provides a mock function.
func (m *MockUserRepository) UpdateStatus(ctx context.Context, id ulid.ULID, status presence.Status, lastActiveAt *time.Time) error {
	return m.Called(ctx, id, status, lastActiveAt).Error(0)
}

var _ auth.UserRepository = (*MockUserRepository)(nil)
