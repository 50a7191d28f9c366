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

// MockSessionRepository is a mock type for the SessionRepository type.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a new instance of MockSessionRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockSessionRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create provides a mock function.
func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

// DeleteByTokenID provides a mock function.
func (m *MockSessionRepository) DeleteByTokenID(ctx context.Context, tokenID ulid.ULID) error {
	return m.Called(ctx, tokenID).Error(0)
}

// DeleteByID provides a mock function.
func (m *MockSessionRepository) DeleteByID(ctx context.Context, id ulid.ULID) (ulid.ULID, error) {
	ret := m.Called(ctx, id)
	return ret.Get(0).(ulid.ULID), ret.Error(1)
}

// ListForUser provides a mock function.
func (m *MockSessionRepository) ListForUser(ctx context.Context, userID ulid.ULID) ([]auth.SessionWithToken, error) {
	ret := m.Called(ctx, userID)
	var list []auth.SessionWithToken
	if v := ret.Get(0); v != nil {
		list = v.([]auth.SessionWithToken)
	}
	return list, ret.Error(1)
}

// DeleteExpired provides a mock function.
func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := m.Called(ctx, now)
	return ret.Get(0).(int64), ret.Error(1)
}

var _ auth.SessionRepository = (*MockSessionRepository)(nil)
