// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// MockActivityRepository is a mock type for the ActivityRepository type.
type MockActivityRepository struct {
	mock.Mock
}

// NewMockActivityRepository creates a new instance of MockActivityRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockActivityRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockActivityRepository {
	m := &MockActivityRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create provides a mock function.
func (m *MockActivityRepository) Create(ctx context.Context, input auth.ActivityInput) (*auth.ActivityEntry, error) {
	ret := m.Called(ctx, input)
	var entry *auth.ActivityEntry
	if v := ret.Get(0); v != nil {
		entry = v.(*auth.ActivityEntry)
	}
	return entry, ret.Error(1)
}

// ListForUser provides a mock function.
func (m *MockActivityRepository) ListForUser(ctx context.Context, userID ulid.ULID, page auth.Pagination) ([]*auth.ActivityEntry, error) {
	ret := m.Called(ctx, userID, page)
	var entries []*auth.ActivityEntry
	if v := ret.Get(0); v != nil {
		entries = v.([]*auth.ActivityEntry)
	}
	return entries, ret.Error(1)
}

// CountForUser provides a mock function.
func (m *MockActivityRepository) CountForUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	ret := m.Called(ctx, userID)
	return ret.Get(0).(int64), ret.Error(1)
}

var _ auth.ActivityRepository = (*MockActivityRepository)(nil)
