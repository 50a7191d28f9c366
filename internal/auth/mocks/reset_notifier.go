// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// MockResetNotifier is a mock type for the ResetNotifier type.
type MockResetNotifier struct {
	mock.Mock
}

// NewMockResetNotifier creates a new instance of MockResetNotifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockResetNotifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockResetNotifier {
	m := &MockResetNotifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// SendPasswordReset provides a mock function.
func (m *MockResetNotifier) SendPasswordReset(ctx context.Context, email, token string) error {
	return m.Called(ctx, email, token).Error(0)
}

var _ auth.ResetNotifier = (*MockResetNotifier)(nil)
