// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// MockCredentialHasher is a mock type for the CredentialHasher type.
type MockCredentialHasher struct {
	mock.Mock
}

// NewMockCredentialHasher creates a new instance of MockCredentialHasher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockCredentialHasher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCredentialHasher {
	m := &MockCredentialHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Derive provides a mock function.
func (m *MockCredentialHasher) Derive(password string, salt []byte) (auth.Credential, error) {
	ret := m.Called(password, salt)
	return ret.Get(0).(auth.Credential), ret.Error(1)
}

// Verify provides a mock function.
func (m *MockCredentialHasher) Verify(password string, salt, expected []byte) bool {
	return m.Called(password, salt, expected).Bool(0)
}

var _ auth.CredentialHasher = (*MockCredentialHasher)(nil)
