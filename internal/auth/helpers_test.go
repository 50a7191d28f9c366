// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/mocks"
)

func newID() ulid.ULID { return ulid.Make() }

func strPtr(s string) *string { return &s }

type harness struct {
	users    *mocks.MockUserRepository
	tokens   *mocks.MockTokenStore
	sessions *mocks.MockSessionRepository
	activity *mocks.MockActivityRepository
	hasher   *mocks.MockCredentialHasher
	notifier *mocks.MockResetNotifier
	tx       *mocks.InlineTransactor
	logs     *bytes.Buffer
	logger   *slog.Logger

	manager  *auth.SessionManager
	recorder *auth.ActivityRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		users:    mocks.NewMockUserRepository(t),
		tokens:   mocks.NewMockTokenStore(t),
		sessions: mocks.NewMockSessionRepository(t),
		activity: mocks.NewMockActivityRepository(t),
		hasher:   mocks.NewMockCredentialHasher(t),
		notifier: mocks.NewMockResetNotifier(t),
		tx:       &mocks.InlineTransactor{},
		logs:     &bytes.Buffer{},
	}
	h.logger = slog.New(slog.NewJSONHandler(h.logs, nil))

	var err error
	h.manager, err = auth.NewSessionManager(h.tokens, h.sessions, h.tx)
	require.NoError(t, err)
	h.recorder, err = auth.NewActivityRecorder(h.activity, h.logger)
	require.NoError(t, err)
	return h
}

func (h *harness) authService(t *testing.T, opts ...auth.Option) *auth.AuthService {
	t.Helper()
	svc, err := auth.NewAuthService(h.users, h.manager, h.recorder, h.hasher, append([]auth.Option{auth.WithLogger(h.logger)}, opts...)...)
	require.NoError(t, err)
	return svc
}

func (h *harness) resetService(t *testing.T, opts ...auth.Option) *auth.PasswordResetService {
	t.Helper()
	svc, err := auth.NewPasswordResetService(h.users, h.tokens, h.recorder, h.hasher, h.tx, h.notifier,
		append([]auth.Option{auth.WithLogger(h.logger)}, opts...)...)
	require.NoError(t, err)
	return svc
}

func testUser() *auth.User {
	return &auth.User{
		ID:    newID(),
		Email: "a@example.com",
		Role:  auth.RoleAdmin,
		Salt:  bytes.Repeat([]byte{1}, auth.SaltLength),
		Hash:  bytes.Repeat([]byte{2}, auth.CredentialLength),
	}
}

func sessionToken(userID ulid.ULID, now time.Time) *auth.Token {
	exp := now.Add(auth.SessionTokenExpiry)
	return &auth.Token{
		ID:         newID(),
		Kind:       auth.TokenKindSession,
		Value:      "session-value",
		UserID:     userID,
		Expiration: &exp,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func resetToken(userID ulid.ULID, expiration time.Time) *auth.Token {
	return &auth.Token{
		ID:         newID(),
		Kind:       auth.TokenKindPasswordReset,
		Value:      "reset-value",
		UserID:     userID,
		Expiration: &expiration,
		CreatedAt:  expiration.Add(-auth.PasswordResetTokenExpiry),
	}
}
