// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionManager keeps sessions and their session tokens in lockstep.
// A session never exists without its token and vice versa.
type SessionManager struct {
	tokens   TokenStore
	sessions SessionRepository
	tx       Transactor
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(tokens TokenStore, sessions SessionRepository, tx Transactor) (*SessionManager, error) {
	if tokens == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID_CONFIG").Errorf("token store is required")
	}
	if sessions == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID_CONFIG").Errorf("session repository is required")
	}
	if tx == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID_CONFIG").Errorf("transactor is required")
	}
	return &SessionManager{tokens: tokens, sessions: sessions, tx: tx}, nil
}

// CreateWithToken inserts a session token and the session referencing it atomically.
func (m *SessionManager) CreateWithToken(ctx context.Context, userID ulid.ULID, ipAddress *string, userAgent string) (*Session, *Token, error) {
	var (
		session *Session
		token   *Token
	)
	err := m.tx.InTransaction(ctx, func(ctx context.Context) error {
		var err error
		token, err = m.tokens.CreateSessionToken(ctx, userID)
		if err != nil {
			return oops.With("operation", "create session token").Wrap(err)
		}
		session = &Session{
			ID:        ulid.Make(),
			TokenID:   token.ID,
			UserAgent: userAgent,
			IPAddress: ipAddress,
			CreatedAt: token.CreatedAt,
		}
		if err := m.sessions.Create(ctx, session); err != nil {
			return oops.With("operation", "insert session").Wrap(err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, databaseError("create session", err)
	}
	return session, token, nil
}

// DeleteByTokenValue removes a session token and its session atomically and
// returns the deleted token. Returns ErrNotFound if the token does not exist.
func (m *SessionManager) DeleteByTokenValue(ctx context.Context, value string) (*Token, error) {
	var deleted *Token
	err := m.tx.InTransaction(ctx, func(ctx context.Context) error {
		token, err := m.tokens.DeleteByValue(ctx, value)
		if err != nil {
			return err
		}
		if token.Kind != TokenKindSession {
			return oops.Code("SESSION_TOKEN_KIND_MISMATCH").
				With("kind", string(token.Kind)).
				Wrap(ErrNotFound)
		}
		if err := m.sessions.DeleteByTokenID(ctx, token.ID); err != nil {
			return err
		}
		deleted = token
		return nil
	})
	if err != nil {
		return nil, databaseError("delete session by token", err)
	}
	return deleted, nil
}

// DeleteByIDForUser removes a session and its token atomically. The token
// delete is scoped to userID, so a session of another user is rolled back
// with ErrForbidden.
func (m *SessionManager) DeleteByIDForUser(ctx context.Context, sessionID, userID ulid.ULID) error {
	err := m.tx.InTransaction(ctx, func(ctx context.Context) error {
		tokenID, err := m.sessions.DeleteByID(ctx, sessionID)
		if err != nil {
			return err
		}
		_, err = m.tokens.DeleteByID(ctx, tokenID, userID)
		return err
	})
	if err != nil {
		return databaseError("delete session by id", err)
	}
	return nil
}

// ListForUser returns the sessions of a user joined with their tokens.
func (m *SessionManager) ListForUser(ctx context.Context, userID ulid.ULID) ([]SessionWithToken, error) {
	list, err := m.sessions.ListForUser(ctx, userID)
	if err != nil {
		return nil, databaseError("list sessions", err)
	}
	return list, nil
}

// DeleteExpired sweeps sessions with expired tokens, then every other expired
// token, in one transaction. Returns the number of tokens removed.
func (m *SessionManager) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	err := m.tx.InTransaction(ctx, func(ctx context.Context) error {
		if _, err := m.sessions.DeleteExpired(ctx, now); err != nil {
			return err
		}
		n, err := m.tokens.DeleteExpired(ctx, now)
		if err != nil {
			return err
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, databaseError("delete expired", err)
	}
	return removed, nil
}
