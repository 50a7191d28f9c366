// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Session records the device that holds a session token.
// Each session references exactly one session-kind token.
type Session struct {
	ID        ulid.ULID
	TokenID   ulid.ULID
	UserAgent string
	IPAddress *string
	CreatedAt time.Time
}

// SessionWithToken is a session joined with its token, used for device listings.
type SessionWithToken struct {
	Token   Token
	Session Session
}

// SessionRepository persists sessions. Token rows are managed by TokenStore.
type SessionRepository interface {
	// Create inserts a session.
	Create(ctx context.Context, session *Session) error

	// DeleteByTokenID removes the session referencing tokenID. A session
	// already removed with its token is not an error.
	DeleteByTokenID(ctx context.Context, tokenID ulid.ULID) error

	// DeleteByID removes a session and returns the ID of its token.
	// Returns ErrNotFound if absent.
	DeleteByID(ctx context.Context, id ulid.ULID) (ulid.ULID, error)

	// ListForUser returns the sessions of a user with their tokens, newest first.
	ListForUser(ctx context.Context, userID ulid.ULID) ([]SessionWithToken, error)

	// DeleteExpired removes sessions whose token expired at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
