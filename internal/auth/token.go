// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token lifetimes.
const (
	SessionTokenExpiry       = 30 * 24 * time.Hour
	PasswordResetTokenExpiry = 30 * time.Minute
)

// TokenValueBytes is the entropy of a token value (256 bits).
const TokenValueBytes = 32

// MaxAccessTokenNameLength bounds the label of a static access token.
const MaxAccessTokenNameLength = 100

// TokenKind distinguishes the three bearer token types.
type TokenKind string

// Token kinds, stored verbatim.
const (
	TokenKindSession       TokenKind = "session"
	TokenKindPasswordReset TokenKind = "password_reset"
	TokenKindStaticAccess  TokenKind = "static_access"
)

// Token is an opaque bearer credential owned by one user.
type Token struct {
	ID         ulid.ULID
	Kind       TokenKind
	Name       *string // only static access tokens carry a label
	Value      string
	UserID     ulid.ULID
	Expiration *time.Time // nil never expires
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsExpiredAt reports whether the token has an expiration at or before t.
func (t *Token) IsExpiredAt(at time.Time) bool {
	return t.Expiration != nil && !t.Expiration.After(at)
}

// GenerateTokenValue returns a URL-safe random token value.
func GenerateTokenValue() (string, error) {
	b := make([]byte, TokenValueBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenValueBytes).
			Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// TokenStore persists tokens. Methods participate in a transaction carried by ctx.
type TokenStore interface {
	// CreateSessionToken inserts a session token expiring SessionTokenExpiry from now.
	CreateSessionToken(ctx context.Context, userID ulid.ULID) (*Token, error)

	// CreatePasswordResetToken inserts a reset token expiring PasswordResetTokenExpiry from now.
	CreatePasswordResetToken(ctx context.Context, userID ulid.ULID) (*Token, error)

	// CreateAccessToken inserts a non-expiring static access token with a label.
	CreateAccessToken(ctx context.Context, userID ulid.ULID, name string) (*Token, error)

	// GetByValue retrieves a token by its value.
	// Returns ErrNotFound if absent.
	GetByValue(ctx context.Context, value string) (*Token, error)

	// DeleteByValue deletes a token and returns the deleted row.
	// Returns ErrNotFound if absent.
	DeleteByValue(ctx context.Context, value string) (*Token, error)

	// DeleteByID deletes a token owned by ownerID and returns its ID.
	// Returns ErrNotFound if absent, ErrForbidden if owned by another user.
	DeleteByID(ctx context.Context, id, ownerID ulid.ULID) (ulid.ULID, error)

	// ListAccessTokens returns the static access tokens of a user.
	ListAccessTokens(ctx context.Context, userID ulid.ULID) ([]*Token, error)

	// DeleteExpired removes every token whose expiration is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
