// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// AccessTokenService manages non-expiring static access tokens.
type AccessTokenService struct {
	tokens TokenStore
}

// NewAccessTokenService creates an AccessTokenService.
func NewAccessTokenService(tokens TokenStore) (*AccessTokenService, error) {
	if tokens == nil {
		return nil, oops.Code("ACCESS_TOKEN_INVALID_CONFIG").Errorf("token store is required")
	}
	return &AccessTokenService{tokens: tokens}, nil
}

// Create issues a labelled static access token. The returned value is the
// only time the token is revealed.
func (s *AccessTokenService) Create(ctx context.Context, userID ulid.ULID, name string) (*Token, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("token name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxAccessTokenNameLength {
		return nil, invalidInput("token name exceeds %d characters", MaxAccessTokenNameLength)
	}
	token, err := s.tokens.CreateAccessToken(ctx, userID, name)
	if err != nil {
		return nil, databaseError("create access token", err)
	}
	return token, nil
}

// List returns the static access tokens of a user.
func (s *AccessTokenService) List(ctx context.Context, userID ulid.ULID) ([]*Token, error) {
	tokens, err := s.tokens.ListAccessTokens(ctx, userID)
	if err != nil {
		return nil, databaseError("list access tokens", err)
	}
	return tokens, nil
}

// Delete revokes a token owned by userID.
// Returns ErrNotFound or ErrForbidden when the token is absent or not owned.
func (s *AccessTokenService) Delete(ctx context.Context, userID, tokenID ulid.ULID) error {
	if _, err := s.tokens.DeleteByID(ctx, tokenID, userID); err != nil {
		return databaseError("delete access token", err)
	}
	return nil
}
