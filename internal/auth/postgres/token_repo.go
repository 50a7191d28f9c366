// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// maxValueAttempts bounds retries on a token value collision.
const maxValueAttempts = 3

const tokenColumns = `id, kind, name, value, user_id, expiration, created_at, updated_at`

// TokenRepository implements auth.TokenStore.
type TokenRepository struct {
	db  DBTX
	now func() time.Time
}

// NewTokenRepository creates a TokenRepository. A nil now uses time.Now.
func NewTokenRepository(db DBTX, now func() time.Time) *TokenRepository {
	if now == nil {
		now = time.Now
	}
	return &TokenRepository{db: db, now: now}
}

var _ auth.TokenStore = (*TokenRepository)(nil)

// CreateSessionToken inserts a session token.
func (r *TokenRepository) CreateSessionToken(ctx context.Context, userID ulid.ULID) (*auth.Token, error) {
	exp := dbNow(r.now).Add(auth.SessionTokenExpiry)
	return r.insert(ctx, auth.TokenKindSession, userID, nil, &exp)
}

// CreatePasswordResetToken inserts a password reset token.
func (r *TokenRepository) CreatePasswordResetToken(ctx context.Context, userID ulid.ULID) (*auth.Token, error) {
	exp := dbNow(r.now).Add(auth.PasswordResetTokenExpiry)
	return r.insert(ctx, auth.TokenKindPasswordReset, userID, nil, &exp)
}

// CreateAccessToken inserts a static access token that never expires.
func (r *TokenRepository) CreateAccessToken(ctx context.Context, userID ulid.ULID, name string) (*auth.Token, error) {
	return r.insert(ctx, auth.TokenKindStaticAccess, userID, &name, nil)
}

// insert stores a token under a fresh random value. ON CONFLICT keeps a
// surrounding transaction usable when the value collides.
func (r *TokenRepository) insert(ctx context.Context, kind auth.TokenKind, userID ulid.ULID, name *string, exp *time.Time) (*auth.Token, error) {
	now := dbNow(r.now)
	for attempt := 1; attempt <= maxValueAttempts; attempt++ {
		value, err := auth.GenerateTokenValue()
		if err != nil {
			return nil, err
		}
		tok := &auth.Token{
			ID:         ulid.Make(),
			Kind:       kind,
			Name:       name,
			Value:      value,
			UserID:     userID,
			Expiration: exp,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		tag, err := execerFromCtx(ctx, r.db).Exec(ctx, `
			INSERT INTO tokens (id, kind, name, value, user_id, expiration, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			ON CONFLICT (value) DO NOTHING
		`, tok.ID.String(), string(kind), name, value, userID.String(), exp, now)
		if err != nil {
			return nil, oops.Code("TOKEN_CREATE_FAILED").
				With("operation", "insert token").
				With("kind", string(kind)).
				With("user_id", userID.String()).
				Wrap(err)
		}
		if tag.RowsAffected() == 1 {
			return tok, nil
		}
	}
	return nil, oops.Code("TOKEN_VALUE_COLLISION").
		With("kind", string(kind)).
		Errorf("token value collided %d times", maxValueAttempts)
}

// GetByValue retrieves a token by value.
func (r *TokenRepository) GetByValue(ctx context.Context, value string) (*auth.Token, error) {
	row := execerFromCtx(ctx, r.db).QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE value = $1`, value)
	tok, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").With("operation", "get token by value").Wrap(err)
	}
	return tok, nil
}

// DeleteByValue deletes a token by value and returns the deleted row.
func (r *TokenRepository) DeleteByValue(ctx context.Context, value string) (*auth.Token, error) {
	row := execerFromCtx(ctx, r.db).QueryRow(ctx,
		`DELETE FROM tokens WHERE value = $1 RETURNING `+tokenColumns, value)
	tok, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_DELETE_FAILED").With("operation", "delete token by value").Wrap(err)
	}
	return tok, nil
}

// DeleteByID deletes a token owned by ownerID.
func (r *TokenRepository) DeleteByID(ctx context.Context, id, ownerID ulid.ULID) (ulid.ULID, error) {
	db := execerFromCtx(ctx, r.db)
	var deleted string
	err := db.QueryRow(ctx,
		`DELETE FROM tokens WHERE id = $1 AND user_id = $2 RETURNING id`,
		id.String(), ownerID.String()).Scan(&deleted)
	if err == nil {
		return parseID(deleted, "token_id")
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, oops.Code("TOKEN_DELETE_FAILED").
			With("operation", "delete token by id").
			With("id", id.String()).
			Wrap(err)
	}

	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tokens WHERE id = $1)`, id.String()).Scan(&exists); err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_DELETE_FAILED").
			With("operation", "check token owner").
			With("id", id.String()).
			Wrap(err)
	}
	if exists {
		return ulid.ULID{}, oops.Code("TOKEN_FORBIDDEN").With("id", id.String()).Wrap(auth.ErrForbidden)
	}
	return ulid.ULID{}, oops.Code("TOKEN_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
}

// ListAccessTokens returns a user's static access tokens, newest first.
func (r *TokenRepository) ListAccessTokens(ctx context.Context, userID ulid.ULID) ([]*auth.Token, error) {
	rows, err := execerFromCtx(ctx, r.db).Query(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE user_id = $1 AND kind = $2 ORDER BY created_at DESC, id DESC`,
		userID.String(), string(auth.TokenKindStaticAccess))
	if err != nil {
		return nil, oops.Code("TOKEN_LIST_FAILED").
			With("operation", "list access tokens").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	tokens := []*auth.Token{}
	for rows.Next() {
		tok, err := scanToken(rows)
		if err != nil {
			return nil, oops.Code("TOKEN_SCAN_FAILED").With("operation", "scan token row").Wrap(err)
		}
		tokens = append(tokens, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("TOKEN_ROWS_ERROR").With("operation", "iterate token rows").Wrap(err)
	}
	return tokens, nil
}

// DeleteExpired removes tokens whose expiration is at or before now.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := execerFromCtx(ctx, r.db).Exec(ctx,
		`DELETE FROM tokens WHERE expiration IS NOT NULL AND expiration <= $1`, now)
	if err != nil {
		return 0, oops.Code("TOKEN_SWEEP_FAILED").With("operation", "delete expired tokens").Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func scanToken(row pgx.Row) (*auth.Token, error) {
	var (
		tok        auth.Token
		id, userID string
		kind       string
	)
	if err := row.Scan(&id, &kind, &tok.Name, &tok.Value, &userID, &tok.Expiration, &tok.CreatedAt, &tok.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if tok.ID, err = parseID(id, "token_id"); err != nil {
		return nil, err
	}
	if tok.UserID, err = parseID(userID, "user_id"); err != nil {
		return nil, err
	}
	tok.Kind = auth.TokenKind(kind)
	return &tok, nil
}
