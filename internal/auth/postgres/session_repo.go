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

// SessionRepository implements auth.SessionRepository.
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a SessionRepository.
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

// Create stores a session.
func (r *SessionRepository) Create(ctx context.Context, s *auth.Session) error {
	_, err := execerFromCtx(ctx, r.db).Exec(ctx, `
		INSERT INTO sessions (id, token_id, user_agent, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID.String(), s.TokenID.String(), s.UserAgent, s.IPAddress, s.CreatedAt)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("token_id", s.TokenID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteByTokenID removes the session that references tokenID. Deleting the
// token cascades to its session, so a missing row is not an error.
func (r *SessionRepository) DeleteByTokenID(ctx context.Context, tokenID ulid.ULID) error {
	_, err := execerFromCtx(ctx, r.db).Exec(ctx, `DELETE FROM sessions WHERE token_id = $1`, tokenID.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session by token").
			With("token_id", tokenID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteByID removes a session and returns its token ID.
func (r *SessionRepository) DeleteByID(ctx context.Context, id ulid.ULID) (ulid.ULID, error) {
	var tokenID string
	err := execerFromCtx(ctx, r.db).QueryRow(ctx,
		`DELETE FROM sessions WHERE id = $1 RETURNING token_id`, id.String()).Scan(&tokenID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, oops.Code("SESSION_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session by id").
			With("id", id.String()).
			Wrap(err)
	}
	return parseID(tokenID, "token_id")
}

// ListForUser returns the user's sessions joined with their tokens, newest first.
func (r *SessionRepository) ListForUser(ctx context.Context, userID ulid.ULID) ([]auth.SessionWithToken, error) {
	rows, err := execerFromCtx(ctx, r.db).Query(ctx, `
		SELECT t.id, t.kind, t.name, t.value, t.user_id, t.expiration, t.created_at, t.updated_at,
		       s.id, s.user_agent, s.ip_address, s.created_at
		FROM sessions s
		JOIN tokens t ON t.id = s.token_id
		WHERE t.user_id = $1
		ORDER BY s.created_at DESC, s.id DESC
	`, userID.String())
	if err != nil {
		return nil, oops.Code("SESSION_LIST_FAILED").
			With("operation", "list sessions").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	out := []auth.SessionWithToken{}
	for rows.Next() {
		var (
			tokenID, kind, owner, sessionID string
			swt                             auth.SessionWithToken
		)
		if err := rows.Scan(
			&tokenID, &kind, &swt.Token.Name, &swt.Token.Value, &owner, &swt.Token.Expiration,
			&swt.Token.CreatedAt, &swt.Token.UpdatedAt,
			&sessionID, &swt.Session.UserAgent, &swt.Session.IPAddress, &swt.Session.CreatedAt,
		); err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").With("operation", "scan session row").Wrap(err)
		}
		if swt.Token.ID, err = parseID(tokenID, "token_id"); err != nil {
			return nil, err
		}
		if swt.Token.UserID, err = parseID(owner, "user_id"); err != nil {
			return nil, err
		}
		if swt.Session.ID, err = parseID(sessionID, "session_id"); err != nil {
			return nil, err
		}
		swt.Token.Kind = auth.TokenKind(kind)
		swt.Session.TokenID = swt.Token.ID
		out = append(out, swt)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_ROWS_ERROR").With("operation", "iterate session rows").Wrap(err)
	}
	return out, nil
}

// DeleteExpired removes sessions whose token expired at or before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := execerFromCtx(ctx, r.db).Exec(ctx, `
		DELETE FROM sessions s
		USING tokens t
		WHERE t.id = s.token_id AND t.expiration IS NOT NULL AND t.expiration <= $1
	`, now)
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").With("operation", "delete expired sessions").Wrap(err)
	}
	return tag.RowsAffected(), nil
}
