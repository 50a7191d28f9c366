// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/presence"
)

const userColumns = `u.id, u.email, u.first_name, u.last_name, u.role, u.salt, u.hash,
	u.online_status, u.last_active_at, u.created_at, u.updated_at`

// UserRepository implements auth.UserRepository and presence.Store over the
// users table.
type UserRepository struct {
	db  DBTX
	now func() time.Time
}

// NewUserRepository creates a UserRepository. A nil now uses time.Now.
func NewUserRepository(db DBTX, now func() time.Time) *UserRepository {
	if now == nil {
		now = time.Now
	}
	return &UserRepository{db: db, now: now}
}

var (
	_ auth.UserRepository = (*UserRepository)(nil)
	_ presence.Store      = (*UserRepository)(nil)
)

// Create inserts a user.
func (r *UserRepository) Create(ctx context.Context, in auth.NewUser, cred auth.Credential) (*auth.User, error) {
	now := dbNow(r.now)
	u := &auth.User{
		ID:           ulid.Make(),
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role,
		Salt:         cred.Salt,
		Hash:         cred.Hash,
		OnlineStatus: presence.StatusOffline,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := execerFromCtx(ctx, r.db).Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name, role, salt, hash, online_status, created_by_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`, u.ID.String(), u.Email, u.FirstName, u.LastName, string(u.Role), u.Salt, u.Hash,
		u.OnlineStatus.String(), idToStringPtr(in.CreatedBy), now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, oops.Code("USER_EMAIL_TAKEN").With("constraint", pgErr.ConstraintName).Wrap(auth.ErrConflict)
		}
		return nil, oops.Code("USER_CREATE_FAILED").With("operation", "insert user").Wrap(err)
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := execerFromCtx(ctx, r.db).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id.String())
	return r.getOne(row, "get user by id", "id", id.String())
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := execerFromCtx(ctx, r.db).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.email = $1`, email)
	return r.getOne(row, "get user by email", "email", email)
}

// GetByActiveToken resolves the owner of a live session or static access token.
func (r *UserRepository) GetByActiveToken(ctx context.Context, value string, now time.Time) (*auth.User, error) {
	row := execerFromCtx(ctx, r.db).QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.value = $1
		  AND t.kind IN ($2, $3)
		  AND (t.expiration IS NULL OR t.expiration > $4)
	`, value, string(auth.TokenKindSession), string(auth.TokenKindStaticAccess), now)
	return r.getOne(row, "get user by token", "", "")
}

func (r *UserRepository) getOne(row pgx.Row, operation, key, val string) (*auth.User, error) {
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		b := oops.Code("USER_NOT_FOUND")
		if key != "" {
			b = b.With(key, val)
		}
		return nil, b.Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").With("operation", operation).Wrap(err)
	}
	return u, nil
}

// UpdateCredential replaces a user's salt and hash.
func (r *UserRepository) UpdateCredential(ctx context.Context, id ulid.ULID, cred auth.Credential) error {
	tag, err := execerFromCtx(ctx, r.db).Exec(ctx,
		`UPDATE users SET salt = $2, hash = $3, updated_at = $4 WHERE id = $1`,
		id.String(), cred.Salt, cred.Hash, dbNow(r.now))
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update credential").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateStatus persists presence. A nil lastActiveAt keeps the stored value.
func (r *UserRepository) UpdateStatus(ctx context.Context, id ulid.ULID, status presence.Status, lastActiveAt *time.Time) error {
	tag, err := execerFromCtx(ctx, r.db).Exec(ctx, `
		UPDATE users
		SET online_status = $2, last_active_at = COALESCE($3::timestamptz, last_active_at)
		WHERE id = $1
	`, id.String(), status.String(), lastActiveAt)
	if err != nil {
		return oops.Code("USER_STATUS_UPDATE_FAILED").
			With("operation", "update online status").
			With("id", id.String()).
			With("status", status.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// GetPresence reads the presence columns of a user.
func (r *UserRepository) GetPresence(ctx context.Context, id ulid.ULID) (presence.Snapshot, error) {
	var (
		snap   presence.Snapshot
		status string
	)
	err := execerFromCtx(ctx, r.db).QueryRow(ctx,
		`SELECT online_status, last_active_at FROM users WHERE id = $1`, id.String()).
		Scan(&status, &snap.LastActiveAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return presence.Snapshot{}, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return presence.Snapshot{}, oops.Code("USER_PRESENCE_FAILED").
			With("operation", "get presence").
			With("id", id.String()).
			Wrap(err)
	}
	if snap.Status, err = presence.ParseStatus(status); err != nil {
		return presence.Snapshot{}, err
	}
	return snap, nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		u            auth.User
		id, role, st string
	)
	if err := row.Scan(&id, &u.Email, &u.FirstName, &u.LastName, &role, &u.Salt, &u.Hash,
		&st, &u.LastActiveAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if u.ID, err = parseID(id, "user_id"); err != nil {
		return nil, err
	}
	if u.OnlineStatus, err = presence.ParseStatus(st); err != nil {
		return nil, err
	}
	u.Role = auth.ParseRole(role)
	return &u, nil
}
