// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

const activityColumns = `id, action, action_by_id, action_at, ip_address, user_agent, table_name, item_id, old_data, new_data`

// ActivityRepository implements auth.ActivityRepository. Rows are append-only.
type ActivityRepository struct {
	db  DBTX
	now func() time.Time
}

// NewActivityRepository creates an ActivityRepository. A nil now uses time.Now.
func NewActivityRepository(db DBTX, now func() time.Time) *ActivityRepository {
	if now == nil {
		now = time.Now
	}
	return &ActivityRepository{db: db, now: now}
}

var _ auth.ActivityRepository = (*ActivityRepository)(nil)

// Create appends one entry.
func (r *ActivityRepository) Create(ctx context.Context, in auth.ActivityInput) (*auth.ActivityEntry, error) {
	meta := in.Meta()
	entry := &auth.ActivityEntry{
		ID:         ulid.Make(),
		Action:     in.Action(),
		ActionByID: in.ActionByID(),
		ActionAt:   dbNow(r.now),
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		TableName:  in.TableName(),
		ItemID:     in.ItemID(),
		OldData:    in.OldData(),
		NewData:    in.NewData(),
	}

	_, err := execerFromCtx(ctx, r.db).Exec(ctx, `
		INSERT INTO activity (`+activityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		entry.ID.String(), string(entry.Action), idToStringPtr(entry.ActionByID), entry.ActionAt,
		entry.IPAddress, entry.UserAgent, entry.TableName, entry.ItemID, entry.OldData, entry.NewData,
	)
	if err != nil {
		return nil, oops.Code("ACTIVITY_CREATE_FAILED").
			With("operation", "insert activity").
			With("action", string(entry.Action)).
			Wrap(err)
	}
	return entry, nil
}

// ListForUser returns one page of the entries performed by userID, newest first.
func (r *ActivityRepository) ListForUser(ctx context.Context, userID ulid.ULID, page auth.Pagination) ([]*auth.ActivityEntry, error) {
	rows, err := execerFromCtx(ctx, r.db).Query(ctx, `
		SELECT `+activityColumns+`
		FROM activity
		WHERE action_by_id = $1
		ORDER BY action_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID.String(), page.Limit, page.Offset)
	if err != nil {
		return nil, oops.Code("ACTIVITY_LIST_FAILED").
			With("operation", "list activity").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	entries := []*auth.ActivityEntry{}
	for rows.Next() {
		entry, err := scanActivity(rows)
		if err != nil {
			return nil, oops.Code("ACTIVITY_SCAN_FAILED").With("operation", "scan activity row").Wrap(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACTIVITY_ROWS_ERROR").With("operation", "iterate activity rows").Wrap(err)
	}
	return entries, nil
}

// CountForUser returns how many entries userID performed.
func (r *ActivityRepository) CountForUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	var n int64
	err := execerFromCtx(ctx, r.db).QueryRow(ctx,
		`SELECT count(*) FROM activity WHERE action_by_id = $1`, userID.String()).Scan(&n)
	if err != nil {
		return 0, oops.Code("ACTIVITY_COUNT_FAILED").
			With("operation", "count activity").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return n, nil
}

func scanActivity(row pgx.Row) (*auth.ActivityEntry, error) {
	var (
		e        auth.ActivityEntry
		id       string
		action   string
		actionBy *string
	)
	if err := row.Scan(&id, &action, &actionBy, &e.ActionAt, &e.IPAddress, &e.UserAgent,
		&e.TableName, &e.ItemID, &e.OldData, &e.NewData); err != nil {
		return nil, err
	}
	var err error
	if e.ID, err = parseID(id, "activity_id"); err != nil {
		return nil, err
	}
	if e.ActionByID, err = parseOptionalID(actionBy, "action_by_id"); err != nil {
		return nil, err
	}
	e.Action = auth.Action(action)
	return &e, nil
}
