// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres_test

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
)

func TestActivityRepository_Create(t *testing.T) {
	actor := ulid.Make()
	meta := auth.RequestMeta{IPAddress: strPtr("192.0.2.1"), UserAgent: strPtr("Safari")}

	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO activity`).
		WithArgs(pgxmock.AnyArg(), "login", strPtr(actor.String()), fixedNow,
			strPtr("192.0.2.1"), strPtr("Safari"), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	entry, err := postgres.NewActivityRepository(mock, clock).Create(context.Background(), auth.LoginActivity(actor, meta))
	require.NoError(t, err)
	assert.Equal(t, auth.ActionLogin, entry.Action)
	assert.Equal(t, actor, *entry.ActionByID)
	assert.Equal(t, fixedNow, entry.ActionAt)
}

func TestActivityRepository_ListAndCount(t *testing.T) {
	actor := ulid.Make()
	first, second := ulid.Make(), ulid.Make()
	cols := []string{"id", "action", "action_by_id", "action_at", "ip_address", "user_agent",
		"table_name", "item_id", "old_data", "new_data"}
	none := (*string)(nil)

	mock := newMock(t)
	mock.ExpectQuery(`FROM activity\s+WHERE action_by_id`).
		WithArgs(actor.String(), 2, 4).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(second.String(), "logout", strPtr(actor.String()), fixedNow, none, none, none, none, none, none).
			AddRow(first.String(), "password_change", strPtr(actor.String()), fixedNow, none, none,
				strPtr("users"), strPtr(actor.String()), none, none))
	mock.ExpectQuery(`SELECT count`).
		WithArgs(actor.String()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	repo := postgres.NewActivityRepository(mock, clock)
	entries, err := repo.ListForUser(context.Background(), actor, auth.Pagination{Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, auth.ActionLogout, entries[0].Action)
	assert.Equal(t, "users", *entries[1].TableName)

	n, err := repo.CountForUser(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
