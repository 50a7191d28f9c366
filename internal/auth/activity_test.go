// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func TestActivityInputs_CarryOnlyTheirFields(t *testing.T) {
	actor, subject := newID(), newID()
	meta := auth.RequestMeta{IPAddress: strPtr("203.0.113.9"), UserAgent: strPtr("curl/8")}

	login := auth.LoginActivity(actor, meta)
	assert.Equal(t, auth.ActionLogin, login.Action())
	assert.Equal(t, &actor, login.ActionByID())
	assert.Equal(t, meta, login.Meta())
	assert.Nil(t, login.ItemID())
	assert.Nil(t, login.TableName())

	change := auth.PasswordChangeActivity(actor, subject, meta)
	assert.Equal(t, auth.ActionPasswordChange, change.Action())
	require.NotNil(t, change.ItemID())
	assert.Equal(t, subject.String(), *change.ItemID())

	request := auth.PasswordResetRequestActivity(subject, meta)
	assert.Nil(t, request.ActionByID(), "reset requests are unauthenticated")
	assert.Equal(t, subject.String(), *request.ItemID())

	update := auth.UpdateActivity(actor, meta, "posts", "42", `{"a":1}`, `{"a":2}`)
	assert.Equal(t, "posts", *update.TableName())
	assert.Equal(t, `{"a":1}`, *update.OldData())
	assert.Equal(t, `{"a":2}`, *update.NewData())

	hard := auth.HardDeleteActivity(actor, meta, "posts", "42")
	assert.Equal(t, auth.ActionHardDelete, hard.Action())
	assert.Nil(t, hard.NewData())

	comment := auth.CommentActivity()
	assert.Equal(t, auth.ActionComment, comment.Action())
	assert.Nil(t, comment.ActionByID())
}

func TestNewActivityRecorder_RequiresRepository(t *testing.T) {
	_, err := auth.NewActivityRecorder(nil, nil)
	errutil.AssertErrorCode(t, err, "ACTIVITY_INVALID_CONFIG")
}

func TestActivityRecorder_Record(t *testing.T) {
	h := newHarness(t)
	actor := newID()
	input := auth.LoginActivity(actor, auth.RequestMeta{})
	stored := &auth.ActivityEntry{ID: newID(), Action: auth.ActionLogin, ActionByID: &actor}
	h.activity.On("Create", mock.Anything, input).Return(stored, nil).Once()

	entry, err := h.recorder.Record(context.Background(), input)
	require.NoError(t, err)
	assert.Same(t, stored, entry)
}

func TestActivityRecorder_RecordFailureIsDatabaseError(t *testing.T) {
	h := newHarness(t)
	input := auth.CommentActivity()
	h.activity.On("Create", mock.Anything, input).Return(nil, errors.New("connection refused")).Once()

	_, err := h.recorder.Record(context.Background(), input)
	errutil.AssertErrorKind(t, err, auth.ErrDatabase)
	errutil.AssertErrorContext(t, err, "operation", "record activity")
}

func TestActivityRecorder_RecordBestEffortLogsFailure(t *testing.T) {
	h := newHarness(t)
	input := auth.LogoutActivity(newID(), auth.RequestMeta{})
	h.activity.On("Create", mock.Anything, input).Return(nil, errors.New("disk full")).Once()

	h.recorder.RecordBestEffort(context.Background(), input)
	assert.Contains(t, h.logs.String(), "recording activity failed")
	assert.Contains(t, h.logs.String(), `"action":"logout"`)
}

func TestActivityRecorder_ListAndCount(t *testing.T) {
	h := newHarness(t)
	user := newID()
	page := auth.Pagination{Limit: 2, Offset: 4}
	entries := []*auth.ActivityEntry{{ID: ulid.Make()}, {ID: ulid.Make()}}
	h.activity.On("ListForUser", mock.Anything, user, page).Return(entries, nil).Once()
	h.activity.On("CountForUser", mock.Anything, user).Return(int64(6), nil).Once()

	got, err := h.recorder.ListForUser(context.Background(), user, page)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	n, err := h.recorder.CountForUser(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}
