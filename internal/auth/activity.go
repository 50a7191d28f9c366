// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// Action is the label stored with an activity entry.
type Action string

// Actions recorded in the audit trail.
const (
	ActionLogin                Action = "login"
	ActionLogout               Action = "logout"
	ActionCreate               Action = "create"
	ActionUpdate               Action = "update"
	ActionDelete               Action = "delete"
	ActionHardDelete           Action = "hard_delete"
	ActionPasswordChange       Action = "password_change"
	ActionPasswordResetRequest Action = "password_reset_request"
	ActionPasswordReset        Action = "password_reset"
	ActionComment              Action = "comment"
)

// ActivityEntry is an immutable audit record.
type ActivityEntry struct {
	ID         ulid.ULID
	Action     Action
	ActionByID *ulid.ULID // nil for unauthenticated actions
	ActionAt   time.Time
	IPAddress  *string
	UserAgent  *string
	TableName  *string
	ItemID     *string
	OldData    *string
	NewData    *string
}

// RequestMeta identifies the client that triggered an action.
type RequestMeta struct {
	IPAddress *string
	UserAgent *string
}

// ActivityInput is one entry to be recorded. Build it with the constructor
// for the action so each variant carries exactly its fields.
type ActivityInput struct {
	action     Action
	actionByID *ulid.ULID
	meta       RequestMeta
	tableName  *string
	itemID     *string
	oldData    *string
	newData    *string
}

// Action returns the label the input will be stored with.
func (in ActivityInput) Action() Action { return in.action }

// ActionByID returns the actor, nil for unauthenticated actions.
func (in ActivityInput) ActionByID() *ulid.ULID { return in.actionByID }

// Meta returns the client metadata.
func (in ActivityInput) Meta() RequestMeta { return in.meta }

// TableName returns the subject table, if any.
func (in ActivityInput) TableName() *string { return in.tableName }

// ItemID returns the subject item, if any.
func (in ActivityInput) ItemID() *string { return in.itemID }

// OldData returns the snapshot before an update.
func (in ActivityInput) OldData() *string { return in.oldData }

// NewData returns the snapshot after a create or update.
func (in ActivityInput) NewData() *string { return in.newData }

func ptr[T any](v T) *T { return &v }

func idPtr(id ulid.ULID) *ulid.ULID { return &id }

// LoginActivity records a user logging in.
func LoginActivity(actor ulid.ULID, meta RequestMeta) ActivityInput {
	return ActivityInput{action: ActionLogin, actionByID: idPtr(actor), meta: meta}
}

// LogoutActivity records a user logging out.
func LogoutActivity(actor ulid.ULID, meta RequestMeta) ActivityInput {
	return ActivityInput{action: ActionLogout, actionByID: idPtr(actor), meta: meta}
}

// PasswordChangeActivity records actor changing the password of subject.
func PasswordChangeActivity(actor, subject ulid.ULID, meta RequestMeta) ActivityInput {
	return ActivityInput{
		action:     ActionPasswordChange,
		actionByID: idPtr(actor),
		meta:       meta,
		itemID:     ptr(subject.String()),
	}
}

// PasswordResetRequestActivity records an unauthenticated reset request for subject.
func PasswordResetRequestActivity(subject ulid.ULID, meta RequestMeta) ActivityInput {
	return ActivityInput{action: ActionPasswordResetRequest, meta: meta, itemID: ptr(subject.String())}
}

// PasswordResetActivity records an unauthenticated password reset for subject.
func PasswordResetActivity(subject ulid.ULID, meta RequestMeta) ActivityInput {
	return ActivityInput{action: ActionPasswordReset, meta: meta, itemID: ptr(subject.String())}
}

// CreateActivity records creation of an item. newData must not contain secrets.
func CreateActivity(actor ulid.ULID, meta RequestMeta, table, itemID, newData string) ActivityInput {
	return ActivityInput{
		action:     ActionCreate,
		actionByID: idPtr(actor),
		meta:       meta,
		tableName:  ptr(table),
		itemID:     ptr(itemID),
		newData:    ptr(newData),
	}
}

// UpdateActivity records a change to an item with before and after snapshots.
func UpdateActivity(actor ulid.ULID, meta RequestMeta, table, itemID, oldData, newData string) ActivityInput {
	return ActivityInput{
		action:     ActionUpdate,
		actionByID: idPtr(actor),
		meta:       meta,
		tableName:  ptr(table),
		itemID:     ptr(itemID),
		oldData:    ptr(oldData),
		newData:    ptr(newData),
	}
}

// DeleteActivity records a soft delete.
func DeleteActivity(actor ulid.ULID, meta RequestMeta, table, itemID string) ActivityInput {
	return ActivityInput{
		action:     ActionDelete,
		actionByID: idPtr(actor),
		meta:       meta,
		tableName:  ptr(table),
		itemID:     ptr(itemID),
	}
}

// HardDeleteActivity records a permanent delete.
func HardDeleteActivity(actor ulid.ULID, meta RequestMeta, table, itemID string) ActivityInput {
	in := DeleteActivity(actor, meta, table, itemID)
	in.action = ActionHardDelete
	return in
}

// CommentActivity records a free-form marker.
func CommentActivity() ActivityInput {
	return ActivityInput{action: ActionComment}
}

// Pagination selects one page of a newest-first listing.
type Pagination struct {
	Limit  int
	Offset int
}

// ActivityRepository appends and reads audit entries. Entries are never updated.
type ActivityRepository interface {
	Create(ctx context.Context, input ActivityInput) (*ActivityEntry, error)
	ListForUser(ctx context.Context, userID ulid.ULID, page Pagination) ([]*ActivityEntry, error)
	CountForUser(ctx context.Context, userID ulid.ULID) (int64, error)
}

// ActivityRecorder writes the audit trail.
type ActivityRecorder struct {
	repo   ActivityRepository
	logger *slog.Logger
}

// NewActivityRecorder creates an ActivityRecorder.
func NewActivityRecorder(repo ActivityRepository, logger *slog.Logger) (*ActivityRecorder, error) {
	if repo == nil {
		return nil, oops.Code("ACTIVITY_INVALID_CONFIG").Errorf("activity repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityRecorder{repo: repo, logger: logger}, nil
}

// Record inserts one entry.
func (r *ActivityRecorder) Record(ctx context.Context, input ActivityInput) (*ActivityEntry, error) {
	entry, err := r.repo.Create(ctx, input)
	if err != nil {
		return nil, databaseError("record activity", err)
	}
	return entry, nil
}

// RecordBestEffort inserts one entry and logs instead of returning a failure.
// Used after the primary action has already committed.
func (r *ActivityRecorder) RecordBestEffort(ctx context.Context, input ActivityInput) {
	if _, err := r.Record(ctx, input); err != nil {
		errutil.LogErrorLevel(ctx, r.logger, slog.LevelWarn, "recording activity failed", err,
			"action", string(input.action))
	}
}

// ListForUser returns one page of the entries performed by userID, newest first.
func (r *ActivityRecorder) ListForUser(ctx context.Context, userID ulid.ULID, page Pagination) ([]*ActivityEntry, error) {
	entries, err := r.repo.ListForUser(ctx, userID, page)
	if err != nil {
		return nil, databaseError("list activity", err)
	}
	return entries, nil
}

// CountForUser returns the number of entries performed by userID.
func (r *ActivityRecorder) CountForUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	n, err := r.repo.CountForUser(ctx, userID)
	if err != nil {
		return 0, databaseError("count activity", err)
	}
	return n, nil
}
