// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// ResetNotifier delivers a password reset token to its owner.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// PasswordResetService handles the forgot-password flow.
type PasswordResetService struct {
	users    UserRepository
	tokens   TokenStore
	activity *ActivityRecorder
	hasher   CredentialHasher
	tx       Transactor
	notifier ResetNotifier
	opts     serviceOptions
}

// NewPasswordResetService creates a PasswordResetService.
func NewPasswordResetService(
	users UserRepository,
	tokens TokenStore,
	activity *ActivityRecorder,
	hasher CredentialHasher,
	tx Transactor,
	notifier ResetNotifier,
	opts ...Option,
) (*PasswordResetService, error) {
	switch {
	case users == nil:
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("user repository is required")
	case tokens == nil:
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("token store is required")
	case activity == nil:
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("activity recorder is required")
	case hasher == nil:
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("credential hasher is required")
	case tx == nil:
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("transactor is required")
	case notifier == nil:
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("reset notifier is required")
	}
	return &PasswordResetService{
		users:    users,
		tokens:   tokens,
		activity: activity,
		hasher:   hasher,
		tx:       tx,
		notifier: notifier,
		opts:     applyOptions(opts),
	}, nil
}

// RequestReset issues a reset token for email and sends it. Unknown emails
// succeed without doing anything. A delivery failure is logged, not returned.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string, meta RequestMeta) error {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return databaseError("get user by email", err)
	}

	token, err := s.tokens.CreatePasswordResetToken(ctx, user.ID)
	if err != nil {
		return databaseError("create password reset token", err)
	}
	PasswordResetRequests.Inc()

	if err := s.notifier.SendPasswordReset(ctx, user.Email, token.Value); err != nil {
		errutil.LogErrorLevel(ctx, s.opts.logger, slog.LevelError, "sending password reset email failed", err,
			"user_id", user.ID.String())
	}

	s.activity.RecordBestEffort(ctx, PasswordResetRequestActivity(user.ID, meta))
	return nil
}

// CheckToken reports whether value is a live password reset token. An expired
// token is deleted and reported invalid. Returns ErrNotFound if the token does
// not exist, which includes a second check of an expired token.
func (s *PasswordResetService) CheckToken(ctx context.Context, value string) (bool, error) {
	token, err := s.tokens.GetByValue(ctx, value)
	if err != nil {
		return false, databaseError("get reset token", err)
	}
	if token.Kind != TokenKindPasswordReset {
		return false, nil
	}
	if token.IsExpiredAt(s.opts.now()) {
		if _, err := s.tokens.DeleteByValue(ctx, value); err != nil && !errors.Is(err, ErrNotFound) {
			return false, databaseError("delete expired reset token", err)
		}
		return false, nil
	}
	return true, nil
}

// PasswordReset is a request to consume a reset token.
type PasswordReset struct {
	Token           string
	Password        string
	ConfirmPassword string
}

// ResetPassword consumes a reset token and sets the new password with the
// user's existing salt. The update and the token delete commit together.
// Returns ErrInvalidInput for a bad confirmation and ErrNotFound for a missing,
// expired or wrong-kind token.
func (s *PasswordResetService) ResetPassword(ctx context.Context, req PasswordReset, meta RequestMeta) error {
	if req.Password == "" {
		return invalidInput("password cannot be empty")
	}
	if req.Password != req.ConfirmPassword {
		return invalidInput("password confirmation does not match")
	}

	valid, err := s.CheckToken(ctx, req.Token)
	if err != nil {
		return err
	}
	if !valid {
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrNotFound)
	}

	var user *User
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		token, err := s.tokens.DeleteByValue(ctx, req.Token)
		if err != nil {
			return err
		}
		user, err = s.users.GetByID(ctx, token.UserID)
		if err != nil {
			return err
		}
		cred, err := s.hasher.Derive(req.Password, user.Salt)
		if err != nil {
			return err
		}
		return s.users.UpdateCredential(ctx, user.ID, cred)
	})
	if err != nil {
		return databaseError("reset password", err)
	}

	s.activity.RecordBestEffort(ctx, PasswordResetActivity(user.ID, meta))
	return nil
}
