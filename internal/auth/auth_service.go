// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Option configures a service.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger *slog.Logger
	now    func() time.Time
}

// WithLogger sets the logger for best-effort failures. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) serviceOptions {
	o := serviceOptions{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// dummySalt and dummyHash are verified against when the email is unknown so
// that both login failures cost one key derivation.
var (
	dummySalt = make([]byte, SaltLength)
	dummyHash = make([]byte, CredentialLength)
)

// LoginResult is a successful login.
type LoginResult struct {
	User    *User
	Session *Session
	Token   *Token
}

// AuthService handles login, logout, session resolution and password change.
type AuthService struct {
	users    UserRepository
	sessions *SessionManager
	activity *ActivityRecorder
	hasher   CredentialHasher
	opts     serviceOptions
}

// NewAuthService creates an AuthService.
func NewAuthService(
	users UserRepository,
	sessions *SessionManager,
	activity *ActivityRecorder,
	hasher CredentialHasher,
	opts ...Option,
) (*AuthService, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("user repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("session manager is required")
	}
	if activity == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("activity recorder is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("credential hasher is required")
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		activity: activity,
		hasher:   hasher,
		opts:     applyOptions(opts),
	}, nil
}

// Login verifies the credentials and opens a session.
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
// A valid login whose session cannot be stored returns ErrSessionCreateFailed.
func (s *AuthService) Login(ctx context.Context, email, password string, meta RequestMeta) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		s.hasher.Verify(password, dummySalt, dummyHash)
		recordLogin(LoginInvalidCredentials)
		return nil, invalidCredentials()
	case err != nil:
		recordLogin(LoginError)
		return nil, databaseError("get user by email", err)
	}

	if !s.hasher.Verify(password, user.Salt, user.Hash) {
		recordLogin(LoginInvalidCredentials)
		return nil, invalidCredentials()
	}

	userAgent := ""
	if meta.UserAgent != nil {
		userAgent = *meta.UserAgent
	}
	session, token, err := s.sessions.CreateWithToken(ctx, user.ID, meta.IPAddress, userAgent)
	if err != nil {
		recordLogin(LoginError)
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("user_id", user.ID.String()).
			Wrap(errors.Join(ErrSessionCreateFailed, err))
	}

	recordLogin(LoginSuccess)
	s.activity.RecordBestEffort(ctx, LoginActivity(user.ID, meta))

	return &LoginResult{User: user, Session: session, Token: token}, nil
}

// Logout removes the session identified by a session token value.
// Returns ErrNotFound if the token does not exist, so a second logout fails.
func (s *AuthService) Logout(ctx context.Context, tokenValue string, meta RequestMeta) error {
	if tokenValue == "" {
		return oops.Code("AUTH_LOGOUT_NO_TOKEN").Wrap(ErrNotFound)
	}
	token, err := s.sessions.DeleteByTokenValue(ctx, tokenValue)
	if err != nil {
		return err
	}
	s.activity.RecordBestEffort(ctx, LogoutActivity(token.UserID, meta))
	return nil
}

// ResolveSession returns the owner of a live session or static access token.
// Unknown, expired and password reset tokens resolve to (nil, nil).
func (s *AuthService) ResolveSession(ctx context.Context, tokenValue string) (*User, error) {
	if tokenValue == "" {
		return nil, nil
	}
	user, err := s.users.GetByActiveToken(ctx, tokenValue, s.opts.now())
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, databaseError("resolve session", err)
	}
	return user, nil
}

// PasswordChange is a request to change a password.
type PasswordChange struct {
	ActorID         ulid.ULID
	UserID          ulid.ULID
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// ChangePassword replaces the password of the actor after verifying the
// current one. The existing salt is kept.
func (s *AuthService) ChangePassword(ctx context.Context, req PasswordChange, meta RequestMeta) error {
	if req.ActorID != req.UserID {
		return oops.Code("AUTH_PASSWORD_CHANGE_FORBIDDEN").
			With("actor_id", req.ActorID.String()).
			With("user_id", req.UserID.String()).
			Wrap(ErrForbidden)
	}
	if req.NewPassword == "" {
		return invalidInput("new password cannot be empty")
	}
	if req.NewPassword != req.ConfirmPassword {
		return invalidInput("password confirmation does not match")
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return databaseError("get user by id", err)
	}
	if !s.hasher.Verify(req.CurrentPassword, user.Salt, user.Hash) {
		return invalidCredentials()
	}

	cred, err := s.hasher.Derive(req.NewPassword, user.Salt)
	if err != nil {
		return InternalError("deriving credential failed", err)
	}
	if err := s.users.UpdateCredential(ctx, user.ID, cred); err != nil {
		return databaseError("update credential", err)
	}

	s.activity.RecordBestEffort(ctx, PasswordChangeActivity(req.ActorID, user.ID, meta))
	return nil
}

// CreateUser hashes the password with a fresh salt and stores the user.
func (s *AuthService) CreateUser(ctx context.Context, input NewUser) (*User, error) {
	if input.Email == "" {
		return nil, invalidInput("email cannot be empty")
	}
	if input.Password == "" {
		return nil, invalidInput("password cannot be empty")
	}
	if input.Role == "" {
		input.Role = RoleAuthor
	}

	cred, err := s.hasher.Derive(input.Password, nil)
	if err != nil {
		return nil, InternalError("deriving credential failed", err)
	}
	user, err := s.users.Create(ctx, input, cred)
	if errors.Is(err, ErrConflict) {
		return nil, err
	}
	if err != nil {
		return nil, databaseError("create user", err)
	}

	if input.CreatedBy != nil {
		s.activity.RecordBestEffort(ctx, CreateActivity(*input.CreatedBy, RequestMeta{}, "users", user.ID.String(), user.Email))
	}
	return user, nil
}
