// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gatehouse/gatehouse/internal/presence"
)

// Role is a user's permission level.
type Role string

// Roles known to the system.
const (
	RoleAdmin       Role = "admin"
	RoleEditor      Role = "editor"
	RoleAuthor      Role = "author"
	RoleContributor Role = "contributor"
)

// ParseRole returns the role for s, defaulting to RoleAuthor.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleEditor, RoleAuthor, RoleContributor:
		return Role(s)
	default:
		return RoleAuthor
	}
}

// User is the subset of the user record the auth core reads and writes.
// Salt and Hash never leave the process.
type User struct {
	ID           ulid.ULID
	Email        string
	FirstName    *string
	LastName     *string
	Role         Role
	Salt         []byte
	Hash         []byte
	OnlineStatus presence.Status
	LastActiveAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser describes a user to be created.
type NewUser struct {
	Email     string
	FirstName *string
	LastName  *string
	Role      Role
	Password  string
	CreatedBy *ulid.ULID
}

// UserRepository manages the credential and presence columns of user records.
type UserRepository interface {
	// Create inserts a user with the given credential.
	// Returns ErrConflict if the email is already taken.
	Create(ctx context.Context, input NewUser, cred Credential) (*User, error)

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email.
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByActiveToken resolves the owner of a non-expired session or
	// static-access token.
	GetByActiveToken(ctx context.Context, value string, now time.Time) (*User, error)

	// UpdateCredential replaces the salt and hash of a user.
	UpdateCredential(ctx context.Context, id ulid.ULID, cred Credential) error

	// UpdateStatus persists presence. A nil lastActiveAt leaves the column unchanged.
	UpdateStatus(ctx context.Context, id ulid.ULID, status presence.Status, lastActiveAt *time.Time) error
}
