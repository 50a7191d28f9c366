// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Error kinds. Every error leaving a service wraps exactly one of these so
// callers can classify it with errors.Is without inspecting the cause.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when an entity exists but belongs to someone else.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials covers both unknown identities and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionCreateFailed means credentials were valid but the session could not be stored.
	ErrSessionCreateFailed = errors.New("creating session failed")

	// ErrDatabase is an opaque datastore failure.
	ErrDatabase = errors.New("database error")

	// ErrInternal is an unexpected failure. A safe detail may be attached with InternalError.
	ErrInternal = errors.New("internal server error")

	// ErrInvalidInput is returned for malformed or policy-violating input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned when an operation requires a resolved user.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict is returned when a unique attribute is already taken.
	ErrConflict = errors.New("conflict")
)

// DetailKey is the oops context key carrying a caller-safe detail for ErrInternal.
const DetailKey = "detail"

// databaseError translates a repository failure into ErrDatabase, keeping the
// cause in the chain for logs. Not-found and forbidden pass through so callers
// can still distinguish them.
func databaseError(operation string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
		return err
	}
	return oops.Code("AUTH_DATABASE_ERROR").
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrDatabase, err))
}

// InternalError builds an ErrInternal whose detail may be shown to the caller.
func InternalError(detail string, cause error) error {
	builder := oops.Code("AUTH_INTERNAL_ERROR").With(DetailKey, detail)
	if cause == nil {
		return builder.Wrap(ErrInternal)
	}
	return builder.Wrap(fmt.Errorf("%w: %w", ErrInternal, cause))
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
}

func invalidInput(format string, args ...any) error {
	return oops.Code("AUTH_INVALID_INPUT").Wrap(fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...)))
}
