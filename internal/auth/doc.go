// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth provides credential hashing, bearer tokens, sessions and the
// audit trail for Gatehouse.
//
// # Storage
//
// Repositories are interfaces implemented in the postgres subpackage. Every
// repository method runs against the transaction carried by ctx when one was
// opened through a Transactor, so services compose multi-row writes by
// calling repositories inside Transactor.InTransaction.
//
// # Services
//
//   - SessionManager - pairs a session with exactly one session token
//   - AuthService - login, logout, session resolution, password change
//   - PasswordResetService - reset request, check and consume
//   - AccessTokenService - static access tokens for programmatic clients
//   - ActivityRecorder - append-only audit entries
//
// Services are created with New* constructors that validate dependencies.
// Errors returned by services wrap exactly one of the Err* kinds.
package auth
