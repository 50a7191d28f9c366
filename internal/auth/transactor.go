// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "context"

// Transactor runs fn inside a database transaction.
// The transaction is committed if fn returns nil and rolled back otherwise,
// including when ctx is cancelled. Nested calls join the outer transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
