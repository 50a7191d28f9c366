// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package mocks

import (
	"context"
	"sync/atomic"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// InlineTransactor runs fn directly and counts transactions. A non-nil
// BeginErr fails every transaction before fn runs.
type InlineTransactor struct {
	BeginErr error
	calls    atomic.Int32
}

// InTransaction implements auth.Transactor.
func (t *InlineTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls.Add(1)
	if t.BeginErr != nil {
		return t.BeginErr
	}
	return fn(ctx)
}

// Calls returns how many transactions were opened.
func (t *InlineTransactor) Calls() int { return int(t.calls.Load()) }

var _ auth.Transactor = (*InlineTransactor)(nil)
