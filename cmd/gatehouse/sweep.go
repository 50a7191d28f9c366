// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// expiredSweeper deletes sessions and tokens whose expiration has passed.
// *auth.SessionManager implements it.
type expiredSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// runSweeper sweeps once immediately and then every interval until ctx ends.
// A failed sweep is logged and retried on the next tick.
func runSweeper(ctx context.Context, s expiredSweeper, interval time.Duration, now func() time.Time, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		removed, err := s.DeleteExpired(ctx, now())
		switch {
		case err != nil && ctx.Err() == nil:
			errutil.LogErrorLevel(ctx, logger, slog.LevelWarn, "sweeping expired tokens failed", err)
		case removed > 0:
			logger.Info("swept expired tokens", "removed", removed)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
