// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package errutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at ERROR level with structured context if it's an oops error.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorLevel(context.Background(), logger, slog.LevelError, msg, err)
}

// LogErrorLevel logs err at level. For oops errors the code and context are
// expanded into attributes; args are appended as extra key/value pairs.
func LogErrorLevel(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"error", err.Error()}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil && fmt.Sprint(code) != "" {
			attrs = append(attrs, "code", fmt.Sprint(code))
		}
		if c := oopsErr.Context(); len(c) > 0 {
			attrs = append(attrs, "context", c)
		}
	}
	attrs = append(attrs, args...)
	logger.Log(ctx, level, msg, attrs...)
}
