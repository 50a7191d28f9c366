// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// errorMapping ties an error kind to its HTTP status and public message.
type errorMapping struct {
	kind    error
	status  int
	message string
	// exposeDetail shows the auth.DetailKey context value instead of message.
	exposeDetail bool
}

// errorTable is consulted top to bottom; the first kind matching errors.Is wins.
// ErrSessionCreateFailed wraps a database error, so it must precede ErrDatabase.
var errorTable = []errorMapping{
	{kind: auth.ErrInvalidCredentials, status: http.StatusUnauthorized, message: "Invalid credentials"},
	{kind: auth.ErrUnauthorized, status: http.StatusUnauthorized, message: "Unauthorized"},
	{kind: auth.ErrSessionCreateFailed, status: http.StatusInternalServerError, message: "Session creation failed"},
	{kind: auth.ErrForbidden, status: http.StatusForbidden, message: "Forbidden"},
	{kind: auth.ErrNotFound, status: http.StatusNotFound, message: "Not found"},
	{kind: auth.ErrInvalidInput, status: http.StatusBadRequest, message: "Invalid input"},
	{kind: auth.ErrConflict, status: http.StatusConflict, message: "Conflict"},
	{kind: auth.ErrDatabase, status: http.StatusInternalServerError, message: "Database error"},
	{kind: auth.ErrInternal, status: http.StatusInternalServerError, message: "Internal server error", exposeDetail: true},
}

var fallbackMapping = errorMapping{status: http.StatusInternalServerError, message: "Internal server error"}

// classify maps err to its status and the message safe to show the caller.
func classify(err error) (int, string) {
	m := fallbackMapping
	for _, candidate := range errorTable {
		if errors.Is(err, candidate.kind) {
			m = candidate
			break
		}
	}
	if !m.exposeDetail {
		return m.status, m.message
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if detail, ok := oopsErr.Context()[auth.DetailKey]; ok {
			return m.status, fmt.Sprint(detail)
		}
	}
	return m.status, m.message
}

// errorEnvelope is the body of every failed request.
type errorEnvelope struct {
	ErrorMessage string   `json:"errorMessage"`
	Metadata     Metadata `json:"_metadata"`
}

// writeError logs err and sends the mapped envelope. Server-side failures log
// at ERROR, client errors at DEBUG.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	errutil.LogErrorLevel(r.Context(), s.logger, level, "request failed", err,
		"path", r.URL.Path, "status", status)
	s.writeJSON(w, status, errorEnvelope{ErrorMessage: message, Metadata: s.metadata()})
}

// badRequest reports malformed input that never reached a service.
func badRequest(format string, args ...any) error {
	return oops.Code("WEB_BAD_REQUEST").Wrap(fmt.Errorf("%w: %s", auth.ErrInvalidInput, fmt.Sprintf(format, args...)))
}
