// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/presence"
)

var _ presence.Conn = (*websocket.Conn)(nil)

// httpWSUserStatus streams the status of the user named by the id query
// parameter. An unknown user is rejected before the upgrade.
func (s *Server) httpWSUserStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	target, err := parseID(r.URL.Query().Get("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.presence.GetPresence(r.Context(), target); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.serveSession(w, r, presence.RoleObserver, target)
}

// httpWSMyStatus lets the caller report their own status.
func (s *Server) httpWSMyStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params, user *auth.User) {
	s.serveSession(w, r, presence.RoleSelfReporter, user.ID)
}

func (s *Server) serveSession(w http.ResponseWriter, r *http.Request, role presence.Role, userID ulid.ULID) {
	done, ok := s.trackSession()
	if !ok {
		s.writeError(w, r, oops.Code("WEB_SHUTTING_DOWN").Wrap(auth.InternalError("server is shutting down", nil)))
		return
	}
	defer done()

	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client.
		s.logger.DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	// The session belongs to the server, not the request, so Shutdown can end it.
	ctx := logging.WithRequestID(s.baseCtx, logging.RequestID(r.Context()))
	session := presence.NewSession(s.bus, s.presence, conn, presence.SessionConfig{
		Role:           role,
		UserID:         userID,
		AnnounceOnline: s.announceOnline && role == presence.RoleSelfReporter,
		Logger:         s.logger,
		Now:            s.now,
	})
	err = session.Run(ctx)
	s.logger.DebugContext(ctx, "presence connection closed",
		"session_id", session.ID().String(),
		"role", role.String(),
		"user_id", userID.String(),
		"cause", err)
}

// trackSession registers a live websocket session unless shutdown has begun.
func (s *Server) trackSession() (func(), bool) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	if s.baseCtx.Err() != nil {
		return nil, false
	}
	s.wsWG.Add(1)
	return s.wsWG.Done, true
}
