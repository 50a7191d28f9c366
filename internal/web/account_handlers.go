// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// Activity page sizes.
const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

func parseID(raw string) (ulid.ULID, error) {
	id, err := ulid.Parse(raw)
	if err != nil {
		return ulid.ULID{}, badRequest("invalid id %q", raw)
	}
	return id, nil
}

type deletedResponse struct {
	Deleted  bool     `json:"deleted"`
	Metadata Metadata `json:"_metadata"`
}

type sessionJSON struct {
	ID        ulid.ULID `json:"id"`
	TokenID   ulid.ULID `json:"tokenId"`
	UserAgent string    `json:"userAgent"`
	IPAddress *string   `json:"ipAddress"`
	CreatedAt time.Time `json:"createdAt"`
}

type sessionTokenJSON struct {
	ID         ulid.ULID   `json:"id"`
	CreatedAt  time.Time   `json:"createdAt"`
	Expiration *time.Time  `json:"expiration"`
	Session    sessionJSON `json:"session"`
}

type sessionsResponse struct {
	Sessions []sessionTokenJSON `json:"sessions"`
	Metadata Metadata           `json:"_metadata"`
}

func (s *Server) httpListSessions(w http.ResponseWriter, r *http.Request, _ httprouter.Params, user *auth.User) {
	list, err := s.sessions.ListForUser(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]sessionTokenJSON, 0, len(list))
	for _, st := range list {
		out = append(out, sessionTokenJSON{
			ID:         st.Token.ID,
			CreatedAt:  st.Token.CreatedAt,
			Expiration: st.Token.Expiration,
			Session: sessionJSON{
				ID:        st.Session.ID,
				TokenID:   st.Session.TokenID,
				UserAgent: st.Session.UserAgent,
				IPAddress: st.Session.IPAddress,
				CreatedAt: st.Session.CreatedAt,
			},
		})
	}
	s.writeJSON(w, http.StatusOK, sessionsResponse{Sessions: out, Metadata: s.metadata()})
}

func (s *Server) httpDeleteSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params, user *auth.User) {
	id, err := parseID(ps.ByName("session_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.sessions.DeleteByIDForUser(r.Context(), id, user.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, deletedResponse{Deleted: true, Metadata: s.metadata()})
}

type tokenJSON struct {
	ID         ulid.ULID  `json:"id"`
	Name       *string    `json:"name"`
	CreatedAt  time.Time  `json:"createdAt"`
	Expiration *time.Time `json:"expiration"`
}

type tokensResponse struct {
	Tokens   []tokenJSON `json:"tokens"`
	Metadata Metadata    `json:"_metadata"`
}

func (s *Server) httpListTokens(w http.ResponseWriter, r *http.Request, _ httprouter.Params, user *auth.User) {
	list, err := s.tokens.List(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]tokenJSON, 0, len(list))
	for _, t := range list {
		out = append(out, tokenJSON{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt, Expiration: t.Expiration})
	}
	s.writeJSON(w, http.StatusOK, tokensResponse{Tokens: out, Metadata: s.metadata()})
}

type createTokenBody struct {
	Name string `json:"name"`
}

// createdTokenJSON is the only shape that reveals a static token value.
type createdTokenJSON struct {
	ID        ulid.ULID `json:"id"`
	Name      *string   `json:"name"`
	Token     string    `json:"token"`
	UserID    ulid.ULID `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type createdTokenResponse struct {
	Created  createdTokenJSON `json:"created"`
	Metadata Metadata         `json:"_metadata"`
}

func (s *Server) httpCreateToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params, user *auth.User) {
	var req createTokenBody
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.tokens.Create(r.Context(), user.ID, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, createdTokenResponse{
		Created: createdTokenJSON{
			ID:        t.ID,
			Name:      t.Name,
			Token:     t.Value,
			UserID:    t.UserID,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		},
		Metadata: s.metadata(),
	})
}

func (s *Server) httpDeleteToken(w http.ResponseWriter, r *http.Request, ps httprouter.Params, user *auth.User) {
	id, err := parseID(ps.ByName("token_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.tokens.Delete(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, deletedResponse{Deleted: true, Metadata: s.metadata()})
}

type activityJSON struct {
	ID         ulid.ULID   `json:"id"`
	Action     auth.Action `json:"action"`
	ActionByID *ulid.ULID  `json:"actionById"`
	ActionAt   time.Time   `json:"actionAt"`
	IPAddress  *string     `json:"ipAddress"`
	UserAgent  *string     `json:"userAgent"`
	TableName  *string     `json:"tableName"`
	ItemID     *string     `json:"itemId"`
	OldData    *string     `json:"oldData"`
	NewData    *string     `json:"newData"`
}

type activityResponse struct {
	Activity []activityJSON `json:"activity"`
	Metadata Metadata       `json:"_metadata"`
}

// pageParams reads limit and 1-based page from the query.
func pageParams(r *http.Request) (auth.Pagination, error) {
	limit, page := DefaultActivityLimit, 1
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return auth.Pagination{}, badRequest("limit must be a positive integer")
		}
		limit = min(n, MaxActivityLimit)
	}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return auth.Pagination{}, badRequest("page must be a positive integer")
		}
		page = n
	}
	return auth.Pagination{Limit: limit, Offset: (page - 1) * limit}, nil
}

// httpListActivity lists the audit trail of userId, defaulting to the caller.
// Only admins may read another user's trail.
func (s *Server) httpListActivity(w http.ResponseWriter, r *http.Request, _ httprouter.Params, user *auth.User) {
	subject := user.ID
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		subject = id
	}
	if subject != user.ID && user.Role != auth.RoleAdmin {
		s.writeError(w, r, oops.Code("WEB_ACTIVITY_FORBIDDEN").
			With("user_id", subject.String()).
			Wrap(auth.ErrForbidden))
		return
	}
	page, err := pageParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entries, err := s.activity.ListForUser(r.Context(), subject, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	total, err := s.activity.CountForUser(r.Context(), subject)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]activityJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, activityJSON{
			ID:         e.ID,
			Action:     e.Action,
			ActionByID: e.ActionByID,
			ActionAt:   e.ActionAt,
			IPAddress:  e.IPAddress,
			UserAgent:  e.UserAgent,
			TableName:  e.TableName,
			ItemID:     e.ItemID,
			OldData:    e.OldData,
			NewData:    e.NewData,
		})
	}
	meta := s.metadata()
	meta.TotalCount = &total
	if len(out) > 0 {
		first := int64(page.Offset) + 1
		last := int64(page.Offset + len(out))
		meta.FirstIndexOnPage = &first
		meta.LastIndexOnPage = &last
	}
	s.writeJSON(w, http.StatusOK, activityResponse{Activity: out, Metadata: meta})
}
