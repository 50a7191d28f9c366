// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
)

func TestSessions(t *testing.T) {
	h := newHarness(t)
	user := testUser(auth.RoleAuthor)
	h.signedIn(user, "s")

	exp := fixedNow.Add(auth.SessionTokenExpiry)
	tokenID, sessionID := ulid.Make(), ulid.Make()
	ip := "10.0.0.1"
	h.sessions.On("ListForUser", mock.Anything, user.ID).Return([]auth.SessionWithToken{{
		Token:   auth.Token{ID: tokenID, Kind: auth.TokenKindSession, UserID: user.ID, Expiration: &exp, CreatedAt: fixedNow},
		Session: auth.Session{ID: sessionID, TokenID: tokenID, UserAgent: "firefox", IPAddress: &ip, CreatedAt: fixedNow},
	}}, nil)

	t.Run("list", func(t *testing.T) {
		resp := h.do(t, request{method: http.MethodGet, path: "/api/rest/sessions", cookie: "s"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		list := decodeBody(t, resp)["sessions"].([]any)
		require.Len(t, list, 1)
		entry := list[0].(map[string]any)
		assert.Equal(t, tokenID.String(), entry["id"])
		assert.NotNil(t, entry["expiration"])
		session := entry["session"].(map[string]any)
		assert.Equal(t, sessionID.String(), session["id"])
		assert.Equal(t, "firefox", session["userAgent"])
		assert.Equal(t, ip, session["ipAddress"])
		assert.NotContains(t, entry, "value")
	})

	t.Run("delete", func(t *testing.T) {
		h.sessions.On("DeleteByID", mock.Anything, sessionID).Return(tokenID, nil)
		h.tokens.On("DeleteByID", mock.Anything, tokenID, user.ID).Return(tokenID, nil)

		resp := h.do(t, request{method: http.MethodDelete, path: "/api/rest/sessions/" + sessionID.String(), cookie: "s"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, decodeBody(t, resp)["deleted"])
	})

	t.Run("delete unknown", func(t *testing.T) {
		missing := ulid.Make()
		h.sessions.On("DeleteByID", mock.Anything, missing).Return(ulid.ULID{}, auth.ErrNotFound)

		resp := h.do(t, request{method: http.MethodDelete, path: "/api/rest/sessions/" + missing.String(), cookie: "s"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("requires a session", func(t *testing.T) {
		resp := h.do(t, request{method: http.MethodGet, path: "/api/rest/sessions"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAccessTokens(t *testing.T) {
	h := newHarness(t)
	user := testUser(auth.RoleAuthor)
	h.signedIn(user, "static-value")

	t.Run("bearer token lists without revealing values", func(t *testing.T) {
		name := "ci"
		h.tokens.On("ListAccessTokens", mock.Anything, user.ID).Return([]*auth.Token{
			{ID: ulid.Make(), Kind: auth.TokenKindStaticAccess, Name: &name, Value: "secret", UserID: user.ID, CreatedAt: fixedNow},
		}, nil)

		resp := h.do(t, request{method: http.MethodGet, path: "/api/rest/tokens", bearer: "static-value"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		list := decodeBody(t, resp)["tokens"].([]any)
		require.Len(t, list, 1)
		entry := list[0].(map[string]any)
		assert.Equal(t, "ci", entry["name"])
		assert.Nil(t, entry["expiration"])
		assert.NotContains(t, entry, "token")
	})

	t.Run("create reveals the value once", func(t *testing.T) {
		name := "deploy"
		created := &auth.Token{ID: ulid.Make(), Kind: auth.TokenKindStaticAccess, Name: &name, Value: "revealed", UserID: user.ID}
		h.tokens.On("CreateAccessToken", mock.Anything, user.ID, "deploy").Return(created, nil)

		resp := h.do(t, request{method: http.MethodPost, path: "/api/rest/tokens", bearer: "static-value",
			body: map[string]string{"name": " deploy "}})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		out := decodeBody(t, resp)["created"].(map[string]any)
		assert.Equal(t, "revealed", out["token"])
		assert.Equal(t, user.ID.String(), out["userId"])
	})

	t.Run("blank name is rejected", func(t *testing.T) {
		resp := h.do(t, request{method: http.MethodPost, path: "/api/rest/tokens", bearer: "static-value",
			body: map[string]string{"name": "  "}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("deleting someone else's token is forbidden", func(t *testing.T) {
		foreign := ulid.Make()
		h.tokens.On("DeleteByID", mock.Anything, foreign, user.ID).Return(ulid.ULID{}, auth.ErrForbidden)

		resp := h.do(t, request{method: http.MethodDelete, path: "/api/rest/tokens/" + foreign.String(), bearer: "static-value"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Forbidden", decodeBody(t, resp)["errorMessage"])
	})
}

func TestActivity(t *testing.T) {
	h := newHarness(t)
	author := testUser(auth.RoleAuthor)
	admin := testUser(auth.RoleAdmin)
	h.signedIn(author, "author")
	h.signedIn(admin, "admin")

	entries := []*auth.ActivityEntry{
		{ID: ulid.Make(), Action: auth.ActionLogin, ActionByID: &author.ID, ActionAt: fixedNow},
		{ID: ulid.Make(), Action: auth.ActionLogout, ActionByID: &author.ID, ActionAt: fixedNow},
	}

	t.Run("page metadata", func(t *testing.T) {
		h.activity.On("ListForUser", mock.Anything, author.ID, auth.Pagination{Limit: 2, Offset: 2}).Return(entries, nil).Once()
		h.activity.On("CountForUser", mock.Anything, author.ID).Return(int64(5), nil).Once()

		resp := h.do(t, request{method: http.MethodGet, path: "/api/rest/activity?limit=2&page=2", cookie: "author"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Len(t, body["activity"], 2)
		meta := body["_metadata"].(map[string]any)
		assert.Equal(t, float64(5), meta["totalCount"])
		assert.Equal(t, float64(3), meta["firstIndexOnPage"])
		assert.Equal(t, float64(4), meta["lastIndexOnPage"])
	})

	t.Run("limit is capped and empty pages omit indices", func(t *testing.T) {
		h.activity.On("ListForUser", mock.Anything, author.ID, auth.Pagination{Limit: 100, Offset: 0}).
			Return([]*auth.ActivityEntry{}, nil).Once()
		h.activity.On("CountForUser", mock.Anything, author.ID).Return(int64(0), nil).Once()

		resp := h.do(t, request{method: http.MethodGet,
			path: "/api/rest/activity?userId=" + author.ID.String() + "&limit=500", cookie: "author"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		meta := decodeBody(t, resp)["_metadata"].(map[string]any)
		assert.Equal(t, float64(0), meta["totalCount"])
		assert.NotContains(t, meta, "firstIndexOnPage")
	})

	t.Run("authors cannot read other trails", func(t *testing.T) {
		resp := h.do(t, request{method: http.MethodGet, path: "/api/rest/activity?userId=" + admin.ID.String(), cookie: "author"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admins can", func(t *testing.T) {
		h.activity.On("ListForUser", mock.Anything, author.ID, auth.Pagination{Limit: 20}).Return(entries, nil).Once()
		h.activity.On("CountForUser", mock.Anything, author.ID).Return(int64(2), nil).Once()

		resp := h.do(t, request{method: http.MethodGet, path: "/api/rest/activity?userId=" + author.ID.String(), cookie: "admin"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("bad paging", func(t *testing.T) {
		for _, q := range []string{"limit=0", "limit=x", "page=0"} {
			resp := h.do(t, request{method: http.MethodGet, path: "/api/rest/activity?" + q, cookie: "author"})
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		}
	})

	t.Run("database failure is opaque", func(t *testing.T) {
		h.activity.On("ListForUser", mock.Anything, author.ID, auth.Pagination{Limit: 20}).
			Return(nil, errors.New("relation does not exist")).Once()

		resp := h.do(t, request{method: http.MethodGet, path: "/api/rest/activity", cookie: "author"})
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Database error", decodeBody(t, resp)["errorMessage"])
	})
}
