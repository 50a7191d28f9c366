// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/mocks"
	"github.com/gatehouse/gatehouse/internal/presence"
	"github.com/gatehouse/gatehouse/internal/web"
)

var fixedNow = time.Date(2026, 7, 4, 9, 0, 0, 0, time.UTC)

type harness struct {
	users    *mocks.MockUserRepository
	tokens   *mocks.MockTokenStore
	sessions *mocks.MockSessionRepository
	activity *mocks.MockActivityRepository
	hasher   *mocks.MockCredentialHasher
	notifier *mocks.MockResetNotifier
	presence *fakePresence
	bus      *presence.Bus

	server *web.Server
	http   *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		users:    mocks.NewMockUserRepository(t),
		tokens:   mocks.NewMockTokenStore(t),
		sessions: mocks.NewMockSessionRepository(t),
		activity: mocks.NewMockActivityRepository(t),
		hasher:   mocks.NewMockCredentialHasher(t),
		notifier: mocks.NewMockResetNotifier(t),
		presence: newFakePresence(),
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	clock := auth.WithClock(func() time.Time { return fixedNow })
	tx := &mocks.InlineTransactor{}

	manager, err := auth.NewSessionManager(h.tokens, h.sessions, tx)
	require.NoError(t, err)
	recorder, err := auth.NewActivityRecorder(h.activity, logger)
	require.NoError(t, err)
	authSvc, err := auth.NewAuthService(h.users, manager, recorder, h.hasher, auth.WithLogger(logger), clock)
	require.NoError(t, err)
	resetSvc, err := auth.NewPasswordResetService(h.users, h.tokens, recorder, h.hasher, tx, h.notifier, auth.WithLogger(logger), clock)
	require.NoError(t, err)
	tokenSvc, err := auth.NewAccessTokenService(h.tokens)
	require.NoError(t, err)

	h.bus = presence.NewBus(presence.DefaultBuffer, logger)
	h.server, err = web.New(web.Deps{
		Auth:     authSvc,
		Reset:    resetSvc,
		Sessions: manager,
		Tokens:   tokenSvc,
		Activity: recorder,
		Bus:      h.bus,
		Presence: h.presence,
		Logger:   logger,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	h.http = httptest.NewServer(h.server.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.server.Shutdown(ctx)
		h.http.Close()
	})
	return h
}

// signedIn makes value resolve to user for every request.
func (h *harness) signedIn(user *auth.User, value string) {
	h.users.On("GetByActiveToken", mock.Anything, value, fixedNow).Return(user, nil)
}

func (h *harness) allowAudit() {
	h.activity.On("Create", mock.Anything, mock.Anything).Return(&auth.ActivityEntry{}, nil).Maybe()
}

type request struct {
	method string
	path   string
	body   any
	cookie string
	bearer string
}

func (h *harness) do(t *testing.T, req request) *http.Response {
	t.Helper()
	r, err := http.NewRequest(req.method, h.http.URL+req.path, jsonReader(t, req.body))
	require.NoError(t, err)
	if req.cookie != "" {
		r.AddCookie(&http.Cookie{Name: web.SessionCookieName, Value: req.cookie})
	}
	if req.bearer != "" {
		r.Header.Set("Authorization", "Bearer "+req.bearer)
	}
	resp, err := h.http.Client().Do(r)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func jsonReader(t *testing.T, body any) io.Reader {
	t.Helper()
	if body == nil {
		return http.NoBody
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == web.SessionCookieName {
			return c
		}
	}
	return nil
}

func testUser(role auth.Role) *auth.User {
	return &auth.User{
		ID:    ulid.Make(),
		Email: "a@example.com",
		Role:  role,
		Salt:  bytes.Repeat([]byte{1}, auth.SaltLength),
		Hash:  bytes.Repeat([]byte{2}, auth.CredentialLength),
	}
}

// fakePresence is an in-memory presence.Store.
type fakePresence struct {
	mu      sync.Mutex
	users   map[ulid.ULID]presence.Snapshot
	updates []presence.Status
}

func newFakePresence() *fakePresence {
	return &fakePresence{users: make(map[ulid.ULID]presence.Snapshot)}
}

func (f *fakePresence) GetPresence(_ context.Context, id ulid.ULID) (presence.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.users[id]
	if !ok {
		return presence.Snapshot{}, auth.ErrNotFound
	}
	return snap, nil
}

func (f *fakePresence) UpdateStatus(_ context.Context, id ulid.ULID, status presence.Status, lastActiveAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := f.users[id]
	snap.Status = status
	if lastActiveAt != nil {
		snap.LastActiveAt = lastActiveAt
	}
	f.users[id] = snap
	f.updates = append(f.updates, status)
	return nil
}

func (f *fakePresence) set(id ulid.ULID, snap presence.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = snap
}

func (f *fakePresence) recorded() []presence.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]presence.Status(nil), f.updates...)
}
