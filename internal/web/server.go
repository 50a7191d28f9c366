// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package web is the HTTP boundary of gatehouse: routing, session cookies,
// JSON envelopes, error mapping and the presence websocket endpoints.
package web

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/presence"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// Deps are the collaborators a Server routes to.
type Deps struct {
	Auth     *auth.AuthService
	Reset    *auth.PasswordResetService
	Sessions *auth.SessionManager
	Tokens   *auth.AccessTokenService
	Activity *auth.ActivityRecorder

	Bus      *presence.Bus
	Presence presence.Store

	// Metrics is optional.
	Metrics *observability.Metrics
	Logger  *slog.Logger

	// CookieSecure marks the session cookie Secure. Enable behind TLS.
	CookieSecure bool
	// AnnounceOnline makes self-reporters publish Online on connect.
	AnnounceOnline bool
	Now            func() time.Time
}

// Server serves the REST and websocket API.
type Server struct {
	auth     *auth.AuthService
	reset    *auth.PasswordResetService
	sessions *auth.SessionManager
	tokens   *auth.AccessTokenService
	activity *auth.ActivityRecorder
	bus      *presence.Bus
	presence presence.Store
	metrics  *observability.Metrics
	logger   *slog.Logger

	cookieSecure   bool
	announceOnline bool
	now            func() time.Time

	router     *httprouter.Router
	wsUpgrader websocket.Upgrader

	// baseCtx outlives requests so Shutdown can end hijacked websocket sessions.
	baseCtx    context.Context
	cancelBase context.CancelFunc
	wsMu       sync.Mutex
	wsWG       sync.WaitGroup
}

// New builds a Server and its routes.
func New(d Deps) (*Server, error) {
	switch {
	case d.Auth == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("auth service is required")
	case d.Reset == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("password reset service is required")
	case d.Sessions == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("session manager is required")
	case d.Tokens == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("access token service is required")
	case d.Activity == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("activity recorder is required")
	case d.Bus == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("presence bus is required")
	case d.Presence == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("presence store is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		auth:           d.Auth,
		reset:          d.Reset,
		sessions:       d.Sessions,
		tokens:         d.Tokens,
		activity:       d.Activity,
		bus:            d.Bus,
		presence:       d.Presence,
		metrics:        d.Metrics,
		logger:         d.Logger,
		cookieSecure:   d.CookieSecure,
		announceOnline: d.AnnounceOnline,
		now:            d.Now,
		router:         httprouter.New(),
		baseCtx:        baseCtx,
		cancelBase:     cancel,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.handle(http.MethodPost, "/api/rest/auth/login", s.httpLogin)
	s.handle(http.MethodPost, "/api/rest/auth/logout", s.httpLogout)
	s.handle(http.MethodGet, "/api/rest/auth/check", s.httpAuthCheck)

	s.handle(http.MethodPost, "/api/rest/password_reset/request", s.httpResetRequest)
	s.handle(http.MethodGet, "/api/rest/password_reset/token_check", s.httpResetTokenCheck)
	s.handle(http.MethodPost, "/api/rest/password_reset/reset", s.httpReset)

	s.handle(http.MethodGet, "/api/rest/sessions", s.authenticated(s.httpListSessions))
	s.handle(http.MethodDelete, "/api/rest/sessions/:session_id", s.authenticated(s.httpDeleteSession))

	s.handle(http.MethodGet, "/api/rest/tokens", s.authenticated(s.httpListTokens))
	s.handle(http.MethodPost, "/api/rest/tokens", s.authenticated(s.httpCreateToken))
	s.handle(http.MethodDelete, "/api/rest/tokens/:token_id", s.authenticated(s.httpDeleteToken))

	s.handle(http.MethodGet, "/api/rest/activity", s.authenticated(s.httpListActivity))
	s.handle(http.MethodPut, "/api/rest/users/:id/password", s.authenticated(s.httpChangePassword))

	s.handle(http.MethodGet, "/api/ws/user/status", s.httpWSUserStatus)
	s.handle(http.MethodGet, "/api/ws/user/me/status", s.authenticated(s.httpWSMyStatus))
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Shutdown ends every live websocket session and waits for their Offline
// cleanup, or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsMu.Lock()
	s.cancelBase()
	s.wsMu.Unlock()
	done := make(chan struct{})
	go func() {
		s.wsWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return oops.Code("WEB_SHUTDOWN_TIMEOUT").Wrap(ctx.Err())
	}
}

// handle registers a route wrapped with request id, panic recovery and metrics.
func (s *Server) handle(method, path string, h httprouter.Handle) {
	s.router.Handle(method, path, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(logging.WithRequestID(r.Context(), id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				s.logger.ErrorContext(r.Context(), "handler panicked", "path", r.URL.Path, "panic", p)
				if !rec.wroteHeader {
					s.writeError(rec, r, auth.InternalError("unexpected server error", nil))
				}
			}
			s.metrics.ObserveRequest(path, method, rec.status, time.Since(start))
		}()
		h(rec, r, ps)
	})
}

// authedHandle is a handler that runs only for a resolved user.
type authedHandle func(w http.ResponseWriter, r *http.Request, ps httprouter.Params, user *auth.User)

// authenticated resolves the caller once and passes the user explicitly.
func (s *Server) authenticated(h authedHandle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		user, err := s.currentUser(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if user == nil {
			s.writeError(w, r, oops.Code("WEB_UNAUTHORIZED").Wrap(auth.ErrUnauthorized))
			return
		}
		h(w, r, ps, user)
	}
}

// Metadata accompanies every JSON response.
type Metadata struct {
	TotalCount       *int64 `json:"totalCount,omitempty"`
	FirstIndexOnPage *int64 `json:"firstIndexOnPage,omitempty"`
	LastIndexOnPage  *int64 `json:"lastIndexOnPage,omitempty"`
	Timestamp        int64  `json:"timestamp"`
}

func (s *Server) metadata() Metadata {
	return Metadata{Timestamp: s.now().Unix()}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("writing response failed", "error", err)
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return badRequest("malformed request body: %v", err)
	}
	return nil
}

// statusRecorder captures the response status for metrics and stays
// hijackable for websocket upgrades.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	r.wroteHeader = true
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
