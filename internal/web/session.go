// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"net"
	"net/http"
	"strings"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// SessionCookieName is the cookie that carries the session token value.
const SessionCookieName = "session"

// tokenFromRequest returns the session cookie value, falling back to a
// bearer token for programmatic clients.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// currentUser resolves the caller. No or stale credentials yield (nil, nil).
func (s *Server) currentUser(r *http.Request) (*auth.User, error) {
	return s.auth.ResolveSession(r.Context(), tokenFromRequest(r))
}

func (s *Server) setSessionCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(auth.SessionTokenExpiry.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// requestMeta extracts the client address and user agent for the audit trail.
// The first X-Forwarded-For hop wins over the socket address.
func requestMeta(r *http.Request) auth.RequestMeta {
	var meta auth.RequestMeta
	if ua := r.UserAgent(); ua != "" {
		meta.UserAgent = &ua
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			addr := ip.String()
			meta.IPAddress = &addr
			return meta
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		addr := ip.String()
		meta.IPAddress = &addr
	}
	return meta
}
