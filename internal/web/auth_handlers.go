// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/gatehouse/gatehouse/internal/auth"
)

type successResponse struct {
	Success  bool     `json:"success"`
	Metadata Metadata `json:"_metadata"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) httpLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.auth.Login(r.Context(), req.Email, req.Password, requestMeta(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.setSessionCookie(w, result.Token.Value)
	s.writeJSON(w, http.StatusOK, successResponse{Success: true, Metadata: s.metadata()})
}

// httpLogout always clears the cookie. An unknown token is still reported as
// not found so a replayed logout is visible to the caller.
func (s *Server) httpLogout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.clearSessionCookie(w)
	if err := s.auth.Logout(r.Context(), tokenFromRequest(r), requestMeta(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{Success: true, Metadata: s.metadata()})
}

type checkResponse struct {
	Authenticated bool     `json:"authenticated"`
	Metadata      Metadata `json:"_metadata"`
}

func (s *Server) httpAuthCheck(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := s.currentUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, checkResponse{Authenticated: user != nil, Metadata: s.metadata()})
}

type resetRequestBody struct {
	Email string `json:"email"`
}

// httpResetRequest answers success for any well-formed email, known or not.
func (s *Server) httpResetRequest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req resetRequestBody
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Email == "" {
		s.writeError(w, r, badRequest("email is required"))
		return
	}
	if err := s.reset.RequestReset(r.Context(), req.Email, requestMeta(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{Success: true, Metadata: s.metadata()})
}

type tokenCheckResponse struct {
	IsValid  bool     `json:"isValid"`
	Metadata Metadata `json:"_metadata"`
}

func (s *Server) httpResetTokenCheck(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.writeError(w, r, badRequest("token is required"))
		return
	}
	valid, err := s.reset.CheckToken(r.Context(), token)
	if err != nil && !errors.Is(err, auth.ErrNotFound) {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tokenCheckResponse{IsValid: valid, Metadata: s.metadata()})
}

type resetBody struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// httpReset reports a bad confirmation or a dead token as success=false.
func (s *Server) httpReset(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req resetBody
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	err := s.reset.ResetPassword(r.Context(), auth.PasswordReset{
		Token:           req.Token,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}, requestMeta(r))
	switch {
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, auth.ErrNotFound):
		s.writeJSON(w, http.StatusOK, successResponse{Success: false, Metadata: s.metadata()})
	case err != nil:
		s.writeError(w, r, err)
	default:
		s.writeJSON(w, http.StatusOK, successResponse{Success: true, Metadata: s.metadata()})
	}
}

type passwordChangeBody struct {
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

func (s *Server) httpChangePassword(w http.ResponseWriter, r *http.Request, ps httprouter.Params, user *auth.User) {
	target, err := parseID(ps.ByName("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req passwordChangeBody
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	err = s.auth.ChangePassword(r.Context(), auth.PasswordChange{
		ActorID:         user.ID,
		UserID:          target,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmNewPassword,
	}, requestMeta(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{Success: true, Metadata: s.metadata()})
}
