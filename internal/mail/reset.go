// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package mail

import (
	"bytes"
	"context"
	"html/template"
	"net/url"
	"strings"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// ResetPath is the admin page that consumes a reset token.
const ResetPath = "/admin/reset-password"

var resetTemplate = template.Must(template.New("reset").Parse(
	`<p>Reset your password by clicking this link: <a href="{{.Link}}">{{.Link}}</a></p>
<p>The link expires in {{.Minutes}} minutes. If you did not ask for a reset, ignore this email.</p>`))

// ResetMailer emails password reset links.
type ResetMailer struct {
	mailer  Mailer
	baseURL string
}

var _ auth.ResetNotifier = (*ResetMailer)(nil)

// NewResetMailer creates a ResetMailer linking to baseURL.
func NewResetMailer(mailer Mailer, baseURL string) (*ResetMailer, error) {
	if mailer == nil {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("mailer is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").With("base_url", baseURL).Errorf("base url must be an absolute url")
	}
	return &ResetMailer{mailer: mailer, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// ResetLink returns the page URL that consumes token.
func (m *ResetMailer) ResetLink(token string) string {
	return m.baseURL + ResetPath + "?token=" + url.QueryEscape(token)
}

// SendPasswordReset emails the reset link for token to email.
func (m *ResetMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	var body bytes.Buffer
	err := resetTemplate.Execute(&body, struct {
		Link    string
		Minutes int
	}{
		Link:    m.ResetLink(token),
		Minutes: int(auth.PasswordResetTokenExpiry.Minutes()),
	})
	if err != nil {
		return oops.Code("MAIL_RENDER_FAILED").Wrap(err)
	}
	return m.mailer.Send(ctx, Message{
		To:       email,
		Subject:  "Reset your password",
		HTMLBody: body.String(),
	})
}
