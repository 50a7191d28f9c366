// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package mail delivers outbound email.
package mail

import (
	"context"
	"log/slog"
)

// Message is one HTML email to a single recipient.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer records that a message would have been sent. It is used when no
// SMTP host is configured. Bodies are not logged since they carry tokens.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer. A nil logger uses slog.Default().
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send logs the recipient and subject.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "mail not delivered, no smtp host configured",
		"to", msg.To,
		"subject", msg.Subject)
	return nil
}
