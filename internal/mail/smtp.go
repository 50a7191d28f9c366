// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// implicitTLSPort is the submission port that expects TLS from the first byte.
const implicitTLSPort = 465

// SMTPConfig configures an SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPMailer sends mail through an SMTP relay. Port 465 uses implicit TLS;
// other ports upgrade with STARTTLS when the server offers it.
type SMTPMailer struct {
	cfg    SMTPConfig
	from   netmail.Address
	logger *slog.Logger
	now    func() time.Time
	dialer *net.Dialer
}

// NewSMTPMailer validates cfg and creates an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig, logger *slog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	from, err := netmail.ParseAddress(cfg.From)
	if err != nil {
		return nil, oops.Code("MAIL_INVALID_CONFIG").With("from", cfg.From).Wrap(err)
	}
	if cfg.FromName != "" {
		from.Name = cfg.FromName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPMailer{
		cfg:    cfg,
		from:   *from,
		logger: logger,
		now:    time.Now,
		dialer: &net.Dialer{Timeout: 10 * time.Second},
	}, nil
}

// Send delivers msg.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	to, err := netmail.ParseAddress(msg.To)
	if err != nil {
		return oops.Code("MAIL_INVALID_RECIPIENT").Wrap(err)
	}
	body := buildMessage(m.from, *to, msg, m.now())

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	conn, err := m.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return oops.Code("MAIL_CONNECT_FAILED").With("addr", addr).Wrap(err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline) //nolint:errcheck // best effort on a fresh conn
	}

	tlsCfg := &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}
	if m.cfg.Port == implicitTLSPort {
		conn = tls.Client(conn, tlsCfg)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return oops.Code("MAIL_CONNECT_FAILED").With("addr", addr).Wrap(err)
	}
	defer client.Close() //nolint:errcheck // Quit already reported the meaningful error

	if m.cfg.Port != implicitTLSPort {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsCfg); err != nil {
				return oops.Code("MAIL_TLS_FAILED").Wrap(err)
			}
		}
	}
	if m.cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
			if err := client.Auth(auth); err != nil {
				return oops.Code("MAIL_AUTH_FAILED").Wrap(err)
			}
		}
	}

	if err := client.Mail(m.from.Address); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("step", "mail from").Wrap(err)
	}
	if err := client.Rcpt(to.Address); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("step", "rcpt to").Wrap(err)
	}
	w, err := client.Data()
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("step", "data").Wrap(err)
	}
	if _, err := w.Write(body); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("step", "write body").Wrap(err)
	}
	if err := w.Close(); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("step", "end data").Wrap(err)
	}
	if err := client.Quit(); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("step", "quit").Wrap(err)
	}

	m.logger.InfoContext(ctx, "mail sent", "to", to.Address, "subject", msg.Subject)
	return nil
}

// buildMessage renders the RFC 5322 message with CRLF line endings.
func buildMessage(from, to netmail.Address, msg Message, now time.Time) []byte {
	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	header("From", from.String())
	header("To", to.String())
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", ulid.Make().String(), domainOf(from.Address)))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	b.WriteString(msg.HTMLBody)
	return b.Bytes()
}

func domainOf(address string) string {
	for i := len(address) - 1; i >= 0; i-- {
		if address[i] == '@' {
			return address[i+1:]
		}
	}
	return "localhost"
}
