// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"log/slog"
	"time"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/mail"
)

// services is the wired auth core over one database pool.
type services struct {
	users    *postgres.UserRepository
	sessions *auth.SessionManager
	activity *auth.ActivityRecorder
	auth     *auth.AuthService
	reset    *auth.PasswordResetService
	tokens   *auth.AccessTokenService
}

// buildServices wires repositories and services over pool.
func buildServices(pool postgres.Pool, notifier auth.ResetNotifier, logger *slog.Logger) (*services, error) {
	now := time.Now
	users := postgres.NewUserRepository(pool, now)
	tokenRepo := postgres.NewTokenRepository(pool, now)
	tx := postgres.NewTransactor(pool)

	manager, err := auth.NewSessionManager(tokenRepo, postgres.NewSessionRepository(pool), tx)
	if err != nil {
		return nil, err
	}
	recorder, err := auth.NewActivityRecorder(postgres.NewActivityRepository(pool, now), logger)
	if err != nil {
		return nil, err
	}
	hasher := auth.NewPBKDF2Hasher()

	authSvc, err := auth.NewAuthService(users, manager, recorder, hasher, auth.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	resetSvc, err := auth.NewPasswordResetService(users, tokenRepo, recorder, hasher, tx, notifier, auth.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	tokenSvc, err := auth.NewAccessTokenService(tokenRepo)
	if err != nil {
		return nil, err
	}
	return &services{
		users:    users,
		sessions: manager,
		activity: recorder,
		auth:     authSvc,
		reset:    resetSvc,
		tokens:   tokenSvc,
	}, nil
}

// newResetNotifier delivers reset links over SMTP when a host is configured
// and to the log otherwise.
func newResetNotifier(cfg *config.Config, logger *slog.Logger) (*mail.ResetMailer, error) {
	var mailer mail.Mailer = mail.NewLogMailer(logger)
	if cfg.SMTP.Host != "" {
		smtp, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		}, logger)
		if err != nil {
			return nil, err
		}
		mailer = smtp
	}
	return mail.NewResetMailer(mailer, cfg.BaseURL)
}
