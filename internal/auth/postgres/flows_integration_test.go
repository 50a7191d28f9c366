// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/presence"
)

type capturingNotifier struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (n *capturingNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens[email] = token
	return nil
}

func (n *capturingNotifier) tokenFor(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens[email]
}

var _ = Describe("auth flows against PostgreSQL", func() {
	var (
		ctx      context.Context
		users    *postgres.UserRepository
		tokens   *postgres.TokenRepository
		sessions *postgres.SessionRepository
		manager  *auth.SessionManager
		authSvc  *auth.AuthService
		resetSvc *auth.PasswordResetService
		notifier *capturingNotifier
		email    string
	)

	BeforeEach(func() {
		ctx = context.Background()
		users = postgres.NewUserRepository(testPool, nil)
		tokens = postgres.NewTokenRepository(testPool, nil)
		sessions = postgres.NewSessionRepository(testPool)
		tx := postgres.NewTransactor(testPool)

		var err error
		manager, err = auth.NewSessionManager(tokens, sessions, tx)
		Expect(err).NotTo(HaveOccurred())
		recorder, err := auth.NewActivityRecorder(postgres.NewActivityRepository(testPool, nil), nil)
		Expect(err).NotTo(HaveOccurred())
		hasher := auth.NewPBKDF2Hasher()
		authSvc, err = auth.NewAuthService(users, manager, recorder, hasher)
		Expect(err).NotTo(HaveOccurred())
		notifier = &capturingNotifier{tokens: map[string]string{}}
		resetSvc, err = auth.NewPasswordResetService(users, tokens, recorder, hasher, tx, notifier)
		Expect(err).NotTo(HaveOccurred())

		email = ulid.Make().String() + "@example.com"
		_, err = authSvc.CreateUser(ctx, auth.NewUser{Email: email, Password: "hunter2"})
		Expect(err).NotTo(HaveOccurred())
	})

	It("logs in, lists the device and logs out", func() {
		res, err := authSvc.Login(ctx, email, "hunter2", auth.RequestMeta{})
		Expect(err).NotTo(HaveOccurred())

		resolved, err := authSvc.ResolveSession(ctx, res.Token.Value)
		Expect(err).NotTo(HaveOccurred())
		Expect(resolved.ID).To(Equal(res.User.ID))

		list, err := manager.ListForUser(ctx, res.User.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(1))
		Expect(list[0].Session.ID).To(Equal(res.Session.ID))

		Expect(authSvc.Logout(ctx, res.Token.Value, auth.RequestMeta{})).To(Succeed())
		Expect(authSvc.Logout(ctx, res.Token.Value, auth.RequestMeta{})).To(MatchError(auth.ErrNotFound))

		var sessions int
		Expect(testPool.QueryRow(ctx, `SELECT count(*) FROM sessions WHERE id = $1`, res.Session.ID.String()).
			Scan(&sessions)).To(Succeed())
		Expect(sessions).To(BeZero())

		resolved, err = authSvc.ResolveSession(ctx, res.Token.Value)
		Expect(err).NotTo(HaveOccurred())
		Expect(resolved).To(BeNil())

		list, err = manager.ListForUser(ctx, res.User.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(BeEmpty())
	})

	It("rejects a duplicate email", func() {
		_, err := authSvc.CreateUser(ctx, auth.NewUser{Email: email, Password: "x"})
		Expect(err).To(MatchError(auth.ErrConflict))
	})

	It("deletes a session by id only for its owner", func() {
		res, err := authSvc.Login(ctx, email, "hunter2", auth.RequestMeta{})
		Expect(err).NotTo(HaveOccurred())

		Expect(manager.DeleteByIDForUser(ctx, res.Session.ID, res.User.ID)).To(Succeed())
		_, err = tokens.GetByValue(ctx, res.Token.Value)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("resets a password exactly once", func() {
		Expect(resetSvc.RequestReset(ctx, email, auth.RequestMeta{})).To(Succeed())
		value := notifier.tokenFor(email)
		Expect(value).NotTo(BeEmpty())

		valid, err := resetSvc.CheckToken(ctx, value)
		Expect(err).NotTo(HaveOccurred())
		Expect(valid).To(BeTrue())

		req := auth.PasswordReset{Token: value, Password: "correct horse", ConfirmPassword: "correct horse"}
		Expect(resetSvc.ResetPassword(ctx, req, auth.RequestMeta{})).To(Succeed())
		Expect(resetSvc.ResetPassword(ctx, req, auth.RequestMeta{})).To(MatchError(auth.ErrNotFound))

		_, err = authSvc.Login(ctx, email, "hunter2", auth.RequestMeta{})
		Expect(err).To(MatchError(auth.ErrInvalidCredentials))
		_, err = authSvc.Login(ctx, email, "correct horse", auth.RequestMeta{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("sweeps expired sessions with their tokens", func() {
		res, err := authSvc.Login(ctx, email, "hunter2", auth.RequestMeta{})
		Expect(err).NotTo(HaveOccurred())

		future := time.Now().Add(auth.SessionTokenExpiry + time.Hour)
		n, err := manager.DeleteExpired(ctx, future)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeNumerically(">=", 1))

		list, err := manager.ListForUser(ctx, res.User.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(BeEmpty())
	})

	It("persists presence and keeps last_active_at on a nil update", func() {
		u, err := users.GetByEmail(ctx, email)
		Expect(err).NotTo(HaveOccurred())

		at := time.Now().UTC().Truncate(time.Second)
		Expect(users.UpdateStatus(ctx, u.ID, presence.StatusOnline, &at)).To(Succeed())
		Expect(users.UpdateStatus(ctx, u.ID, presence.StatusAway, nil)).To(Succeed())

		snap, err := users.GetPresence(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Status).To(Equal(presence.StatusAway))
		Expect(snap.LastActiveAt).NotTo(BeNil())
		Expect(snap.LastActiveAt.Equal(at)).To(BeTrue())
	})
})
