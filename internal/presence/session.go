// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// Role selects what a session does with its user.
type Role int

// Session roles.
const (
	// RoleObserver watches another user's status.
	RoleObserver Role = iota
	// RoleSelfReporter publishes and persists the connection owner's status.
	RoleSelfReporter
)

func (r Role) String() string {
	if r == RoleSelfReporter {
		return "self_reporter"
	}
	return "observer"
}

// State is the lifecycle position of a session.
type State int32

// Session states, in order.
const (
	StateConnecting State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// offlineTimeout bounds the Offline write after the connection is gone.
const offlineTimeout = 5 * time.Second

// Conn is a message-oriented peer connection. *websocket.Conn satisfies it.
// ReadJSON must unblock with an error once Close is called.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Snapshot is a user's stored presence.
type Snapshot struct {
	Status       Status
	LastActiveAt *time.Time
}

// Store reads and persists presence on the user record.
type Store interface {
	GetPresence(ctx context.Context, userID ulid.ULID) (Snapshot, error)
	// UpdateStatus persists status. A nil lastActiveAt leaves the stored value.
	UpdateStatus(ctx context.Context, userID ulid.ULID, status Status, lastActiveAt *time.Time) error
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Role Role
	// UserID is the watched user for observers and the owner for self-reporters.
	UserID ulid.ULID
	// AnnounceOnline makes a self-reporter publish Online as soon as it is active.
	AnnounceOnline bool
	Logger         *slog.Logger
	Now            func() time.Time
}

// StatusFrame is the outbound status message.
type StatusFrame struct {
	OnlineStatus Status     `json:"onlineStatus"`
	LastActiveAt *time.Time `json:"lastActiveAt,omitempty"`
}

// ErrorFrame reports a rejected inbound message without ending the session.
type ErrorFrame struct {
	ErrorMessage string `json:"errorMessage"`
}

type inboundFrame struct {
	OnlineStatus string `json:"onlineStatus"`
}

// errSubscriptionClosed ends the forward duty when the bus drops the subscription.
var errSubscriptionClosed = errors.New("presence subscription closed")

// Session binds one live connection to the bus.
type Session struct {
	id     ulid.ULID
	cfg    SessionConfig
	bus    *Bus
	store  Store
	conn   Conn
	logger *slog.Logger

	state   atomic.Int32
	writeMu sync.Mutex

	// current is the status last persisted by a self-reporter. Only the read
	// duty touches it while active; teardown reads it after both duties end.
	current Status
}

// NewSession creates a session in StateConnecting.
func NewSession(bus *Bus, store Store, conn Conn, cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	id := ulid.Make()
	return &Session{
		id:     id,
		cfg:    cfg,
		bus:    bus,
		store:  store,
		conn:   conn,
		logger: cfg.Logger.With("presence_session", id.String(), "role", cfg.Role.String(), "user_id", cfg.UserID.String()),
	}
}

// ID returns the session's origin id stamped on the events it publishes.
func (s *Session) ID() ulid.ULID { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Run drives the session until the peer goes away, the forward path fails,
// or ctx is cancelled. The connection is always closed on return and a
// self-reporter always leaves its user Offline. The returned error is the
// cause that ended the session.
func (s *Session) Run(ctx context.Context) error {
	sub := s.bus.Subscribe()
	defer sub.Close()

	Connections.WithLabelValues(s.cfg.Role.String()).Inc()
	defer Connections.WithLabelValues(s.cfg.Role.String()).Dec()

	if err := s.greet(ctx); err != nil {
		s.setState(StateClosing)
		_ = s.conn.Close() //nolint:errcheck // teardown, peer may already be gone
		s.teardown(ctx)
		return err
	}
	s.setState(StateActive)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 2)
	go func() { done <- s.readLoop(runCtx) }()
	go func() { done <- s.forwardLoop(runCtx, sub) }()

	cause := <-done
	s.setState(StateClosing)
	cancel()
	_ = s.conn.Close() //nolint:errcheck // unblocks the read duty
	<-done

	s.teardown(ctx)
	s.logger.Debug("presence session ended", "cause", cause)
	return cause
}

// greet sends the first frame and loads the starting status.
func (s *Session) greet(ctx context.Context) error {
	snap, err := s.store.GetPresence(ctx, s.cfg.UserID)

	if s.cfg.Role == RoleObserver {
		if err != nil {
			return oops.Code("PRESENCE_SNAPSHOT_FAILED").
				With("user_id", s.cfg.UserID.String()).
				Wrap(err)
		}
		return s.write(StatusFrame{OnlineStatus: snap.Status, LastActiveAt: snap.LastActiveAt})
	}

	if err != nil {
		errutil.LogErrorLevel(ctx, s.logger, slog.LevelWarn, "loading presence failed", err)
		snap = Snapshot{Status: StatusOffline}
	}
	s.current = snap.Status

	if err := s.write(s.cfg.UserID.String()); err != nil {
		return err
	}
	if s.cfg.AnnounceOnline {
		s.apply(ctx, StatusOnline)
	}
	return nil
}

// readLoop consumes inbound frames. Observers ignore their content and only
// notice the peer going away.
func (s *Session) readLoop(ctx context.Context) error {
	for {
		var in inboundFrame
		if err := s.conn.ReadJSON(&in); err != nil {
			return oops.Code("PRESENCE_READ_FAILED").Wrap(err)
		}
		if s.cfg.Role != RoleSelfReporter {
			continue
		}

		status, err := ParseStatus(in.OnlineStatus)
		if err != nil {
			if werr := s.write(ErrorFrame{ErrorMessage: err.Error()}); werr != nil {
				return werr
			}
			continue
		}
		s.apply(ctx, status)
	}
}

// forwardLoop relays matching bus events to the peer.
func (s *Session) forwardLoop(ctx context.Context, sub *Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.C:
			if !ok {
				return errSubscriptionClosed
			}
			if !s.wants(ev) {
				continue
			}
			if err := s.write(StatusFrame{OnlineStatus: ev.Status}); err != nil {
				return err
			}
		}
	}
}

// wants filters events to the session's user. A self-reporter skips its own echoes.
func (s *Session) wants(ev Event) bool {
	if ev.UserID != s.cfg.UserID {
		return false
	}
	return s.cfg.Role == RoleObserver || ev.Origin != s.id
}

// apply persists a self-reported status and publishes it. A persistence
// failure is logged and the event is still published.
func (s *Session) apply(ctx context.Context, status Status) {
	var lastActive *time.Time
	if RefreshesLastActive(s.current, status) {
		now := s.cfg.Now().UTC()
		lastActive = &now
	}
	if err := s.store.UpdateStatus(ctx, s.cfg.UserID, status, lastActive); err != nil {
		errutil.LogErrorLevel(ctx, s.logger, slog.LevelWarn, "persisting presence failed", err,
			"status", status.String())
	}
	s.current = status
	s.bus.Publish(Event{UserID: s.cfg.UserID, Status: status, Origin: s.id})
}

// teardown moves to Closed, forcing a self-reporter's user Offline first.
func (s *Session) teardown(ctx context.Context) {
	if s.cfg.Role == RoleSelfReporter {
		offCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), offlineTimeout)
		s.apply(offCtx, StatusOffline)
		cancel()
	}
	s.setState(StateClosed)
}

func (s *Session) write(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(v); err != nil {
		return oops.Code("PRESENCE_WRITE_FAILED").Wrap(err)
	}
	return nil
}
