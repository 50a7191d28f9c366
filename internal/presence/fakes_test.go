// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package presence_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/presence"
)

var errConnClosed = errors.New("connection closed")

// fakeConn is an in-memory peer. Tests push inbound frames with send and
// read outbound frames with next.
type fakeConn struct {
	in        chan []byte
	out       chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	inOnce    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadJSON(v any) error {
	select {
	case b, ok := <-c.in:
		if !ok {
			return io.EOF
		}
		return json.Unmarshal(b, v)
	case <-c.closed:
		return errConnClosed
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.out <- b:
		return nil
	case <-c.closed:
		return errConnClosed
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// send queues a raw inbound frame.
func (c *fakeConn) send(raw string) { c.in <- []byte(raw) }

// hangUp simulates the peer closing the connection.
func (c *fakeConn) hangUp() { c.inOnce.Do(func() { close(c.in) }) }

func (c *fakeConn) next(t *testing.T) string {
	t.Helper()
	select {
	case b := <-c.out:
		return string(b)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for outbound frame")
		return ""
	}
}

func (c *fakeConn) expectNothing(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case b := <-c.out:
		t.Fatalf("unexpected frame: %s", b)
	case <-time.After(wait):
	}
}

type statusUpdate struct {
	UserID       ulid.ULID
	Status       presence.Status
	LastActiveAt *time.Time
}

type fakeStore struct {
	mu        sync.Mutex
	snapshots map[ulid.ULID]presence.Snapshot
	updates   []statusUpdate
	getErr    error
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{snapshots: make(map[ulid.ULID]presence.Snapshot)}
}

func (s *fakeStore) GetPresence(_ context.Context, userID ulid.ULID) (presence.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return presence.Snapshot{}, s.getErr
	}
	return s.snapshots[userID], nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, userID ulid.ULID, status presence.Status, lastActiveAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, statusUpdate{UserID: userID, Status: status, LastActiveAt: lastActiveAt})
	if s.updateErr != nil {
		return s.updateErr
	}
	snap := s.snapshots[userID]
	snap.Status = status
	if lastActiveAt != nil {
		snap.LastActiveAt = lastActiveAt
	}
	s.snapshots[userID] = snap
	return nil
}

func (s *fakeStore) set(userID ulid.ULID, snap presence.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[userID] = snap
}

func (s *fakeStore) snapshot(userID ulid.ULID) presence.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots[userID]
}

func (s *fakeStore) recorded() []statusUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]statusUpdate(nil), s.updates...)
}

// running is a session executing in the background.
type running struct {
	session *presence.Session
	conn    *fakeConn
	done    chan error
}

func start(ctx context.Context, bus *presence.Bus, store presence.Store, cfg presence.SessionConfig) *running {
	conn := newFakeConn()
	r := &running{
		session: presence.NewSession(bus, store, conn, cfg),
		conn:    conn,
		done:    make(chan error, 1),
	}
	go func() { r.done <- r.session.Run(ctx) }()
	return r
}

func (r *running) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.done:
		require.Equal(t, presence.StateClosed, r.session.State())
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}
