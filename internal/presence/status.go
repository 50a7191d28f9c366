// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package presence

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Status is a user's presence.
type Status int

// Presence states.
const (
	StatusOffline Status = iota
	StatusOnline
	StatusAway
	StatusDoNotDisturb
)

var statusNames = [...]string{
	StatusOffline:      "offline",
	StatusOnline:       "online",
	StatusAway:         "away",
	StatusDoNotDisturb: "do_not_disturb",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// ParseStatus parses the lower-snake-case wire form.
func ParseStatus(v string) (Status, error) {
	for i, name := range statusNames {
		if name == v {
			return Status(i), nil
		}
	}
	return StatusOffline, oops.Code("PRESENCE_UNKNOWN_STATUS").
		With("status", v).
		Errorf("unknown status %q", v)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(statusNames) {
		return nil, oops.Code("PRESENCE_UNKNOWN_STATUS").Errorf("unknown status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Active reports whether the status counts as recent activity.
func (s Status) Active() bool {
	return s == StatusOnline || s == StatusAway || s == StatusDoNotDisturb
}

// RefreshesLastActive reports whether moving from prev to next updates
// last_active_at: any active status does, and so does going offline from one.
func RefreshesLastActive(prev, next Status) bool {
	if next.Active() {
		return true
	}
	return next == StatusOffline && prev.Active()
}

// Event is a status change on the bus.
type Event struct {
	UserID ulid.ULID
	Status Status
	// Origin is the session that published the event, zero if none.
	Origin ulid.ULID
}
