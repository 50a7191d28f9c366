// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package presence

import (
	"log/slog"
	"sync"
)

// DefaultBuffer is the per-subscriber buffer when none is configured.
const DefaultBuffer = 100

// Bus fans presence events out to every subscriber. Publishing never blocks:
// a subscriber whose buffer is full loses its oldest buffered event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	logger *slog.Logger
}

// Subscription is one receive handle on the bus.
type Subscription struct {
	// C delivers events in publish order. It is closed by Close.
	C <-chan Event

	ch   chan Event
	bus  *Bus
	once sync.Once
}

// NewBus creates a bus with the given per-subscriber buffer.
// A non-positive buffer selects DefaultBuffer.
func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe creates an independent receive handle.
func (b *Bus) Subscribe() *Subscription {
	ch := make(chan Event, b.buffer)
	sub := &Subscription{C: ch, ch: ch, bus: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub] = struct{}{}
	return sub
}

// Close removes the subscription and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		delete(s.bus.subs, s)
		close(s.ch)
	})
}

// Publish delivers event to all current subscribers. With no subscribers it
// does nothing.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		b.deliver(sub.ch, event)
	}
}

// deliver sends without blocking, evicting the oldest buffered event when full.
// Holding the read lock keeps ch open for the duration.
func (b *Bus) deliver(ch chan Event, event Event) {
	for {
		select {
		case ch <- event:
			return
		default:
		}
		select {
		case dropped := <-ch:
			EventsDropped.Inc()
			b.logger.Debug("presence event dropped: subscriber lagging",
				"user_id", dropped.UserID.String(),
				"status", dropped.Status.String(),
			)
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
