// Package signal implements the Subscription/Signal Bus (spec.md §4.5):
// a per-resource current-value broadcast with last-value semantics and
// no backpressure on the producer.
//
// The teacher's pkg/events.Broker buffers events in a channel and drops
// them on a full per-subscriber buffer; that is an event log with
// best-effort delivery. A resource's output state is not an event log —
// only the latest value is ever semantically meaningful (spec.md §4.5
// rationale) — so this package replaces the buffered-channel broadcast
// with a single current-value slot plus a version counter: Set never
// blocks, and a subscriber that calls Next after several Sets observes
// only the latest value, never a backlog.
package signal

import (
	"context"
	"sync"

	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/value"
)

// Signal is a single resource's output-state broadcast. The zero value
// is not usable; construct with New.
type Signal struct {
	mu       sync.Mutex
	current  value.State
	hasValue bool
	version  uint64
	closed   bool
	ready    chan struct{}
}

// New returns an empty Signal with no current value.
func New() *Signal {
	return &Signal{ready: make(chan struct{})}
}

// Set replaces the current value and wakes all parked subscribers. It
// never blocks on a slow or absent consumer.
func (s *Signal) Set(v value.State) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.current = v
	s.hasValue = true
	s.version++
	old := s.ready
	s.ready = make(chan struct{})
	s.mu.Unlock()
	close(old)
}

// Close terminates the Signal; all existing and future Subscriptions'
// Next calls return ErrClosed once they have delivered any value set
// before Close. Close does not discard the last value — Current still
// returns it — only Next transitions to returning the closed error.
func (s *Signal) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	old := s.ready
	s.mu.Unlock()
	close(old)
}

// Current returns the latest value and whether one has ever been Set.
func (s *Signal) Current() (value.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.hasValue
}

// Subscribe returns a Subscription observing this Signal's value as of
// subscribe time plus all subsequent values (spec.md §4.5). Dropping a
// Subscription (simply letting it be garbage collected) never affects
// the Signal or other subscribers.
func (s *Signal) Subscribe() *Subscription {
	return &Subscription{sig: s}
}

// Subscription is one consumer's view of a Signal.
type Subscription struct {
	sig         *Signal
	lastVersion uint64
	started     bool
}

// Next blocks until a new value is available (or the value present at
// subscribe time, on the first call), returning it. If several values
// were Set between calls, only the latest is returned — older ones are
// coalesced away, never queued. Next returns bffherr.ErrClosed once the
// Signal is closed and every value Set before the close has already
// been delivered.
func (sub *Subscription) Next(ctx context.Context) (value.State, error) {
	s := sub.sig
	for {
		s.mu.Lock()
		if s.hasValue && (!sub.started || s.version != sub.lastVersion) {
			v := s.current
			sub.lastVersion = s.version
			sub.started = true
			s.mu.Unlock()
			return v, nil
		}
		if s.closed {
			s.mu.Unlock()
			return value.State{}, bffherr.ErrClosed
		}
		ready := s.ready
		s.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return value.State{}, ctx.Err()
		}
	}
}
