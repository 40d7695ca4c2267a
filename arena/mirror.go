/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package arena

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Mirror is every non-host participant's read-only view of the round. It
// holds nothing but the last snapshot received: no physics, no prediction,
// no merging. A snapshot whose tick is not newer than the last applied one
// is discarded, so late-arriving stale state can never roll the view back.
type Mirror struct {
	clock      clockwork.Clock
	staleAfter time.Duration
	watcher    *RoundWatcher

	mu         sync.RWMutex
	last       *World
	receivedAt time.Time
}

// NewMirror builds a mirror for one round. Clock may be nil for the real
// clock; onComplete may be nil when the caller does not care about round
// end (it otherwise fires exactly once, same contract as the host side).
func NewMirror(clock clockwork.Clock, onComplete func(Result)) *Mirror {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Mirror{
		clock:      clock,
		staleAfter: StaleAfter,
		watcher:    NewRoundWatcher(onComplete),
		receivedAt: clock.Now(),
	}
}

// Handle is the relay message callback. Non-state and malformed messages
// are dropped silently; they must never surface into the render loop.
func (m *Mirror) Handle(env Envelope) {
	if env.Type != MsgState {
		return
	}
	w, err := DecodePayload[World](env)
	if err != nil {
		return
	}
	m.Apply(&w)
}

// Apply replaces the view with a newer snapshot. Returns false when the
// snapshot was stale (tick not greater than the last applied tick).
func (m *Mirror) Apply(w *World) bool {
	m.mu.Lock()
	if m.last != nil && w.Tick <= m.last.Tick {
		m.mu.Unlock()
		return false
	}
	m.last = w
	m.receivedAt = m.clock.Now()
	m.mu.Unlock()

	m.watcher.Observe(w)
	return true
}

// Snapshot returns the last applied world, or nil before the first one.
// Callers must treat it as read-only.
func (m *Mirror) Snapshot() *World {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Stalled reports whether no snapshot has arrived within the staleness
// window, so the UI can show a "connection stalled" indicator instead of
// freezing silently. Once the round is over the host legitimately stops
// sending, so a finished round is never stalled.
func (m *Mirror) Stalled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.last != nil && m.last.RoundOver {
		return false
	}
	return m.clock.Now().Sub(m.receivedAt) > m.staleAfter
}
