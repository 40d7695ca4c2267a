/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package arena

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Rules is the per-game hook set the engine drives. One implementation
// exists per mini-game; the engine itself is game-agnostic.
type Rules interface {
	// MinSeats is the smallest number of filled seats the game can start
	// with; MaxSeats is how many roster entries get a seat at all.
	MinSeats() int
	MaxSeats() int

	// Start builds the initial world for one round.
	Start(seats *Seats) *World

	// Step advances the world by dt seconds using the most recent input
	// sample per seat key. Step must set RoundOver (and WinnerKey) when a
	// terminal condition is reached; the engine never un-sets it.
	Step(w *World, inputs map[string]InputPayload, dt float64)
}

// EngineConfig wires up one authoritative round.
type EngineConfig struct {
	Rules Rules
	Relay Relay
	Room  string
	Seats *Seats

	// Clock defaults to the real clock; tests inject a fake one.
	Clock clockwork.Clock

	// StepHz and SnapshotHz default to SimHz and SnapshotHz.
	StepHz     int
	SnapshotHz int

	// OnComplete fires exactly once when the round reaches terminal state.
	OnComplete func(Result)
}

// Engine is the authoritative simulation for one round. It runs only on
// the host; it is the single writer of its World. Remote input arrives via
// Handle, local input via Submit, and both obey most-recent-wins per seat.
type Engine struct {
	rules   Rules
	relay   Relay
	room    string
	seats   *Seats
	clock   clockwork.Clock
	stepHz  int
	snapHz  int
	watcher *RoundWatcher

	mu     sync.Mutex
	world  *World
	inputs map[string]InputPayload

	quit    chan struct{}
	stopped sync.Once
	started bool
}

var ErrNotReady = errors.New("arena: not enough seats filled")

func NewEngine(cfg EngineConfig) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	stepHz := cfg.StepHz
	if stepHz <= 0 {
		stepHz = SimHz
	}
	snapHz := cfg.SnapshotHz
	if snapHz <= 0 {
		snapHz = SnapshotHz
	}
	if snapHz > stepHz {
		snapHz = stepHz
	}

	return &Engine{
		rules:   cfg.Rules,
		relay:   cfg.Relay,
		room:    cfg.Room,
		seats:   cfg.Seats,
		clock:   clock,
		stepHz:  stepHz,
		snapHz:  snapHz,
		watcher: NewRoundWatcher(cfg.OnComplete),
		inputs:  make(map[string]InputPayload),
		quit:    make(chan struct{}),
	}
}

// Start initializes the world and launches the fixed-step loop. It fails
// when too few seats are filled; the round must not start in that case.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	if !e.seats.Ready(e.rules.MinSeats()) {
		return ErrNotReady
	}

	e.world = e.rules.Start(e.seats)
	e.watcher.Reset()
	e.started = true

	go e.run()
	return nil
}

// Stop cancels the loop. Safe to call more than once; always call it on
// unmount or the round keeps simulating after the host navigates away.
func (e *Engine) Stop() {
	e.stopped.Do(func() {
		close(e.quit)
	})
}

// Handle is the relay message callback. Only input messages matter to the
// engine; anything malformed or for an unknown seat is dropped silently.
func (e *Engine) Handle(env Envelope) {
	if env.Type != MsgInput {
		return
	}
	p, err := DecodePayload[InputPayload](env)
	if err != nil {
		return
	}
	e.Submit(p)
}

// Submit records the most recent input sample for a seat. There is no
// queue: delivering the same sample twice behaves exactly like once.
func (e *Engine) Submit(p InputPayload) {
	if e.seats.SeatOf(p.Key) == -1 {
		return
	}

	e.mu.Lock()
	e.inputs[p.Key] = p
	e.mu.Unlock()
}

// Snapshot returns a copy of the current world for the host's own HUD.
func (e *Engine) Snapshot() *World {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.Clone()
}

func (e *Engine) run() {
	dt := 1.0 / float64(e.stepHz)
	snapInterval := 1.0 / float64(e.snapHz)

	ticker := e.clock.NewTicker(time.Second / time.Duration(e.stepHz))
	defer ticker.Stop()

	snapAccum := 0.0

	for {
		select {
		case <-e.quit:
			return
		case <-ticker.Chan():
			done := e.step(dt)

			snapAccum += dt
			if done || snapAccum >= snapInterval {
				snapAccum = 0
				e.broadcast()
			}
			if done {
				// Outside the state lock so the callback may touch the
				// engine without deadlocking.
				e.watcher.Observe(e.Snapshot())
				return
			}
		}
	}
}

// step advances one fixed tick and reports whether the round just ended.
func (e *Engine) step(dt float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.world
	if w.RoundOver {
		return true
	}

	w.TimeLeft -= dt
	if w.TimeLeft < 0 {
		w.TimeLeft = 0
	}

	e.rules.Step(w, e.inputs, dt)
	w.Tick++

	return w.RoundOver
}

// broadcast publishes a full-replacement snapshot. Never a diff.
func (e *Engine) broadcast() {
	e.mu.Lock()
	snap := e.world.Clone()
	e.mu.Unlock()

	e.relay.Send(MsgState, e.room, snap)
}

// ClampIntent bounds an input vector to unit magnitude, protecting the
// simulation from senders that skip uplink normalization.
func ClampIntent(ax, ay float64) (float64, float64) {
	mag := math.Hypot(ax, ay)
	if mag > 1 {
		return ax / mag, ay / mag
	}
	return ax, ay
}
