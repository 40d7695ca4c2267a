package sumo

import (
	"math"
	"testing"

	"github.com/Seednode/arenabox/arena"
)

const dt = 1.0 / 60

func startRound(t *testing.T) (*Rules, *arena.World) {
	t.Helper()

	seats := arena.ResolveSeats([]arena.RosterPlayer{
		{UserID: "u1"},
		{UserID: "u2"},
	}, 2)

	rules := New()
	return rules, rules.Start(seats)
}

func TestStartSpawnsFacingPlayers(t *testing.T) {
	_, w := startRound(t)

	if len(w.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(w.Players))
	}
	if w.TimeLeft != RoundTime {
		t.Fatalf("TimeLeft = %v, want %v", w.TimeLeft, RoundTime)
	}

	cx, cy := ArenaWidth/2, ArenaHeight/2
	for i, p := range w.Players {
		if !p.Alive || p.R != PlayerRadius || p.Y != cy {
			t.Fatalf("player %d badly spawned: %+v", i, p)
		}
	}
	if w.Players[0].X != cx-spawnOffset || w.Players[1].X != cx+spawnOffset {
		t.Fatalf("spawn positions %v, %v", w.Players[0].X, w.Players[1].X)
	}
}

func TestStepAcceleratesTowardIntent(t *testing.T) {
	rules, w := startRound(t)
	startX := w.Players[0].X

	inputs := map[string]arena.InputPayload{
		"u1": {Key: "u1", AX: 1},
	}
	rules.Step(w, inputs, dt)

	p := w.Players[0]
	if p.VX <= 0 {
		t.Fatalf("no rightward velocity after rightward intent: %v", p.VX)
	}
	if p.X <= startX {
		t.Fatalf("player did not move right: %v -> %v", startX, p.X)
	}
	if w.Players[1].VX != 0 || w.Players[1].VY != 0 {
		t.Fatalf("idle player moved: %+v", w.Players[1])
	}
}

func TestApplyInputClampsSpeed(t *testing.T) {
	p := &arena.Body{Alive: true, VX: maxSpeed, R: PlayerRadius}

	applyInput(p, 1, 0)

	if speed := math.Hypot(p.VX, p.VY); speed > maxSpeed+1e-9 {
		t.Fatalf("speed exceeded cap: %v", speed)
	}
}

func TestIntegrateAppliesFrictionAndRest(t *testing.T) {
	p := &arena.Body{Alive: true, X: 100, Y: 100, VX: 2, VY: 0, R: PlayerRadius}

	integrate(p)

	if p.X != 102 {
		t.Fatalf("position not advanced by velocity: %v", p.X)
	}
	if p.VX != 2*friction {
		t.Fatalf("friction not applied: %v", p.VX)
	}

	p.VX = restThresh / 2
	integrate(p)
	if p.VX != 0 {
		t.Fatalf("sub-threshold velocity not zeroed: %v", p.VX)
	}
}

func TestResolveCollisionSeparatesAndPushes(t *testing.T) {
	a := &arena.Body{Key: "u1", Alive: true, X: 100, Y: 100, VX: 3, R: PlayerRadius}
	b := &arena.Body{Key: "u2", Alive: true, X: 100 + PlayerRadius, Y: 100, R: PlayerRadius}

	resolveCollision(a, b)

	dist := math.Hypot(b.X-a.X, b.Y-a.Y)
	if dist < a.R+b.R-1e-9 {
		t.Fatalf("players still overlapping, dist = %v", dist)
	}
	if b.VX <= 0 {
		t.Fatalf("hit player got no push: %v", b.VX)
	}
	if a.VX >= 3 {
		t.Fatalf("pusher kept full speed: %v", a.VX)
	}
}

func TestResolveCollisionIgnoresSeparating(t *testing.T) {
	a := &arena.Body{Key: "u1", Alive: true, X: 100, Y: 100, VX: -1, R: PlayerRadius}
	b := &arena.Body{Key: "u2", Alive: true, X: 100 + PlayerRadius, Y: 100, VX: 1, R: PlayerRadius}

	resolveCollision(a, b)

	if a.VX != -1 || b.VX != 1 {
		t.Fatalf("separating pair received an impulse: %v, %v", a.VX, b.VX)
	}
}

func TestRingOutEliminatesAndEndsRound(t *testing.T) {
	rules, w := startRound(t)
	cx, cy := ArenaWidth/2, ArenaHeight/2

	// Put u1 just past the playable boundary.
	w.Players[0].X = cx + (ArenaRadius - PlayerRadius) + 1
	w.Players[0].Y = cy

	rules.Step(w, nil, dt)

	if w.Players[0].Alive {
		t.Fatalf("player outside the ring still alive")
	}
	if !w.RoundOver || w.WinnerKey != "u2" {
		t.Fatalf("round not ended for survivor: over=%v winner=%q", w.RoundOver, w.WinnerKey)
	}
}

func TestDoubleRingOutHasNoWinner(t *testing.T) {
	rules, w := startRound(t)
	cx, cy := ArenaWidth/2, ArenaHeight/2

	for i := range w.Players {
		w.Players[i].Y = cy
	}
	w.Players[0].X = cx - ArenaRadius - 1
	w.Players[1].X = cx + ArenaRadius + 1

	rules.Step(w, nil, dt)

	if !w.RoundOver || w.WinnerKey != "" {
		t.Fatalf("expected drawn round: over=%v winner=%q", w.RoundOver, w.WinnerKey)
	}
}

func TestTimeoutClosestToCentreWins(t *testing.T) {
	rules, w := startRound(t)
	cx, cy := ArenaWidth/2, ArenaHeight/2

	w.TimeLeft = 0
	w.Players[0].X, w.Players[0].Y = cx+10, cy
	w.Players[1].X, w.Players[1].Y = cx+50, cy

	rules.Step(w, nil, dt)

	if !w.RoundOver || w.WinnerKey != "u1" {
		t.Fatalf("timeout winner: over=%v winner=%q", w.RoundOver, w.WinnerKey)
	}
}

func TestTimeoutExactTieHasNoWinner(t *testing.T) {
	rules, w := startRound(t)
	cx, cy := ArenaWidth/2, ArenaHeight/2

	w.TimeLeft = 0
	w.Players[0].X, w.Players[0].Y = cx-30, cy
	w.Players[1].X, w.Players[1].Y = cx+30, cy

	rules.Step(w, nil, dt)

	if !w.RoundOver {
		t.Fatalf("round should end at timeout")
	}
	if w.WinnerKey != "" {
		t.Fatalf("tie produced a winner: %q", w.WinnerKey)
	}
}

// Driving one player into the near boundary should eliminate it within a
// couple of seconds of simulated time and hand the round to the other.
func TestSustainedPushRingsOut(t *testing.T) {
	rules, w := startRound(t)

	inputs := map[string]arena.InputPayload{
		"u1": {Key: "u1", AX: -1},
	}

	for i := 0; i < 10*60 && !w.RoundOver; i++ {
		rules.Step(w, inputs, dt)
		w.Tick++
	}

	if !w.RoundOver {
		t.Fatalf("round never ended")
	}
	if w.WinnerKey != "u2" {
		t.Fatalf("winner = %q, want u2", w.WinnerKey)
	}
	if w.Players[0].Alive {
		t.Fatalf("driven player survived its own ring-out")
	}
}
