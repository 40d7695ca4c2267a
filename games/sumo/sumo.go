/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package sumo implements the two-player ring-out game: push the other
// player out of the circle before the timer runs out. Leaving the ring
// eliminates you; there is no bounce back in.
package sumo

import (
	"math"

	"github.com/Seednode/arenabox/arena"
)

// Arena geometry, shared with renderers.
const (
	ArenaWidth  = 680.0
	ArenaHeight = 420.0
	ArenaRadius = ArenaHeight * 0.4

	PlayerRadius = 18.0
)

// Movement tuning. These are per-step values at the engine's fixed rate.
const (
	RoundTime = 20.0

	accelPerStep = 0.55
	maxSpeed     = 6.2
	friction     = 0.88
	pushImpulse  = 0.9
	spawnOffset  = 70.0
	restThresh   = 0.01
)

// Rules drives one sumo round. A fresh value per round.
type Rules struct{}

func New() *Rules {
	return &Rules{}
}

func (*Rules) MinSeats() int { return 2 }
func (*Rules) MaxSeats() int { return 2 }

func (*Rules) Start(seats *arena.Seats) *arena.World {
	cx, cy := ArenaWidth/2, ArenaHeight/2

	w := &arena.World{
		TimeLeft: RoundTime,
		Players:  make([]arena.Body, 0, 2),
	}

	for i, key := range seats.Keys() {
		if i >= 2 {
			break
		}
		x := cx - spawnOffset
		if i == 1 {
			x = cx + spawnOffset
		}
		w.Players = append(w.Players, arena.Body{
			Slot:  i,
			Key:   key,
			X:     x,
			Y:     cy,
			R:     PlayerRadius,
			Alive: true,
		})
	}

	return w
}

func (*Rules) Step(w *arena.World, inputs map[string]arena.InputPayload, dt float64) {
	cx, cy := ArenaWidth/2, ArenaHeight/2

	for i := range w.Players {
		p := &w.Players[i]
		inp := inputs[p.Key]
		ax, ay := arena.ClampIntent(inp.AX, inp.AY)
		applyInput(p, ax, ay)
		integrate(p)
	}

	for i := 0; i < len(w.Players); i++ {
		for j := i + 1; j < len(w.Players); j++ {
			resolveCollision(&w.Players[i], &w.Players[j])
		}
	}

	for i := range w.Players {
		ringOut(&w.Players[i], cx, cy)
	}

	// Win by elimination.
	var alive []*arena.Body
	for i := range w.Players {
		if w.Players[i].Alive {
			alive = append(alive, &w.Players[i])
		}
	}
	switch len(alive) {
	case 1:
		w.RoundOver = true
		w.WinnerKey = alive[0].Key
		return
	case 0:
		w.RoundOver = true
		w.WinnerKey = ""
		return
	}

	// Win by timeout: closest alive player to the centre. An exact tie in
	// distance means no winner; that is deliberate, not an oversight.
	if w.TimeLeft <= 0 {
		w.RoundOver = true
		w.WinnerKey = closestKey(alive, cx, cy)
	}
}

func applyInput(p *arena.Body, ax, ay float64) {
	if !p.Alive {
		return
	}

	p.VX += ax * accelPerStep
	p.VY += ay * accelPerStep

	speed := math.Hypot(p.VX, p.VY)
	if speed > maxSpeed {
		scale := maxSpeed / speed
		p.VX *= scale
		p.VY *= scale
	}
}

func integrate(p *arena.Body) {
	if !p.Alive {
		return
	}

	p.X += p.VX
	p.Y += p.VY
	p.VX *= friction
	p.VY *= friction

	if math.Abs(p.VX) < restThresh {
		p.VX = 0
	}
	if math.Abs(p.VY) < restThresh {
		p.VY = 0
	}
}

// resolveCollision separates two overlapping players along the contact
// normal by half the overlap each, then exchanges a velocity impulse along
// the normal when they are closing.
func resolveCollision(a, b *arena.Body) {
	if !a.Alive || !b.Alive {
		return
	}

	dx := b.X - a.X
	dy := b.Y - a.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		dist = 1
	}
	minDist := a.R + b.R
	if dist >= minDist {
		return
	}

	overlap := minDist - dist
	nx := dx / dist
	ny := dy / dist

	a.X -= nx * overlap / 2
	a.Y -= ny * overlap / 2
	b.X += nx * overlap / 2
	b.Y += ny * overlap / 2

	rvx := b.VX - a.VX
	rvy := b.VY - a.VY
	closing := rvx*nx + rvy*ny
	if closing >= 0 {
		return
	}

	j := -closing * pushImpulse
	a.VX -= j * nx
	a.VY -= j * ny
	b.VX += j * nx
	b.VY += j * ny
}

// ringOut eliminates a player whose centre leaves the playable boundary.
func ringOut(p *arena.Body, cx, cy float64) {
	if !p.Alive {
		return
	}
	if math.Hypot(p.X-cx, p.Y-cy) > ArenaRadius-p.R {
		p.Alive = false
	}
}

func closestKey(alive []*arena.Body, cx, cy float64) string {
	const eps = 1e-9

	best := math.Inf(1)
	key := ""
	tied := false

	for _, p := range alive {
		d := math.Hypot(p.X-cx, p.Y-cy)
		switch {
		case d < best-eps:
			best = d
			key = p.Key
			tied = false
		case math.Abs(d-best) <= eps:
			tied = true
		}
	}

	if tied {
		return ""
	}
	return key
}
