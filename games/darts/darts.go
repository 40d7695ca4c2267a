/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package darts implements the aim-and-fire game: a shared target sweeps
// side to side while each seat fires darts up its own lane. Inner rings
// score more; highest total when darts or time run out wins.
package darts

import (
	"math"

	"github.com/Seednode/arenabox/arena"
)

// Board geometry, shared with renderers.
const (
	BoardWidth  = 400.0
	BoardHeight = 500.0

	TargetY      = 120.0
	TargetRadius = 60.0
	DartStartY   = 450.0
)

const (
	RoundTime    = 60.0
	DartsPerSeat = 5

	dartSpeed   = 6.0
	targetSpeed = 1.3

	// Ring scores at fractions of the target radius.
	bullRadius  = 0.3
	innerRadius = 0.6
	bullScore   = 50.0
	innerScore  = 25.0
	outerScore  = 10.0

	fireThreshold = 0.5
)

// Rules drives one darts round. A fresh value per round.
type Rules struct{}

func New() *Rules {
	return &Rules{}
}

func (*Rules) MinSeats() int { return 1 }
func (*Rules) MaxSeats() int { return 2 }

func (*Rules) Start(seats *arena.Seats) *arena.World {
	keys := seats.Keys()
	n := len(keys)
	if n > 2 {
		n = 2
		keys = keys[:2]
	}

	w := &arena.World{
		TimeLeft: RoundTime,
		Players:  make([]arena.Body, 0, n),
		Darts:    make([]arena.Dart, 0, n),
		Target: &arena.Target{
			X:   BoardWidth / 2,
			Y:   TargetY,
			R:   TargetRadius,
			Dir: 1,
		},
	}

	for i, key := range keys {
		lane := BoardWidth * float64(i+1) / float64(n+1)
		w.Players = append(w.Players, arena.Body{
			Slot:  i,
			Key:   key,
			X:     lane,
			Y:     DartStartY,
			Alive: true,
		})
		w.Darts = append(w.Darts, arena.Dart{
			Key:  key,
			X:    lane,
			Y:    DartStartY,
			Left: DartsPerSeat,
		})
	}

	return w
}

func (*Rules) Step(w *arena.World, inputs map[string]arena.InputPayload, dt float64) {
	moveTarget(w.Target)

	for i := range w.Darts {
		d := &w.Darts[i]

		// A held fire intent launches the next dart as soon as the
		// previous one has resolved.
		if !d.Fired && d.Left > 0 {
			if inp, ok := inputs[d.Key]; ok && inp.AY > fireThreshold {
				d.Fired = true
				d.Left--
			}
		}

		if !d.Fired {
			continue
		}

		d.Y -= dartSpeed
		if d.Y < 0 {
			resetDart(d, w.Players[i].X)
			continue
		}

		if points := ringScore(d, w.Target); points > 0 {
			w.Players[i].Score += points
			resetDart(d, w.Players[i].X)
		}
	}

	if w.TimeLeft <= 0 || exhausted(w.Darts) {
		w.RoundOver = true
		w.WinnerKey = topScoreKey(w.Players)
	}
}

func moveTarget(t *arena.Target) {
	t.X += t.Dir * targetSpeed
	if t.X+t.R >= BoardWidth || t.X-t.R <= 0 {
		t.Dir = -t.Dir
	}
}

func resetDart(d *arena.Dart, lane float64) {
	d.X = lane
	d.Y = DartStartY
	d.Fired = false
}

// ringScore returns the points for a dart's current position, or 0 when
// it is outside the target entirely.
func ringScore(d *arena.Dart, t *arena.Target) float64 {
	dist := math.Hypot(d.X-t.X, d.Y-t.Y)
	switch {
	case dist < t.R*bullRadius:
		return bullScore
	case dist < t.R*innerRadius:
		return innerScore
	case dist < t.R:
		return outerScore
	default:
		return 0
	}
}

// exhausted reports whether every seat is out of darts with none in flight.
func exhausted(darts []arena.Dart) bool {
	for _, d := range darts {
		if d.Left > 0 || d.Fired {
			return false
		}
	}
	return true
}

// topScoreKey returns the unique highest scorer, or "" on a tie.
func topScoreKey(players []arena.Body) string {
	best := math.Inf(-1)
	key := ""
	tied := false

	for _, p := range players {
		switch {
		case p.Score > best:
			best = p.Score
			key = p.Key
			tied = false
		case p.Score == best:
			tied = true
		}
	}

	if tied {
		return ""
	}
	return key
}
