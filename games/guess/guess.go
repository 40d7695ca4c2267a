/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package guess implements the guessing-card game: after a short
// countdown, every seat dials in a card value from ace to king and locks
// it; whoever lands closest to the hidden card wins the round.
package guess

import (
	"crypto/rand"
	"math"
	"math/big"

	"github.com/Seednode/arenabox/arena"
)

// Round phases, carried in the snapshot so mirrors can render them.
const (
	PhaseCountdown = "countdown"
	PhasePicking   = "picking"
	PhaseReveal    = "reveal"
)

const (
	CountdownTime = 3.0
	PickingTime   = 20.0

	MinCard = 1
	MaxCard = 13

	// Holding a direction steps the guess at this interval, so a held key
	// walks the value instead of racing through it at the input rate.
	adjustEvery = 0.25

	axisThreshold = 0.5
)

// Layout for renderers: seats sit in a row across the table.
const (
	TableWidth  = 680.0
	TableHeight = 420.0
)

// Rules drives one guessing-card round. It keeps per-seat repeat timers,
// so use a fresh value per round.
type Rules struct {
	elapsed    float64
	nextAdjust map[string]float64
}

func New() *Rules {
	return &Rules{
		nextAdjust: make(map[string]float64),
	}
}

func (*Rules) MinSeats() int { return 2 }
func (*Rules) MaxSeats() int { return 4 }

func (r *Rules) Start(seats *arena.Seats) *arena.World {
	r.elapsed = 0
	r.nextAdjust = make(map[string]float64)

	keys := seats.Keys()
	n := len(keys)
	if n > 4 {
		n = 4
		keys = keys[:4]
	}

	w := &arena.World{
		TimeLeft: CountdownTime,
		Phase:    PhaseCountdown,
		Players:  make([]arena.Body, 0, n),
	}

	for i, key := range keys {
		w.Players = append(w.Players, arena.Body{
			Slot:  i,
			Key:   key,
			X:     TableWidth * float64(i+1) / float64(n+1),
			Y:     TableHeight / 2,
			Alive: true,
			Guess: MinCard,
		})
	}

	return w
}

func (r *Rules) Step(w *arena.World, inputs map[string]arena.InputPayload, dt float64) {
	r.elapsed += dt

	switch w.Phase {
	case PhaseCountdown:
		if w.TimeLeft <= 0 {
			w.Phase = PhasePicking
			w.TimeLeft = PickingTime
			w.AICard = drawCard()
		}

	case PhasePicking:
		for i := range w.Players {
			r.stepSeat(&w.Players[i], inputs)
		}

		if w.TimeLeft <= 0 || allLocked(w.Players) {
			r.reveal(w)
		}
	}
}

func (r *Rules) stepSeat(p *arena.Body, inputs map[string]arena.InputPayload) {
	inp, ok := inputs[p.Key]
	if !ok || p.Locked {
		return
	}

	if inp.AY > axisThreshold {
		p.Locked = true
		return
	}

	step := 0
	if inp.AX > axisThreshold {
		step = 1
	} else if inp.AX < -axisThreshold {
		step = -1
	}
	if step == 0 {
		return
	}

	if r.elapsed < r.nextAdjust[p.Key] {
		return
	}
	r.nextAdjust[p.Key] = r.elapsed + adjustEvery

	p.Guess += step
	if p.Guess < MinCard {
		p.Guess = MinCard
	}
	if p.Guess > MaxCard {
		p.Guess = MaxCard
	}
}

// reveal scores every seat against the hidden card and ends the round.
// The unique closest guess wins; an exact tie means no winner.
func (r *Rules) reveal(w *arena.World) {
	best := math.MaxInt
	key := ""
	tied := false

	for i := range w.Players {
		p := &w.Players[i]
		p.Distance = abs(p.Guess - w.AICard)
		switch {
		case p.Distance < best:
			best = p.Distance
			key = p.Key
			tied = false
		case p.Distance == best:
			tied = true
		}
	}

	if tied {
		key = ""
	}

	w.Phase = PhaseReveal
	w.TimeLeft = 0
	w.RoundOver = true
	w.WinnerKey = key
}

func allLocked(players []arena.Body) bool {
	for _, p := range players {
		if !p.Locked {
			return false
		}
	}
	return len(players) > 0
}

// drawCard picks the hidden card 1..13 using crypto/rand, same as the
// session-code generator.
func drawCard() int {
	n, err := rand.Int(rand.Reader, big.NewInt(MaxCard))
	if err != nil {
		return MinCard + MaxCard/2
	}
	return int(n.Int64()) + 1
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Label renders a card value the way the table does: A, 2..10, J, Q, K.
func Label(v int) string {
	switch v {
	case 1:
		return "A"
	case 11:
		return "J"
	case 12:
		return "Q"
	case 13:
		return "K"
	default:
		if v < MinCard || v > MaxCard {
			return "?"
		}
		return []string{"2", "3", "4", "5", "6", "7", "8", "9", "10"}[v-2]
	}
}
