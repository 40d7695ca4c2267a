/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package arena

// Body is one seat's kinematic record inside a snapshot. The optional
// fields are game-specific: Score is used by darts, Guess/Locked/Distance
// by the guessing-card game. Slot mirrors the seat index so receivers can
// render without re-resolving keys.
type Body struct {
	Slot  int     `json:"slot"`
	Key   string  `json:"key"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
	R     float64 `json:"r"`
	Alive bool    `json:"alive"`

	Score    float64 `json:"score,omitempty"`
	Guess    int     `json:"guess,omitempty"`
	Locked   bool    `json:"locked,omitempty"`
	Distance int     `json:"distance,omitempty"`
}

// Dart is the per-seat projectile in the darts game.
type Dart struct {
	Key   string  `json:"key"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Fired bool    `json:"fired"`
	Left  int     `json:"left"`
}

// Target is the shared oscillating target in the darts game.
type Target struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	R   float64 `json:"r"`
	Dir float64 `json:"dir"`
}

// World is the versioned, fully-serializable state of one round. The host
// engine is its only writer; mirrors replace their copy wholesale on every
// received snapshot. WinnerKey empty means no winner (the documented tie
// policy), and is omitted from the wire just like the null the frontend
// already handles.
type World struct {
	Tick      int     `json:"tick"`
	TimeLeft  float64 `json:"timeLeft"`
	RoundOver bool    `json:"roundOver"`
	WinnerKey string  `json:"winnerKey,omitempty"`
	Players   []Body  `json:"players"`

	Darts  []Dart  `json:"darts,omitempty"`
	Target *Target `json:"target,omitempty"`

	Phase  string `json:"phase,omitempty"`
	AICard int    `json:"aiCard,omitempty"`
}

// Clone deep-copies a world so snapshots can be handed to other goroutines
// without sharing the engine's mutable slices.
func (w *World) Clone() *World {
	if w == nil {
		return nil
	}

	out := *w
	out.Players = append([]Body(nil), w.Players...)
	if w.Darts != nil {
		out.Darts = append([]Dart(nil), w.Darts...)
	}
	if w.Target != nil {
		t := *w.Target
		out.Target = &t
	}
	return &out
}

// Result is handed to the round-completion callback when a round ends.
type Result struct {
	WinnerKey string
	TimeLeft  float64
}
