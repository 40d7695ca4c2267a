/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package arena

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ControlFunc samples the local control surface (keyboard chords, pointer,
// whatever is bound) and returns raw two-axis intent.
type ControlFunc func() (ax, ay float64)

// UplinkConfig wires one participant's input publisher.
type UplinkConfig struct {
	Relay   Relay
	Room    string
	Key     string // seat key; "" means spectator and disables the uplink
	Control ControlFunc

	// Clock defaults to the real clock, Hz to InputHz.
	Clock clockwork.Clock
	Hz    int

	// LocalSink, when set, receives every sample in addition to the relay.
	// The host points this at its engine: the relay never echoes a sender's
	// own messages back, and the host's seat must not go dead because of it.
	LocalSink func(InputPayload)
}

// Uplink samples local intent at a fixed rate below the render rate and
// publishes it tagged with the seat key. Spectators never publish.
type Uplink struct {
	relay   Relay
	room    string
	key     string
	control ControlFunc
	clock   clockwork.Clock
	hz      int
	sink    func(InputPayload)

	quit chan struct{}
	once sync.Once
}

func NewUplink(cfg UplinkConfig) *Uplink {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	hz := cfg.Hz
	if hz <= 0 {
		hz = InputHz
	}

	return &Uplink{
		relay:   cfg.Relay,
		room:    cfg.Room,
		key:     cfg.Key,
		control: cfg.Control,
		clock:   clock,
		hz:      hz,
		sink:    cfg.LocalSink,
		quit:    make(chan struct{}),
	}
}

// Start launches the sampling loop. A spectator uplink (empty key) does
// nothing at all.
func (u *Uplink) Start() {
	if u.key == "" || u.control == nil {
		return
	}
	go u.run()
}

// Stop cancels the loop; call on unmount so input listeners do not leak.
func (u *Uplink) Stop() {
	u.once.Do(func() {
		close(u.quit)
	})
}

func (u *Uplink) run() {
	ticker := u.clock.NewTicker(time.Second / time.Duration(u.hz))
	defer ticker.Stop()

	for {
		select {
		case <-u.quit:
			return
		case <-ticker.Chan():
			u.publish()
		}
	}
}

func (u *Uplink) publish() {
	ax, ay := u.control()
	ax, ay = normalizeIntent(ax, ay)

	p := InputPayload{
		Key: u.key,
		AX:  ax,
		AY:  ay,
		T:   float64(u.clock.Now().UnixMilli()),
	}

	u.relay.Send(MsgInput, u.room, p)
	if u.sink != nil {
		u.sink(p)
	}
}

// normalizeIntent scales any non-zero intent to unit length so diagonals
// are no faster than straight lines.
func normalizeIntent(ax, ay float64) (float64, float64) {
	mag := math.Hypot(ax, ay)
	if mag == 0 {
		return 0, 0
	}
	return ax / mag, ay / mag
}
