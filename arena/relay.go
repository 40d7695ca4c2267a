/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package arena

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ConnState is the connection-status signal a relay exposes for the UI.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosed
	StateError
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Handler receives every message for the joined room. Backings filter by
// room before dispatch, so a handler never sees another session's traffic.
type Handler func(Envelope)

// Relay is the pub/sub channel scoped to one session code. Sends are
// best-effort and fire-and-forget: a closed or unready relay silently
// drops them rather than failing. A relay never echoes a participant's
// own sends back to it.
type Relay interface {
	// Join announces presence in a room. Idempotent; calling it again
	// re-announces (required after a caller-driven reconnect).
	Join(room string)

	// Send publishes one message to the room's other participants.
	Send(msgType, room string, payload any)

	// OnMessage registers the single receive handler. Must be called
	// before Join.
	OnMessage(h Handler)

	State() ConnState

	Close()
}

// Bus is the same-device relay backing: every client attached to the same
// Bus sees the other clients' traffic for rooms it has joined, with no
// network in between. It doubles as the transport for tests.
type Bus struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*BusRelay
}

func NewBus() *Bus {
	return &Bus{
		clients: make(map[uuid.UUID]*BusRelay),
	}
}

// Client attaches a new participant to the bus.
func (b *Bus) Client() *BusRelay {
	c := &BusRelay{
		bus:   b,
		id:    uuid.New(),
		inbox: make(chan Envelope, 64),
		done:  make(chan struct{}),
	}
	c.state.Store(int32(StateOpen))

	b.mu.Lock()
	b.clients[c.id] = c
	b.mu.Unlock()

	go c.pump()

	return c
}

func (b *Bus) publish(from uuid.UUID, env Envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, c := range b.clients {
		if id == from {
			continue
		}
		c.deliver(env)
	}
}

func (b *Bus) detach(id uuid.UUID) {
	b.mu.Lock()
	delete(b.clients, id)
	b.mu.Unlock()
}

// BusRelay is one participant's handle on a Bus.
type BusRelay struct {
	bus   *Bus
	id    uuid.UUID
	state atomic.Int32

	mu      sync.Mutex
	room    string
	handler Handler

	inbox chan Envelope
	done  chan struct{}
	once  sync.Once
}

func (c *BusRelay) Join(room string) {
	c.mu.Lock()
	c.room = room
	c.mu.Unlock()

	c.bus.publish(c.id, Envelope{Type: MsgJoin, SessionCode: room})
}

func (c *BusRelay) Send(msgType, room string, payload any) {
	if ConnState(c.state.Load()) != StateOpen {
		return
	}

	b, err := Encode(msgType, room, payload)
	if err != nil {
		return
	}
	env, err := DecodeEnvelope(b)
	if err != nil {
		return
	}

	c.bus.publish(c.id, env)
}

func (c *BusRelay) OnMessage(h Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

func (c *BusRelay) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *BusRelay) Close() {
	c.once.Do(func() {
		c.state.Store(int32(StateClosed))
		c.bus.detach(c.id)
		close(c.done)
	})
}

// deliver queues an envelope for the handler, dropping it if the inbox is
// full. Delivery is at-most-once best-effort, same as the other backings.
func (c *BusRelay) deliver(env Envelope) {
	select {
	case c.inbox <- env:
	default:
	}
}

func (c *BusRelay) pump() {
	for {
		select {
		case <-c.done:
			return
		case env := <-c.inbox:
			c.mu.Lock()
			room := c.room
			h := c.handler
			c.mu.Unlock()

			if h == nil || room == "" || env.SessionCode != room {
				continue
			}
			h(env)
		}
	}
}
