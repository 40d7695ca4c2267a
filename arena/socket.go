/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package arena

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// SocketRelay is the networked relay backing: a single WebSocket to the
// arenabox relay server, which fans messages out to the rest of the room.
// Connection loss is not fatal; the relay just flips its state signal and
// drops further sends. Reconnecting is the caller's job, since a rejoin
// has to re-announce the room.
type SocketRelay struct {
	conn  *websocket.Conn
	state atomic.Int32

	mu      sync.Mutex
	room    string
	handler Handler

	outbox chan []byte
	done   chan struct{}
	once   sync.Once
}

// DialRelay connects to a relay server (ws:// or wss:// URL). The returned
// relay is already open; call OnMessage then Join.
func DialRelay(url string) (*SocketRelay, error) {
	r := &SocketRelay{
		outbox: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	r.state.Store(int32(StateConnecting))

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		r.state.Store(int32(StateError))
		return nil, err
	}

	r.conn = conn
	r.state.Store(int32(StateOpen))

	go r.readLoop()
	go r.writeLoop()

	return r, nil
}

func (r *SocketRelay) Join(room string) {
	r.mu.Lock()
	r.room = room
	r.mu.Unlock()

	r.Send(MsgJoin, room, nil)
}

func (r *SocketRelay) Send(msgType, room string, payload any) {
	if ConnState(r.state.Load()) != StateOpen {
		return
	}

	b, err := Encode(msgType, room, payload)
	if err != nil {
		return
	}

	select {
	case r.outbox <- b:
	default:
		// Slow socket; drop rather than block the frame loop.
	}
}

func (r *SocketRelay) OnMessage(h Handler) {
	r.mu.Lock()
	r.handler = h
	r.mu.Unlock()
}

func (r *SocketRelay) State() ConnState {
	return ConnState(r.state.Load())
}

func (r *SocketRelay) Close() {
	r.once.Do(func() {
		r.state.Store(int32(StateClosed))
		close(r.done)
		_ = r.conn.Close()
	})
}

func (r *SocketRelay) readLoop() {
	defer r.fail()

	for {
		_, b, err := r.conn.ReadMessage()
		if err != nil {
			return
		}

		env, err := DecodeEnvelope(b)
		if err != nil {
			// Malformed message; drop silently.
			continue
		}

		r.mu.Lock()
		room := r.room
		h := r.handler
		r.mu.Unlock()

		if h == nil || room == "" || env.SessionCode != room {
			continue
		}
		h(env)
	}
}

func (r *SocketRelay) writeLoop() {
	for {
		select {
		case <-r.done:
			return
		case b := <-r.outbox:
			if err := r.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				r.fail()
				return
			}
		}
	}
}

// fail marks the relay errored unless it was deliberately closed.
func (r *SocketRelay) fail() {
	if ConnState(r.state.Load()) == StateClosed {
		return
	}
	r.state.Store(int32(StateError))
	_ = r.conn.Close()
}
