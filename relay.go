// Arenabox relay
//
// Each mini-game session is a room keyed by its session code. The relay
// itself is deliberately dumb: the first message on a socket must be a
// join for some session code; after that, every message is forwarded
// verbatim to the rest of the room. The host participant's engine is the
// only authority over game state - the server never inspects payloads
// beyond the envelope.
//
// Features:
// - WebSockets per session: /arena/:session/ws
// - join → joined ack, then relay-to-others (sender excluded)
// - Malformed frames dropped silently
// - Rooms removed when the last socket leaves
// - Idle rooms reaped after a configurable timeout
// - Crypto-random session codes with server-side collision check
// - In-browser QR code to share a session, backed by go-qrcode

package main

import (
	"crypto/rand"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/arenabox/arena"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

type Client struct {
	conn *websocket.Conn
	send chan []byte
	id   uuid.UUID
}

type frame struct {
	from *Client
	data []byte
}

type Room struct {
	code    string
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	frames   chan frame

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time
}

func newRoom(code string) *Room {
	now := time.Now()
	return &Room{
		code:       code,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		frames:     make(chan frame, 64),
		createdAt:  now,
		lastActive: now,
	}
}

func (rm *Room) run(cfg *Config) {
	for {
		select {
		case c := <-rm.register:
			rm.mu.Lock()
			rm.lastActive = time.Now()
			rm.clients[c] = true
			rm.mu.Unlock()

			ack, err := arena.Encode(arena.MsgJoined, rm.code, nil)
			if err == nil {
				select {
				case c.send <- ack:
				default:
				}
			}

		case c := <-rm.unreg:
			rm.mu.Lock()
			rm.lastActive = time.Now()
			if _, ok := rm.clients[c]; ok {
				delete(rm.clients, c)
				close(c.send)
			}
			rm.mu.Unlock()

		case f := <-rm.frames:
			rm.mu.Lock()
			rm.lastActive = time.Now()
			for client := range rm.clients {
				if client == f.from {
					continue
				}
				select {
				case client.send <- f.data:
				default:
					delete(rm.clients, client)
					close(client.send)
				}
			}
			rm.mu.Unlock()
		}
	}
}

// numClients returns the current number of connected sockets.
func (rm *Room) numClients() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.clients)
}

// closeAll disconnects all clients of this room (used by reaper).
func (rm *Room) closeAll() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for c := range rm.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(rm.clients, c)
	}
}

// RoomManager holds the set of rooms keyed by session code, so each
// /arena/:session is its own isolated broadcast scope.
type RoomManager struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	idleTimeout time.Duration
}

func newRoomManager(idleTimeout time.Duration) *RoomManager {
	m := &RoomManager{
		rooms:       make(map[string]*Room),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go m.reaperLoop()
	}
	return m
}

func (m *RoomManager) getRoom(cfg *Config, code string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rm, ok := m.rooms[code]; ok {
		return rm
	}

	rm := newRoom(code)
	m.rooms[code] = rm
	go rm.run(cfg)
	return rm
}

// sessionCodeChars omits easily-confused characters since players type
// these codes in by hand.
const sessionCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newSessionCode generates a crypto-random session code and ensures it
// doesn't collide with an existing room.
func (m *RoomManager) newSessionCode() string {
	const max = byte(255 - (256 % len(sessionCodeChars)))

	for {
		out := make([]byte, 0, 6)
		buf := make([]byte, 12)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		for _, b := range buf {
			if b <= max {
				out = append(out, sessionCodeChars[int(b)%len(sessionCodeChars)])
				if len(out) == 6 {
					break
				}
			}
		}
		if len(out) < 6 {
			continue
		}
		code := string(out)

		m.mu.Lock()
		_, exists := m.rooms[code]
		m.mu.Unlock()

		if !exists {
			return code
		}
	}
}

// reaperLoop periodically removes rooms idle longer than idleTimeout.
func (m *RoomManager) reaperLoop() {
	ticker := time.NewTicker(m.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-m.idleTimeout)

		m.mu.Lock()
		for code, rm := range m.rooms {
			rm.mu.RLock()
			last := rm.lastActive
			rm.mu.RUnlock()

			if last.Before(cutoff) {
				delete(m.rooms, code)
				go rm.closeAll()
			}
		}
		m.mu.Unlock()
	}
}

// removeIfEmpty drops a room once its last socket has left.
func (m *RoomManager) removeIfEmpty(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rm, ok := m.rooms[code]; ok && rm.numClients() == 0 {
		delete(m.rooms, code)
	}
}

// RoomInfo is returned by the room list endpoint.
type RoomInfo struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
}

func (m *RoomManager) listRooms() []RoomInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]RoomInfo, 0, len(m.rooms))
	for code, rm := range m.rooms {
		out = append(out, RoomInfo{Code: code, Players: rm.numClients()})
	}
	return out
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWSForManager upgrades a socket into the room named by :session.
// The socket only starts relaying after its first valid join envelope for
// that same session code.
func serveWSForManager(cfg *Config, m *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session := ps.ByName("session")
		if session == "" {
			http.Error(w, "missing session code", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan []byte, 64),
			id:   uuid.New(),
		}

		go client.writePump()
		client.readPump(cfg, m, session)
	}
}

func (c *Client) readPump(cfg *Config, m *RoomManager, session string) {
	var room *Room

	defer func() {
		if room != nil {
			room.unreg <- c
			m.removeIfEmpty(room.code)
		}
		_ = c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		env, err := arena.DecodeEnvelope(data)
		if err != nil || env.SessionCode != session {
			// Malformed or misaddressed; drop silently.
			continue
		}

		if env.Type == arena.MsgJoin {
			if room == nil {
				room = m.getRoom(cfg, session)
				room.register <- c
				logf(cfg, "ARENA: Participant %s joined %s", c.id, session)
			}
			// Re-announce after the first join is a no-op.
			continue
		}

		// Must join before relaying anything else.
		if room == nil {
			continue
		}

		room.frames <- frame{from: c, data: data}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for a session's join URL.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session := ps.ByName("session")
	if session == "" {
		http.Error(w, "missing session code", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /arena/:session/qr; strip trailing "/qr" for the join URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// serveRoomList reports active sessions and their socket counts.
func serveRoomList(cfg *Config, m *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)

		_ = json.NewEncoder(w).Encode(m.listRooms())
	}
}

// redirectNewSession handles GET /arena by generating a fresh session code
// and redirecting to its room page.
func redirectNewSession(cfg *Config, path string, m *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		code := m.newSessionCode()
		logf(cfg, "ARENA: Created session %s%s/%s", cfg.prefix, path, code)
		http.Redirect(w, r, cfg.prefix+path+"/"+code, http.StatusTemporaryRedirect)
	}
}

// serveSessionPage is the landing page a session redirect or QR scan
// arrives at.
func serveSessionPage(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session := ps.ByName("session")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_, _ = io.WriteString(w, newPage("Session "+session, "Session code: "+session))
	}
}

// registerArena sets up routes so that:
//   - $path                     → redirects to a new random session
//   - /rooms                    → JSON list of active sessions
//   - $path/:session            → landing page for that session
//   - $path/:session/ws         → WebSocket relay for that session
//   - $path/:session/qr         → PNG QR code for that session URL
func registerArena(cfg *Config, path string, mux *httprouter.Router) {
	m := newRoomManager(cfg.sessionTimeout)

	mux.GET(cfg.prefix+path, redirectNewSession(cfg, path, m))
	mux.GET(cfg.prefix+"/rooms", serveRoomList(cfg, m))
	mux.GET(cfg.prefix+path+"/:session", serveSessionPage(cfg))
	mux.GET(cfg.prefix+path+"/:session/ws", serveWSForManager(cfg, m))
	mux.GET(cfg.prefix+path+"/:session/qr", qrHandler)
}
