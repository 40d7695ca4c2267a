package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/arenabox/arena"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

func testConfig() *Config {
	return &Config{
		allowedOrigins: []string{"*"},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := httprouter.New()
	registerArena(testConfig(), "/arena", mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dialSession(t *testing.T, srv *httptest.Server, session string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/arena/" + session + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) arena.Envelope {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	env, err := arena.DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func join(t *testing.T, conn *websocket.Conn, session, userID string) {
	t.Helper()

	msg, err := arena.Encode(arena.MsgJoin, session, arena.JoinPayload{UserID: userID})
	if err != nil {
		t.Fatalf("encode join: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write join: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Type != arena.MsgJoined || env.SessionCode != session {
		t.Fatalf("expected joined ack, got %+v", env)
	}
}

func TestRelayForwardsToOthersOnly(t *testing.T) {
	srv := newTestServer(t)

	a := dialSession(t, srv, "AB12CD")
	b := dialSession(t, srv, "AB12CD")
	join(t, a, "AB12CD", "u1")
	join(t, b, "AB12CD", "u2")

	msg, err := arena.Encode(arena.MsgInput, "AB12CD", arena.InputPayload{Key: "u1", AX: 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := a.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	env := readEnvelope(t, b)
	if env.Type != arena.MsgInput {
		t.Fatalf("expected input, got %q", env.Type)
	}
	p, err := arena.DecodePayload[arena.InputPayload](env)
	if err != nil || p.Key != "u1" || p.AX != 1 {
		t.Fatalf("payload mangled: %+v (%v)", p, err)
	}

	// The sender must not hear its own message back.
	_ = a.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := a.ReadMessage(); err == nil {
		t.Fatalf("sender received an echo")
	}
}

func TestRelayRequiresJoinFirst(t *testing.T) {
	srv := newTestServer(t)

	a := dialSession(t, srv, "AB12CD")
	b := dialSession(t, srv, "AB12CD")
	join(t, b, "AB12CD", "u2")

	// Not joined yet; this must be dropped, not relayed.
	msg, _ := arena.Encode(arena.MsgInput, "AB12CD", arena.InputPayload{Key: "u1"})
	if err := a.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := b.ReadMessage(); err == nil {
		t.Fatalf("pre-join frame was relayed")
	}
}

func TestRelayDropsMalformedAndMisaddressed(t *testing.T) {
	srv := newTestServer(t)

	a := dialSession(t, srv, "AB12CD")
	b := dialSession(t, srv, "AB12CD")
	join(t, a, "AB12CD", "u1")
	join(t, b, "AB12CD", "u2")

	if err := a.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	wrongRoom, _ := arena.Encode(arena.MsgInput, "ZZ99ZZ", arena.InputPayload{Key: "u1"})
	if err := a.WriteMessage(websocket.TextMessage, wrongRoom); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := b.ReadMessage(); err == nil {
		t.Fatalf("bad frame was relayed")
	}
}

func TestRoomRemovedWhenLastSocketLeaves(t *testing.T) {
	m := newRoomManager(0)
	cfg := testConfig()

	rm := m.getRoom(cfg, "AB12CD")
	c := &Client{send: make(chan []byte, 4), id: uuid.New()}
	rm.register <- c

	deadline := time.Now().Add(time.Second)
	for rm.numClients() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Still occupied; must survive.
	m.removeIfEmpty("AB12CD")
	if got := m.getRoom(cfg, "AB12CD"); got != rm {
		t.Fatalf("occupied room was removed")
	}

	rm.unreg <- c
	for rm.numClients() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never unregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.removeIfEmpty("AB12CD")
	if got := m.getRoom(cfg, "AB12CD"); got == rm {
		t.Fatalf("empty room was not removed")
	}
}

func TestNewSessionCodeShape(t *testing.T) {
	m := newRoomManager(0)

	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		code := m.newSessionCode()
		if len(code) != 6 {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, c := range code {
			if !strings.ContainsRune(sessionCodeChars, c) {
				t.Fatalf("code %q contains %q", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 60 {
		t.Fatalf("suspiciously many collisions: %d unique of 64", len(seen))
	}
}

func TestSessionRedirect(t *testing.T) {
	srv := newTestServer(t)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(srv.URL + "/arena")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "/arena/") || len(strings.TrimPrefix(loc, "/arena/")) != 6 {
		t.Fatalf("bad redirect target %q", loc)
	}
}

func TestRoomListEndpoint(t *testing.T) {
	srv := newTestServer(t)

	a := dialSession(t, srv, "AB12CD")
	join(t, a, "AB12CD", "u1")

	resp, err := http.Get(srv.URL + "/rooms")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var rooms []RoomInfo
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Code != "AB12CD" || rooms[0].Players != 1 {
		t.Fatalf("rooms = %+v", rooms)
	}
}

func TestQREndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/arena/AB12CD/qr")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type %q", ct)
	}
}

func TestSocketRelayAgainstServer(t *testing.T) {
	srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/arena/AB12CD/ws"

	host, err := arena.DialRelay(url)
	if err != nil {
		t.Fatalf("dial host: %v", err)
	}
	defer host.Close()

	peer, err := arena.DialRelay(url)
	if err != nil {
		t.Fatalf("dial peer: %v", err)
	}
	defer peer.Close()

	got := make(chan arena.Envelope, 16)
	peer.OnMessage(func(env arena.Envelope) { got <- env })

	host.Join("AB12CD")
	peer.Join("AB12CD")
	time.Sleep(100 * time.Millisecond)

	host.Send(arena.MsgState, "AB12CD", &arena.World{Tick: 42})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-got:
			if env.Type != arena.MsgState {
				continue
			}
			w, err := arena.DecodePayload[*arena.World](env)
			if err != nil || w.Tick != 42 {
				t.Fatalf("state mangled: %+v (%v)", w, err)
			}
			return
		case <-deadline:
			t.Fatalf("state never arrived over the wire")
		}
	}
}
