package arena

import (
	"testing"
	"time"
)

func collect(r Relay) <-chan Envelope {
	ch := make(chan Envelope, 64)
	r.OnMessage(func(env Envelope) {
		ch <- env
	})
	return ch
}

func TestBusDeliversToRoomPeers(t *testing.T) {
	bus := NewBus()
	a := bus.Client()
	b := bus.Client()
	defer a.Close()
	defer b.Close()

	got := collect(b)
	b.Join("AB12")
	a.Join("AB12")

	a.Send(MsgInput, "AB12", InputPayload{Key: "u1", AX: 1})

	select {
	case env := <-got:
		if env.Type == MsgJoin {
			env = <-got
		}
		if env.Type != MsgInput {
			t.Fatalf("expected input, got %q", env.Type)
		}
		p, err := DecodePayload[InputPayload](env)
		if err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if p.Key != "u1" || p.AX != 1 {
			t.Fatalf("unexpected payload: %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for delivery")
	}
}

func TestBusFiltersOtherRooms(t *testing.T) {
	bus := NewBus()
	a := bus.Client()
	b := bus.Client()
	defer a.Close()
	defer b.Close()

	got := collect(b)
	b.Join("ROOM1")
	a.Join("ROOM2")

	a.Send(MsgInput, "ROOM2", InputPayload{Key: "u1"})

	select {
	case env := <-got:
		t.Fatalf("received traffic for a room we did not join: %+v", env)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusNeverEchoesToSender(t *testing.T) {
	bus := NewBus()
	a := bus.Client()
	defer a.Close()

	got := collect(a)
	a.Join("AB12")

	a.Send(MsgInput, "AB12", InputPayload{Key: "u1"})

	select {
	case env := <-got:
		t.Fatalf("sender received its own message: %+v", env)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusClosedRelayDropsSends(t *testing.T) {
	bus := NewBus()
	a := bus.Client()
	b := bus.Client()
	defer b.Close()

	got := collect(b)
	b.Join("AB12")

	a.Join("AB12")
	a.Close()

	if a.State() != StateClosed {
		t.Fatalf("expected closed state, got %v", a.State())
	}

	// Must not panic and must not deliver.
	a.Send(MsgInput, "AB12", InputPayload{Key: "u1"})

	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case env := <-got:
			if env.Type == MsgJoin {
				continue
			}
			t.Fatalf("closed relay still delivered: %+v", env)
		case <-deadline:
			return
		}
	}
}

func TestBusStateSignal(t *testing.T) {
	bus := NewBus()
	a := bus.Client()

	if a.State() != StateOpen {
		t.Fatalf("expected open, got %v", a.State())
	}
	a.Close()
	if a.State() != StateClosed {
		t.Fatalf("expected closed, got %v", a.State())
	}

	if StateConnecting.String() != "connecting" || StateError.String() != "error" {
		t.Fatalf("unexpected state names")
	}
}
