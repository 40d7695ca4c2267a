/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package arena implements the host-authoritative mini-game core: a relay
// transport scoped by session code, a seat resolver, the simulation engine
// that runs on the host, the input uplink, and the mirror store used by
// every other participant.
//
// Exactly one participant per round is the host. Its engine owns the world
// state and broadcasts full-replacement snapshots; everyone else sends only
// input and renders the last snapshot received.
package arena

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types carried over the relay.
const (
	MsgJoin   = "join"
	MsgJoined = "joined"
	MsgInput  = "input"
	MsgState  = "state"
)

// Fixed rates for the simulation core. The physics step rate is deliberately
// higher than both the input and snapshot rates so relay traffic stays
// bounded no matter how fast the host machine is.
const (
	SimHz      = 60
	InputHz    = 20
	SnapshotHz = 25

	// StaleAfter is how long a mirror waits without a snapshot before
	// reporting the connection as stalled.
	StaleAfter = 1200 * time.Millisecond
)

// Envelope is the wire format shared by every relay backing. Payload stays
// raw until the receiver knows what type it is.
type Envelope struct {
	Type        string          `json:"type"`
	SessionCode string          `json:"sessionCode"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload optionally identifies the sender when announcing presence.
type JoinPayload struct {
	UserID string `json:"userId,omitempty"`
}

// InputPayload is one sampled intent for one seat. Axes are normalized to
// unit length when non-zero. T is the sender's sample timestamp in
// milliseconds; receivers only ever keep the most recent sample per key.
type InputPayload struct {
	Key string  `json:"key"`
	AX  float64 `json:"ax"`
	AY  float64 `json:"ay"`
	T   float64 `json:"t"`
}

// Encode wraps a payload in an envelope and marshals the whole thing.
func Encode(msgType, sessionCode string, payload any) ([]byte, error) {
	if msgType == "" {
		return nil, fmt.Errorf("encode: empty message type")
	}

	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return json.Marshal(Envelope{
		Type:        msgType,
		SessionCode: sessionCode,
		Payload:     raw,
	})
}

// DecodeEnvelope parses just the outer envelope, leaving the payload raw.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("decode: empty message")
	}

	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// DecodePayload unmarshals an envelope's payload into a concrete type.
func DecodePayload[T any](e Envelope) (T, error) {
	var out T
	if len(e.Payload) == 0 {
		return out, fmt.Errorf("decode: empty payload for %q", e.Type)
	}
	err := json.Unmarshal(e.Payload, &out)
	return out, err
}
