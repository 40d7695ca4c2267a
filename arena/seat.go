/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package arena

import "strconv"

// RosterPlayer is one entry of the session roster as the lobby collaborator
// returns it. The id field has drifted across schema revisions, so every
// spelling that has ever appeared is accepted; Key picks the first present.
type RosterPlayer struct {
	UserID     string `json:"user_id,omitempty"`
	UserIDAlt  string `json:"userId,omitempty"`
	AuthUserID string `json:"auth_user_id,omitempty"`
	ProfileID  string `json:"profile_id,omitempty"`
	ProfileAlt string `json:"profileId,omitempty"`
	OwnerID    string `json:"owner_id,omitempty"`
	OwnerAlt   string `json:"ownerId,omitempty"`
	ID         string `json:"id,omitempty"`

	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Key returns the player's stable identity key, or "" when the record
// carries no identifier at all.
func (p RosterPlayer) Key() string {
	for _, k := range []string{
		p.UserID,
		p.UserIDAlt,
		p.AuthUserID,
		p.ProfileID,
		p.ProfileAlt,
		p.OwnerID,
		p.OwnerAlt,
		p.ID,
	} {
		if k != "" {
			return k
		}
	}
	return ""
}

// Label returns a display name for HUDs, falling back to the seat number.
func (p RosterPlayer) Label(seat int) string {
	if p.Name != "" {
		return p.Name
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return "Player " + strconv.Itoa(seat+1)
}

// Seats maps the first maxSeats roster entries to stable per-seat keys.
type Seats struct {
	keys   []string
	labels []string
}

// ResolveSeats binds roster entries to seats in roster order. Entries with
// no identifier get a positional key so a seat is never unkeyed.
func ResolveSeats(roster []RosterPlayer, maxSeats int) *Seats {
	n := len(roster)
	if n > maxSeats {
		n = maxSeats
	}

	s := &Seats{
		keys:   make([]string, n),
		labels: make([]string, n),
	}
	for i := 0; i < n; i++ {
		key := roster[i].Key()
		if key == "" {
			key = "seat-" + strconv.Itoa(i)
		}
		s.keys[i] = key
		s.labels[i] = roster[i].Label(i)
	}
	return s
}

// Len is the number of filled seats.
func (s *Seats) Len() int {
	return len(s.keys)
}

// Ready reports whether enough seats are filled for a game that needs min
// players. The simulation must not start before this is true.
func (s *Seats) Ready(min int) bool {
	return len(s.keys) >= min
}

// Key returns the key bound to a seat index, or "" if out of range.
func (s *Seats) Key(seat int) string {
	if seat < 0 || seat >= len(s.keys) {
		return ""
	}
	return s.keys[seat]
}

// Keys returns every seat key in seat order.
func (s *Seats) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Label returns the display name bound to a seat index.
func (s *Seats) Label(seat int) string {
	if seat < 0 || seat >= len(s.labels) {
		return ""
	}
	return s.labels[seat]
}

// SeatOf returns the seat index bound to a key, or -1.
func (s *Seats) SeatOf(key string) int {
	if key == "" {
		return -1
	}
	for i, k := range s.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// MySeat resolves which seat the local participant controls: the seat
// whose key matches the local account id, else the explicit hint used for
// anonymous play, else -1 (spectator). A spectator must not publish input.
func (s *Seats) MySeat(localUserID string, hint int) int {
	if seat := s.SeatOf(localUserID); seat != -1 {
		return seat
	}
	if hint >= 0 && hint < len(s.keys) {
		return hint
	}
	return -1
}
