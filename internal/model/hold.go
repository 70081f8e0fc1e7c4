package model

import (
	"sort"
	"time"
)

// HoldEntry is the ledger record for one hold token.  A token is issued
// once per client session and its entry grows and shrinks as the client
// selects and deselects seats before booking.
//
// Fields:
//  Token     – opaque identifier returned to the client.
//  SeatIDs   – seats currently covered by the hold.
//  CreatedAt – when the first seat was added.
//  ExpiresAt – CreatedAt (or the last successful addition) plus the hold
//              duration.
type HoldEntry struct {
	Token     string              `json:"token"`
	SeatIDs   map[string]struct{} `json:"-"`
	CreatedAt time.Time           `json:"created_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// Expired reports whether the hold is due for reaping at now.  An entry
// expiring exactly at now is considered expired.
func (h HoldEntry) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}

// Seats returns the held seat IDs in sorted order.
func (h HoldEntry) Seats() []string {
	out := make([]string, 0, len(h.SeatIDs))
	for id := range h.SeatIDs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Remaining returns the time left before the hold expires, never negative.
func (h HoldEntry) Remaining(now time.Time) time.Duration {
	if d := h.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Clone returns a deep copy so callers cannot mutate ledger state.
func (h HoldEntry) Clone() HoldEntry {
	seats := make(map[string]struct{}, len(h.SeatIDs))
	for id := range h.SeatIDs {
		seats[id] = struct{}{}
	}
	h.SeatIDs = seats
	return h
}
