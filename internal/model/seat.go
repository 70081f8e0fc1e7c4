package model

import "strings"

// SeatStatus is the availability state of a seat within a chart.
type SeatStatus string

const (
	SeatFree   SeatStatus = "FREE"   // nobody holds or owns the seat
	SeatHeld   SeatStatus = "HELD"   // temporarily held by a hold token
	SeatBooked SeatStatus = "BOOKED" // converted into a booking; terminal
)

// Seat describes a single bookable object of a seating chart.  Seats
// are created when the chart catalog is loaded and live for the whole
// event; only Status and HoldToken change afterwards.
//
// Fields:
//  ID        – stable identifier, usually a row label plus number (A1, AA12).
//  Label     – human readable label shown by the chart.
//  Status    – FREE, HELD or BOOKED.
//  HoldToken – token of the hold currently covering the seat.  Empty
//              unless Status is HELD.
type Seat struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Status    SeatStatus `json:"status"`
	HoldToken string     `json:"-"`
}

// IsHeldBy reports whether the seat is held by the given token.
func (s Seat) IsHeldBy(token string) bool {
	return s.Status == SeatHeld && s.HoldToken == token
}

// NormalizeSeatID trims whitespace and upper-cases a client supplied seat
// identifier so that "a1 " and "A1" address the same seat.
func NormalizeSeatID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
