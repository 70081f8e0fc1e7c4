package model

import "time"

// BookingRecord is created once by a successful book operation and is
// never mutated or deleted afterwards.
//
// Fields:
//  ID       – UUID assigned when the record is created.
//  ChartKey – chart (event) the seats belong to.
//  SeatIDs  – booked seats, sorted.
//  Token    – hold token that produced the booking.
//  BookedAt – UTC time of the booking.
type BookingRecord struct {
	ID       string    `json:"id"`
	ChartKey string    `json:"chart_key"`
	SeatIDs  []string  `json:"seat_ids"`
	Token    string    `json:"-"`
	BookedAt time.Time `json:"booked_at"`
}
