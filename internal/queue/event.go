// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// Queue names.  Both queues are durable.
const (
	BookingConfirmedQueue = "booking.confirmed"
	HoldExpiredQueue      = "hold.expired"
)

// BookingConfirmedEvent is published when a booking record is created.  It
// carries enough information for downstream consumers to log, notify or
// trigger analytics without querying the coordinator.
type BookingConfirmedEvent struct {
	BookingID string   `json:"booking_id"`
	ChartKey  string   `json:"chart_key"`
	SeatIDs   []string `json:"seat_ids"`
	BookedAt  string   `json:"booked_at"`
}

// HoldExpiredEvent is published when a hold is reaped because its expiry
// passed.  TokenHash is the SHA-256 of the hold token; raw tokens never
// leave the service.
type HoldExpiredEvent struct {
	ChartKey  string   `json:"chart_key"`
	TokenHash string   `json:"token_hash"`
	SeatIDs   []string `json:"seat_ids"`
	ExpiredAt string   `json:"expired_at"`
}
