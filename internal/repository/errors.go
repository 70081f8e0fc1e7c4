// Package repository holds the authoritative seat and hold state of a
// chart along with the MySQL-backed catalog and booking stores.  The
// sentinel values below let higher layers such as the coordinator and
// the HTTP handlers distinguish failure kinds with errors.Is.  Every
// failure of a seat operation is one of these kinds; there is no fatal
// internal error.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for an unknown seat, token or booking.
// Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a seat is already held or booked by
// another token, or when two tokens race for the same seat.  Handlers
// translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrInvalidState is returned when an operation is not legal for the
// current seat or hold state, e.g. freeing a booked seat.  Handlers
// translate it into HTTP 422.
var ErrInvalidState = errors.New("invalid state")

// ErrExpired is returned when a hold token is no longer valid at the time
// of use.  The caller must select the seats again.  Handlers translate it
// into HTTP 410.
var ErrExpired = errors.New("hold expired")

// SeatError names the seat (and token, when known) an operation failed
// on.  It unwraps to one of the sentinel errors above.
type SeatError struct {
	Op     string
	SeatID string
	Token  string
	Err    error
}

func (e *SeatError) Error() string {
	if e.SeatID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.SeatID, e.Err)
}

func (e *SeatError) Unwrap() error { return e.Err }

func seatErr(op, seatID, token string, err error) error {
	return &SeatError{Op: op, SeatID: seatID, Token: token, Err: err}
}

// SeatOf returns the seat named by err, if any.
func SeatOf(err error) string {
	var se *SeatError
	if errors.As(err, &se) {
		return se.SeatID
	}
	return ""
}
