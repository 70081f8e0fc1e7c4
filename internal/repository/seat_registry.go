package repository

import (
	"sync"

	"github.com/iliyamo/seat-hold-coordinator/internal/model"
)

// SeatRegistry is the authoritative record of every seat's status in one
// chart.  It only mutates status and hold token; it knows nothing about
// timers or hold expiry.  Each call is individually atomic; multi-step
// transitions spanning the hold ledger are serialized by the owning
// coordinator.
type SeatRegistry struct {
	mu    sync.RWMutex
	seats map[string]*model.Seat
	order []string // catalog order, used for rendering snapshots
}

// NewSeatRegistry builds a registry containing the given catalog with
// every seat FREE.  IDs are stored in the form model.NormalizeSeatID
// produces, the same form handlers use for client input; the label keeps
// the catalog spelling.  Duplicate IDs keep the first occurrence.
func NewSeatRegistry(catalog []model.Seat) *SeatRegistry {
	r := &SeatRegistry{
		seats: make(map[string]*model.Seat, len(catalog)),
		order: make([]string, 0, len(catalog)),
	}
	for _, s := range catalog {
		id := model.NormalizeSeatID(s.ID)
		if id == "" {
			continue
		}
		if _, dup := r.seats[id]; dup {
			continue
		}
		label := s.Label
		if label == "" {
			label = s.ID
		}
		r.seats[id] = &model.Seat{ID: id, Label: label, Status: model.SeatFree}
		r.order = append(r.order, id)
	}
	return r
}

// Len returns the number of seats in the catalog.
func (r *SeatRegistry) Len() int { return len(r.order) }

// Status returns a copy of the seat.  It fails with ErrNotFound if the
// seat is unknown.
func (r *SeatRegistry) Status(seatID string) (model.Seat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.seats[seatID]
	if !ok {
		return model.Seat{}, seatErr("status", seatID, "", ErrNotFound)
	}
	return *s, nil
}

// MarkHeld transitions a FREE seat to HELD under token.  Any other
// current status yields ErrConflict.
func (r *SeatRegistry) MarkHeld(seatID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seats[seatID]
	if !ok {
		return seatErr("hold", seatID, token, ErrNotFound)
	}
	if s.Status != model.SeatFree {
		return seatErr("hold", seatID, token, ErrConflict)
	}
	s.Status = model.SeatHeld
	s.HoldToken = token
	return nil
}

// MarkFree transitions a HELD seat back to FREE.  Booked seats cannot be
// freed through this path and yield ErrInvalidState.  Freeing an already
// FREE seat is a no-op so repeated reclaims stay harmless.
func (r *SeatRegistry) MarkFree(seatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seats[seatID]
	if !ok {
		return seatErr("free", seatID, "", ErrNotFound)
	}
	if s.Status == model.SeatBooked {
		return seatErr("free", seatID, "", ErrInvalidState)
	}
	s.Status = model.SeatFree
	s.HoldToken = ""
	return nil
}

// CheckBookable validates that every seat is HELD by token without
// changing anything.  The error names the first offending seat in the
// order given.
func (r *SeatRegistry) CheckBookable(seatIDs []string, token string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checkBookable(seatIDs, token)
}

func (r *SeatRegistry) checkBookable(seatIDs []string, token string) error {
	for _, id := range seatIDs {
		s, ok := r.seats[id]
		if !ok {
			return seatErr("book", id, token, ErrNotFound)
		}
		if !s.IsHeldBy(token) {
			return seatErr("book", id, token, ErrConflict)
		}
	}
	return nil
}

// MarkBooked transitions all given seats from HELD (by token) to BOOKED.
// Either every seat changes or none does.
func (r *SeatRegistry) MarkBooked(seatIDs []string, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkBookable(seatIDs, token); err != nil {
		return err
	}
	for _, id := range seatIDs {
		s := r.seats[id]
		s.Status = model.SeatBooked
		s.HoldToken = ""
	}
	return nil
}

// HeldBy returns the IDs of all seats currently HELD by token, in catalog
// order.
func (r *SeatRegistry) HeldBy(token string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, id := range r.order {
		if r.seats[id].IsHeldBy(token) {
			out = append(out, id)
		}
	}
	return out
}

// Snapshot returns copies of all seats in catalog order.
func (r *SeatRegistry) Snapshot() []model.Seat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Seat, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.seats[id])
	}
	return out
}

// RestoreBooked marks seats BOOKED while a chart is being loaded, e.g. from
// bookings persisted before a restart.  IDs are normalized like the
// catalog.  Unknown seats are ignored and returned so the caller can log
// them.
func (r *SeatRegistry) RestoreBooked(seatIDs []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var unknown []string
	for _, raw := range seatIDs {
		id := model.NormalizeSeatID(raw)
		s, ok := r.seats[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		s.Status = model.SeatBooked
		s.HoldToken = ""
	}
	return unknown
}
