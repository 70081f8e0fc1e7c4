// Package service implements the reservation coordinator that sits between
// client sessions and the authoritative seat state of a chart, the
// background sweep that reclaims expired holds, and the publisher of
// domain events.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-coordinator/internal/model"
	"github.com/iliyamo/seat-hold-coordinator/internal/repository"
)

// DefaultHoldDuration is used when Options.HoldDuration is not positive.
const DefaultHoldDuration = 5 * time.Minute

// DefaultSaveTimeout bounds a booking store write made under the chart lock.
const DefaultSaveTimeout = 5 * time.Second

// Events receives domain events after a transition has completed and the
// chart lock has been released.  Errors are logged by the coordinator and
// never undo a completed transition.
type Events interface {
	BookingConfirmed(ctx context.Context, rec model.BookingRecord) error
	HoldsExpired(ctx context.Context, holds []model.ExpiredHold, at time.Time) error
}

// Options configures a Coordinator.  Zero values fall back to defaults:
// a five minute hold, the UTC wall clock, an in-memory booking store, no
// events and a no-op logger.  SaveTimeout caps each booking store write;
// the chart stays locked for at most that long while a booking is saved.
type Options struct {
	HoldDuration time.Duration
	SaveTimeout  time.Duration
	Clock        func() time.Time
	Bookings     repository.BookingStore
	Events       Events
	Logger       *zap.Logger
}

// HoldView is the read model of a hold exposed to clients.
type HoldView struct {
	Token     string        `json:"-"`
	SeatIDs   []string      `json:"seat_ids"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	Remaining time.Duration `json:"-"`
}

// Coordinator orchestrates the seat registry and hold ledger of one chart.
// Every mutating operation, including the expiry sweep, runs under a
// single chart-wide lock so that the two-step transitions across registry
// and ledger appear atomic to other callers.  The lock is held for one
// transition only and released on every exit path.
//
// Before each client operation the coordinator reaps holds that are
// already due, so a hold never outlives its expiry just because the
// background sweep has not run yet.
type Coordinator struct {
	mu       sync.Mutex
	chartKey string
	seats    *repository.SeatRegistry
	holds    *repository.HoldLedger
	bookings repository.BookingStore
	saveWait time.Duration
	events   Events
	log      *zap.Logger
	now      func() time.Time
}

// NewCoordinator builds a coordinator for chartKey over catalog.  All seats
// start FREE; use RestoreBooked to mark previously booked seats.
func NewCoordinator(chartKey string, catalog []model.Seat, opts Options) *Coordinator {
	if opts.HoldDuration <= 0 {
		opts.HoldDuration = DefaultHoldDuration
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = DefaultSaveTimeout
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.Bookings == nil {
		opts.Bookings = repository.NewMemoryBookingStore()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Coordinator{
		chartKey: chartKey,
		seats:    repository.NewSeatRegistry(catalog),
		holds:    repository.NewHoldLedger(opts.HoldDuration, opts.Clock),
		bookings: opts.Bookings,
		saveWait: opts.SaveTimeout,
		events:   opts.Events,
		log:      opts.Logger.With(zap.String("chart", chartKey)),
		now:      opts.Clock,
	}
}

// ChartKey returns the chart served by this coordinator.
func (c *Coordinator) ChartKey() string { return c.chartKey }

// HoldDuration returns how long a hold lives after its last addition.
func (c *Coordinator) HoldDuration() time.Duration { return c.holds.Duration() }

// RestoreBooked marks seats BOOKED during chart loading.
func (c *Coordinator) RestoreBooked(seatIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if unknown := c.seats.RestoreBooked(seatIDs); len(unknown) > 0 {
		c.log.Warn("restored bookings reference unknown seats", zap.Strings("seats", unknown))
	}
}

// transition runs fn under the chart lock after reaping due holds, then
// publishes the reaped holds once the lock is released.
func (c *Coordinator) transition(ctx context.Context, fn func(now time.Time) error) error {
	var reaped []model.ExpiredHold
	var at time.Time
	err := func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		at = c.now()
		reaped = c.reapLocked(at)
		return fn(at)
	}()
	c.publishExpired(ctx, reaped, at)
	return err
}

// reapLocked consumes the ledger's due entries and frees their seats.
// Callers hold mu.
func (c *Coordinator) reapLocked(now time.Time) []model.ExpiredHold {
	var out []model.ExpiredHold
	for token, seatIDs := range c.holds.ExpireDue(now) {
		for _, id := range seatIDs {
			if err := c.seats.MarkFree(id); err != nil {
				c.log.Error("free expired seat", zap.String("seat", id), zap.Error(err))
			}
		}
		out = append(out, model.ExpiredHold{ChartKey: c.chartKey, Token: token, SeatIDs: seatIDs})
	}
	return out
}

// Select holds seatID for token.  The seat is marked HELD in the registry
// first and then added to the token's ledger entry; if the ledger refuses,
// the registry change is undone before the error is returned so the two
// never diverge.
//
// Errors: ErrNotFound for an unknown seat, ErrConflict when the seat is
// held by another token or booked, ErrInvalidState when token already
// holds the seat or is empty.
func (c *Coordinator) Select(ctx context.Context, token, seatID string) (HoldView, error) {
	if token == "" {
		return HoldView{}, &repository.SeatError{Op: "select", SeatID: seatID, Err: repository.ErrInvalidState}
	}
	var view HoldView
	err := c.transition(ctx, func(now time.Time) error {
		seat, err := c.seats.Status(seatID)
		if err != nil {
			return err
		}
		if seat.IsHeldBy(token) {
			return &repository.SeatError{Op: "select", SeatID: seatID, Token: token, Err: repository.ErrInvalidState}
		}
		if err := c.seats.MarkHeld(seatID, token); err != nil {
			return err
		}
		entry, err := c.holds.CreateOrExtend(token, seatID)
		if err != nil {
			if ferr := c.seats.MarkFree(seatID); ferr != nil {
				c.log.Error("compensating free failed", zap.String("seat", seatID), zap.Error(ferr))
				return errors.Join(err, ferr)
			}
			return err
		}
		view = toView(entry, now)
		return nil
	})
	return view, err
}

// Deselect gives up token's hold on seatID.  The seat is removed from the
// ledger before it is freed in the registry, so an interrupted call leaves
// the seat shown as held rather than free.
//
// Errors: ErrNotFound for an unknown seat, ErrConflict when another token
// holds the seat, ErrInvalidState when the seat is free or booked.
func (c *Coordinator) Deselect(ctx context.Context, token, seatID string) error {
	return c.transition(ctx, func(now time.Time) error {
		seat, err := c.seats.Status(seatID)
		if err != nil {
			return err
		}
		if !seat.IsHeldBy(token) {
			kind := repository.ErrInvalidState
			if seat.Status == model.SeatHeld {
				kind = repository.ErrConflict
			}
			return &repository.SeatError{Op: "deselect", SeatID: seatID, Token: token, Err: kind}
		}
		if err := c.holds.Remove(token, seatID); err != nil {
			return err
		}
		if err := c.seats.MarkFree(seatID); err != nil {
			// put the seat back so registry and ledger agree again
			if _, rerr := c.holds.CreateOrExtend(token, seatID); rerr != nil {
				c.log.Error("compensating re-hold failed", zap.String("seat", seatID), zap.Error(rerr))
				return errors.Join(err, rerr)
			}
			return err
		}
		return nil
	})
}

// Book converts token's hold on seatIDs into a single booking record.  The
// seat set is booked all-or-nothing.  Seats of the hold that are not
// listed stay held.
//
// Errors: ErrExpired when token has no ledger entry (it was reaped or
// never existed; the caller must select again), ErrConflict naming the
// first seat not held by token, ErrNotFound for an unknown seat,
// ErrInvalidState for an empty seat list.  A failure of the booking store,
// including a write that outlives the save timeout, is returned wrapped and
// leaves every seat unchanged.  BookedAt is truncated to whole seconds so
// the record matches what the MySQL store reads back.
func (c *Coordinator) Book(ctx context.Context, token string, seatIDs []string) (model.BookingRecord, error) {
	ids := dedupe(seatIDs)
	if len(ids) == 0 {
		return model.BookingRecord{}, &repository.SeatError{Op: "book", Token: token, Err: repository.ErrInvalidState}
	}
	var rec model.BookingRecord
	err := c.transition(ctx, func(now time.Time) error {
		if _, ok := c.holds.Peek(token); !ok {
			return &repository.SeatError{Op: "book", Token: token, Err: repository.ErrExpired}
		}
		if err := c.seats.CheckBookable(ids, token); err != nil {
			return err
		}
		booked := append([]string(nil), ids...)
		sort.Strings(booked)
		candidate := model.BookingRecord{
			ID:       uuid.NewString(),
			ChartKey: c.chartKey,
			SeatIDs:  booked,
			Token:    token,
			BookedAt: now.Truncate(time.Second),
		}
		saveCtx, cancel := context.WithTimeout(ctx, c.saveWait)
		err := c.bookings.Save(saveCtx, candidate)
		cancel()
		if err != nil {
			return fmt.Errorf("save booking: %w", err)
		}
		if err := c.seats.MarkBooked(ids, token); err != nil {
			// validated above under the same lock; reaching this is a bug
			c.log.Error("mark booked after save", zap.String("booking", candidate.ID), zap.Error(err))
			return err
		}
		for _, id := range ids {
			if err := c.holds.Remove(token, id); err != nil {
				c.log.Error("drop booked seat from ledger", zap.String("seat", id), zap.Error(err))
			}
		}
		rec = candidate
		return nil
	})
	if err != nil {
		return model.BookingRecord{}, err
	}
	if c.events != nil {
		if perr := c.events.BookingConfirmed(ctx, rec); perr != nil {
			c.log.Warn("publish booking confirmed", zap.String("booking", rec.ID), zap.Error(perr))
		}
	}
	c.log.Info("booking confirmed", zap.String("booking", rec.ID), zap.Strings("seats", rec.SeatIDs))
	return rec, nil
}

// Release frees every seat held by token and deletes its ledger entry.
// Releasing a token without an entry, including one already released or
// reaped, fails with ErrNotFound and changes nothing.
func (c *Coordinator) Release(ctx context.Context, token string) ([]string, error) {
	var released []string
	err := c.transition(ctx, func(now time.Time) error {
		entry, ok := c.holds.Peek(token)
		if !ok {
			return &repository.SeatError{Op: "release", Token: token, Err: repository.ErrNotFound}
		}
		released = entry.Seats()
		var errs []error
		for _, id := range released {
			if err := c.seats.MarkFree(id); err != nil {
				errs = append(errs, err)
			}
		}
		c.holds.Delete(token)
		if len(errs) > 0 {
			c.log.Error("release left seats in an unexpected state", zap.Errors("errors", errs))
			return errors.Join(errs...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// Sweep reaps every hold whose expiry is at or before now and returns the
// seats it freed.  It takes the same lock as client operations, so a sweep
// never races a Book on the same token.
func (c *Coordinator) Sweep(ctx context.Context, now time.Time) []model.ExpiredHold {
	reaped := func() []model.ExpiredHold {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.reapLocked(now)
	}()
	c.publishExpired(ctx, reaped, now)
	return reaped
}

func (c *Coordinator) publishExpired(ctx context.Context, reaped []model.ExpiredHold, at time.Time) {
	if len(reaped) == 0 {
		return
	}
	n := 0
	for _, h := range reaped {
		n += len(h.SeatIDs)
	}
	c.log.Info("holds expired", zap.Int("holds", len(reaped)), zap.Int("seats", n))
	if c.events == nil {
		return
	}
	if err := c.events.HoldsExpired(ctx, reaped, at); err != nil {
		c.log.Warn("publish holds expired", zap.Error(err))
	}
}

// Seats returns the current status of every seat in catalog order.
func (c *Coordinator) Seats() []model.Seat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seats.Snapshot()
}

// Seat returns the current status of one seat.
func (c *Coordinator) Seat(seatID string) (model.Seat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seats.Status(seatID)
}

// Hold returns the read model of token's hold.  A hold that is past its
// expiry but not yet reaped yields ErrExpired; a missing hold ErrNotFound.
func (c *Coordinator) Hold(token string) (HoldView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.holds.Peek(token)
	if !ok {
		return HoldView{}, &repository.SeatError{Op: "hold", Token: token, Err: repository.ErrNotFound}
	}
	now := c.now()
	if entry.Expired(now) {
		return HoldView{}, &repository.SeatError{Op: "hold", Token: token, Err: repository.ErrExpired}
	}
	return toView(entry, now), nil
}

// Booking loads a booking record of this chart.
func (c *Coordinator) Booking(ctx context.Context, id string) (model.BookingRecord, error) {
	return c.bookings.Get(ctx, c.chartKey, id)
}

func toView(e model.HoldEntry, now time.Time) HoldView {
	return HoldView{
		Token:     e.Token,
		SeatIDs:   e.Seats(),
		CreatedAt: e.CreatedAt,
		ExpiresAt: e.ExpiresAt,
		Remaining: e.Remaining(now),
	}
}

// dedupe drops empty and repeated IDs, keeping first-seen order.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
