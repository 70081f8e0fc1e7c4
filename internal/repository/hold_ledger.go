package repository

import (
	"crypto/rand"
	"encoding/hex"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/seat-hold-coordinator/internal/model"
)

// HoldLedger tracks active hold tokens, the seats each token covers and
// when each hold expires.  A seat belongs to at most one live entry at a
// time.  Reaping of due entries happens only through ExpireDue; the
// ledger never frees registry seats itself.
type HoldLedger struct {
	mu       sync.Mutex
	entries  map[string]*model.HoldEntry
	owner    map[string]string // seat id -> token
	duration time.Duration
	now      func() time.Time
}

// NewHoldLedger returns an empty ledger whose holds last duration after
// their most recent addition.  A nil clock defaults to time.Now in UTC.
func NewHoldLedger(duration time.Duration, clock func() time.Time) *HoldLedger {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &HoldLedger{
		entries:  make(map[string]*model.HoldEntry),
		owner:    make(map[string]string),
		duration: duration,
		now:      clock,
	}
}

// Duration returns the configured hold duration.
func (l *HoldLedger) Duration() time.Duration { return l.duration }

// CreateOrExtend adds seatID to the entry of token, creating the entry
// when the token has none, and refreshes its expiry.  When the seat sits
// in a different live entry the call fails with ErrConflict: the first
// writer keeps the seat.  A seat left in an expired but not yet reaped
// entry is moved over to token.
func (l *HoldLedger) CreateOrExtend(token, seatID string) (model.HoldEntry, error) {
	if token == "" || seatID == "" {
		return model.HoldEntry{}, seatErr("hold", seatID, token, ErrInvalidState)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if other, ok := l.owner[seatID]; ok && other != token {
		prev := l.entries[other]
		if prev != nil && !prev.Expired(now) {
			return model.HoldEntry{}, seatErr("hold", seatID, token, ErrConflict)
		}
		if prev != nil {
			l.detach(prev, seatID)
		}
	}

	e, ok := l.entries[token]
	if !ok {
		e = &model.HoldEntry{
			Token:     token,
			SeatIDs:   make(map[string]struct{}),
			CreatedAt: now,
		}
		l.entries[token] = e
	}
	e.SeatIDs[seatID] = struct{}{}
	e.ExpiresAt = now.Add(l.duration)
	l.owner[seatID] = token
	return e.Clone(), nil
}

// Remove takes seatID out of the entry of token.  The entry is deleted
// once its seat set becomes empty.  It fails with ErrNotFound if the token
// has no entry or the entry does not contain the seat.
func (l *HoldLedger) Remove(token, seatID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[token]
	if !ok {
		return seatErr("remove", seatID, token, ErrNotFound)
	}
	if _, ok := e.SeatIDs[seatID]; !ok {
		return seatErr("remove", seatID, token, ErrNotFound)
	}
	l.detach(e, seatID)
	return nil
}

// detach removes one seat from e and drops e when empty.  Callers hold mu.
func (l *HoldLedger) detach(e *model.HoldEntry, seatID string) {
	delete(e.SeatIDs, seatID)
	if l.owner[seatID] == e.Token {
		delete(l.owner, seatID)
	}
	if len(e.SeatIDs) == 0 {
		delete(l.entries, e.Token)
	}
}

// Delete removes the whole entry of token and returns it.
func (l *HoldLedger) Delete(token string) (model.HoldEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[token]
	if !ok {
		return model.HoldEntry{}, false
	}
	l.drop(e)
	return *e, true
}

func (l *HoldLedger) drop(e *model.HoldEntry) {
	for id := range e.SeatIDs {
		if l.owner[id] == e.Token {
			delete(l.owner, id)
		}
	}
	delete(l.entries, e.Token)
}

// Peek returns a copy of the entry of token.
func (l *HoldLedger) Peek(token string) (model.HoldEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[token]
	if !ok {
		return model.HoldEntry{}, false
	}
	return e.Clone(), true
}

// OwnerOf returns the token whose entry contains seatID.
func (l *HoldLedger) OwnerOf(seatID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.owner[seatID]
	return t, ok
}

// Len returns the number of entries, expired or not.
func (l *HoldLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns copies of all entries ordered by token.
func (l *HoldLedger) Entries() []model.HoldEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.HoldEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// ExpireDue yields (token, seat IDs) for every entry whose expiry is at or
// before now, oldest first.  Each entry is removed from the ledger right
// before it is yielded, so entries the consumer never reaches stay in
// place.  An entry that was extended or removed between the start of the
// iteration and its turn is skipped.  The sequence is finite and is not
// re-iterable over the same snapshot: range over a new call to reap again.
func (l *HoldLedger) ExpireDue(now time.Time) iter.Seq2[string, []string] {
	return func(yield func(string, []string) bool) {
		for _, token := range l.dueTokens(now) {
			seats, ok := l.take(token, now)
			if !ok {
				continue
			}
			if !yield(token, seats) {
				return
			}
		}
	}
}

func (l *HoldLedger) dueTokens(now time.Time) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	due := make([]*model.HoldEntry, 0)
	for _, e := range l.entries {
		if e.Expired(now) {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].ExpiresAt.Equal(due[j].ExpiresAt) {
			return due[i].Token < due[j].Token
		}
		return due[i].ExpiresAt.Before(due[j].ExpiresAt)
	})
	tokens := make([]string, len(due))
	for i, e := range due {
		tokens[i] = e.Token
	}
	return tokens
}

// take removes the entry of token if it is still due at now.
func (l *HoldLedger) take(token string, now time.Time) ([]string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[token]
	if !ok || !e.Expired(now) {
		return nil, false
	}
	seats := e.Seats()
	l.drop(e)
	return seats, true
}

// NewHoldToken generates a random hexadecimal token of 2*n characters.
// The underlying call to crypto/rand ensures cryptographically secure
// random bytes; for a 64 character token pass 32.
func NewHoldToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
