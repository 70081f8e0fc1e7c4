package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/seat-hold-coordinator/internal/model"
)

// BookingStore persists booking records.  Save is called by the
// coordinator while it holds the chart lock and before any seat is
// marked BOOKED, so a failed Save leaves seat state untouched.
type BookingStore interface {
	Save(ctx context.Context, rec model.BookingRecord) error
	Get(ctx context.Context, chartKey, id string) (model.BookingRecord, error)
}

// MemoryBookingStore keeps booking records in process memory.  It is the
// default store when no database is configured and is used by tests.
type MemoryBookingStore struct {
	mu      sync.RWMutex
	records map[string]model.BookingRecord
}

// NewMemoryBookingStore returns an empty in-memory store.
func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{records: make(map[string]model.BookingRecord)}
}

// Save stores rec.  Saving the same ID twice yields ErrConflict.
func (s *MemoryBookingStore) Save(_ context.Context, rec model.BookingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return ErrConflict
	}
	rec.SeatIDs = append([]string(nil), rec.SeatIDs...)
	s.records[rec.ID] = rec
	return nil
}

// Get returns the record with the given ID in chartKey or ErrNotFound.
func (s *MemoryBookingStore) Get(_ context.Context, chartKey, id string) (model.BookingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok || rec.ChartKey != chartKey {
		return model.BookingRecord{}, ErrNotFound
	}
	rec.SeatIDs = append([]string(nil), rec.SeatIDs...)
	return rec, nil
}

// Len returns the number of stored records.
func (s *MemoryBookingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// BookingRepo stores booking records in MySQL.  A booking is written to
// the bookings table and its seats to booking_seats in one transaction.
// booking_seats carries a unique key on (chart_key, seat_id) so a seat can
// never be booked twice even across restarts.  Only a SHA-256 hash of the
// hold token is stored.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// mysqlDuplicateEntry is the MySQL error number for unique key violations.
const mysqlDuplicateEntry = 1062

// Save inserts the booking and its seats.  A unique key violation is
// reported as ErrConflict.
func (r *BookingRepo) Save(ctx context.Context, rec model.BookingRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO bookings (id, chart_key, hold_token_hash, booked_at) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, rec.ID, rec.ChartKey, HashToken(rec.Token), rec.BookedAt.UTC().Format("2006-01-02 15:04:05")); err != nil {
		return translateMySQL(err)
	}
	if len(rec.SeatIDs) > 0 {
		query := `INSERT INTO booking_seats (booking_id, chart_key, seat_id) VALUES `
		args := make([]interface{}, 0, len(rec.SeatIDs)*3)
		for i, sid := range rec.SeatIDs {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?)"
			args = append(args, rec.ID, rec.ChartKey, sid)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return translateMySQL(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Get loads a booking and its seats.  It returns ErrNotFound when no
// booking with that ID exists in chartKey.
func (r *BookingRepo) Get(ctx context.Context, chartKey, id string) (model.BookingRecord, error) {
	const q = `SELECT id, chart_key, booked_at FROM bookings WHERE id = ? AND chart_key = ?`
	var rec model.BookingRecord
	var bookedAt time.Time
	if err := r.db.QueryRowContext(ctx, q, id, chartKey).Scan(&rec.ID, &rec.ChartKey, &bookedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BookingRecord{}, ErrNotFound
		}
		return model.BookingRecord{}, err
	}
	rec.BookedAt = bookedAt.UTC()

	const seatQ = `SELECT seat_id FROM booking_seats WHERE booking_id = ? ORDER BY seat_id`
	rows, err := r.db.QueryContext(ctx, seatQ, id)
	if err != nil {
		return model.BookingRecord{}, err
	}
	defer rows.Close()
	rec.SeatIDs = []string{}
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return model.BookingRecord{}, err
		}
		rec.SeatIDs = append(rec.SeatIDs, sid)
	}
	if err := rows.Err(); err != nil {
		return model.BookingRecord{}, err
	}
	return rec, nil
}

// BookedSeats returns every seat of chartKey that has a booking.  It is
// used at startup to restore BOOKED seats into a fresh registry.
func (r *BookingRepo) BookedSeats(ctx context.Context, chartKey string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seat_id FROM booking_seats WHERE chart_key = ?`, chartKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		out = append(out, sid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func translateMySQL(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return ErrConflict
	}
	return err
}

// HashToken returns the SHA-256 hash of a hold token as a hex string.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}
