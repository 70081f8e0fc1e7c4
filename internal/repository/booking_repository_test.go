package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-hold-coordinator/internal/model"
)

func newMockDB(t *testing.T) (*BookingRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBookingRepo(db), mock
}

func sampleBooking() model.BookingRecord {
	return model.BookingRecord{
		ID:       "0b7e1c4a-6f1e-4d0e-9c57-2f0d9f4b8a11",
		ChartKey: "gala",
		SeatIDs:  []string{"A1", "A2"},
		Token:    "tok1",
		BookedAt: time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC),
	}
}

func TestBookingRepoSave(t *testing.T) {
	repo, mock := newMockDB(t)
	rec := sampleBooking()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bookings (id, chart_key, hold_token_hash, booked_at) VALUES (?, ?, ?, ?)`)).
		WithArgs(rec.ID, "gala", HashToken("tok1"), "2026-03-01 19:00:00").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO booking_seats (booking_id, chart_key, seat_id) VALUES (?, ?, ?),(?, ?, ?)`)).
		WithArgs(rec.ID, "gala", "A1", rec.ID, "gala", "A2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepoSaveDuplicateSeatRollsBack(t *testing.T) {
	repo, mock := newMockDB(t)
	rec := sampleBooking()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO booking_seats").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'gala-A1'"})
	mock.ExpectRollback()

	err := repo.Save(context.Background(), rec)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepoSavePassesThroughOtherErrors(t *testing.T) {
	repo, mock := newMockDB(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").WillReturnError(boom)
	mock.ExpectRollback()

	err := repo.Save(context.Background(), sampleBooking())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepoGet(t *testing.T) {
	repo, mock := newMockDB(t)
	rec := sampleBooking()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, chart_key, booked_at FROM bookings WHERE id = ? AND chart_key = ?`)).
		WithArgs(rec.ID, "gala").
		WillReturnRows(sqlmock.NewRows([]string{"id", "chart_key", "booked_at"}).AddRow(rec.ID, "gala", rec.BookedAt))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT seat_id FROM booking_seats WHERE booking_id = ? ORDER BY seat_id`)).
		WithArgs(rec.ID).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow("A1").AddRow("A2"))

	got, err := repo.Get(context.Background(), "gala", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, []string{"A1", "A2"}, got.SeatIDs)
	assert.True(t, rec.BookedAt.Equal(got.BookedAt))
	assert.Empty(t, got.Token, "the token is never read back")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepoGetNotFound(t *testing.T) {
	repo, mock := newMockDB(t)
	mock.ExpectQuery("SELECT id, chart_key, booked_at FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "chart_key", "booked_at"}))

	_, err := repo.Get(context.Background(), "gala", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepoBookedSeats(t *testing.T) {
	repo, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT seat_id FROM booking_seats WHERE chart_key = ?`)).
		WithArgs("gala").
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow("B3").AddRow("A1"))

	seats, err := repo.BookedSeats(context.Background(), "gala")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B3"}, seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryBookingStore(t *testing.T) {
	s := NewMemoryBookingStore()
	ctx := context.Background()
	rec := sampleBooking()

	require.NoError(t, s.Save(ctx, rec))
	assert.ErrorIs(t, s.Save(ctx, rec), ErrConflict)

	rec.SeatIDs[0] = "Z9" // caller mutation must not leak into the store
	got, err := s.Get(ctx, "gala", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, got.SeatIDs)

	_, err = s.Get(ctx, "other", rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, s.Len())
}

func TestHashTokenTrims(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken(" abc\n"))
	assert.Len(t, HashToken("abc"), 64)
}
