package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-hold-coordinator/internal/model"
)

func newTestRegistry() *SeatRegistry {
	return NewSeatRegistry(GridCatalog(1, 3)) // A1 A2 A3
}

func TestSeatRegistryStatusUnknownSeat(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Status("Z9")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Z9", SeatOf(err))
}

func TestSeatRegistryMarkHeld(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.MarkHeld("A1", "tok1"))

	s, err := r.Status("A1")
	require.NoError(t, err)
	assert.Equal(t, model.SeatHeld, s.Status)
	assert.Equal(t, "tok1", s.HoldToken)

	err = r.MarkHeld("A1", "tok2")
	assert.ErrorIs(t, err, ErrConflict)
	s, _ = r.Status("A1")
	assert.Equal(t, "tok1", s.HoldToken)
}

func TestSeatRegistryMarkFree(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.MarkHeld("A1", "tok1"))
	require.NoError(t, r.MarkFree("A1"))
	require.NoError(t, r.MarkFree("A1"), "freeing a free seat is a no-op")

	s, _ := r.Status("A1")
	assert.Equal(t, model.SeatFree, s.Status)
	assert.Empty(t, s.HoldToken)

	require.NoError(t, r.MarkHeld("A2", "tok1"))
	require.NoError(t, r.MarkBooked([]string{"A2"}, "tok1"))
	assert.ErrorIs(t, r.MarkFree("A2"), ErrInvalidState)
}

func TestSeatRegistryMarkBookedAllOrNothing(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.MarkHeld("A1", "tok1"))
	require.NoError(t, r.MarkHeld("A2", "tok2"))

	err := r.MarkBooked([]string{"A1", "A2", "A3"}, "tok1")
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "A2", SeatOf(err), "names the first offending seat")

	a1, _ := r.Status("A1")
	a2, _ := r.Status("A2")
	a3, _ := r.Status("A3")
	assert.Equal(t, model.SeatHeld, a1.Status)
	assert.Equal(t, model.SeatHeld, a2.Status)
	assert.Equal(t, model.SeatFree, a3.Status)

	require.NoError(t, r.MarkBooked([]string{"A1"}, "tok1"))
	a1, _ = r.Status("A1")
	assert.Equal(t, model.SeatBooked, a1.Status)
	assert.Empty(t, a1.HoldToken)
}

func TestSeatRegistryMarkBookedUnknownSeat(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.MarkHeld("A1", "tok1"))
	err := r.MarkBooked([]string{"A1", "Q7"}, "tok1")
	assert.ErrorIs(t, err, ErrNotFound)
	a1, _ := r.Status("A1")
	assert.Equal(t, model.SeatHeld, a1.Status)
}

func TestSeatRegistrySnapshotKeepsCatalogOrder(t *testing.T) {
	r := NewSeatRegistry([]model.Seat{{ID: "B2"}, {ID: "A1", Label: "Front 1"}, {ID: "B2"}})
	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "B2", snap[0].ID)
	assert.Equal(t, "B2", snap[0].Label)
	assert.Equal(t, "Front 1", snap[1].Label)
}

func TestSeatRegistryRestoreBooked(t *testing.T) {
	r := newTestRegistry()
	unknown := r.RestoreBooked([]string{"A3", "X1"})
	assert.Equal(t, []string{"X1"}, unknown)
	s, _ := r.Status("A3")
	assert.Equal(t, model.SeatBooked, s.Status)
	assert.ErrorIs(t, r.MarkHeld("A3", "tok"), ErrConflict)
}

func TestSeatRegistryHeldBy(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.MarkHeld("A3", "tok1"))
	require.NoError(t, r.MarkHeld("A1", "tok1"))
	require.NoError(t, r.MarkHeld("A2", "tok2"))
	assert.Equal(t, []string{"A1", "A3"}, r.HeldBy("tok1"))
}

func TestSeatRegistryNormalizesCatalogIDs(t *testing.T) {
	r := NewSeatRegistry([]model.Seat{{ID: "balcony-12"}, {ID: " Box-3 ", Label: "Box 3"}, {ID: "BALCONY-12"}, {ID: "  "}})
	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "BALCONY-12", snap[0].ID)
	assert.Equal(t, "balcony-12", snap[0].Label, "label keeps the catalog spelling")
	assert.Equal(t, "BOX-3", snap[1].ID)

	require.NoError(t, r.MarkHeld(model.NormalizeSeatID("balcony-12"), "tok1"))
	assert.Empty(t, r.RestoreBooked([]string{"box-3"}))
	s, err := r.Status("BOX-3")
	require.NoError(t, err)
	assert.Equal(t, model.SeatBooked, s.Status)
}
