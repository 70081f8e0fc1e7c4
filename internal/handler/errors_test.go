package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-hold-coordinator/internal/repository"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&repository.SeatError{Op: "hold", SeatID: "A1", Err: repository.ErrNotFound}, http.StatusNotFound},
		{&repository.SeatError{Op: "hold", SeatID: "A1", Err: repository.ErrConflict}, http.StatusConflict},
		{&repository.SeatError{Op: "free", SeatID: "A1", Err: repository.ErrInvalidState}, http.StatusUnprocessableEntity},
		{&repository.SeatError{Op: "book", Err: repository.ErrExpired}, http.StatusGone},
		{fmt.Errorf("chart %q: %w", "x", repository.ErrNotFound), http.StatusNotFound},
	}
	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		_ = respondError(c, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestRespondErrorInternal(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	err := respondError(c, errors.New("boom"))
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusInternalServerError, he.Code)
	assert.EqualError(t, he.Internal, "boom")
}

func TestRespondErrorNamesSeat(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = respondError(c, &repository.SeatError{Op: "book", SeatID: "B7", Err: repository.ErrConflict})
	assert.JSONEq(t, `{"error":"seat unavailable","seat_id":"B7"}`, rec.Body.String())
}

func TestRequestValidatorSeatID(t *testing.T) {
	v := NewRequestValidator()
	assert.NoError(t, v.Validate(&bookRequest{SeatIDs: []string{"A1", "balcony-12"}}))
	assert.Error(t, v.Validate(&bookRequest{SeatIDs: []string{"-A1"}}))
	assert.Error(t, v.Validate(&bookRequest{}))
	assert.Error(t, v.Validate(&adminLoginRequest{Key: "short"}))
}
