package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-hold-coordinator/internal/repository"
)

// respondError maps coordinator errors to HTTP responses:
//
//	ErrNotFound     -> 404
//	ErrConflict     -> 409
//	ErrInvalidState -> 422
//	ErrExpired      -> 410
//
// Anything else is returned to echo as a 500 carrying err as its internal
// cause, so the request logger records it.  When the error names a seat
// it is returned in the "seat_id" field so the chart can highlight it.
func respondError(c echo.Context, err error) error {
	var status int
	var msg string
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, repository.ErrConflict):
		status, msg = http.StatusConflict, "seat unavailable"
	case errors.Is(err, repository.ErrInvalidState):
		status, msg = http.StatusUnprocessableEntity, "invalid seat state"
	case errors.Is(err, repository.ErrExpired):
		status, msg = http.StatusGone, "hold expired; select seats again"
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
	body := echo.Map{"error": msg}
	if seat := repository.SeatOf(err); seat != "" {
		body["seat_id"] = seat
	}
	return c.JSON(status, body)
}
