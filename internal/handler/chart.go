package handler

import (
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-hold-coordinator/internal/middleware"
	"github.com/iliyamo/seat-hold-coordinator/internal/model"
	"github.com/iliyamo/seat-hold-coordinator/internal/service"
)

// ChartHandler exposes the coordinator of each chart over HTTP.  Seat
// operations require a session token (see middleware.JWTAuth); the hold
// token is read from the context, never from the request body.
type ChartHandler struct {
	Charts *service.Charts
}

// NewChartHandler constructs a ChartHandler.  charts must be non-nil.
func NewChartHandler(charts *service.Charts) *ChartHandler {
	if charts == nil {
		panic("nil charts passed to NewChartHandler")
	}
	return &ChartHandler{Charts: charts}
}

type seatResponse struct {
	ID     string           `json:"id"`
	Label  string           `json:"label"`
	Status model.SeatStatus `json:"status"`
	Mine   bool             `json:"mine,omitempty"`
}

type holdResponse struct {
	ChartKey         string    `json:"chart_key"`
	SeatIDs          []string  `json:"seat_ids"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	RemainingSeconds int       `json:"remaining_seconds"`
}

type bookRequest struct {
	SeatIDs []string `json:"seat_ids" validate:"required,min=1,max=50,dive,seatid"`
}

func holdBody(chart string, v service.HoldView) holdResponse {
	return holdResponse{
		ChartKey:         chart,
		SeatIDs:          v.SeatIDs,
		CreatedAt:        v.CreatedAt,
		ExpiresAt:        v.ExpiresAt,
		RemainingSeconds: int(math.Ceil(v.Remaining.Seconds())),
	}
}

func (h *ChartHandler) chart(c echo.Context) (*service.Coordinator, error) {
	return h.Charts.Get(c.Param("chart"))
}

func requireHoldToken(c echo.Context) (string, bool) {
	tok := middleware.HoldToken(c)
	return tok, tok != ""
}

// Seats handles GET /v1/charts/:chart/seats.  It returns every seat in
// catalog order.  When the caller presents a session, seats it holds are
// flagged with "mine".
func (h *ChartHandler) Seats(c echo.Context) error {
	coord, err := h.chart(c)
	if err != nil {
		return respondError(c, err)
	}
	tok := middleware.HoldToken(c)
	seats := coord.Seats()
	out := make([]seatResponse, 0, len(seats))
	for _, s := range seats {
		out = append(out, seatResponse{
			ID:     s.ID,
			Label:  s.Label,
			Status: s.Status,
			Mine:   tok != "" && s.IsHeldBy(tok),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"chart_key": coord.ChartKey(), "seats": out})
}

// Select handles POST /v1/charts/:chart/seats/:seat/select.  It returns
// the caller's hold after the seat was added.
func (h *ChartHandler) Select(c echo.Context) error {
	tok, ok := requireHoldToken(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session required"})
	}
	coord, err := h.chart(c)
	if err != nil {
		return respondError(c, err)
	}
	view, err := coord.Select(c.Request().Context(), tok, model.NormalizeSeatID(c.Param("seat")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, holdBody(coord.ChartKey(), view))
}

// Deselect handles DELETE /v1/charts/:chart/seats/:seat/select.
func (h *ChartHandler) Deselect(c echo.Context) error {
	tok, ok := requireHoldToken(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session required"})
	}
	coord, err := h.chart(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := coord.Deselect(c.Request().Context(), tok, model.NormalizeSeatID(c.Param("seat"))); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Hold handles GET /v1/charts/:chart/hold and returns the caller's hold
// with its countdown.
func (h *ChartHandler) Hold(c echo.Context) error {
	tok, ok := requireHoldToken(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session required"})
	}
	coord, err := h.chart(c)
	if err != nil {
		return respondError(c, err)
	}
	view, err := coord.Hold(tok)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, holdBody(coord.ChartKey(), view))
}

// Book handles POST /v1/charts/:chart/book with {"seat_ids": [...]}.  It
// returns 201 with the booking record.
func (h *ChartHandler) Book(c echo.Context) error {
	tok, ok := requireHoldToken(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session required"})
	}
	coord, err := h.chart(c)
	if err != nil {
		return respondError(c, err)
	}
	var body bookRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids must list 1 to 50 seat identifiers"})
	}
	ids := make([]string, len(body.SeatIDs))
	for i, id := range body.SeatIDs {
		ids[i] = model.NormalizeSeatID(id)
	}
	rec, err := coord.Book(c.Request().Context(), tok, ids)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// Release handles DELETE /v1/charts/:chart/hold.  It frees every seat of
// the caller's hold.
func (h *ChartHandler) Release(c echo.Context) error {
	tok, ok := requireHoldToken(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session required"})
	}
	coord, err := h.chart(c)
	if err != nil {
		return respondError(c, err)
	}
	freed, err := coord.Release(c.Request().Context(), tok)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": freed})
}

// Booking handles GET /v1/charts/:chart/bookings/:id.  Records are
// immutable, which makes this route safe to cache.
func (h *ChartHandler) Booking(c echo.Context) error {
	coord, err := h.chart(c)
	if err != nil {
		return respondError(c, err)
	}
	rec, err := coord.Booking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}
